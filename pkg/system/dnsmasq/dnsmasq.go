package dnsmasq

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"slices"
	"strconv"
	"syscall"
	"time"

	wificonnect "github.com/dogeorg/wificonnect/pkg"
	"github.com/shirou/gopsutil/v4/process"
	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_GRACE_PERIOD  = 3 * time.Second
	DEFAULT_STARTUP_GRACE = 300 * time.Millisecond
	pollInterval          = 100 * time.Millisecond
)

var _ wificonnect.DHCPSupervisor = &Supervisor{}

/* Supervisor runs dnsmasq as the hotspot's DHCP and DNS server.
 *
 * dnsmasq is started in its own process group so it keeps
 * running after this process exits. From then on it is
 * known only by its PID: the PID file written here and the
 * PID in the hotspot state are the only handles on it.
 */
type Supervisor struct {
	Binary       string
	PIDFile      string
	LogFile      string
	GracePeriod  time.Duration
	StartupGrace time.Duration

	log logrus.FieldLogger
}

func New(config wificonnect.Config, log logrus.FieldLogger) *Supervisor {
	return &Supervisor{
		Binary:       config.Dnsmasq,
		PIDFile:      config.PIDPath(),
		LogFile:      config.DnsmasqLogPath(),
		GracePeriod:  DEFAULT_GRACE_PERIOD,
		StartupGrace: DEFAULT_STARTUP_GRACE,
		log:          log.WithField("system", "dnsmasq"),
	}
}

// Args builds the dnsmasq command line serving the hotspot on iface.
func Args(config wificonnect.Config, iface string) []string {
	args := []string{}

	if !config.NoDHCPDNS {
		args = append(args, fmt.Sprintf("--address=/#/%s", config.Gateway))
	}

	args = append(args, fmt.Sprintf("--dhcp-range=%s", config.DHCPRange))

	if !config.NoDHCPGateway {
		args = append(args, fmt.Sprintf("--dhcp-option=option:router,%s", config.Gateway))
	} else if config.NoDHCPRouterOption {
		// an empty router option stops clients from guessing a gateway
		args = append(args, "--dhcp-option=option:router")
	}

	args = append(args,
		fmt.Sprintf("--interface=%s", iface),
		"--keep-in-foreground",
		"--bind-interfaces",
		"--except-interface=lo",
		"--conf-file",
		"--no-hosts",
	)

	return args
}

// Spawn starts dnsmasq and records its PID. A dnsmasq that exits during
// the startup grace period (bad arguments, port in use) is an error.
func (s *Supervisor) Spawn(config wificonnect.Config, iface string) (uint32, error) {
	args := Args(config, iface)

	logFile, err := os.OpenFile(s.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return 0, fmt.Errorf("could not open dnsmasq log %q: %w", s.LogFile, err)
	}
	defer logFile.Close()

	cmd := exec.Command(s.Binary, args...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	s.log.WithField("args", args).Debug("starting dnsmasq")

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("could not start %s: %w", s.Binary, err)
	}

	pid := uint32(cmd.Process.Pid)

	// reap it if it dies while we are still around
	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	select {
	case err := <-exited:
		return 0, fmt.Errorf("%s exited during startup (see %s): %v", s.Binary, s.LogFile, err)
	case <-time.After(s.StartupGrace):
	}

	if err := os.WriteFile(s.PIDFile, []byte(strconv.FormatUint(uint64(pid), 10)+"\n"), 0o644); err != nil {
		s.log.WithError(err).Warn("could not write dnsmasq pid file")
	}

	s.log.WithField("pid", pid).Info("dnsmasq started")
	return pid, nil
}

// Alive reports whether pid is a running process. Zombies are dead.
func (s *Supervisor) Alive(pid uint32) bool {
	if pid == 0 {
		return false
	}

	exists, err := process.PidExists(int32(pid))
	if err != nil || !exists {
		return false
	}

	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return false
	}

	status, err := p.Status()
	if err != nil {
		// status is unreadable for processes we do not own; existence is enough
		return true
	}
	return !slices.Contains(status, process.Zombie)
}

// Stop asks pid to terminate and kills it if it is still running after
// the grace period. The PID file is removed whatever happens.
func (s *Supervisor) Stop(pid uint32) error {
	defer s.removePIDFile()

	log := s.log.WithField("pid", pid)

	if !s.Alive(pid) {
		log.Debug("dnsmasq already gone")
		return nil
	}

	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil
	}

	if err := p.Terminate(); err != nil {
		log.WithError(err).Warn("could not terminate dnsmasq, killing it")
	} else if s.waitExit(pid, s.GracePeriod) {
		log.Info("dnsmasq stopped")
		return nil
	} else {
		log.Warn("dnsmasq did not exit in time, killing it")
	}

	if err := p.Kill(); err != nil && s.Alive(pid) {
		return fmt.Errorf("could not kill dnsmasq (pid %d): %w", pid, err)
	}

	if !s.waitExit(pid, s.GracePeriod) {
		return fmt.Errorf("dnsmasq (pid %d) is still running after SIGKILL", pid)
	}
	return nil
}

func (s *Supervisor) waitExit(pid uint32, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if !s.Alive(pid) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(pollInterval)
	}
}

func (s *Supervisor) removePIDFile() {
	if err := os.Remove(s.PIDFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.log.WithError(err).Warn("could not remove dnsmasq pid file")
	}
}
