package portal

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

var exitSignals = []os.Signal{syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGHUP}

// Service is anything that runs alongside the portal worker, like the
// REST API or the websocket relay. Run must return after sending on
// started and send on stopped once it has shut down.
type Service interface {
	Run(started, stopped chan bool, stop chan context.Context) error
}

// Run blocks until the worker finishes, an exit signal arrives or ctx is
// done. The hotspot is stopped before Run returns, on every path.
func (p *Portal) Run(ctx context.Context, services ...Service) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	exit := trapExitSignals(ctx)

	running, err := startServices(services)
	defer stopServices(running)
	if err != nil {
		return err
	}

	result := make(chan error, 1)
	quit := make(chan struct{})
	go func() {
		result <- p.work(quit)
	}()

	defer func() {
		if err := p.hotspot.Stop(); err != nil {
			p.log.WithError(err).Warn("could not stop hotspot on exit")
		}
	}()

	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		p.log.WithError(err).Debug("sd_notify failed")
	}

	select {
	case err = <-result:
		daemon.SdNotify(false, daemon.SdNotifyStopping)
		return err

	case sig := <-exit:
		p.log.Infof("Received %s", sig)

	case <-ctx.Done():
		p.log.Info("Portal cancelled")
	}

	daemon.SdNotify(false, daemon.SdNotifyStopping)
	close(quit)

	// let a worker in the middle of connecting or raising the
	// hotspot finish, so the teardown below is the last word
	select {
	case <-result:
	case <-time.After(p.ShutdownGrace):
		p.log.Warn("portal worker still busy, stopping anyway")
	}
	return nil
}

// trapExitSignals posts the first exit signal received on the returned
// channel. It stops listening once ctx is done.
func trapExitSignals(ctx context.Context) <-chan os.Signal {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, exitSignals...)

	exit := make(chan os.Signal, 1)
	go func() {
		defer signal.Stop(sigs)
		select {
		case sig := <-sigs:
			exit <- sig
		case <-ctx.Done():
		}
	}()
	return exit
}

type runningService struct {
	stopped chan bool
	stop    chan context.Context
}

func startServices(services []Service) ([]runningService, error) {
	running := make([]runningService, 0, len(services))
	for _, s := range services {
		rs := runningService{stopped: make(chan bool), stop: make(chan context.Context)}
		started := make(chan bool)
		if err := s.Run(started, rs.stopped, rs.stop); err != nil {
			return running, err
		}
		<-started
		running = append(running, rs)
	}
	return running, nil
}

// stopServices stops in reverse start order.
func stopServices(running []runningService) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(running) - 1; i >= 0; i-- {
		running[i].stop <- ctx
		<-running[i].stopped
	}
}
