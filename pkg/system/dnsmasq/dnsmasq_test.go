package dnsmasq

import (
	"errors"
	"io/fs"
	"net/netip"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	wificonnect "github.com/dogeorg/wificonnect/pkg"
	"github.com/dogeorg/wificonnect/pkg/logging"
	"github.com/google/go-cmp/cmp"
)

func TestArgs(t *testing.T) {
	base := wificonnect.DefaultConfig()
	base.Gateway = netip.MustParseAddr("192.168.42.1")

	tail := []string{
		"--interface=wlan0",
		"--keep-in-foreground",
		"--bind-interfaces",
		"--except-interface=lo",
		"--conf-file",
		"--no-hosts",
	}

	tests := []struct {
		name   string
		mutate func(*wificonnect.Config)
		head   []string
	}{
		{
			name:   "defaults",
			mutate: func(*wificonnect.Config) {},
			head: []string{
				"--address=/#/192.168.42.1",
				"--dhcp-range=192.168.42.2,192.168.42.254",
				"--dhcp-option=option:router,192.168.42.1",
			},
		},
		{
			name:   "no dns",
			mutate: func(c *wificonnect.Config) { c.NoDHCPDNS = true },
			head: []string{
				"--dhcp-range=192.168.42.2,192.168.42.254",
				"--dhcp-option=option:router,192.168.42.1",
			},
		},
		{
			name:   "no gateway",
			mutate: func(c *wificonnect.Config) { c.NoDHCPGateway = true },
			head: []string{
				"--address=/#/192.168.42.1",
				"--dhcp-range=192.168.42.2,192.168.42.254",
			},
		},
		{
			name: "no gateway with empty router option",
			mutate: func(c *wificonnect.Config) {
				c.NoDHCPGateway = true
				c.NoDHCPRouterOption = true
			},
			head: []string{
				"--address=/#/192.168.42.1",
				"--dhcp-range=192.168.42.2,192.168.42.254",
				"--dhcp-option=option:router",
			},
		},
		{
			name:   "router option flag alone changes nothing",
			mutate: func(c *wificonnect.Config) { c.NoDHCPRouterOption = true },
			head: []string{
				"--address=/#/192.168.42.1",
				"--dhcp-range=192.168.42.2,192.168.42.254",
				"--dhcp-option=option:router,192.168.42.1",
			},
		},
		{
			name: "isolated portal",
			mutate: func(c *wificonnect.Config) {
				c.NoDHCPDNS = true
				c.NoDHCPGateway = true
				c.DHCPRange = "10.0.0.10,10.0.0.20"
			},
			head: []string{"--dhcp-range=10.0.0.10,10.0.0.20"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			want := append(append([]string{}, tt.head...), tail...)
			if diff := cmp.Diff(want, Args(cfg, "wlan0")); diff != "" {
				t.Errorf("Args mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// fakeDnsmasq writes a shell script standing in for dnsmasq.
func fakeDnsmasq(t *testing.T, body string) (*Supervisor, wificonnect.Config) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("no sh available")
	}

	dir := t.TempDir()
	bin := filepath.Join(dir, "fake-dnsmasq")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := wificonnect.DefaultConfig()
	cfg.StateDir = dir
	cfg.Dnsmasq = bin

	s := New(cfg, logging.Discard())
	s.GracePeriod = 2 * time.Second
	s.StartupGrace = 100 * time.Millisecond
	return s, cfg
}

func TestSpawnAndStop(t *testing.T) {
	s, cfg := fakeDnsmasq(t, `echo "$@"; exec sleep 30`)

	pid, err := s.Spawn(cfg, "wlan0")
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if !s.Alive(pid) {
		t.Fatal("spawned process is not alive")
	}

	raw, err := os.ReadFile(cfg.PIDPath())
	if err != nil {
		t.Fatalf("pid file: %v", err)
	}
	if strings.TrimSpace(string(raw)) != strconv.FormatUint(uint64(pid), 10) {
		t.Errorf("pid file = %q, want %d", raw, pid)
	}

	if err := s.Stop(pid); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if s.Alive(pid) {
		t.Error("process still alive after Stop")
	}
	if _, err := os.Stat(cfg.PIDPath()); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("pid file still present: %v", err)
	}

	logged, err := os.ReadFile(cfg.DnsmasqLogPath())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(logged), "--interface=wlan0") {
		t.Errorf("dnsmasq log = %q", logged)
	}
}

func TestStopKillsStubbornProcess(t *testing.T) {
	s, cfg := fakeDnsmasq(t, `trap '' TERM; while :; do sleep 1; done`)
	s.GracePeriod = 300 * time.Millisecond

	pid, err := s.Spawn(cfg, "wlan0")
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if err := s.Stop(pid); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if s.Alive(pid) {
		t.Error("stubborn process survived Stop")
	}
}

func TestSpawnEarlyExit(t *testing.T) {
	s, cfg := fakeDnsmasq(t, `exit 3`)
	s.StartupGrace = 2 * time.Second

	if _, err := s.Spawn(cfg, "wlan0"); err == nil {
		t.Fatal("expected error for a dnsmasq that exits immediately")
	}
	if _, err := os.Stat(cfg.PIDPath()); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("pid file written for failed start: %v", err)
	}
}

func TestSpawnMissingBinary(t *testing.T) {
	cfg := wificonnect.DefaultConfig()
	cfg.StateDir = t.TempDir()
	cfg.Dnsmasq = filepath.Join(cfg.StateDir, "does-not-exist")

	if _, err := New(cfg, logging.Discard()).Spawn(cfg, "wlan0"); err == nil {
		t.Fatal("expected error")
	}
}

func TestStopDeadPID(t *testing.T) {
	cfg := wificonnect.DefaultConfig()
	cfg.StateDir = t.TempDir()
	s := New(cfg, logging.Discard())

	if err := os.WriteFile(cfg.PIDPath(), []byte("999999\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		t.Skip("no true binary")
	}
	dead := uint32(cmd.Process.Pid)

	if s.Alive(dead) {
		t.Skip("pid was reused")
	}
	if err := s.Stop(dead); err != nil {
		t.Errorf("Stop on dead pid: %v", err)
	}
	if _, err := os.Stat(cfg.PIDPath()); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("pid file not removed: %v", err)
	}
}

func TestAliveZero(t *testing.T) {
	if New(wificonnect.DefaultConfig(), logging.Discard()).Alive(0) {
		t.Error("pid 0 reported alive")
	}
}
