package wificonnect

import (
	"fmt"
	"net"
	"net/netip"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	DEFAULT_SSID             = "WiFi Connect"
	DEFAULT_GATEWAY          = "192.168.42.1"
	DEFAULT_DHCP_RANGE       = "192.168.42.2,192.168.42.254"
	DEFAULT_LISTENING_PORT   = 80
	DEFAULT_UI_DIRECTORY     = "ui"
	DEFAULT_STATE_DIR        = "/tmp"
	DEFAULT_DNSMASQ          = "dnsmasq"
	DEFAULT_CONNECT_TIMEOUT  = 20 * time.Second
	STATE_FILE_NAME          = "wificonnect_hotspot.state"
	DNSMASQ_PID_FILE_NAME    = "wificonnect_dnsmasq.pid"
	DNSMASQ_LOG_FILE_NAME    = "wificonnect_dnsmasq.log"
	STATE_LOCK_FILE_SUFFIX   = ".lock"
	MIN_WPA_PASSPHRASE_BYTES = 8
)

// Config is the fully resolved runtime configuration. The CLI builds it
// from flags with environment fallbacks.
type Config struct {
	Interface          string
	SSID               string
	Passphrase         string
	Gateway            netip.Addr
	DHCPRange          string
	ListeningPort      int
	ActivityTimeout    time.Duration
	UIDirectory        string
	NoDHCPGateway      bool
	NoDHCPDNS          bool
	NoDHCPRouterOption bool
	StateDir           string
	Dnsmasq            string
	ConnectTimeout     time.Duration
	Verbose            bool
}

func DefaultConfig() Config {
	return Config{
		SSID:           DEFAULT_SSID,
		Gateway:        netip.MustParseAddr(DEFAULT_GATEWAY),
		DHCPRange:      DEFAULT_DHCP_RANGE,
		ListeningPort:  DEFAULT_LISTENING_PORT,
		UIDirectory:    DEFAULT_UI_DIRECTORY,
		StateDir:       DEFAULT_STATE_DIR,
		Dnsmasq:        DEFAULT_DNSMASQ,
		ConnectTimeout: DEFAULT_CONNECT_TIMEOUT,
	}
}

func (c Config) StatePath() string {
	return filepath.Join(c.StateDir, STATE_FILE_NAME)
}

func (c Config) LockPath() string {
	return c.StatePath() + STATE_LOCK_FILE_SUFFIX
}

func (c Config) PIDPath() string {
	return filepath.Join(c.StateDir, DNSMASQ_PID_FILE_NAME)
}

func (c Config) DnsmasqLogPath() string {
	return filepath.Join(c.StateDir, DNSMASQ_LOG_FILE_NAME)
}

// ListenAddress is where the portal API binds. It covers every interface,
// since the gateway address only exists once the hotspot is up.
func (c Config) ListenAddress() string {
	return net.JoinHostPort("", strconv.Itoa(c.ListeningPort))
}

func (c Config) Validate() error {
	if !c.Gateway.Is4() {
		return fmt.Errorf("gateway %q must be an IPv4 address", c.Gateway)
	}
	if c.SSID == "" {
		return fmt.Errorf("portal ssid must not be empty")
	}
	if len(c.SSID) > 32 {
		return fmt.Errorf("portal ssid %q is longer than 32 bytes", c.SSID)
	}
	if strings.ContainsAny(c.SSID, "|\n") {
		return fmt.Errorf("portal ssid %q contains a reserved character", c.SSID)
	}
	if c.Passphrase != "" && len(c.Passphrase) < MIN_WPA_PASSPHRASE_BYTES {
		return fmt.Errorf("portal passphrase must be at least %d characters", MIN_WPA_PASSPHRASE_BYTES)
	}
	if len(strings.Split(c.DHCPRange, ",")) < 2 {
		return fmt.Errorf("dhcp range %q must be <start>,<end>", c.DHCPRange)
	}
	if c.ListeningPort <= 0 || c.ListeningPort > 65535 {
		return fmt.Errorf("listening port %d out of range", c.ListeningPort)
	}
	if c.ActivityTimeout < 0 {
		return fmt.Errorf("activity timeout must not be negative")
	}
	if c.StateDir == "" {
		return fmt.Errorf("state directory must not be empty")
	}
	return nil
}
