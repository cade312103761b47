package wificonnect

import (
	"bytes"
	"fmt"
	"net/netip"
	"strconv"
	"strings"
	"time"
)

// see ./system for implementations

// StateStore persists the single HotspotState record across invocations.
// Load returns ErrNoState when nothing is stored.
type StateStore interface {
	Load() (HotspotState, error)
	Save(HotspotState) error
	Clear() error
}

// DHCPSupervisor runs the DHCP/DNS daemon backing a hotspot. The daemon
// outlives this process, so it is tracked by PID only.
type DHCPSupervisor interface {
	Spawn(config Config, iface string) (uint32, error)
	Alive(pid uint32) bool
	Stop(pid uint32) error
}

const stateFieldCount = 7

/* HotspotState is the persisted record of a hotspot this program
 * started. It is stored as a single pipe-delimited line:
 *
 *   running|ssid|gateway|interface|has_password|dhcp_pid|started_at
 *
 * Booleans are "1"/"0" and an absent PID is "0".
 */
type HotspotState struct {
	Running     bool
	SSID        string
	Gateway     netip.Addr
	Interface   string
	HasPassword bool
	DHCPPID     *uint32
	StartedAt   int64
}

func (s HotspotState) MarshalText() ([]byte, error) {
	if !s.Gateway.Is4() {
		return nil, fmt.Errorf("%w: gateway %q is not an IPv4 address", ErrInvalidState, s.Gateway)
	}
	if strings.ContainsAny(s.SSID, "|\n") || strings.ContainsAny(s.Interface, "|\n") {
		return nil, fmt.Errorf("%w: field contains a delimiter", ErrInvalidState)
	}
	if s.StartedAt < 0 {
		return nil, fmt.Errorf("%w: negative start time", ErrInvalidState)
	}

	pid := "0"
	if s.DHCPPID != nil {
		if *s.DHCPPID == 0 {
			return nil, fmt.Errorf("%w: dhcp pid 0 is indistinguishable from no pid", ErrInvalidState)
		}
		pid = strconv.FormatUint(uint64(*s.DHCPPID), 10)
	}

	fields := []string{
		flag(s.Running),
		s.SSID,
		s.Gateway.String(),
		s.Interface,
		flag(s.HasPassword),
		pid,
		strconv.FormatInt(s.StartedAt, 10),
	}
	return []byte(strings.Join(fields, "|")), nil
}

// UnmarshalText only modifies s when the whole record is valid.
func (s *HotspotState) UnmarshalText(text []byte) error {
	parts := strings.Split(string(bytes.TrimSpace(text)), "|")
	if len(parts) != stateFieldCount {
		return fmt.Errorf("%w: expected %d fields, got %d", ErrInvalidState, stateFieldCount, len(parts))
	}

	running, err := parseFlag(parts[0])
	if err != nil {
		return fmt.Errorf("%w: running: %w", ErrInvalidState, err)
	}

	gateway, err := netip.ParseAddr(parts[2])
	if err != nil {
		return fmt.Errorf("%w: gateway: %w", ErrInvalidState, err)
	}
	if !gateway.Is4() {
		return fmt.Errorf("%w: gateway %q is not an IPv4 address", ErrInvalidState, parts[2])
	}

	hasPassword, err := parseFlag(parts[4])
	if err != nil {
		return fmt.Errorf("%w: has_password: %w", ErrInvalidState, err)
	}

	// any spelling of 0 is an absent pid
	var pid *uint32
	p, err := strconv.ParseUint(parts[5], 10, 32)
	if err != nil {
		return fmt.Errorf("%w: dhcp_pid: %w", ErrInvalidState, err)
	}
	if p != 0 {
		v := uint32(p)
		pid = &v
	}

	startedAt, err := strconv.ParseUint(parts[6], 10, 63)
	if err != nil {
		return fmt.Errorf("%w: started_at: %w", ErrInvalidState, err)
	}

	*s = HotspotState{
		Running:     running,
		SSID:        parts[1],
		Gateway:     gateway,
		Interface:   parts[3],
		HasPassword: hasPassword,
		DHCPPID:     pid,
		StartedAt:   int64(startedAt),
	}
	return nil
}

func (s HotspotState) String() string {
	b, err := s.MarshalText()
	if err != nil {
		return fmt.Sprintf("<invalid: %v>", err)
	}
	return string(b)
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func parseFlag(s string) (bool, error) {
	switch s {
	case "1":
		return true, nil
	case "0":
		return false, nil
	}
	return false, fmt.Errorf("expected 1 or 0, got %q", s)
}

// HotspotStatus is what a status check reports. Only Running is
// meaningful when the hotspot is stopped.
type HotspotStatus struct {
	Running     bool          `json:"running"`
	SSID        string        `json:"ssid,omitempty"`
	Gateway     string        `json:"gateway,omitempty"`
	Interface   string        `json:"interface,omitempty"`
	HasPassword bool          `json:"hasPassword"`
	Uptime      time.Duration `json:"uptime"`
}

// UptimeString formats Uptime as HH:MM:SS.
func (s HotspotStatus) UptimeString() string {
	total := int64(s.Uptime / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}
