package network_wifi

import (
	"errors"
	"fmt"
	"os"

	"github.com/mdlayher/wifi"
)

// Interface is a wireless interface as the kernel's nl80211 sees it.
type Interface struct {
	Name         string `json:"name"`
	HardwareAddr string `json:"hardwareAddr"`
	PHY          int    `json:"phy"`
	Type         string `json:"type"`
}

// Link is the association of an interface with an access point.
type Link struct {
	SSID   string
	BSSID  string
	Signal int // dBm
}

// Radio reads interface and link information straight from the radio,
// bypassing NetworkManager.
type Radio interface {
	Interfaces() ([]Interface, error)
	Link(iface string) (*Link, error)
	Close() error
}

var _ Radio = &nl80211Radio{}

type nl80211Radio struct {
	c *wifi.Client
}

func NewRadio() (Radio, error) {
	c, err := wifi.New()
	if err != nil {
		return nil, fmt.Errorf("could not open nl80211: %w", err)
	}
	return &nl80211Radio{c: c}, nil
}

func (r *nl80211Radio) Close() error {
	return r.c.Close()
}

func (r *nl80211Radio) Interfaces() ([]Interface, error) {
	ifis, err := r.c.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("could not list wifi interfaces: %w", err)
	}

	out := make([]Interface, 0, len(ifis))
	for _, ifi := range ifis {
		// P2P and other virtual devices have no netdev name
		if ifi.Name == "" {
			continue
		}
		out = append(out, Interface{
			Name:         ifi.Name,
			HardwareAddr: ifi.HardwareAddr.String(),
			PHY:          ifi.PHY,
			Type:         ifi.Type.String(),
		})
	}
	return out, nil
}

// Link returns nil when the interface is not associated.
func (r *nl80211Radio) Link(name string) (*Link, error) {
	ifi, err := r.find(name)
	if err != nil {
		return nil, err
	}

	bss, err := r.c.BSS(ifi)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not read BSS for %s: %w", name, err)
	}

	link := &Link{SSID: bss.SSID, BSSID: bss.BSSID.String()}

	stations, err := r.c.StationInfo(ifi)
	if err == nil && len(stations) > 0 {
		link.Signal = stations[0].Signal
	}

	return link, nil
}

func (r *nl80211Radio) find(name string) (*wifi.Interface, error) {
	ifis, err := r.c.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("could not list wifi interfaces: %w", err)
	}
	for _, ifi := range ifis {
		if ifi.Name == name {
			return ifi, nil
		}
	}
	return nil, fmt.Errorf("no wifi interface named %q", name)
}

// SignalPercent maps dBm onto 0-100 the way NetworkManager does.
func SignalPercent(dbm int) uint8 {
	p := 2 * (dbm + 100)
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return uint8(p)
}
