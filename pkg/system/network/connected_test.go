package network

import (
	"errors"
	"net"
	"testing"

	wificonnect "github.com/dogeorg/wificonnect/pkg"
	"github.com/dogeorg/wificonnect/pkg/gatewaytest"
	"github.com/dogeorg/wificonnect/pkg/logging"
	network_wifi "github.com/dogeorg/wificonnect/pkg/system/network/wifi"
	"github.com/google/go-cmp/cmp"
)

type fakeRadio struct {
	link *network_wifi.Link
	err  error
}

func (r fakeRadio) Interfaces() ([]network_wifi.Interface, error) { return nil, nil }
func (r fakeRadio) Link(string) (*network_wifi.Link, error)      { return r.link, r.err }
func (r fakeRadio) Close() error                                  { return nil }

func stubAddrs(t *testing.T, addrs []net.Addr) {
	orig := interfaceAddrs
	interfaceAddrs = func(string) ([]net.Addr, error) { return addrs, nil }
	t.Cleanup(func() { interfaceAddrs = orig })
}

func TestConnected(t *testing.T) {
	stubAddrs(t, []net.Addr{
		&net.IPNet{IP: net.ParseIP("fe80::1"), Mask: net.CIDRMask(64, 128)},
		&net.IPNet{IP: net.ParseIP("10.1.2.3"), Mask: net.CIDRMask(24, 32)},
	})

	home := gatewaytest.AP("home", wificonnect.SecurityWPA2, 140)

	tests := []struct {
		name   string
		state  wificonnect.DeviceState
		active *wificonnect.AccessPoint
		radio  network_wifi.Radio
		want   *wificonnect.ConnectedNetwork
	}{
		{"not activated", wificonnect.DeviceStateDisconnected, &home, nil, nil},
		{"no active access point", wificonnect.DeviceStateActivated, nil, nil, nil},
		{
			name: "from network service", state: wificonnect.DeviceStateActivated, active: &home,
			want: &wificonnect.ConnectedNetwork{SSID: "home", Security: "wpa", SignalStrength: 100, Interface: "wlan0", IPAddress: "10.1.2.3"},
		},
		{
			name: "radio link preferred", state: wificonnect.DeviceStateActivated, active: &home,
			radio: fakeRadio{link: &network_wifi.Link{SSID: "home", Signal: -70}},
			want:  &wificonnect.ConnectedNetwork{SSID: "home", Security: "wpa", SignalStrength: 60, Interface: "wlan0", IPAddress: "10.1.2.3"},
		},
		{
			name: "radio error ignored", state: wificonnect.DeviceStateActivated, active: &home,
			radio: fakeRadio{err: errors.New("no nl80211")},
			want:  &wificonnect.ConnectedNetwork{SSID: "home", Security: "wpa", SignalStrength: 100, Interface: "wlan0", IPAddress: "10.1.2.3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := gatewaytest.NewWifiDevice("wlan0")
			gatewaytest.New(d)
			d.DevState = tt.state
			d.Active = tt.active

			got, err := Connected(d, tt.radio, logging.Discard())
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Connected mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
