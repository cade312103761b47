package network

import (
	"net"

	wificonnect "github.com/dogeorg/wificonnect/pkg"
	network_wifi "github.com/dogeorg/wificonnect/pkg/system/network/wifi"
	"github.com/sirupsen/logrus"
)

// Connected reports the network device is associated with, or nil when
// the device is not activated or not associated. radio may be nil; when
// given, the radio's own view of the link is preferred for SSID and
// signal.
func Connected(device wificonnect.WifiDevice, radio network_wifi.Radio, log logrus.FieldLogger) (*wificonnect.ConnectedNetwork, error) {
	state, err := device.State()
	if err != nil {
		return nil, err
	}
	if state != wificonnect.DeviceStateActivated {
		return nil, nil
	}

	ap, err := device.ActiveAccessPoint()
	if err != nil {
		return nil, err
	}
	if ap == nil {
		return nil, nil
	}

	ssid, _ := ap.SSID.AsString()
	out := &wificonnect.ConnectedNetwork{
		SSID:           ssid,
		Security:       ap.Security.String(),
		SignalStrength: min(ap.Strength, 100),
		Interface:      device.Interface(),
		IPAddress:      ipv4Address(device.Interface()),
	}

	if radio != nil {
		link, err := radio.Link(device.Interface())
		switch {
		case err != nil:
			log.WithError(err).Debug("could not read link from radio")
		case link != nil:
			if link.SSID != "" {
				out.SSID = link.SSID
			}
			if link.Signal != 0 {
				out.SignalStrength = network_wifi.SignalPercent(link.Signal)
			}
		}
	}

	return out, nil
}

var interfaceAddrs = func(name string) ([]net.Addr, error) {
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		return nil, err
	}
	return ifi.Addrs()
}

func ipv4Address(name string) string {
	addrs, err := interfaceAddrs(name)
	if err != nil {
		return ""
	}
	for _, a := range addrs {
		if ipnet, ok := a.(*net.IPNet); ok {
			if v4 := ipnet.IP.To4(); v4 != nil {
				return v4.String()
			}
		}
	}
	return ""
}
