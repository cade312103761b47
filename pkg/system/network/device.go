package network

import (
	"fmt"

	wificonnect "github.com/dogeorg/wificonnect/pkg"
	"github.com/sirupsen/logrus"
)

/* FindDevice picks the WiFi device to operate on.
 *
 * With an interface name the device must exist, be a WiFi
 * device and be managed by the network service. Without one,
 * the first managed WiFi device wins.
 */
func FindDevice(gw wificonnect.NetworkGateway, iface string, log logrus.FieldLogger) (wificonnect.WifiDevice, error) {
	if iface != "" {
		d, err := gw.DeviceByInterface(iface)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", wificonnect.ErrNoWifiDevice, iface, err)
		}

		log.Infof("Targeted WiFi device: %s", iface)

		w, ok := d.Wifi()
		if !ok {
			return nil, fmt.Errorf("%w: %s", wificonnect.ErrNotWifiDevice, iface)
		}

		state, err := d.State()
		if err != nil {
			return nil, err
		}
		if state == wificonnect.DeviceStateUnmanaged {
			return nil, fmt.Errorf("%w: %s", wificonnect.ErrUnmanagedDevice, iface)
		}

		return w, nil
	}

	devices, err := gw.Devices()
	if err != nil {
		return nil, err
	}

	for _, d := range devices {
		w, ok := d.Wifi()
		if !ok {
			continue
		}
		state, err := d.State()
		if err != nil {
			return nil, err
		}
		if state != wificonnect.DeviceStateUnmanaged {
			log.Infof("WiFi device: %s", d.Interface())
			return w, nil
		}
	}

	return nil, wificonnect.ErrNoWifiDevice
}

// Disconnect drops whatever network the device is on. It reports false
// when the device had no active connection.
func Disconnect(device wificonnect.Device) (bool, error) {
	state, err := device.State()
	if err != nil {
		return false, err
	}
	if state != wificonnect.DeviceStateActivated {
		return false, nil
	}
	if err := device.Disconnect(); err != nil {
		return false, err
	}
	return true, nil
}
