package network_nm

import (
	"fmt"
	"net/netip"

	wificonnect "github.com/dogeorg/wificonnect/pkg"
	"github.com/godbus/dbus/v5"
)

// NM_DEVICE_TYPE_*
const (
	nmDeviceTypeEthernet uint32 = 1
	nmDeviceTypeWifi     uint32 = 2
)

var _ wificonnect.Device = &device{}
var _ wificonnect.WifiDevice = &wifiDevice{}

type device struct {
	nm    *NetworkManager
	obj   dbus.BusObject
	iface string
	kind  wificonnect.DeviceType
}

type wifiDevice struct {
	*device
}

func (nm *NetworkManager) device(p dbus.ObjectPath) (*device, error) {
	obj := nm.conn.Object(nmService, p)

	props, err := nm.getAll(obj, nmDevice)
	if err != nil {
		return nil, fmt.Errorf("could not read device %s: %w", p, err)
	}

	iface, _ := props["Interface"].Value().(string)
	kind, _ := props["DeviceType"].Value().(uint32)

	return &device{
		nm:    nm,
		obj:   obj,
		iface: iface,
		kind:  deviceType(kind),
	}, nil
}

func deviceType(nmType uint32) wificonnect.DeviceType {
	switch nmType {
	case nmDeviceTypeEthernet:
		return wificonnect.DeviceTypeEthernet
	case nmDeviceTypeWifi:
		return wificonnect.DeviceTypeWifi
	default:
		return wificonnect.DeviceTypeOther
	}
}

func (d *device) Interface() string { return d.iface }

func (d *device) Type() wificonnect.DeviceType { return d.kind }

func (d *device) State() (wificonnect.DeviceState, error) {
	v, err := d.obj.GetProperty(nmDevice + ".State")
	if err != nil {
		return wificonnect.DeviceStateUnknown, fmt.Errorf("could not read state of %s: %w", d.iface, err)
	}
	state, ok := v.Value().(uint32)
	if !ok {
		return wificonnect.DeviceStateUnknown, fmt.Errorf("unexpected state value %v for %s", v, d.iface)
	}
	return wificonnect.DeviceState(state), nil
}

func (d *device) Disconnect() error {
	if call := d.obj.Call(nmDevice+".Disconnect", 0); call.Err != nil {
		return fmt.Errorf("could not disconnect %s: %w", d.iface, call.Err)
	}
	return nil
}

func (d *device) Wifi() (wificonnect.WifiDevice, bool) {
	if d.kind != wificonnect.DeviceTypeWifi {
		return nil, false
	}
	return &wifiDevice{device: d}, true
}

func (w *wifiDevice) RequestScan() error {
	if call := w.obj.Call(nmWireless+".RequestScan", 0, map[string]dbus.Variant{}); call.Err != nil {
		return fmt.Errorf("could not request scan on %s: %w", w.iface, call.Err)
	}
	return nil
}

func (w *wifiDevice) AccessPoints() ([]wificonnect.AccessPoint, error) {
	var paths []dbus.ObjectPath
	if err := w.obj.Call(nmWireless+".GetAllAccessPoints", 0).Store(&paths); err != nil {
		return nil, fmt.Errorf("could not list access points on %s: %w", w.iface, err)
	}

	aps := make([]wificonnect.AccessPoint, 0, len(paths))
	for _, p := range paths {
		ap, err := w.nm.accessPoint(p)
		if err != nil {
			// access points disappear between listing and reading
			w.nm.log.WithError(err).WithField("ap", p).Debug("skipping access point")
			continue
		}
		aps = append(aps, ap)
	}
	return aps, nil
}

func (w *wifiDevice) ActiveAccessPoint() (*wificonnect.AccessPoint, error) {
	v, err := w.obj.GetProperty(nmWireless + ".ActiveAccessPoint")
	if err != nil {
		return nil, fmt.Errorf("could not read active access point on %s: %w", w.iface, err)
	}
	p, ok := v.Value().(dbus.ObjectPath)
	if !ok || p == noPath || p == "" {
		return nil, nil
	}
	ap, err := w.nm.accessPoint(p)
	if err != nil {
		return nil, err
	}
	return &ap, nil
}

func (w *wifiDevice) Connect(ap wificonnect.AccessPoint, creds wificonnect.Credentials) (wificonnect.Connection, wificonnect.ConnectionState, error) {
	settings := connectSettings(ap.SSID, creds)
	return w.nm.addAndActivate(settings, w.obj.Path(), dbus.ObjectPath(ap.Path))
}

func (w *wifiDevice) CreateHotspot(ssid string, passphrase string, gateway netip.Addr) (wificonnect.Connection, wificonnect.ConnectionState, error) {
	if !gateway.Is4() {
		return nil, wificonnect.ConnectionStateUnknown, fmt.Errorf("hotspot gateway %s is not an IPv4 address", gateway)
	}
	settings := hotspotSettings(ssid, passphrase, gateway)
	return w.nm.addAndActivate(settings, w.obj.Path(), noPath)
}

func (nm *NetworkManager) accessPoint(p dbus.ObjectPath) (wificonnect.AccessPoint, error) {
	props, err := nm.getAll(nm.conn.Object(nmService, p), nmAccessPoint)
	if err != nil {
		return wificonnect.AccessPoint{}, fmt.Errorf("could not read access point %s: %w", p, err)
	}

	ssid, _ := props["Ssid"].Value().([]byte)
	flags, _ := props["Flags"].Value().(uint32)
	wpa, _ := props["WpaFlags"].Value().(uint32)
	rsn, _ := props["RsnFlags"].Value().(uint32)
	strength, _ := props["Strength"].Value().(byte)

	return wificonnect.AccessPoint{
		SSID:     wificonnect.SSID(ssid),
		Security: security(flags, wpa, rsn),
		Strength: strength,
		Path:     string(p),
	}, nil
}
