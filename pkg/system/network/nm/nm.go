package network_nm

import (
	"errors"
	"fmt"
	"time"

	wificonnect "github.com/dogeorg/wificonnect/pkg"
	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
)

const (
	nmService   = "org.freedesktop.NetworkManager"
	nmPath      = dbus.ObjectPath("/org/freedesktop/NetworkManager")
	nmInterface = nmService

	nmSettingsPath      = dbus.ObjectPath("/org/freedesktop/NetworkManager/Settings")
	nmSettingsInterface = nmService + ".Settings"
	nmConnection        = nmService + ".Settings.Connection"
	nmDevice            = nmService + ".Device"
	nmWireless          = nmService + ".Device.Wireless"
	nmAccessPoint       = nmService + ".AccessPoint"
	nmActiveConnection  = nmService + ".Connection.Active"

	dbusGetAll = "org.freedesktop.DBus.Properties.GetAll"

	noPath = dbus.ObjectPath("/")

	DEFAULT_ACTIVATION_TIMEOUT = 60 * time.Second
	activationPollInterval     = 500 * time.Millisecond
)

var _ wificonnect.NetworkGateway = &NetworkManager{}

/* NetworkManager talks to the NetworkManager daemon over the
 * system bus. Every method is a remote call; nothing here
 * caches daemon state except the device identity read when a
 * Device is built.
 */
type NetworkManager struct {
	conn *dbus.Conn
	obj  dbus.BusObject
	log  logrus.FieldLogger

	// ActivationTimeout bounds how long Connect and CreateHotspot wait
	// for an activation to leave the activating state.
	ActivationTimeout time.Duration
}

func New(log logrus.FieldLogger) (*NetworkManager, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("%w: could not connect to system bus: %w", wificonnect.ErrServiceUnavailable, err)
	}

	nm := &NetworkManager{
		conn:              conn,
		obj:               conn.Object(nmService, nmPath),
		log:               log.WithField("system", "networkmanager"),
		ActivationTimeout: DEFAULT_ACTIVATION_TIMEOUT,
	}

	if _, err := nm.obj.GetProperty(nmInterface + ".Version"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %w", wificonnect.ErrServiceUnavailable, err)
	}

	return nm, nil
}

func (nm *NetworkManager) Close() error {
	return nm.conn.Close()
}

func (nm *NetworkManager) Devices() ([]wificonnect.Device, error) {
	var paths []dbus.ObjectPath
	if err := nm.obj.Call(nmInterface+".GetDevices", 0).Store(&paths); err != nil {
		return nil, fmt.Errorf("could not list devices: %w", err)
	}

	return readEach(paths, func(p dbus.ObjectPath) (wificonnect.Device, error) {
		return nm.device(p)
	}, nm.log.WithField("kind", "device")), nil
}

func (nm *NetworkManager) DeviceByInterface(name string) (wificonnect.Device, error) {
	var p dbus.ObjectPath
	if err := nm.obj.Call(nmInterface+".GetDeviceByIpIface", 0, name).Store(&p); err != nil {
		return nil, fmt.Errorf("could not find device %q: %w", name, err)
	}
	return nm.device(p)
}

func (nm *NetworkManager) Connections() ([]wificonnect.Connection, error) {
	settings := nm.conn.Object(nmService, nmSettingsPath)

	var paths []dbus.ObjectPath
	if err := settings.Call(nmSettingsInterface+".ListConnections", 0).Store(&paths); err != nil {
		return nil, fmt.Errorf("could not list connections: %w", err)
	}

	return readEach(paths, func(p dbus.ObjectPath) (wificonnect.Connection, error) {
		return nm.connection(p)
	}, nm.log.WithField("kind", "connection")), nil
}

// readEach reads every listed object, skipping those that fail. Devices
// and profiles can disappear between listing and reading, and one stale
// path must not hide the rest.
func readEach[T any](paths []dbus.ObjectPath, read func(dbus.ObjectPath) (T, error), log logrus.FieldLogger) []T {
	out := make([]T, 0, len(paths))
	for _, p := range paths {
		v, err := read(p)
		if err != nil {
			log.WithError(err).WithField("path", p).Warn("skipping unreadable object")
			continue
		}
		out = append(out, v)
	}
	return out
}

// Connectivity asks the daemon to re-check, and falls back to the last
// known value when checking is disabled or fails.
func (nm *NetworkManager) Connectivity() (wificonnect.Connectivity, error) {
	var state uint32
	err := nm.obj.Call(nmInterface+".CheckConnectivity", 0).Store(&state)
	if err == nil {
		return wificonnect.Connectivity(state), nil
	}
	nm.log.WithError(err).Debug("CheckConnectivity failed, reading cached value")

	v, err := nm.obj.GetProperty(nmInterface + ".Connectivity")
	if err != nil {
		return wificonnect.ConnectivityUnknown, fmt.Errorf("could not read connectivity: %w", err)
	}
	state, ok := v.Value().(uint32)
	if !ok {
		return wificonnect.ConnectivityUnknown, fmt.Errorf("unexpected connectivity value %v", v)
	}
	return wificonnect.Connectivity(state), nil
}

// addAndActivate creates a profile and activates it on device, then waits
// for the activation to settle.
func (nm *NetworkManager) addAndActivate(settings connectionSettings, device, specific dbus.ObjectPath) (wificonnect.Connection, wificonnect.ConnectionState, error) {
	var settingsPath, activePath dbus.ObjectPath
	call := nm.obj.Call(nmInterface+".AddAndActivateConnection", 0, map[string]map[string]dbus.Variant(settings), device, specific)
	if err := call.Store(&settingsPath, &activePath); err != nil {
		return nil, wificonnect.ConnectionStateUnknown, fmt.Errorf("could not activate connection: %w", err)
	}

	conn, err := nm.connection(settingsPath)
	if err != nil {
		return nil, wificonnect.ConnectionStateUnknown, err
	}

	return conn, nm.waitActivation(activePath), nil
}

func (nm *NetworkManager) waitActivation(active dbus.ObjectPath) wificonnect.ConnectionState {
	deadline := time.Now().Add(nm.ActivationTimeout)
	for {
		state, err := nm.activeState(active)
		if err != nil {
			// NM removes the active object when activation fails
			nm.log.WithError(err).WithField("active", active).Debug("active connection gone")
			return wificonnect.ConnectionStateDeactivated
		}
		if state != wificonnect.ConnectionStateActivating || time.Now().After(deadline) {
			return state
		}
		time.Sleep(activationPollInterval)
	}
}

func (nm *NetworkManager) activeState(active dbus.ObjectPath) (wificonnect.ConnectionState, error) {
	v, err := nm.conn.Object(nmService, active).GetProperty(nmActiveConnection + ".State")
	if err != nil {
		return wificonnect.ConnectionStateUnknown, err
	}
	state, ok := v.Value().(uint32)
	if !ok {
		return wificonnect.ConnectionStateUnknown, fmt.Errorf("unexpected state value %v", v)
	}
	return wificonnect.ConnectionState(state), nil
}

// activeFor returns the active connection object for a settings profile.
func (nm *NetworkManager) activeFor(settings dbus.ObjectPath) (dbus.ObjectPath, bool, error) {
	v, err := nm.obj.GetProperty(nmInterface + ".ActiveConnections")
	if err != nil {
		return "", false, fmt.Errorf("could not list active connections: %w", err)
	}
	actives, ok := v.Value().([]dbus.ObjectPath)
	if !ok {
		return "", false, errors.New("unexpected active connections value")
	}

	for _, a := range actives {
		p, err := nm.conn.Object(nmService, a).GetProperty(nmActiveConnection + ".Connection")
		if err != nil {
			// active connections come and go while we iterate
			continue
		}
		if p.Value() == settings {
			return a, true, nil
		}
	}
	return "", false, nil
}

func (nm *NetworkManager) getAll(obj dbus.BusObject, iface string) (map[string]dbus.Variant, error) {
	var props map[string]dbus.Variant
	if err := obj.Call(dbusGetAll, 0, iface).Store(&props); err != nil {
		return nil, err
	}
	return props, nil
}
