package network_nm

import (
	"fmt"

	wificonnect "github.com/dogeorg/wificonnect/pkg"
	"github.com/godbus/dbus/v5"
)

var _ wificonnect.Connection = &connection{}

type connection struct {
	nm       *NetworkManager
	obj      dbus.BusObject
	settings wificonnect.ConnectionSettings
}

func (nm *NetworkManager) connection(p dbus.ObjectPath) (*connection, error) {
	obj := nm.conn.Object(nmService, p)

	var raw map[string]map[string]dbus.Variant
	if err := obj.Call(nmConnection+".GetSettings", 0).Store(&raw); err != nil {
		return nil, fmt.Errorf("could not read connection %s: %w", p, err)
	}

	return &connection{
		nm:       nm,
		obj:      obj,
		settings: parseSettings(connectionSettings(raw)),
	}, nil
}

func (c *connection) Settings() wificonnect.ConnectionSettings {
	return c.settings
}

// State reports Deactivated for a profile with no active connection.
func (c *connection) State() (wificonnect.ConnectionState, error) {
	active, ok, err := c.nm.activeFor(c.obj.Path())
	if err != nil {
		return wificonnect.ConnectionStateUnknown, err
	}
	if !ok {
		return wificonnect.ConnectionStateDeactivated, nil
	}
	return c.nm.activeState(active)
}

// Deactivate is a no-op for a profile that is not active.
func (c *connection) Deactivate() error {
	active, ok, err := c.nm.activeFor(c.obj.Path())
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if call := c.nm.obj.Call(nmInterface+".DeactivateConnection", 0, active); call.Err != nil {
		return fmt.Errorf("could not deactivate %q: %w", c.settings.ID, call.Err)
	}
	return nil
}

func (c *connection) Delete() error {
	if call := c.obj.Call(nmConnection+".Delete", 0); call.Err != nil {
		return fmt.Errorf("could not delete %q: %w", c.settings.ID, call.Err)
	}
	return nil
}
