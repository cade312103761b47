// Package gatewaytest provides an in-memory NetworkGateway for tests.
package gatewaytest

import (
	"fmt"
	"net/netip"
	"sync"

	wificonnect "github.com/dogeorg/wificonnect/pkg"
)

var (
	_ wificonnect.NetworkGateway = &Gateway{}
	_ wificonnect.WifiDevice     = &Device{}
	_ wificonnect.Connection     = &Connection{}
)

// Gateway records every mutating call in Calls, in order.
type Gateway struct {
	mu sync.Mutex

	DeviceList []*Device
	Conns      []*Connection

	// ConnectivitySeq is returned one value per call; the last repeats.
	ConnectivitySeq []wificonnect.Connectivity
	ConnectivityErr error
	DevicesErr      error
	ConnectionsErr  error

	Calls  []string
	nextID int
}

func New(devices ...*Device) *Gateway {
	gw := &Gateway{}
	for _, d := range devices {
		gw.AddDevice(d)
	}
	return gw
}

func (g *Gateway) AddDevice(d *Device) {
	d.gw = g
	g.DeviceList = append(g.DeviceList, d)
}

// AddConnection stores a profile as if the network service already had it.
func (g *Gateway) AddConnection(s wificonnect.ConnectionSettings) *Connection {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addConnection(s, false)
}

func (g *Gateway) addConnection(s wificonnect.ConnectionSettings, active bool) *Connection {
	g.nextID++
	if s.UUID == "" {
		s.UUID = fmt.Sprintf("uuid-%d", g.nextID)
	}
	c := &Connection{gw: g, S: s, Active: active}
	g.Conns = append(g.Conns, c)
	return c
}

func (g *Gateway) record(format string, args ...any) {
	g.Calls = append(g.Calls, fmt.Sprintf(format, args...))
}

// Note appends an entry to the call log, so other fakes can record their
// calls in the same sequence.
func (g *Gateway) Note(format string, args ...any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.record(format, args...)
}

// CallLog returns a copy of the recorded calls.
func (g *Gateway) CallLog() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.Calls...)
}

func (g *Gateway) ResetCalls() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Calls = nil
}

func (g *Gateway) Devices() ([]wificonnect.Device, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.DevicesErr != nil {
		return nil, g.DevicesErr
	}
	out := make([]wificonnect.Device, 0, len(g.DeviceList))
	for _, d := range g.DeviceList {
		out = append(out, d)
	}
	return out, nil
}

func (g *Gateway) DeviceByInterface(name string) (wificonnect.Device, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, d := range g.DeviceList {
		if d.Name == name {
			return d, nil
		}
	}
	return nil, fmt.Errorf("no device %q", name)
}

func (g *Gateway) Connections() ([]wificonnect.Connection, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ConnectionsErr != nil {
		return nil, g.ConnectionsErr
	}
	out := make([]wificonnect.Connection, 0, len(g.Conns))
	for _, c := range g.Conns {
		out = append(out, c)
	}
	return out, nil
}

func (g *Gateway) Connectivity() (wificonnect.Connectivity, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ConnectivityErr != nil {
		return wificonnect.ConnectivityUnknown, g.ConnectivityErr
	}
	if len(g.ConnectivitySeq) == 0 {
		return wificonnect.ConnectivityNone, nil
	}
	c := g.ConnectivitySeq[0]
	if len(g.ConnectivitySeq) > 1 {
		g.ConnectivitySeq = g.ConnectivitySeq[1:]
	}
	return c, nil
}

// Device is a fake WiFi (or, with Kind set, non-WiFi) device.
type Device struct {
	gw *Gateway

	Name     string
	Kind     wificonnect.DeviceType
	DevState wificonnect.DeviceState
	StateErr error

	// Scans is returned one entry per AccessPoints call; the last repeats.
	Scans      [][]wificonnect.AccessPoint
	ScanErr    error
	ListErr    error
	Active     *wificonnect.AccessPoint
	ConnectTo  wificonnect.ConnectionState
	ConnectErr error
	HotspotTo  wificonnect.ConnectionState
	HotspotErr error

	ScanRequests int
	ListCalls    int
	LastCreds    wificonnect.Credentials
}

// NewWifiDevice returns a managed, disconnected WiFi device whose connect
// and hotspot calls activate successfully.
func NewWifiDevice(name string) *Device {
	return &Device{
		Name:      name,
		Kind:      wificonnect.DeviceTypeWifi,
		DevState:  wificonnect.DeviceStateDisconnected,
		ConnectTo: wificonnect.ConnectionStateActivated,
		HotspotTo: wificonnect.ConnectionStateActivated,
	}
}

func (d *Device) Interface() string            { return d.Name }
func (d *Device) Type() wificonnect.DeviceType { return d.Kind }

func (d *Device) State() (wificonnect.DeviceState, error) {
	return d.DevState, d.StateErr
}

func (d *Device) Disconnect() error {
	d.gw.mu.Lock()
	defer d.gw.mu.Unlock()
	d.gw.record("Disconnect %s", d.Name)
	d.DevState = wificonnect.DeviceStateDisconnected
	d.Active = nil
	return nil
}

func (d *Device) Wifi() (wificonnect.WifiDevice, bool) {
	if d.Kind != wificonnect.DeviceTypeWifi {
		return nil, false
	}
	return d, true
}

func (d *Device) RequestScan() error {
	d.gw.mu.Lock()
	defer d.gw.mu.Unlock()
	d.ScanRequests++
	d.gw.record("RequestScan %s", d.Name)
	return d.ScanErr
}

func (d *Device) AccessPoints() ([]wificonnect.AccessPoint, error) {
	d.gw.mu.Lock()
	defer d.gw.mu.Unlock()
	d.ListCalls++
	if d.ListErr != nil {
		return nil, d.ListErr
	}
	if len(d.Scans) == 0 {
		return nil, nil
	}
	aps := d.Scans[0]
	if len(d.Scans) > 1 {
		d.Scans = d.Scans[1:]
	}
	return append([]wificonnect.AccessPoint(nil), aps...), nil
}

func (d *Device) ActiveAccessPoint() (*wificonnect.AccessPoint, error) {
	return d.Active, nil
}

func (d *Device) Connect(ap wificonnect.AccessPoint, creds wificonnect.Credentials) (wificonnect.Connection, wificonnect.ConnectionState, error) {
	d.gw.mu.Lock()
	defer d.gw.mu.Unlock()
	d.gw.record("Connect %s", ap.SSID)
	d.LastCreds = creds
	if d.ConnectErr != nil {
		return nil, wificonnect.ConnectionStateUnknown, d.ConnectErr
	}
	c := d.gw.addConnection(wificonnect.ConnectionSettings{
		ID:          string(ap.SSID),
		Kind:        wificonnect.CONNECTION_KIND_WIRELESS,
		Mode:        wificonnect.WIRELESS_MODE_INFRASTRUCTURE,
		SSID:        ap.SSID,
		AutoConnect: true,
	}, d.ConnectTo == wificonnect.ConnectionStateActivated)
	if d.ConnectTo == wificonnect.ConnectionStateActivated {
		d.DevState = wificonnect.DeviceStateActivated
		active := ap
		d.Active = &active
	}
	return c, d.ConnectTo, nil
}

func (d *Device) CreateHotspot(ssid string, passphrase string, gateway netip.Addr) (wificonnect.Connection, wificonnect.ConnectionState, error) {
	d.gw.mu.Lock()
	defer d.gw.mu.Unlock()
	d.gw.record("CreateHotspot %s", ssid)
	if d.HotspotErr != nil {
		return nil, wificonnect.ConnectionStateUnknown, d.HotspotErr
	}
	keyMgmt := ""
	if passphrase != "" {
		keyMgmt = "wpa-psk"
	}
	c := d.gw.addConnection(wificonnect.ConnectionSettings{
		ID:            ssid,
		Kind:          wificonnect.CONNECTION_KIND_WIRELESS,
		Mode:          wificonnect.WIRELESS_MODE_AP,
		SSID:          wificonnect.SSID(ssid),
		KeyManagement: keyMgmt,
	}, d.HotspotTo == wificonnect.ConnectionStateActivated)
	return c, d.HotspotTo, nil
}

// Connection is a fake saved profile. Delete removes it from the gateway.
type Connection struct {
	gw *Gateway

	S             wificonnect.ConnectionSettings
	Active        bool
	Deleted       bool
	DeleteErr     error
	DeactivateErr error
}

func (c *Connection) Settings() wificonnect.ConnectionSettings { return c.S }

func (c *Connection) State() (wificonnect.ConnectionState, error) {
	if c.Active {
		return wificonnect.ConnectionStateActivated, nil
	}
	return wificonnect.ConnectionStateDeactivated, nil
}

func (c *Connection) Deactivate() error {
	c.gw.mu.Lock()
	defer c.gw.mu.Unlock()
	c.gw.record("Deactivate %s", c.S.ID)
	if c.DeactivateErr != nil {
		return c.DeactivateErr
	}
	c.Active = false
	return nil
}

func (c *Connection) Delete() error {
	c.gw.mu.Lock()
	defer c.gw.mu.Unlock()
	c.gw.record("Delete %s", c.S.ID)
	if c.DeleteErr != nil {
		return c.DeleteErr
	}
	c.Deleted = true
	c.Active = false
	for i, other := range c.gw.Conns {
		if other == c {
			c.gw.Conns = append(c.gw.Conns[:i], c.gw.Conns[i+1:]...)
			break
		}
	}
	return nil
}

// AP builds an access point for tests.
func AP(ssid string, security wificonnect.Security, strength uint8) wificonnect.AccessPoint {
	return wificonnect.AccessPoint{
		SSID:     wificonnect.SSID(ssid),
		Security: security,
		Strength: strength,
		Path:     "/ap/" + ssid,
	}
}
