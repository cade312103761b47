package wificonnect

import (
	"net/netip"
	"unicode/utf8"
)

// see ./system/network/nm for the NetworkManager implementation

// NetworkGateway is the OS network-management service. Every call is a
// remote call and may fail; nothing is atomic across calls.
type NetworkGateway interface {
	Devices() ([]Device, error)
	DeviceByInterface(name string) (Device, error)
	Connections() ([]Connection, error)
	Connectivity() (Connectivity, error)
}

// Device is a network interface owned by the network service.
type Device interface {
	Interface() string
	Type() DeviceType
	State() (DeviceState, error)
	Disconnect() error
	// Wifi returns the wireless view of this device, if it has one.
	Wifi() (WifiDevice, bool)
}

type WifiDevice interface {
	Device
	RequestScan() error
	AccessPoints() ([]AccessPoint, error)
	ActiveAccessPoint() (*AccessPoint, error)
	Connect(ap AccessPoint, creds Credentials) (Connection, ConnectionState, error)
	CreateHotspot(ssid string, passphrase string, gateway netip.Addr) (Connection, ConnectionState, error)
}

// Connection is a saved connection profile.
type Connection interface {
	Settings() ConnectionSettings
	State() (ConnectionState, error)
	Deactivate() error
	Delete() error
}

const (
	CONNECTION_KIND_WIRELESS string = "802-11-wireless"
	CONNECTION_KIND_ETHERNET string = "802-3-ethernet"

	WIRELESS_MODE_INFRASTRUCTURE string = "infrastructure"
	WIRELESS_MODE_AP             string = "ap"
	WIRELESS_MODE_ADHOC          string = "adhoc"
)

type ConnectionSettings struct {
	ID          string
	UUID        string
	Kind        string
	Mode        string
	SSID        SSID
	AutoConnect bool
	// KeyManagement is the 802-11-wireless-security key-mgmt value, empty for open networks.
	KeyManagement string
}

func (s ConnectionSettings) IsWireless() bool {
	return s.Kind == CONNECTION_KIND_WIRELESS
}

func (s ConnectionSettings) IsAccessPoint() bool {
	return s.IsWireless() && s.Mode == WIRELESS_MODE_AP
}

// SSID is the raw network name. It may be empty (hidden network) or not
// valid UTF-8.
type SSID []byte

// AsString returns the SSID as text, and false if it does not decode as UTF-8.
func (s SSID) AsString() (string, bool) {
	if !utf8.Valid(s) {
		return "", false
	}
	return string(s), true
}

type AccessPoint struct {
	SSID     SSID
	Security Security
	Strength uint8
	// Path is the gateway's handle for this access point.
	Path string
}

type DeviceType int

const (
	DeviceTypeOther DeviceType = iota
	DeviceTypeEthernet
	DeviceTypeWifi
)

func (t DeviceType) String() string {
	switch t {
	case DeviceTypeEthernet:
		return "ethernet"
	case DeviceTypeWifi:
		return "wifi"
	default:
		return "other"
	}
}

// DeviceState values match NM_DEVICE_STATE_*.
type DeviceState uint32

const (
	DeviceStateUnknown      DeviceState = 0
	DeviceStateUnmanaged    DeviceState = 10
	DeviceStateUnavailable  DeviceState = 20
	DeviceStateDisconnected DeviceState = 30
	DeviceStatePrepare      DeviceState = 40
	DeviceStateConfig       DeviceState = 50
	DeviceStateNeedAuth     DeviceState = 60
	DeviceStateIPConfig     DeviceState = 70
	DeviceStateIPCheck      DeviceState = 80
	DeviceStateSecondaries  DeviceState = 90
	DeviceStateActivated    DeviceState = 100
	DeviceStateDeactivating DeviceState = 110
	DeviceStateFailed       DeviceState = 120
)

func (s DeviceState) String() string {
	switch s {
	case DeviceStateUnmanaged:
		return "unmanaged"
	case DeviceStateUnavailable:
		return "unavailable"
	case DeviceStateDisconnected:
		return "disconnected"
	case DeviceStatePrepare:
		return "prepare"
	case DeviceStateConfig:
		return "config"
	case DeviceStateNeedAuth:
		return "need-auth"
	case DeviceStateIPConfig:
		return "ip-config"
	case DeviceStateIPCheck:
		return "ip-check"
	case DeviceStateSecondaries:
		return "secondaries"
	case DeviceStateActivated:
		return "activated"
	case DeviceStateDeactivating:
		return "deactivating"
	case DeviceStateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ConnectionState values match NM_ACTIVE_CONNECTION_STATE_*.
type ConnectionState uint32

const (
	ConnectionStateUnknown ConnectionState = iota
	ConnectionStateActivating
	ConnectionStateActivated
	ConnectionStateDeactivating
	ConnectionStateDeactivated
)

func (s ConnectionState) String() string {
	switch s {
	case ConnectionStateActivating:
		return "activating"
	case ConnectionStateActivated:
		return "activated"
	case ConnectionStateDeactivating:
		return "deactivating"
	case ConnectionStateDeactivated:
		return "deactivated"
	default:
		return "unknown"
	}
}

// Connectivity values match NM_CONNECTIVITY_*.
type Connectivity uint32

const (
	ConnectivityUnknown Connectivity = iota
	ConnectivityNone
	ConnectivityPortal
	ConnectivityLimited
	ConnectivityFull
)

func (c Connectivity) String() string {
	switch c {
	case ConnectivityNone:
		return "none"
	case ConnectivityPortal:
		return "portal"
	case ConnectivityLimited:
		return "limited"
	case ConnectivityFull:
		return "full"
	default:
		return "unknown"
	}
}

// HasInternet is true for Full and Limited connectivity.
func (c Connectivity) HasInternet() bool {
	return c == ConnectivityFull || c == ConnectivityLimited
}

// Network is a visible network as presented to users.
type Network struct {
	SSID           string `json:"ssid"`
	Security       string `json:"security"`
	SignalStrength uint8  `json:"signalStrength"`
}

type SavedNetwork struct {
	SSID        string `json:"ssid"`
	Security    string `json:"security"`
	AutoConnect bool   `json:"autoConnect"`
}

type ConnectedNetwork struct {
	SSID           string `json:"ssid"`
	Security       string `json:"security"`
	SignalStrength uint8  `json:"signalStrength"`
	Interface      string `json:"interface"`
	IPAddress      string `json:"ipAddress,omitempty"`
}
