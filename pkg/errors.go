package wificonnect

import "errors"

// Environment errors. These are fatal to the operation that hits them.
var (
	ErrNoWifiDevice       = errors.New("no managed wifi device found")
	ErrNotWifiDevice      = errors.New("device is not a wifi device")
	ErrUnmanagedDevice    = errors.New("device is not managed by the network service")
	ErrServiceUnavailable = errors.New("network service unavailable")
	ErrNetworkNotFound    = errors.New("network not found")
)

// State store errors.
var (
	ErrNoState      = errors.New("no hotspot state")
	ErrInvalidState = errors.New("invalid hotspot state")
)
