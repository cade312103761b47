package cmd

import (
	"context"
	"fmt"
	"os"

	wificonnect "github.com/dogeorg/wificonnect/pkg"
	"github.com/dogeorg/wificonnect/pkg/hotspot"
	"github.com/dogeorg/wificonnect/pkg/system"
	"github.com/dogeorg/wificonnect/pkg/system/dnsmasq"
	"github.com/dogeorg/wificonnect/pkg/system/network"
	network_nm "github.com/dogeorg/wificonnect/pkg/system/network/nm"
)

// openNetworkManager makes sure NetworkManager is running and connects to it.
func openNetworkManager(ctx context.Context) (*network_nm.NetworkManager, error) {
	if err := network_nm.EnsureService(ctx, logger); err != nil {
		return nil, err
	}
	return network_nm.New(logger)
}

func openDevice(gw wificonnect.NetworkGateway) (wificonnect.WifiDevice, error) {
	return network.FindDevice(gw, config.Interface, logger)
}

func newHotspotManager(gw wificonnect.NetworkGateway, device wificonnect.WifiDevice) (*hotspot.Manager, error) {
	if err := os.MkdirAll(config.StateDir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create state directory: %w", err)
	}
	return hotspot.NewManager(
		config,
		gw,
		device,
		dnsmasq.New(config, logger),
		system.NewStateStore(config, logger),
		system.NewFileLock(config.LockPath()),
		logger,
	), nil
}

// withHotspotManager opens everything a hotspot command needs. The WiFi
// device is optional unless requireDevice is set.
func withHotspotManager(ctx context.Context, requireDevice bool, fn func(*hotspot.Manager) error) error {
	nm, err := openNetworkManager(ctx)
	if err != nil {
		return err
	}
	defer nm.Close()

	device, err := openDevice(nm)
	if err != nil {
		if requireDevice {
			return err
		}
		logger.WithError(err).Debug("continuing without a WiFi device")
		device = nil
	}

	m, err := newHotspotManager(nm, device)
	if err != nil {
		return err
	}
	return fn(m)
}
