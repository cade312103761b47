package network_nm

import (
	"context"
	"fmt"

	sddbus "github.com/coreos/go-systemd/v22/dbus"
	wificonnect "github.com/dogeorg/wificonnect/pkg"
	"github.com/sirupsen/logrus"
)

const nmUnit = "NetworkManager.service"

// EnsureService starts NetworkManager through systemd when it is not
// already active.
func EnsureService(ctx context.Context, log logrus.FieldLogger) error {
	log = log.WithField("system", "networkmanager")

	conn, err := sddbus.NewWithContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: could not connect to systemd: %w", wificonnect.ErrServiceUnavailable, err)
	}
	defer conn.Close()

	prop, err := conn.GetUnitPropertyContext(ctx, nmUnit, "ActiveState")
	if err != nil {
		return fmt.Errorf("%w: could not query %s: %w", wificonnect.ErrServiceUnavailable, nmUnit, err)
	}

	if state, _ := prop.Value.Value().(string); state == "active" {
		return nil
	}

	log.Info("NetworkManager is not running, starting it")

	done := make(chan string, 1)
	if _, err := conn.StartUnitContext(ctx, nmUnit, "replace", done); err != nil {
		return fmt.Errorf("%w: could not start %s: %w", wificonnect.ErrServiceUnavailable, nmUnit, err)
	}

	select {
	case result := <-done:
		if result != "done" {
			return fmt.Errorf("%w: starting %s finished with %q", wificonnect.ErrServiceUnavailable, nmUnit, result)
		}
	case <-ctx.Done():
		return fmt.Errorf("%w: waiting for %s: %w", wificonnect.ErrServiceUnavailable, nmUnit, ctx.Err())
	}

	return nil
}
