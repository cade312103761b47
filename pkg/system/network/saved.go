package network

import (
	"errors"
	"fmt"
	"sort"

	wificonnect "github.com/dogeorg/wificonnect/pkg"
	"github.com/sirupsen/logrus"
)

// Registry lists and removes the network profiles the network service
// has stored.
type Registry struct {
	gw  wificonnect.NetworkGateway
	log logrus.FieldLogger
}

func NewRegistry(gw wificonnect.NetworkGateway, log logrus.FieldLogger) *Registry {
	return &Registry{gw: gw, log: log.WithField("system", "registry")}
}

// List returns saved client (non access point) WiFi networks, one per
// SSID, sorted by SSID.
func (r *Registry) List() ([]wificonnect.SavedNetwork, error) {
	conns, err := r.gw.Connections()
	if err != nil {
		return nil, fmt.Errorf("could not list saved networks: %w", err)
	}

	seen := map[string]bool{}
	saved := []wificonnect.SavedNetwork{}

	for _, c := range conns {
		s := c.Settings()
		if !s.IsWireless() || s.IsAccessPoint() {
			continue
		}
		ssid, ok := s.SSID.AsString()
		if !ok || ssid == "" || seen[ssid] {
			continue
		}
		seen[ssid] = true

		saved = append(saved, wificonnect.SavedNetwork{
			SSID:        ssid,
			Security:    keyManagementSecurity(s.KeyManagement),
			AutoConnect: s.AutoConnect,
		})
	}

	sort.Slice(saved, func(i, j int) bool { return saved[i].SSID < saved[j].SSID })
	return saved, nil
}

func keyManagementSecurity(keyMgmt string) string {
	switch keyMgmt {
	case "wpa-eap", "ieee8021x":
		return wificonnect.ClassEnterprise.String()
	case "none":
		return wificonnect.ClassWEP.String()
	case "":
		// no 802-11-wireless-security section
		return wificonnect.ClassNone.String()
	default:
		// wpa-psk, sae, owe
		return wificonnect.ClassWPA.String()
	}
}

// Forget deletes every saved client profile for ssid. found is false when
// nothing matched.
func (r *Registry) Forget(ssid string) (found bool, err error) {
	conns, err := r.gw.Connections()
	if err != nil {
		return false, fmt.Errorf("could not list saved networks: %w", err)
	}

	for _, c := range conns {
		s := c.Settings()
		if !s.IsWireless() || s.IsAccessPoint() {
			continue
		}
		if name, ok := s.SSID.AsString(); !ok || name != ssid {
			continue
		}
		r.log.Infof("Forgetting WiFi network: %s", ssid)
		if err := c.Delete(); err != nil {
			return found, fmt.Errorf("could not forget %q: %w", ssid, err)
		}
		found = true
	}

	if !found {
		r.log.Warnf("Network %q not found in saved connections", ssid)
	}
	return found, nil
}

// ForgetAll deletes every wireless profile, access points included. A
// profile that fails to delete is logged and skipped; the failures are
// returned together once every profile has been tried.
func (r *Registry) ForgetAll() error {
	conns, err := r.gw.Connections()
	if err != nil {
		return fmt.Errorf("could not list saved networks: %w", err)
	}

	r.log.Info("Forgetting all WiFi connections...")

	var errs []error
	for _, c := range conns {
		s := c.Settings()
		if !s.IsWireless() {
			continue
		}
		r.log.Infof("Deleting WiFi connection: %s", s.ID)
		if err := c.Delete(); err != nil {
			r.log.WithError(err).Errorf("Deleting WiFi connection %s failed", s.ID)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
