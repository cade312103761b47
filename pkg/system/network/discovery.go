package network

import (
	"time"

	wificonnect "github.com/dogeorg/wificonnect/pkg"
	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_SCAN_ATTEMPTS = 10
	DEFAULT_SCAN_INTERVAL = time.Second
)

// Scanner polls a device for visible access points.
type Scanner struct {
	Attempts int
	Interval time.Duration

	log   logrus.FieldLogger
	sleep func(time.Duration)
}

func NewScanner(log logrus.FieldLogger) *Scanner {
	return &Scanner{
		Attempts: DEFAULT_SCAN_ATTEMPTS,
		Interval: DEFAULT_SCAN_INTERVAL,
		log:      log.WithField("system", "scanner"),
		sleep:    time.Sleep,
	}
}

/* Scan returns the named access points visible to device,
 * one per SSID (the first one seen), skipping target when it
 * is non-empty. Access points may take a while to show up
 * after a hotspot goes down, so it polls until something
 * appears. Nothing appearing is not an error: the result is
 * simply empty.
 */
func (s *Scanner) Scan(device wificonnect.WifiDevice, target string) []wificonnect.AccessPoint {
	s.log.Info("Scanning for available networks...")

	if err := device.RequestScan(); err != nil {
		s.log.WithError(err).Warn("scan request failed, using cached results")
	}

	for attempt := 1; attempt <= s.Attempts; attempt++ {
		aps, err := device.AccessPoints()
		if err != nil {
			s.log.WithError(err).Warn("could not read access points")
		}

		found := qualify(aps, target)
		if len(found) > 0 {
			s.log.Infof("Found %d access points: %v", len(found), ssids(found))
			return found
		}

		s.log.Infof("No access points found - retry #%d", attempt)
		if attempt < s.Attempts {
			s.sleep(s.Interval)
		}
	}

	s.log.Warn("No access points found - giving up...")
	return []wificonnect.AccessPoint{}
}

func qualify(aps []wificonnect.AccessPoint, target string) []wificonnect.AccessPoint {
	seen := map[string]bool{}
	out := []wificonnect.AccessPoint{}

	for _, ap := range aps {
		ssid, ok := ap.SSID.AsString()
		if !ok || ssid == "" || seen[ssid] {
			continue
		}
		seen[ssid] = true

		if target != "" && ssid == target {
			continue
		}
		out = append(out, ap)
	}
	return out
}

func ssids(aps []wificonnect.AccessPoint) []string {
	out := make([]string, 0, len(aps))
	for _, ap := range aps {
		out = append(out, string(ap.SSID))
	}
	return out
}

// Networks is the user-facing view of a scan result.
func Networks(aps []wificonnect.AccessPoint) []wificonnect.Network {
	out := make([]wificonnect.Network, 0, len(aps))
	for _, ap := range aps {
		ssid, ok := ap.SSID.AsString()
		if !ok {
			continue
		}
		out = append(out, wificonnect.Network{
			SSID:           ssid,
			Security:       ap.Security.String(),
			SignalStrength: min(ap.Strength, 100),
		})
	}
	return out
}

func FindAccessPoint(aps []wificonnect.AccessPoint, ssid string) (wificonnect.AccessPoint, bool) {
	for _, ap := range aps {
		if s, ok := ap.SSID.AsString(); ok && s == ssid {
			return ap, true
		}
	}
	return wificonnect.AccessPoint{}, false
}
