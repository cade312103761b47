package portal

import (
	"context"
	"time"

	wificonnect "github.com/dogeorg/wificonnect/pkg"
	"github.com/sirupsen/logrus"
)

const DEFAULT_MONITOR_INTERVAL = 5 * time.Second

/* HotspotMonitor
 *
 * HotspotMonitor checks the hotspot every Interval while the
 * portal is up and publishes the status (uptime included) as a
 * "hotspot" Change, so the UI can tell when the access point
 * went away underneath it.
 */
type HotspotMonitor struct {
	hotspot  Hotspot
	changes  chan wificonnect.Change
	log      logrus.FieldLogger
	Interval time.Duration
}

func NewHotspotMonitor(hotspot Hotspot, changes chan wificonnect.Change, log logrus.FieldLogger) *HotspotMonitor {
	return &HotspotMonitor{
		hotspot:  hotspot,
		changes:  changes,
		log:      log.WithField("system", "monitor"),
		Interval: DEFAULT_MONITOR_INTERVAL,
	}
}

func (t *HotspotMonitor) Run(started, stopped chan bool, stop chan context.Context) error {
	go func() {
		timer := time.NewTimer(t.Interval)
		defer timer.Stop()

		started <- true

	mainloop:
		for {
			select {
			case <-stop:
				break mainloop
			case <-timer.C:
				t.report()
				timer.Reset(t.Interval)
			}
		}

		stopped <- true
	}()
	return nil
}

func (t *HotspotMonitor) report() {
	status, err := t.hotspot.Check()
	if err != nil {
		t.log.WithError(err).Warn("could not check hotspot")
		return
	}

	select {
	case t.changes <- wificonnect.Change{ID: "internal", Type: "hotspot", Update: wificonnect.HotspotUpdate{Status: status}}:
	default:
		t.log.Debug("couldn't write to output channel")
	}
}
