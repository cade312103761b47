package portal

import (
	"context"
	"testing"
	"time"

	wificonnect "github.com/dogeorg/wificonnect/pkg"
	"github.com/dogeorg/wificonnect/pkg/gatewaytest"
	"github.com/dogeorg/wificonnect/pkg/logging"
)

func TestHotspotMonitorReports(t *testing.T) {
	hotspot := &fakeHotspot{gw: gatewaytest.New(), running: true}
	changes := make(chan wificonnect.Change, 1)

	m := NewHotspotMonitor(hotspot, changes, logging.Discard())
	m.Interval = 10 * time.Millisecond

	started, stopped := make(chan bool), make(chan bool)
	stop := make(chan context.Context)
	if err := m.Run(started, stopped, stop); err != nil {
		t.Fatal(err)
	}
	<-started

	select {
	case c := <-changes:
		update, ok := c.Update.(wificonnect.HotspotUpdate)
		if c.Type != "hotspot" || !ok || !update.Status.Running {
			t.Errorf("change = %+v", c)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no status reported")
	}

	stop <- context.Background()
	<-stopped
}
