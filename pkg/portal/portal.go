/*
Captive portal mode:

 The portal worker scans once with the radio free, raises the
 hotspot and then waits for the user. Actions arrive from the
 REST API as Jobs; their outcomes leave on the Changes channel
 for the websocket relay.

             ┌──────── Portal worker ────────┐
  REST API   │                               │   Changes
  ─────────► │ scan ─► hotspot up ─► wait ─┐ │ ──────────► WebSocket
  Jobs       │   ▲                         │ │
             │   └─ hotspot up ◄─ failed ◄─┤ │
             │                             ▼ │
             │          connected ◄─ connect │
             └───────────────┬───────────────┘
                             ▼
                  result ─► Run returns

 Run owns the process lifetime: it returns on the worker's
 result, an exit signal or context cancellation, whichever
 comes first, and stops the hotspot on the way out.
*/

package portal

import (
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"time"

	wificonnect "github.com/dogeorg/wificonnect/pkg"
	"github.com/dogeorg/wificonnect/pkg/system/network"
	network_connector "github.com/dogeorg/wificonnect/pkg/system/network/connector"
	"github.com/sirupsen/logrus"
)

const (
	JOB_QUEUE_SIZE    = 8
	CHANGE_QUEUE_SIZE = 32
)

var ErrQueueFull = errors.New("portal is busy")

type Hotspot interface {
	Start() error
	Stop() error
	Check() (wificonnect.HotspotStatus, error)
}

type Scanner interface {
	Scan(device wificonnect.WifiDevice, target string) []wificonnect.AccessPoint
}

type Connector interface {
	Connect(device wificonnect.WifiDevice, ap wificonnect.AccessPoint, creds wificonnect.Credentials, timeout time.Duration) (network_connector.Result, error)
}

type Portal struct {
	config    wificonnect.Config
	device    wificonnect.WifiDevice
	hotspot   Hotspot
	scanner   Scanner
	connector Connector
	log       logrus.FieldLogger

	jobs     chan wificonnect.Job
	activity chan struct{}
	Changes  chan wificonnect.Change

	// ShutdownGrace bounds how long Run waits for a busy worker
	// before tearing the hotspot down underneath it.
	ShutdownGrace time.Duration

	mu  sync.RWMutex
	aps []wificonnect.AccessPoint
}

func NewPortal(
	config wificonnect.Config,
	device wificonnect.WifiDevice,
	hotspot Hotspot,
	scanner Scanner,
	connector Connector,
	log logrus.FieldLogger,
) *Portal {
	return &Portal{
		config:        config,
		device:        device,
		hotspot:       hotspot,
		scanner:       scanner,
		connector:     connector,
		log:           log.WithField("system", "portal"),
		jobs:          make(chan wificonnect.Job, JOB_QUEUE_SIZE),
		activity:      make(chan struct{}, 1),
		Changes:       make(chan wificonnect.Change, CHANGE_QUEUE_SIZE),
		ShutdownGrace: 5 * time.Second,
	}
}

// AddAction queues an Action for the worker and returns the ID its
// outcome will carry on the Changes channel.
func (p *Portal) AddAction(a wificonnect.Action) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("could not generate job id: %w", err)
	}
	id := fmt.Sprintf("%x", b)

	select {
	case p.jobs <- wificonnect.Job{A: a, ID: id}:
		return id, nil
	default:
		return "", ErrQueueFull
	}
}

// Touch records user activity without queueing a job.
func (p *Portal) Touch() {
	select {
	case p.activity <- struct{}{}:
	default:
	}
}

// Networks is the most recent scan result.
func (p *Portal) Networks() []wificonnect.Network {
	return network.Networks(p.accessPoints())
}

func (p *Portal) HotspotStatus() (wificonnect.HotspotStatus, error) {
	return p.hotspot.Check()
}

// Snapshot is the bootstrap Change for a client joining mid-session.
func (p *Portal) Snapshot() wificonnect.Change {
	status, err := p.hotspot.Check()
	if err != nil {
		p.log.WithError(err).Debug("could not check hotspot for snapshot")
	}
	return wificonnect.Change{
		ID:     "internal",
		Type:   "bootstrap",
		Update: wificonnect.BootstrapUpdate{Networks: p.Networks(), Hotspot: status},
	}
}

// Connected reports the client network the device is on. The portal's
// own access point does not count.
func (p *Portal) Connected() (*wificonnect.ConnectedNetwork, error) {
	c, err := network.Connected(p.device, nil, p.log)
	if err != nil || c == nil {
		return nil, err
	}
	if c.SSID == p.config.SSID {
		return nil, nil
	}
	return c, nil
}

func (p *Portal) accessPoints() []wificonnect.AccessPoint {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]wificonnect.AccessPoint(nil), p.aps...)
}

// work is the portal worker. It returns nil when the device got connected,
// the user asked to exit, the activity timeout passed or quit closed.
func (p *Portal) work(quit <-chan struct{}) error {
	p.rescan()

	if err := p.raise(); err != nil {
		return err
	}

	var timeout <-chan time.Time
	reset := func() {}
	if p.config.ActivityTimeout > 0 {
		timer := time.NewTimer(p.config.ActivityTimeout)
		defer timer.Stop()
		timeout = timer.C
		reset = func() { timer.Reset(p.config.ActivityTimeout) }
	}

	for {
		select {
		case <-quit:
			return nil

		case <-timeout:
			p.log.Infof("No activity for %s, leaving portal", p.config.ActivityTimeout)
			return nil

		case <-p.activity:
			reset()

		case j := <-p.jobs:
			reset()
			done, err := p.dispatch(j)
			if err != nil || done {
				return err
			}
		}
	}
}

func (p *Portal) dispatch(j wificonnect.Job) (bool, error) {
	p.log.Debugf("dispatch job %s %T", j.ID, j.A)

	switch a := j.A.(type) {
	case wificonnect.Activate:
		// the timer was reset on receipt
		return false, nil

	case wificonnect.Exit:
		p.log.Info("Exit requested from portal")
		p.finish(j, "exit", nil)
		return true, nil

	case wificonnect.ConnectNetwork:
		return p.connect(j, a)

	default:
		j.Err = fmt.Sprintf("unknown action %T", a)
		p.finish(j, "action", nil)
		return false, nil
	}
}

// connect drops the hotspot to free the radio and tries the network the
// user picked. On failure the portal comes back up with a fresh scan.
func (p *Portal) connect(j wificonnect.Job, a wificonnect.ConnectNetwork) (bool, error) {
	update := wificonnect.ConnectUpdate{SSID: a.SSID}

	if err := p.hotspot.Stop(); err != nil {
		p.log.WithError(err).Warn("could not fully stop hotspot before connecting")
	}

	ap, ok := network.FindAccessPoint(p.accessPoints(), a.SSID)
	if !ok {
		p.rescan()
		ap, ok = network.FindAccessPoint(p.accessPoints(), a.SSID)
	}

	if !ok {
		p.log.Warnf("Network '%s' not found", a.SSID)
		j.Err = fmt.Sprintf("%s: %s", wificonnect.ErrNetworkNotFound, a.SSID)
	} else {
		creds := wificonnect.ResolveCredentials(ap.Security, a.Identity, a.Passphrase)
		res, err := p.connector.Connect(p.device, ap, creds, p.config.ConnectTimeout)
		switch {
		case err != nil:
			p.log.WithError(err).Errorf("Error connecting to '%s'", a.SSID)
			j.Err = err.Error()
		case !res.Connected:
			j.Err = fmt.Sprintf("connection %s", res.State)
		default:
			update.Connected = true
			update.HasInternet = res.HasInternet
			p.finish(j, "connect", update)
			return true, nil
		}
	}

	p.finish(j, "connect", update)

	p.rescan()
	if err := p.raise(); err != nil {
		return false, err
	}
	return false, nil
}

func (p *Portal) raise() error {
	if err := p.hotspot.Start(); err != nil {
		return fmt.Errorf("could not start hotspot: %w", err)
	}
	if status, err := p.hotspot.Check(); err == nil {
		p.publish(wificonnect.Change{ID: "internal", Type: "hotspot", Update: wificonnect.HotspotUpdate{Status: status}})
	}
	return nil
}

func (p *Portal) rescan() {
	aps := p.scanner.Scan(p.device, p.config.SSID)

	p.mu.Lock()
	p.aps = aps
	p.mu.Unlock()

	p.publish(wificonnect.Change{ID: "internal", Type: "networks", Update: wificonnect.NetworksUpdate{Networks: network.Networks(aps)}})
}

func (p *Portal) finish(j wificonnect.Job, kind string, update wificonnect.Update) {
	p.publish(wificonnect.Change{ID: j.ID, Error: j.Err, Type: kind, Update: update})
}

// publish never blocks the worker; with nobody listening, changes are dropped.
func (p *Portal) publish(c wificonnect.Change) {
	select {
	case p.Changes <- c:
	default:
		p.log.Debugf("dropped %s change, nobody listening", c.Type)
	}
}
