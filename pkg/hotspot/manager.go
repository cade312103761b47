package hotspot

import (
	"errors"
	"fmt"
	"time"

	wificonnect "github.com/dogeorg/wificonnect/pkg"
	"github.com/sirupsen/logrus"
)

const DEFAULT_SETTLE_INTERVAL = 2 * time.Second

// Locker serializes hotspot changes across processes.
type Locker interface {
	Acquire() (func() error, error)
}

/* Manager owns the lifecycle of the captive-portal hotspot:
 * an access-point connection on the WiFi device plus the
 * dnsmasq serving it.
 *
 * The persisted HotspotState is the only link between
 * invocations. Nothing about a running hotspot is kept in
 * memory; every call starts from the stored record and
 * checks it against what the network service and the
 * process table actually show.
 */
type Manager struct {
	config wificonnect.Config
	gw     wificonnect.NetworkGateway
	device wificonnect.WifiDevice
	dhcp   wificonnect.DHCPSupervisor
	store  wificonnect.StateStore
	lock   Locker
	log    logrus.FieldLogger

	SettleInterval time.Duration

	now   func() time.Time
	sleep func(time.Duration)
}

// NewManager builds a Manager. lock may be nil when the caller already
// guarantees a single writer. device is only needed to start a hotspot;
// stopping and checking work without one.
func NewManager(
	config wificonnect.Config,
	gw wificonnect.NetworkGateway,
	device wificonnect.WifiDevice,
	dhcp wificonnect.DHCPSupervisor,
	store wificonnect.StateStore,
	lock Locker,
	log logrus.FieldLogger,
) *Manager {
	return &Manager{
		config:         config,
		gw:             gw,
		device:         device,
		dhcp:           dhcp,
		store:          store,
		lock:           lock,
		log:            log.WithField("system", "hotspot"),
		SettleInterval: DEFAULT_SETTLE_INTERVAL,
		now:            time.Now,
		sleep:          time.Sleep,
	}
}

func (m *Manager) acquire() (func(), error) {
	if m.lock == nil {
		return func() {}, nil
	}
	unlock, err := m.lock.Acquire()
	if err != nil {
		return nil, fmt.Errorf("could not lock hotspot state: %w", err)
	}
	return func() {
		if err := unlock(); err != nil {
			m.log.WithError(err).Warn("could not release hotspot lock")
		}
	}, nil
}

// Start raises the hotspot. It does nothing when a verified hotspot is
// already running.
func (m *Manager) Start() error {
	release, err := m.acquire()
	if err != nil {
		return err
	}
	defer release()

	return m.start()
}

// Stop tears down the hotspot recorded in the state file, if any.
func (m *Manager) Stop() error {
	release, err := m.acquire()
	if err != nil {
		return err
	}
	defer release()

	return m.stop()
}

// Restart stops, waits SettleInterval, then starts. A failed stop does not
// prevent the start; both errors are returned.
func (m *Manager) Restart() error {
	release, err := m.acquire()
	if err != nil {
		return err
	}
	defer release()

	m.log.Info("Restarting hotspot...")

	stopErr := m.stop()
	if stopErr != nil {
		m.log.WithError(stopErr).Warn("stop failed during restart")
	}

	m.sleep(m.SettleInterval)

	startErr := m.start()
	return errors.Join(stopErr, startErr)
}

// Check reports the hotspot's status. A record that no longer matches
// reality is removed and reported as stopped.
func (m *Manager) Check() (wificonnect.HotspotStatus, error) {
	release, err := m.acquire()
	if err != nil {
		return wificonnect.HotspotStatus{}, err
	}
	defer release()

	state, ok, err := m.load()
	if err != nil {
		return wificonnect.HotspotStatus{}, err
	}
	if !ok || !state.Running {
		return wificonnect.HotspotStatus{}, nil
	}

	if !m.verify(state) {
		m.log.Infof("Hotspot '%s' is no longer running, clearing stale state", state.SSID)
		if err := m.store.Clear(); err != nil {
			m.log.WithError(err).Warn("could not clear stale hotspot state")
		}
		return wificonnect.HotspotStatus{}, nil
	}

	uptime := m.now().Sub(time.Unix(state.StartedAt, 0))
	if uptime < 0 {
		uptime = 0
	}

	return wificonnect.HotspotStatus{
		Running:     true,
		SSID:        state.SSID,
		Gateway:     state.Gateway.String(),
		Interface:   state.Interface,
		HasPassword: state.HasPassword,
		Uptime:      uptime.Truncate(time.Second),
	}, nil
}

// IsRunning is Check without the status details.
func (m *Manager) IsRunning() bool {
	status, err := m.Check()
	return err == nil && status.Running
}

func (m *Manager) start() error {
	if state, ok, _ := m.load(); ok && state.Running && m.verify(state) {
		m.log.Warnf("Hotspot '%s' is already running", state.SSID)
		return nil
	}

	if m.device == nil {
		return wificonnect.ErrNoWifiDevice
	}

	m.log.Infof("Starting hotspot '%s'...", m.config.SSID)

	if err := m.stop(); err != nil {
		m.log.WithError(err).Warn("could not fully clear previous hotspot")
	}

	iface := m.device.Interface()

	m.log.Infof("Creating access point '%s'...", m.config.SSID)
	conn, cstate, err := m.device.CreateHotspot(m.config.SSID, m.config.Passphrase, m.config.Gateway)
	if err != nil {
		return fmt.Errorf("could not create access point %q: %w", m.config.SSID, err)
	}
	if cstate != wificonnect.ConnectionStateActivated {
		m.log.Warnf("Access point '%s' is %s", m.config.SSID, cstate)
	}

	pid, err := m.dhcp.Spawn(m.config, iface)
	if err != nil {
		m.removeConnection(conn)
		return fmt.Errorf("could not start dnsmasq: %w", err)
	}

	state := wificonnect.HotspotState{
		Running:     true,
		SSID:        m.config.SSID,
		Gateway:     m.config.Gateway,
		Interface:   iface,
		HasPassword: m.config.Passphrase != "",
		DHCPPID:     &pid,
		StartedAt:   m.now().Unix(),
	}

	if err := m.store.Save(state); err != nil {
		if stopErr := m.dhcp.Stop(pid); stopErr != nil {
			m.log.WithError(stopErr).Warn("could not stop dnsmasq after failed start")
		}
		m.removeConnection(conn)
		return err
	}

	m.log.Infof("Hotspot '%s' started successfully", m.config.SSID)
	return nil
}

func (m *Manager) stop() error {
	state, ok, err := m.load()
	if err != nil {
		return err
	}
	if !ok {
		m.log.Info("No hotspot state found")
		return nil
	}
	if !state.Running {
		m.log.Info("Hotspot is not running according to state file")
		return nil
	}

	m.log.Infof("Stopping hotspot '%s'...", state.SSID)

	var errs []error

	if state.DHCPPID != nil {
		m.log.Infof("Stopping dnsmasq with PID %d...", *state.DHCPPID)
		if err := m.dhcp.Stop(*state.DHCPPID); err != nil {
			m.log.WithError(err).Warn("could not stop dnsmasq")
			errs = append(errs, err)
		}
	}

	if err := m.removeAccessPoints(state.SSID); err != nil {
		errs = append(errs, err)
	}

	if err := m.store.Clear(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		m.log.Infof("Hotspot '%s' stopped successfully", state.SSID)
	}
	return errors.Join(errs...)
}

// load treats a missing or unreadable record as no hotspot.
func (m *Manager) load() (wificonnect.HotspotState, bool, error) {
	state, err := m.store.Load()
	switch {
	case err == nil:
		return state, true, nil
	case errors.Is(err, wificonnect.ErrNoState):
		return wificonnect.HotspotState{}, false, nil
	default:
		return wificonnect.HotspotState{}, false, err
	}
}

// verify requires both a live dnsmasq and an access-point connection for
// the recorded SSID. The PID alone could belong to a recycled process.
func (m *Manager) verify(state wificonnect.HotspotState) bool {
	if state.DHCPPID == nil {
		m.log.Debug("no dnsmasq recorded for hotspot")
		return false
	}
	if !m.dhcp.Alive(*state.DHCPPID) {
		m.log.Debugf("dnsmasq process %d is not running", *state.DHCPPID)
		return false
	}

	conns, err := m.gw.Connections()
	if err != nil {
		m.log.WithError(err).Debug("could not check connections")
		return false
	}
	for _, c := range conns {
		if isHotspotFor(c, state.SSID) {
			return true
		}
	}

	m.log.Debugf("No hotspot connection found for SSID '%s'", state.SSID)
	return false
}

// removeAccessPoints deletes every access-point profile for ssid, not only
// the one this process created: crashes can leave several behind. Failures
// on individual profiles are logged and skipped.
func (m *Manager) removeAccessPoints(ssid string) error {
	m.log.Infof("Stopping all hotspot connections for SSID '%s'...", ssid)

	conns, err := m.gw.Connections()
	if err != nil {
		return fmt.Errorf("could not list connections: %w", err)
	}

	found := false
	for _, c := range conns {
		if !isHotspotFor(c, ssid) {
			continue
		}
		if m.removeConnection(c) {
			found = true
		}
	}

	if !found {
		m.log.Warnf("No active hotspot connections found for SSID '%s'", ssid)
	}
	return nil
}

func (m *Manager) removeConnection(c wificonnect.Connection) bool {
	id := c.Settings().ID
	if err := c.Deactivate(); err != nil {
		m.log.WithError(err).Warnf("Failed to deactivate connection %s", id)
	}
	if err := c.Delete(); err != nil {
		m.log.WithError(err).Warnf("Failed to delete connection %s", id)
		return false
	}
	return true
}

func isHotspotFor(c wificonnect.Connection, ssid string) bool {
	s := c.Settings()
	if !s.IsAccessPoint() {
		return false
	}
	name, ok := s.SSID.AsString()
	return ok && name == ssid
}
