package network_connector

import (
	"fmt"
	"time"

	wificonnect "github.com/dogeorg/wificonnect/pkg"
	"github.com/sirupsen/logrus"
)

const connectivityPollInterval = time.Second

// Result is the outcome of one connection attempt. A failed attempt is
// not an error; State says how far it got.
type Result struct {
	Connected   bool
	HasInternet bool
	State       wificonnect.ConnectionState
	Connection  wificonnect.Connection
}

// Supervisor connects a device to an access point and waits for the
// network service to report internet connectivity.
type Supervisor struct {
	gw    wificonnect.NetworkGateway
	log   logrus.FieldLogger
	sleep func(time.Duration)
	now   func() time.Time
}

func NewSupervisor(gw wificonnect.NetworkGateway, log logrus.FieldLogger) *Supervisor {
	return &Supervisor{
		gw:    gw,
		log:   log.WithField("system", "connector"),
		sleep: time.Sleep,
		now:   time.Now,
	}
}

// Connect makes a single attempt. Retrying is up to the caller.
func (s *Supervisor) Connect(device wificonnect.WifiDevice, ap wificonnect.AccessPoint, creds wificonnect.Credentials, timeout time.Duration) (Result, error) {
	ssid, _ := ap.SSID.AsString()
	s.log.Infof("Connecting to access point '%s'...", ssid)

	conn, state, err := device.Connect(ap, creds)
	if err != nil {
		return Result{}, fmt.Errorf("could not connect to %q: %w", ssid, err)
	}

	if state != wificonnect.ConnectionStateActivated {
		s.log.Warnf("Connection to access point '%s' not activated: %s", ssid, state)
		return Result{State: state, Connection: conn}, nil
	}

	hasInternet, err := s.WaitForConnectivity(timeout)
	if err != nil {
		return Result{}, err
	}

	if hasInternet {
		s.log.Info("Internet connectivity established")
	} else {
		s.log.Warn("Cannot establish Internet connectivity")
	}

	return Result{
		Connected:   true,
		HasInternet: hasInternet,
		State:       state,
		Connection:  conn,
	}, nil
}

// WaitForConnectivity polls once per second until the network service
// reports full or limited connectivity, or timeout passes. Running out of
// time reports false, not an error.
func (s *Supervisor) WaitForConnectivity(timeout time.Duration) (bool, error) {
	start := s.now()

	for {
		c, err := s.gw.Connectivity()
		if err != nil {
			return false, fmt.Errorf("could not check connectivity: %w", err)
		}

		elapsed := s.now().Sub(start)
		if c.HasInternet() {
			s.log.Debugf("Connectivity established: %s / %s elapsed", c, elapsed.Round(time.Second))
			return true, nil
		}
		if elapsed >= timeout {
			s.log.Debugf("Timeout reached in waiting for connectivity: %s / %s elapsed", c, elapsed.Round(time.Second))
			return false, nil
		}

		s.sleep(connectivityPollInterval)
		s.log.Debugf("Still waiting for connectivity: %s", c)
	}
}
