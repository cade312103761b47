package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	wificonnect "github.com/dogeorg/wificonnect/pkg"
)

type connectRequest struct {
	SSID       string `json:"ssid"`
	Identity   string `json:"identity"`
	Passphrase string `json:"passphrase"`
}

func (t api) getHealth(w http.ResponseWriter, r *http.Request) {
	sendResponse(w, map[string]any{"status": "ok"})
}

func (t api) getNetworks(w http.ResponseWriter, r *http.Request) {
	sendResponse(w, t.portal.Networks())
}

func (t api) listNetworks(w http.ResponseWriter, r *http.Request) {
	sendResponse(w, map[string]any{"networks": t.portal.Networks()})
}

func (t api) listConnected(w http.ResponseWriter, r *http.Request) {
	connected, err := t.portal.Connected()
	if err != nil {
		t.log.WithError(err).Warn("could not read connected network")
		sendErrorResponse(w, http.StatusInternalServerError, "Failed to read connected network")
		return
	}
	sendResponse(w, map[string]any{"connected": connected})
}

type scanStatus struct {
	HotspotActive  bool   `json:"hotspotActive"`
	CanScan        bool   `json:"canScan"`
	WarningMessage string `json:"warningMessage,omitempty"`
}

// The radio cannot scan while it serves the portal, so with the
// hotspot up the network list is the one taken before it came up.
func (t api) getScanStatus(w http.ResponseWriter, r *http.Request) {
	status, err := t.portal.HotspotStatus()
	if err != nil && !errors.Is(err, wificonnect.ErrNoState) {
		t.log.WithError(err).Warn("could not check hotspot")
		sendErrorResponse(w, http.StatusInternalServerError, "Failed to check hotspot")
		return
	}

	s := scanStatus{HotspotActive: status.Running, CanScan: !status.Running}
	if status.Running {
		s.WarningMessage = fmt.Sprintf("Networks were scanned before %s came up and are rescanned after a failed connect", status.SSID)
	}
	sendResponse(w, s)
}

// connectNetwork only queues the attempt. The hotspot goes down while
// connecting, so the caller will most likely lose this connection and
// never see the outcome on the update socket.
func (t api) connectNetwork(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErrorResponse(w, http.StatusBadRequest, "Error parsing JSON")
		return
	}
	defer r.Body.Close()

	if req.SSID == "" {
		sendErrorResponse(w, http.StatusBadRequest, "ssid is required")
		return
	}

	id, err := t.portal.AddAction(wificonnect.ConnectNetwork{
		SSID:       req.SSID,
		Identity:   req.Identity,
		Passphrase: req.Passphrase,
	})
	if err != nil {
		t.log.WithError(err).Warn("could not queue connect")
		sendErrorResponse(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	t.log.Infof("Queued connect to '%s' as job %s", req.SSID, id)
	sendResponse(w, map[string]string{"id": id})
}

func (t api) getHotspot(w http.ResponseWriter, r *http.Request) {
	status, err := t.portal.HotspotStatus()
	if err != nil && !errors.Is(err, wificonnect.ErrNoState) {
		t.log.WithError(err).Warn("could not check hotspot")
		sendErrorResponse(w, http.StatusInternalServerError, "Failed to check hotspot")
		return
	}
	sendResponse(w, status)
}
