package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type forgetRequest struct {
	SSID string `json:"ssid"`
	// older portal UIs send network_name
	NetworkName string `json:"network_name"`
}

type result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func (t api) listSaved(w http.ResponseWriter, r *http.Request) {
	saved, err := t.saved.List()
	if err != nil {
		t.log.WithError(err).Warn("could not list saved networks")
		sendErrorResponse(w, http.StatusInternalServerError, "Failed to list saved networks")
		return
	}
	sendResponse(w, map[string]any{"savedNetworks": saved})
}

func (t api) forgetNetwork(w http.ResponseWriter, r *http.Request) {
	var req forgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErrorResponse(w, http.StatusBadRequest, "Error parsing JSON")
		return
	}
	defer r.Body.Close()

	ssid := req.SSID
	if ssid == "" {
		ssid = req.NetworkName
	}
	if ssid == "" {
		sendErrorResponse(w, http.StatusBadRequest, "ssid is required")
		return
	}

	found, err := t.saved.Forget(ssid)
	if err != nil {
		t.log.WithError(err).Warnf("could not forget %q", ssid)
		sendErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !found {
		sendErrorResponse(w, http.StatusNotFound, fmt.Sprintf("Network '%s' not found in saved connections", ssid))
		return
	}
	sendResponse(w, result{Success: true, Message: fmt.Sprintf("Forgot network '%s'", ssid)})
}

// forgetAll forgets saved client networks one by one. The portal's own
// access point profile is not a saved network and survives.
func (t api) forgetAll(w http.ResponseWriter, r *http.Request) {
	saved, err := t.saved.List()
	if err != nil {
		t.log.WithError(err).Warn("could not list saved networks")
		sendErrorResponse(w, http.StatusInternalServerError, "Failed to list saved networks")
		return
	}
	if len(saved) == 0 {
		sendResponse(w, result{Success: true, Message: "No saved networks to forget"})
		return
	}

	forgotten := 0
	failed := []string{}
	for _, n := range saved {
		if _, err := t.saved.Forget(n.SSID); err != nil {
			t.log.WithError(err).Warnf("could not forget %q", n.SSID)
			failed = append(failed, n.SSID)
			continue
		}
		forgotten++
	}

	if len(failed) > 0 {
		sendErrorResponse(w, http.StatusInternalServerError,
			fmt.Sprintf("Forgot %d networks. Failed to forget: %s", forgotten, strings.Join(failed, ", ")))
		return
	}
	sendResponse(w, result{Success: true, Message: fmt.Sprintf("Forgot %d networks", forgotten)})
}
