package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	wificonnect "github.com/dogeorg/wificonnect/pkg"
	"github.com/dogeorg/wificonnect/pkg/logging"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/net/websocket"
)

type fakePortal struct {
	mu           sync.Mutex
	actions      []wificonnect.Action
	addErr       error
	networks     []wificonnect.Network
	status       wificonnect.HotspotStatus
	connected    *wificonnect.ConnectedNetwork
	connectedErr error
	touches      int
}

func (p *fakePortal) AddAction(a wificonnect.Action) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.addErr != nil {
		return "", p.addErr
	}
	p.actions = append(p.actions, a)
	return "job-1", nil
}

func (p *fakePortal) Networks() []wificonnect.Network { return p.networks }

func (p *fakePortal) HotspotStatus() (wificonnect.HotspotStatus, error) { return p.status, nil }

func (p *fakePortal) Connected() (*wificonnect.ConnectedNetwork, error) {
	return p.connected, p.connectedErr
}

func (p *fakePortal) Snapshot() wificonnect.Change {
	return wificonnect.Change{
		ID:     "internal",
		Type:   "bootstrap",
		Update: wificonnect.BootstrapUpdate{Networks: p.networks, Hotspot: p.status},
	}
}

// fakeSaved forgets by SSID; an SSID in failing cannot be deleted.
type fakeSaved struct {
	saved   []wificonnect.SavedNetwork
	failing map[string]bool
	listErr error
	forgot  []string
}

func (s *fakeSaved) List() ([]wificonnect.SavedNetwork, error) {
	return s.saved, s.listErr
}

func (s *fakeSaved) Forget(ssid string) (bool, error) {
	if s.failing[ssid] {
		return false, errors.New("permission denied")
	}
	for i, n := range s.saved {
		if n.SSID == ssid {
			s.saved = append(s.saved[:i:i], s.saved[i+1:]...)
			s.forgot = append(s.forgot, ssid)
			return true, nil
		}
	}
	return false, nil
}

func (p *fakePortal) Touch() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.touches++
}

func newTestAPI(t *testing.T, portal *fakePortal) (*httptest.Server, *WSRelay) {
	t.Helper()
	return newTestAPIWithSaved(t, portal, &fakeSaved{})
}

func newTestAPIWithSaved(t *testing.T, portal *fakePortal, saved *fakeSaved) (*httptest.Server, *WSRelay) {
	t.Helper()

	ui := t.TempDir()
	if err := os.WriteFile(filepath.Join(ui, "index.html"), []byte("<h1>portal</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(ui, "app.js"), []byte("console.log(1)"), 0o644); err != nil {
		t.Fatal(err)
	}

	config := wificonnect.DefaultConfig()
	config.UIDirectory = ui

	relay := NewWSRelay(make(chan wificonnect.Change), logging.Discard())
	a := RESTAPI(config, portal, saved, relay, logging.Discard())
	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)
	return srv, relay
}

func TestGetNetworks(t *testing.T) {
	portal := &fakePortal{networks: []wificonnect.Network{{SSID: "Home", Security: "wpa"}}}
	srv, _ := newTestAPI(t, portal)

	res, err := http.Get(srv.URL + "/networks")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()

	var got []wificonnect.Network
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(portal.networks, got); diff != "" {
		t.Errorf("networks (-want +got):\n%s", diff)
	}
	if res.Header.Get("Cache-Control") != "no-store" {
		t.Errorf("Cache-Control = %q", res.Header.Get("Cache-Control"))
	}
	portal.mu.Lock()
	defer portal.mu.Unlock()
	if portal.touches != 1 {
		t.Errorf("touches = %d, want 1", portal.touches)
	}
}

func TestConnect(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		addErr   error
		wantCode int
		want     []wificonnect.Action
	}{
		{
			name:     "queued",
			body:     `{"ssid":"Home","passphrase":"hunter22"}`,
			wantCode: http.StatusOK,
			want:     []wificonnect.Action{wificonnect.ConnectNetwork{SSID: "Home", Passphrase: "hunter22"}},
		},
		{
			name:     "enterprise",
			body:     `{"ssid":"Office","identity":"alice","passphrase":"pw"}`,
			wantCode: http.StatusOK,
			want:     []wificonnect.Action{wificonnect.ConnectNetwork{SSID: "Office", Identity: "alice", Passphrase: "pw"}},
		},
		{
			name:     "bad json",
			body:     `{"ssid":`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "missing ssid",
			body:     `{"passphrase":"x"}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "busy",
			body:     `{"ssid":"Home"}`,
			addErr:   errors.New("portal is busy"),
			wantCode: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			portal := &fakePortal{addErr: tt.addErr}
			srv, _ := newTestAPI(t, portal)

			res, err := http.Post(srv.URL+"/connect", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			defer res.Body.Close()

			if res.StatusCode != tt.wantCode {
				t.Errorf("status = %d, want %d", res.StatusCode, tt.wantCode)
			}
			if diff := cmp.Diff(tt.want, portal.actions); diff != "" {
				t.Errorf("actions (-want +got):\n%s", diff)
			}
			if tt.wantCode == http.StatusOK {
				var body map[string]string
				if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
					t.Fatal(err)
				}
				if body["id"] != "job-1" {
					t.Errorf("id = %q", body["id"])
				}
			}
		})
	}
}

func TestGetHotspot(t *testing.T) {
	portal := &fakePortal{status: wificonnect.HotspotStatus{
		Running: true, SSID: "WiFi Connect", Gateway: "192.168.42.1", Interface: "wlan0", Uptime: 3 * time.Second,
	}}
	srv, _ := newTestAPI(t, portal)

	res, err := http.Get(srv.URL + "/hotspot")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()

	var got wificonnect.HotspotStatus
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(portal.status, got); diff != "" {
		t.Errorf("status (-want +got):\n%s", diff)
	}
}

func TestStaticUI(t *testing.T) {
	srv, _ := newTestAPI(t, &fakePortal{})

	tests := []struct {
		path string
		want string
	}{
		{"/", "<h1>portal</h1>"},
		{"/app.js", "console.log(1)"},
		{"/generate_204", "<h1>portal</h1>"},
		{"/hotspot-detect.html", "<h1>portal</h1>"},
		{"/../../etc/passwd", "<h1>portal</h1>"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			res, err := http.Get(srv.URL + tt.path)
			if err != nil {
				t.Fatal(err)
			}
			defer res.Body.Close()
			body, _ := io.ReadAll(res.Body)
			if string(body) != tt.want {
				t.Errorf("body = %q, want %q", body, tt.want)
			}
		})
	}
}

func TestUpdateSocket(t *testing.T) {
	portal := &fakePortal{networks: []wificonnect.Network{{SSID: "Home", Security: "wpa"}}}
	srv, relay := newTestAPI(t, portal)

	started, stopped := make(chan bool), make(chan bool)
	stop := make(chan context.Context)
	if err := relay.Run(started, stopped, stop); err != nil {
		t.Fatal(err)
	}
	<-started
	defer func() {
		stop <- context.Background()
		<-stopped
	}()

	ws, err := websocket.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/updates", "", srv.URL)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer ws.Close()
	ws.SetDeadline(time.Now().Add(5 * time.Second))

	var first struct {
		Type   string                      `json:"type"`
		Update wificonnect.BootstrapUpdate `json:"update"`
	}
	if err := websocket.JSON.Receive(ws, &first); err != nil {
		t.Fatalf("receive bootstrap: %v", err)
	}
	if first.Type != "bootstrap" || len(first.Update.Networks) != 1 {
		t.Errorf("bootstrap = %+v", first)
	}

	relay.changes <- wificonnect.Change{ID: "job-1", Type: "connect", Update: wificonnect.ConnectUpdate{SSID: "Home"}}

	var next struct {
		ID     string                    `json:"id"`
		Type   string                    `json:"type"`
		Update wificonnect.ConnectUpdate `json:"update"`
	}
	if err := websocket.JSON.Receive(ws, &next); err != nil {
		t.Fatalf("receive change: %v", err)
	}
	if next.ID != "job-1" || next.Type != "connect" || next.Update.SSID != "Home" {
		t.Errorf("change = %+v", next)
	}
}

func TestUpdateSocketClientLeaves(t *testing.T) {
	srv, relay := newTestAPI(t, &fakePortal{})

	started, stopped := make(chan bool), make(chan bool)
	stop := make(chan context.Context)
	if err := relay.Run(started, stopped, stop); err != nil {
		t.Fatal(err)
	}
	<-started
	defer func() {
		stop <- context.Background()
		<-stopped
	}()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/updates"
	dial := func() *websocket.Conn {
		ws, err := websocket.Dial(url, "", srv.URL)
		if err != nil {
			t.Fatalf("Dial: %v", err)
		}
		ws.SetDeadline(time.Now().Add(5 * time.Second))
		var first wificonnect.Change
		if err := websocket.JSON.Receive(ws, &first); err != nil {
			t.Fatalf("receive bootstrap: %v", err)
		}
		return ws
	}

	gone := dial()
	gone.Close()
	stay := dial()
	defer stay.Close()

	for i := 0; i < 3; i++ {
		relay.changes <- wificonnect.Change{ID: "job", Type: "connect"}
		var c wificonnect.Change
		if err := websocket.JSON.Receive(stay, &c); err != nil {
			t.Fatalf("receive change %d: %v", i, err)
		}
		if c.ID != "job" {
			t.Errorf("change = %+v", c)
		}
	}
}

func TestListNetworks(t *testing.T) {
	portal := &fakePortal{networks: []wificonnect.Network{{SSID: "Home", Security: "wpa", SignalStrength: 72}}}
	srv, _ := newTestAPI(t, portal)

	var got struct {
		Networks []wificonnect.Network `json:"networks"`
	}
	getJSON(t, srv.URL+"/list-networks", http.StatusOK, &got)
	if diff := cmp.Diff(portal.networks, got.Networks); diff != "" {
		t.Errorf("networks (-want +got):\n%s", diff)
	}
}

func TestListConnected(t *testing.T) {
	tests := []struct {
		name      string
		connected *wificonnect.ConnectedNetwork
		err       error
		wantCode  int
	}{
		{
			name:      "connected",
			connected: &wificonnect.ConnectedNetwork{SSID: "Home", Security: "wpa", SignalStrength: 70, Interface: "wlan0", IPAddress: "10.0.0.5"},
			wantCode:  http.StatusOK,
		},
		{
			name:     "not connected",
			wantCode: http.StatusOK,
		},
		{
			name:     "gateway error",
			err:      errors.New("bus closed"),
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestAPI(t, &fakePortal{connected: tt.connected, connectedErr: tt.err})

			var got struct {
				Connected *wificonnect.ConnectedNetwork `json:"connected"`
			}
			getJSON(t, srv.URL+"/list-connected", tt.wantCode, &got)
			if tt.wantCode != http.StatusOK {
				return
			}
			if diff := cmp.Diff(tt.connected, got.Connected); diff != "" {
				t.Errorf("connected (-want +got):\n%s", diff)
			}
		})
	}
}

func TestListSaved(t *testing.T) {
	saved := &fakeSaved{saved: []wificonnect.SavedNetwork{
		{SSID: "cafe", Security: "none", AutoConnect: true},
		{SSID: "home", Security: "wpa", AutoConnect: true},
	}}
	srv, _ := newTestAPIWithSaved(t, &fakePortal{}, saved)

	var got struct {
		SavedNetworks []wificonnect.SavedNetwork `json:"savedNetworks"`
	}
	getJSON(t, srv.URL+"/list-saved", http.StatusOK, &got)
	if diff := cmp.Diff(saved.saved, got.SavedNetworks); diff != "" {
		t.Errorf("saved (-want +got):\n%s", diff)
	}

	saved.listErr = errors.New("bus closed")
	getJSON(t, srv.URL+"/list-saved", http.StatusInternalServerError, nil)
}

func TestForgetNetwork(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		wantCode   int
		wantForgot []string
	}{
		{"by ssid", "/forget", `{"ssid":"home"}`, http.StatusOK, []string{"home"}},
		{"by network name", "/forget-network", `{"network_name":"home"}`, http.StatusOK, []string{"home"}},
		{"unknown", "/forget", `{"ssid":"nowhere"}`, http.StatusNotFound, nil},
		{"missing ssid", "/forget", `{}`, http.StatusBadRequest, nil},
		{"bad json", "/forget-network", `{"ssid":`, http.StatusBadRequest, nil},
		{"delete fails", "/forget", `{"ssid":"locked"}`, http.StatusInternalServerError, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saved := &fakeSaved{
				saved:   []wificonnect.SavedNetwork{{SSID: "home"}, {SSID: "locked"}},
				failing: map[string]bool{"locked": true},
			}
			srv, _ := newTestAPIWithSaved(t, &fakePortal{}, saved)

			res, err := http.Post(srv.URL+tt.path, "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			res.Body.Close()

			if res.StatusCode != tt.wantCode {
				t.Errorf("status = %d, want %d", res.StatusCode, tt.wantCode)
			}
			if diff := cmp.Diff(tt.wantForgot, saved.forgot); diff != "" {
				t.Errorf("forgot (-want +got):\n%s", diff)
			}
		})
	}
}

func TestForgetAll(t *testing.T) {
	tests := []struct {
		name       string
		saved      []string
		failing    map[string]bool
		wantCode   int
		wantForgot []string
		wantMsg    string
	}{
		{"nothing saved", nil, nil, http.StatusOK, nil, "No saved networks"},
		{"all forgotten", []string{"cafe", "home"}, nil, http.StatusOK, []string{"cafe", "home"}, "Forgot 2 networks"},
		{"one fails", []string{"cafe", "locked", "home"}, map[string]bool{"locked": true}, http.StatusInternalServerError, []string{"cafe", "home"}, "Failed to forget: locked"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saved := &fakeSaved{failing: tt.failing}
			for _, ssid := range tt.saved {
				saved.saved = append(saved.saved, wificonnect.SavedNetwork{SSID: ssid})
			}
			srv, _ := newTestAPIWithSaved(t, &fakePortal{}, saved)

			res, err := http.Post(srv.URL+"/forget-all", "application/json", strings.NewReader(`{}`))
			if err != nil {
				t.Fatal(err)
			}
			defer res.Body.Close()
			body, _ := io.ReadAll(res.Body)

			if res.StatusCode != tt.wantCode {
				t.Errorf("status = %d, want %d", res.StatusCode, tt.wantCode)
			}
			if !strings.Contains(string(body), tt.wantMsg) {
				t.Errorf("body = %s, want mention of %q", body, tt.wantMsg)
			}
			if diff := cmp.Diff(tt.wantForgot, saved.forgot); diff != "" {
				t.Errorf("forgot (-want +got):\n%s", diff)
			}
		})
	}
}

func TestScanStatus(t *testing.T) {
	tests := []struct {
		name        string
		status      wificonnect.HotspotStatus
		wantActive  bool
		wantCanScan bool
		wantWarning bool
	}{
		{"hotspot down", wificonnect.HotspotStatus{}, false, true, false},
		{"hotspot up", wificonnect.HotspotStatus{Running: true, SSID: "WiFi Connect"}, true, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestAPI(t, &fakePortal{status: tt.status})

			var got scanStatus
			getJSON(t, srv.URL+"/scan-status", http.StatusOK, &got)
			if got.HotspotActive != tt.wantActive || got.CanScan != tt.wantCanScan || (got.WarningMessage != "") != tt.wantWarning {
				t.Errorf("scan status = %+v", got)
			}
		})
	}
}

func getJSON(t *testing.T, url string, wantCode int, v any) {
	t.Helper()
	res, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	if res.StatusCode != wantCode {
		t.Fatalf("GET %s status = %d, want %d", url, res.StatusCode, wantCode)
	}
	if v == nil {
		return
	}
	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		t.Fatal(err)
	}
}
