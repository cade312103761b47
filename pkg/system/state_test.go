package system

import (
	"errors"
	"net/netip"
	"os"
	"testing"

	wificonnect "github.com/dogeorg/wificonnect/pkg"
	"github.com/dogeorg/wificonnect/pkg/logging"
	"github.com/google/go-cmp/cmp"
)

func newTestStore(t *testing.T) (*StateStore, wificonnect.Config) {
	t.Helper()
	config := wificonnect.DefaultConfig()
	config.StateDir = t.TempDir()
	return NewStateStore(config, logging.Discard()), config
}

func TestStateStoreRoundTrip(t *testing.T) {
	store, config := newTestStore(t)

	pid := uint32(1234)
	want := wificonnect.HotspotState{
		Running:     true,
		SSID:        "WiFi Connect",
		Gateway:     netip.MustParseAddr("192.168.42.1"),
		Interface:   "wlan0",
		HasPassword: false,
		DHCPPID:     &pid,
		StartedAt:   1640995200,
	}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	raw, err := os.ReadFile(config.StatePath())
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != "1|WiFi Connect|192.168.42.1|wlan0|0|1234|1640995200\n" {
		t.Errorf("file contents = %q", raw)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(want, got, cmp.Comparer(func(a, b netip.Addr) bool { return a == b })); diff != "" {
		t.Errorf("Load (-want +got):\n%s", diff)
	}
}

func TestStateStoreLoad(t *testing.T) {
	tests := []struct {
		name     string
		contents *string
	}{
		{name: "missing"},
		{name: "empty", contents: ptr("")},
		{name: "truncated", contents: ptr("1|WiFi Connect|192.168.42.1")},
		{name: "garbage pid", contents: ptr("1|WiFi Connect|192.168.42.1|wlan0|0|abc|1640995200\n")},
		{name: "bad gateway", contents: ptr("1|WiFi Connect|not-an-ip|wlan0|0|1234|1640995200\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, config := newTestStore(t)
			if tt.contents != nil {
				if err := os.WriteFile(config.StatePath(), []byte(*tt.contents), 0o644); err != nil {
					t.Fatal(err)
				}
			}

			_, err := store.Load()
			if !errors.Is(err, wificonnect.ErrNoState) {
				t.Errorf("Load error = %v, want ErrNoState", err)
			}
		})
	}
}

func TestStateStoreClear(t *testing.T) {
	store, config := newTestStore(t)

	// nothing to clear yet
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear on empty store: %v", err)
	}

	if err := store.Save(wificonnect.HotspotState{
		Running: true, SSID: "x", Gateway: netip.MustParseAddr("10.0.0.1"), Interface: "wlan0",
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := os.Stat(config.StatePath()); !os.IsNotExist(err) {
		t.Errorf("state file still present: %v", err)
	}
	if _, err := store.Load(); !errors.Is(err, wificonnect.ErrNoState) {
		t.Errorf("Load after Clear = %v", err)
	}
}

func TestStateStoreSaveRejectsInvalid(t *testing.T) {
	store, config := newTestStore(t)

	err := store.Save(wificonnect.HotspotState{SSID: "a|b", Gateway: netip.MustParseAddr("10.0.0.1")})
	if !errors.Is(err, wificonnect.ErrInvalidState) {
		t.Errorf("Save error = %v, want ErrInvalidState", err)
	}
	if _, err := os.Stat(config.StatePath()); !os.IsNotExist(err) {
		t.Error("invalid state written to disk")
	}
}

func ptr[T any](v T) *T { return &v }
