package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	wificonnect "github.com/dogeorg/wificonnect/pkg"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

// Portal is what the API needs from the portal worker.
type Portal interface {
	AddAction(a wificonnect.Action) (string, error)
	Networks() []wificonnect.Network
	HotspotStatus() (wificonnect.HotspotStatus, error)
	Connected() (*wificonnect.ConnectedNetwork, error)
	Snapshot() wificonnect.Change
	Touch()
}

// SavedNetworks is the saved client profile registry.
type SavedNetworks interface {
	List() ([]wificonnect.SavedNetwork, error)
	Forget(ssid string) (bool, error)
}

func RESTAPI(
	config wificonnect.Config,
	portal Portal,
	saved SavedNetworks,
	ws *WSRelay,
	log logrus.FieldLogger,
) api {
	a := api{
		mux:    http.NewServeMux(),
		config: config,
		portal: portal,
		saved:  saved,
		ws:     ws,
		log:    log.WithField("system", "api"),
	}

	routes := map[string]http.HandlerFunc{
		"GET /health":          a.getHealth,
		"GET /networks":        a.getNetworks,
		"GET /list-networks":   a.listNetworks,
		"GET /list-connected":  a.listConnected,
		"GET /list-saved":      a.listSaved,
		"GET /scan-status":     a.getScanStatus,
		"POST /connect":        a.connectNetwork,
		"POST /forget":         a.forgetNetwork,
		"POST /forget-network": a.forgetNetwork,
		"POST /forget-all":     a.forgetAll,
		"GET /hotspot":         a.getHotspot,
		"/ws/updates":          a.getUpdateSocket,
		"/":                    serveSPA(config.UIDirectory, "index.html"),
	}

	for p, h := range routes {
		a.mux.HandleFunc(p, a.activity(p, h))
	}
	a.log.Debugf("Loaded %d API routes", len(routes))

	return a
}

type api struct {
	mux    *http.ServeMux
	config wificonnect.Config
	portal Portal
	saved  SavedNetworks
	ws     *WSRelay
	log    logrus.FieldLogger
}

func (t api) Handler() http.Handler {
	return cors.AllowAll().Handler(t.mux)
}

// activity counts every request except the update socket as user
// activity, holding off the portal's activity timeout.
func (t api) activity(pattern string, h http.HandlerFunc) http.HandlerFunc {
	if strings.HasPrefix(pattern, "/ws/") {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		t.portal.Touch()
		h(w, r)
	}
}

func (t api) Run(started, stopped chan bool, stop chan context.Context) error {
	addr := t.config.ListenAddress()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("could not listen on %s: %w", addr, err)
	}

	go func() {
		srv := &http.Server{Handler: t.Handler()}
		go func() {
			if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
				t.log.WithError(err).Error("portal HTTP server stopped")
			}
		}()

		t.log.Infof("Portal API listening on %s", ln.Addr())
		started <- true
		ctx := <-stop
		srv.Shutdown(ctx)
		stopped <- true
	}()
	return nil
}
