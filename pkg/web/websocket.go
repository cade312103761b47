package web

import (
	"net/http"
)

// getUpdateSocket streams portal Changes, starting with a snapshot of
// the networks and hotspot.
func (t api) getUpdateSocket(w http.ResponseWriter, r *http.Request) {
	t.ws.Handler(t.portal.Snapshot).ServeHTTP(w, r)
}
