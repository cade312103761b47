package wificonnect

// A Job is created when an Action is received by the portal worker.
// Its outcome is sent to clients as a Change with the same ID.
type Job struct {
	A       Action
	ID      string
	Err     string
	Success any
}

// A Change is either the result of a Job (same ID) or an
// internal state change the portal UI needs to know about.
type Change struct {
	ID     string `json:"id"`
	Error  string `json:"error"`
	Type   string `json:"type"`
	Update Update `json:"update"`
}

/* Actions are handed to the portal worker by the API and
 * represent what the user asked for: connect to a network,
 * or tell the worker to stop waiting.
 */
type Action any

// Connect to a network picked from the portal
type ConnectNetwork struct {
	SSID       string
	Identity   string
	Passphrase string
}

// Someone reached the portal; resets the activity timer
type Activate struct{}

// Stop the portal without connecting
type Exit struct{}

/* Updates are wrapped in a Change and sent over the
 * websocket. They must be json-marshalable.
 */
type Update any

type NetworksUpdate struct {
	Networks []Network `json:"networks"`
}

type ConnectUpdate struct {
	SSID        string `json:"ssid"`
	Connected   bool   `json:"connected"`
	HasInternet bool   `json:"hasInternet"`
}

type HotspotUpdate struct {
	Status HotspotStatus `json:"status"`
}

// BootstrapUpdate is the first thing a new websocket client receives.
type BootstrapUpdate struct {
	Networks []Network     `json:"networks"`
	Hotspot  HotspotStatus `json:"hotspot"`
}
