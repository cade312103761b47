package cmd

import (
	"fmt"
	"net/netip"
	"os"
	"time"

	wificonnect "github.com/dogeorg/wificonnect/pkg"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

var flags struct {
	iface              string
	ssid               string
	passphrase         string
	gateway            string
	dhcpRange          string
	port               int
	activityTimeout    int
	uiDirectory        string
	noDHCPGateway      bool
	noDHCPDNS          bool
	noDHCPRouterOption bool
	stateDir           string
	dnsmasq            string
	verbose            bool
	json               bool
	configFile         string
}

// envFlags are read from the environment when not given on the command line.
var envFlags = []struct {
	flag string
	env  string
}{
	{"portal-interface", "PORTAL_INTERFACE"},
	{"portal-ssid", "PORTAL_SSID"},
	{"portal-passphrase", "PORTAL_PASSPHRASE"},
	{"portal-gateway", "PORTAL_GATEWAY"},
	{"portal-dhcp-range", "PORTAL_DHCP_RANGE"},
	{"portal-listening-port", "PORTAL_LISTENING_PORT"},
	{"activity-timeout", "ACTIVITY_TIMEOUT"},
	{"ui-directory", "UI_DIRECTORY"},
	{"no-dhcp-gateway", "NO_DHCP_GATEWAY"},
	{"no-dhcp-dns", "NO_DHCP_DNS"},
	{"no-dhcp-router-option", "NO_DHCP_ROUTER_OPTION"},
	{"state-dir", "WIFI_CONNECT_STATE_DIR"},
	{"dnsmasq", "DNSMASQ_BINARY"},
	{"config", "WIFI_CONNECT_CONFIG"},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVarP(&flags.iface, "portal-interface", "i", "", "Wireless network interface to be used by WiFi Connect")
	f.StringVarP(&flags.ssid, "portal-ssid", "s", wificonnect.DEFAULT_SSID, "SSID of the captive portal WiFi network")
	f.StringVarP(&flags.passphrase, "portal-passphrase", "p", "", "WPA2 Passphrase of the captive portal WiFi network")
	f.StringVarP(&flags.gateway, "portal-gateway", "g", wificonnect.DEFAULT_GATEWAY, "Gateway of the captive portal WiFi network")
	f.StringVarP(&flags.dhcpRange, "portal-dhcp-range", "d", wificonnect.DEFAULT_DHCP_RANGE, "DHCP range of the WiFi network")
	f.IntVarP(&flags.port, "portal-listening-port", "o", wificonnect.DEFAULT_LISTENING_PORT, "Listening port of the captive portal web server")
	f.IntVarP(&flags.activityTimeout, "activity-timeout", "a", 0, "Exit if no activity for the specified time (seconds)")
	f.StringVarP(&flags.uiDirectory, "ui-directory", "u", wificonnect.DEFAULT_UI_DIRECTORY, "Web UI directory location")
	f.BoolVar(&flags.noDHCPGateway, "no-dhcp-gateway", false, "Do not advertise the gateway as router over DHCP")
	f.BoolVar(&flags.noDHCPDNS, "no-dhcp-dns", false, "Do not answer DNS queries with the gateway address")
	f.BoolVar(&flags.noDHCPRouterOption, "no-dhcp-router-option", false, "Send an empty router option so clients keep their own route")
	f.StringVar(&flags.stateDir, "state-dir", wificonnect.DEFAULT_STATE_DIR, "Directory for the hotspot state, lock and dnsmasq files")
	f.StringVar(&flags.dnsmasq, "dnsmasq", wificonnect.DEFAULT_DNSMASQ, "dnsmasq binary")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "Log debug output")
	f.BoolVar(&flags.json, "json", false, "Print results as JSON")
	f.StringVarP(&flags.configFile, "config", "c", "", "YAML file of flag defaults, keyed by long flag name")

	for _, e := range envFlags {
		fl := f.Lookup(e.flag)
		fl.Usage = fmt.Sprintf("%s (env %s)", fl.Usage, e.env)
	}
}

// applyEnv fills flags that were not set on the command line from their
// environment variables.
func applyEnv(fs *pflag.FlagSet) error {
	for _, e := range envFlags {
		v, ok := os.LookupEnv(e.env)
		if !ok || fs.Changed(e.flag) {
			continue
		}
		if err := fs.Set(e.flag, v); err != nil {
			return fmt.Errorf("invalid %s=%q: %w", e.env, v, err)
		}
	}
	return nil
}

/* applyConfigFile fills flags that are still unset from a YAML file
 * keyed by long flag name:
 *
 *   portal-ssid: Setup
 *   portal-listening-port: 8080
 *   no-dhcp-dns: true
 *
 * Command line and environment both take precedence over the file.
 */
func applyConfigFile(fs *pflag.FlagSet, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	values := map[string]any{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	for name, v := range values {
		if name == "config" || fs.Lookup(name) == nil {
			return fmt.Errorf("config file %s: unknown option %q", path, name)
		}
		if fs.Changed(name) {
			continue
		}
		if err := fs.Set(name, fmt.Sprint(v)); err != nil {
			return fmt.Errorf("config file %s: invalid %s: %w", path, name, err)
		}
	}
	return nil
}

func loadConfig() (wificonnect.Config, error) {
	c := wificonnect.DefaultConfig()

	gateway, err := netip.ParseAddr(flags.gateway)
	if err != nil {
		return c, fmt.Errorf("invalid gateway %q: %w", flags.gateway, err)
	}
	if flags.activityTimeout < 0 {
		return c, fmt.Errorf("activity timeout must not be negative")
	}

	c.Interface = flags.iface
	c.SSID = flags.ssid
	c.Passphrase = flags.passphrase
	c.Gateway = gateway
	c.DHCPRange = flags.dhcpRange
	c.ListeningPort = flags.port
	c.ActivityTimeout = time.Duration(flags.activityTimeout) * time.Second
	c.UIDirectory = flags.uiDirectory
	c.NoDHCPGateway = flags.noDHCPGateway
	c.NoDHCPDNS = flags.noDHCPDNS
	c.NoDHCPRouterOption = flags.noDHCPRouterOption
	c.StateDir = flags.stateDir
	c.Dnsmasq = flags.dnsmasq
	c.Verbose = flags.verbose

	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}
