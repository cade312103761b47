package cmd

import (
	"fmt"
	"time"

	wificonnect "github.com/dogeorg/wificonnect/pkg"
	"github.com/dogeorg/wificonnect/pkg/system/network"
	network_connector "github.com/dogeorg/wificonnect/pkg/system/network/connector"
	network_wifi "github.com/dogeorg/wificonnect/pkg/system/network/wifi"
	"github.com/spf13/cobra"
)

var listNetworksCmd = &cobra.Command{
	Use:   "list-networks",
	Short: "Scan for WiFi networks in range",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		nm, err := openNetworkManager(cmd.Context())
		if err != nil {
			return err
		}
		defer nm.Close()

		device, err := openDevice(nm)
		if err != nil {
			return err
		}

		networks := network.Networks(network.NewScanner(logger).Scan(device, ""))
		if ok, err := printJSON(networks); ok {
			return err
		}

		fmt.Println("\nAvailable WiFi Networks:")
		fmt.Println("----------------------")
		if len(networks) == 0 {
			fmt.Println("No networks found. Please try again.")
		}
		for _, n := range networks {
			fmt.Printf("SSID: %s, Security: %s\n", n.SSID, n.Security)
		}
		return nil
	},
}

var listConnectedCmd = &cobra.Command{
	Use:   "list-connected",
	Short: "Show the network the WiFi device is connected to",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		nm, err := openNetworkManager(cmd.Context())
		if err != nil {
			return err
		}
		defer nm.Close()

		device, err := openDevice(nm)
		if err != nil {
			return err
		}

		radio, err := network_wifi.NewRadio()
		if err != nil {
			logger.WithError(err).Debug("nl80211 unavailable, using NetworkManager only")
		} else {
			defer radio.Close()
		}

		connected, err := network.Connected(device, radio, logger)
		if err != nil {
			return err
		}
		if ok, err := printJSON(connected); ok {
			return err
		}

		if connected == nil {
			fmt.Println("\nNo network connected")
			return nil
		}

		fmt.Println("\nConnected Network:")
		fmt.Println("-----------------")
		fmt.Printf("SSID: %s\n", connected.SSID)
		fmt.Printf("Security: %s\n", connected.Security)
		fmt.Printf("Signal: %d%%\n", connected.SignalStrength)
		fmt.Printf("Interface: %s\n", connected.Interface)
		if connected.IPAddress != "" {
			fmt.Printf("IP: %s\n", connected.IPAddress)
		} else {
			fmt.Println("IP: Not available")
		}
		return nil
	},
}

var connectFlags struct {
	passphrase string
	identity   string
	timeout    time.Duration
}

var connectCmd = &cobra.Command{
	Use:   "connect <ssid>",
	Short: "Connect to a WiFi network in range",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ssid := args[0]

		nm, err := openNetworkManager(cmd.Context())
		if err != nil {
			return err
		}
		defer nm.Close()

		device, err := openDevice(nm)
		if err != nil {
			return err
		}

		ap, ok := network.FindAccessPoint(network.NewScanner(logger).Scan(device, ""), ssid)
		if !ok {
			return fmt.Errorf("%w: %s", wificonnect.ErrNetworkNotFound, ssid)
		}

		creds := wificonnect.ResolveCredentials(ap.Security, connectFlags.identity, connectFlags.passphrase)
		res, err := network_connector.NewSupervisor(nm, logger).Connect(device, ap, creds, connectFlags.timeout)
		if err != nil {
			return err
		}

		return reportConnect(ssid, res)
	},
}

// reportConnect prints the outcome and fails when the connection did not
// activate, whatever the output format.
func reportConnect(ssid string, res network_connector.Result) error {
	if _, err := printJSON(wificonnect.ConnectUpdate{SSID: ssid, Connected: res.Connected, HasInternet: res.HasInternet}); err != nil {
		return err
	}

	switch {
	case !res.Connected:
		return fmt.Errorf("failed to connect to %q: %s", ssid, res.State)
	case res.HasInternet:
		logger.Infof("Successfully connected to '%s'", ssid)
	default:
		logger.Warnf("Connected to '%s' but no internet connectivity", ssid)
	}
	return nil
}

var disconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Disconnect the WiFi device from its network",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		nm, err := openNetworkManager(cmd.Context())
		if err != nil {
			return err
		}
		defer nm.Close()

		device, err := openDevice(nm)
		if err != nil {
			return err
		}

		disconnected, err := network.Disconnect(device)
		if err != nil {
			return err
		}
		if disconnected {
			logger.Infof("Disconnected %s", device.Interface())
		} else {
			logger.Infof("%s is not connected", device.Interface())
		}
		return nil
	},
}

func init() {
	connectCmd.Flags().StringVar(&connectFlags.passphrase, "passphrase", "", "Network passphrase")
	connectCmd.Flags().StringVar(&connectFlags.identity, "identity", "", "Identity for enterprise networks")
	connectCmd.Flags().DurationVar(&connectFlags.timeout, "timeout", wificonnect.DEFAULT_CONNECT_TIMEOUT, "How long to wait for internet connectivity")

	rootCmd.AddCommand(listNetworksCmd)
	rootCmd.AddCommand(listConnectedCmd)
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(disconnectCmd)
}
