package cmd

import (
	"github.com/dogeorg/wificonnect/pkg/portal"
	"github.com/dogeorg/wificonnect/pkg/system/network"
	network_connector "github.com/dogeorg/wificonnect/pkg/system/network/connector"
	"github.com/dogeorg/wificonnect/pkg/web"
	"github.com/spf13/cobra"
)

var portalCmd = &cobra.Command{
	Use:   "portal",
	Short: "Raise the captive portal and wait for a network to be picked (default)",
	Args:  cobra.NoArgs,
	RunE:  runPortal,
}

func runPortal(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	nm, err := openNetworkManager(ctx)
	if err != nil {
		return err
	}
	defer nm.Close()

	device, err := openDevice(nm)
	if err != nil {
		return err
	}

	manager, err := newHotspotManager(nm, device)
	if err != nil {
		return err
	}

	p := portal.NewPortal(
		config,
		device,
		manager,
		network.NewScanner(logger),
		network_connector.NewSupervisor(nm, logger),
		logger,
	)

	relay := web.NewWSRelay(p.Changes, logger)
	monitor := portal.NewHotspotMonitor(manager, p.Changes, logger)
	api := web.RESTAPI(config, p, network.NewRegistry(nm, logger), relay, logger)

	return p.Run(ctx, relay, monitor, api)
}

func init() {
	rootCmd.RunE = runPortal
	rootCmd.Args = cobra.NoArgs
	rootCmd.AddCommand(portalCmd)
}
