package cmd

import (
	"fmt"

	"github.com/dogeorg/wificonnect/pkg/hotspot"
	"github.com/spf13/cobra"
)

var startHotspotCmd = &cobra.Command{
	Use:   "start-hotspot",
	Short: "Start the portal hotspot and leave it running",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHotspotManager(cmd.Context(), true, func(m *hotspot.Manager) error {
			if err := m.Start(); err != nil {
				return err
			}
			logger.Infof("Hotspot '%s' is up on %s", config.SSID, config.Gateway)
			return nil
		})
	},
}

var stopHotspotCmd = &cobra.Command{
	Use:   "stop-hotspot",
	Short: "Stop a hotspot started by start-hotspot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHotspotManager(cmd.Context(), false, func(m *hotspot.Manager) error {
			return m.Stop()
		})
	},
}

var restartHotspotCmd = &cobra.Command{
	Use:   "restart-hotspot",
	Short: "Stop and start the portal hotspot",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHotspotManager(cmd.Context(), true, func(m *hotspot.Manager) error {
			return m.Restart()
		})
	},
}

var checkHotspotCmd = &cobra.Command{
	Use:   "check-hotspot",
	Short: "Report whether the portal hotspot is running",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHotspotManager(cmd.Context(), false, func(m *hotspot.Manager) error {
			status, err := m.Check()
			if err != nil {
				return err
			}
			if ok, err := printJSON(status); ok {
				return err
			}

			if !status.Running {
				fmt.Println("Hotspot Status: Not running")
				return nil
			}
			fmt.Println("Hotspot Status: Running")
			fmt.Printf("SSID: %s\n", status.SSID)
			fmt.Printf("Gateway: %s\n", status.Gateway)
			fmt.Printf("Interface: %s\n", status.Interface)
			fmt.Printf("Password Protected: %s\n", yesNo(status.HasPassword))
			fmt.Printf("Uptime: %s\n", status.UptimeString())
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(startHotspotCmd)
	rootCmd.AddCommand(stopHotspotCmd)
	rootCmd.AddCommand(restartHotspotCmd)
	rootCmd.AddCommand(checkHotspotCmd)
}
