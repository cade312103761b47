package cmd

import (
	"fmt"

	"github.com/dogeorg/wificonnect/pkg/system/network"
	"github.com/spf13/cobra"
)

var listSavedCmd = &cobra.Command{
	Use:   "list-saved",
	Short: "List saved WiFi networks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		nm, err := openNetworkManager(cmd.Context())
		if err != nil {
			return err
		}
		defer nm.Close()

		saved, err := network.NewRegistry(nm, logger).List()
		if err != nil {
			return err
		}
		if ok, err := printJSON(saved); ok {
			return err
		}

		fmt.Println("\nSaved WiFi Networks:")
		fmt.Println("-------------------")
		if len(saved) == 0 {
			fmt.Println("No saved networks found.")
		}
		for _, n := range saved {
			fmt.Printf("SSID: %s, Security: %s, Auto-connect: %s\n", n.SSID, n.Security, yesNo(n.AutoConnect))
		}
		return nil
	},
}

var forgetCmd = &cobra.Command{
	Use:   "forget <ssid>",
	Short: "Forget a saved WiFi network",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ssid := args[0]

		nm, err := openNetworkManager(cmd.Context())
		if err != nil {
			return err
		}
		defer nm.Close()

		found, err := network.NewRegistry(nm, logger).Forget(ssid)
		if err != nil {
			return err
		}
		if found {
			logger.Infof("WiFi network '%s' has been forgotten", ssid)
		} else {
			logger.Infof("WiFi network '%s' was not found in saved connections", ssid)
		}
		return nil
	},
}

var forgetAllCmd = &cobra.Command{
	Use:   "forget-all",
	Short: "Forget every saved WiFi network",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		nm, err := openNetworkManager(cmd.Context())
		if err != nil {
			return err
		}
		defer nm.Close()

		if err := network.NewRegistry(nm, logger).ForgetAll(); err != nil {
			return err
		}
		logger.Info("All WiFi networks have been forgotten")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listSavedCmd)
	rootCmd.AddCommand(forgetCmd)
	rootCmd.AddCommand(forgetAllCmd)
}
