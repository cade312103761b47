package cmd

import (
	"fmt"

	network_wifi "github.com/dogeorg/wificonnect/pkg/system/network/wifi"
	"github.com/spf13/cobra"
)

var interfacesCmd = &cobra.Command{
	Use:   "interfaces",
	Short: "List wireless interfaces known to the kernel",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		radio, err := network_wifi.NewRadio()
		if err != nil {
			return err
		}
		defer radio.Close()

		ifaces, err := radio.Interfaces()
		if err != nil {
			return err
		}
		if ok, err := printJSON(ifaces); ok {
			return err
		}

		if len(ifaces) == 0 {
			fmt.Println("No wireless interfaces found.")
		}
		for _, i := range ifaces {
			fmt.Printf("%s\tphy%d\t%s\t%s\n", i.Name, i.PHY, i.HardwareAddr, i.Type)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(interfacesCmd)
}
