package cmd

import (
	"context"
	"fmt"
	"os"
	"syscall"

	"github.com/dogeorg/wificonnect/cmd/wifi-connect/utils"
	wificonnect "github.com/dogeorg/wificonnect/pkg"
	"github.com/dogeorg/wificonnect/pkg/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const noRootAnnotation = "wificonnect/no-root"

var (
	config wificonnect.Config
	logger *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "wifi-connect",
	Short: "wifi-connect sets up WiFi on a headless device",
	Long: `wifi-connect connects a headless device to a WiFi network.

Run without a subcommand it raises a captive portal: a temporary
access point serving a small UI where the network can be picked.
The subcommands manage the portal hotspot and saved networks
directly.`,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// flags parsed fine; errors from here on are not usage errors
		cmd.SilenceUsage = true

		if err := applyEnv(cmd.Flags()); err != nil {
			return err
		}
		if err := applyConfigFile(cmd.Flags(), flags.configFile); err != nil {
			return err
		}

		c, err := loadConfig()
		if err != nil {
			return err
		}
		config = c
		logger = logging.New(config.Verbose)

		if cmd.Annotations[noRootAnnotation] == "" && syscall.Geteuid() != 0 {
			return fmt.Errorf("%s must be run as root", cmd.CommandPath())
		}
		return nil
	},
}

func Execute() {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		utils.PrintError(os.Stderr, err)
		utils.ExitBad(utils.IsSystemd())
	}
}
