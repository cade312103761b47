package cmd

import (
	"fmt"

	"github.com/dogeorg/wificonnect/pkg/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Get wifi-connect version information",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{noRootAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		version := version.GetRelease()
		if ok, err := printJSON(version); ok {
			return err
		}

		fmt.Printf("Release: %s\n", version.Release)
		fmt.Printf("Git: %s\n", version.Git.Commit)
		fmt.Printf("Dirty: %t\n", version.Git.Dirty)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
