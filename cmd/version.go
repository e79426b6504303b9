package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rwakeham/wattbox-controller/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.VersionInfo())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
