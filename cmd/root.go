// The cmd package implements the interface for the wattbox-controller
// CLI. It only handles CLI arguments and passes the resolved
// configuration to the device client in internal/wattbox.
package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rwakeham/wattbox-controller/internal/config"
	wblog "github.com/rwakeham/wattbox-controller/internal/log"
	"github.com/rwakeham/wattbox-controller/internal/wattbox"
)

// The root command performs the outlet control itself, so the tool is
// invoked as a single flat command rather than through subcommands.
var rootCmd = &cobra.Command{
	Use:   "wattboxctl",
	Short: "Control WattBox outlets via HTTP",
	Long:  "Control WattBox outlets via HTTP, negotiating Basic or Digest authentication with the device.",
	Example: `  // turn outlet 3 off
  wattboxctl --url http://172.16.19.184 --outlet 3 --action off
  // turn outlet 3 on with explicit credentials
  wattboxctl -u http://172.16.19.184 -o 3 -a on --username admin --password pass
  // credentials from .env or WATTBOX_* environment variables
  wattboxctl -o 3 -a reset`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		wblog.Init(viper.GetBool("verbose"))

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		client, err := wattbox.NewClient(cfg.URL, cfg.Username, cfg.Password, cfg.Timeout)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if err := client.Probe(ctx); err != nil {
			return err
		}
		if err := client.Login(ctx); err != nil {
			return err
		}
		if err := client.SetOutlet(ctx, cfg.Outlet, cfg.Action); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "successfully executed '%s' on outlet %d\n", cfg.Action, cfg.Outlet)
		return nil
	},
}

// This Execute() function is called from main to run the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initializeConfig)

	rootCmd.Flags().StringP("url", "u", config.DefaultURL, "Set the base URL of the WattBox")
	rootCmd.Flags().String("username", config.DefaultUsername, "Set the username for HTTP authentication")
	rootCmd.Flags().String("password", config.DefaultPassword, "Set the password for HTTP authentication")
	rootCmd.Flags().IntP("outlet", "o", 0, "Set the outlet number to control (required)")
	rootCmd.Flags().StringP("action", "a", config.DefaultAction, "Set the action to perform on the outlet (on|off|reset)")
	rootCmd.Flags().IntP("timeout", "t", 10, "Set the timeout for requests in seconds")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Set to enable/disable verbose output")

	// bind viper config flags with cobra
	checkBindFlagError(viper.BindPFlag("url", rootCmd.Flags().Lookup("url")))
	checkBindFlagError(viper.BindPFlag("username", rootCmd.Flags().Lookup("username")))
	checkBindFlagError(viper.BindPFlag("password", rootCmd.Flags().Lookup("password")))
	checkBindFlagError(viper.BindPFlag("outlet", rootCmd.Flags().Lookup("outlet")))
	checkBindFlagError(viper.BindPFlag("action", rootCmd.Flags().Lookup("action")))
	checkBindFlagError(viper.BindPFlag("timeout", rootCmd.Flags().Lookup("timeout")))
	checkBindFlagError(viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose")))
	checkBindFlagError(config.BindEnvironment())
}

func checkBindFlagError(err error) {
	if err != nil {
		log.Error().Err(err).Msg("failed to bind cobra/viper flag")
	}
}

// initializeConfig() resolves everything below CLI flags: defaults,
// the .env file, and WATTBOX_* environment variables, in that
// precedence order from lowest to highest.
func initializeConfig() {
	config.SetDefaults()
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Warn().Err(err).Msg("continuing without .env file")
	}
	viper.AutomaticEnv()
}
