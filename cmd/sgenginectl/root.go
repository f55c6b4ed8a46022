package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// RootCommand builds a bare root command that wires global flags into
// viper, then hands off to subcommands that read settings back out
// through viper's layered flag/env/file precedence.
func RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "sgenginectl",
		Short: "Run and inspect a compiled sound-graph engine",
	}

	if err := setupGlobalFlags(root); err != nil {
		fmt.Println("error setting up flags:", err)
	}

	root.AddCommand(serveCommand())
	return root
}

func setupGlobalFlags(cmd *cobra.Command) error {
	cmd.PersistentFlags().String("config", "", "path to an engine config YAML file")
	cmd.PersistentFlags().Int("sample-rate", 48000, "engine sample rate in Hz")
	cmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	cmd.PersistentFlags().String("sentry-dsn", "", "Sentry DSN for error reporting (empty disables Sentry)")
	cmd.PersistentFlags().String("device", "", "playback device name (default: system default)")
	cmd.PersistentFlags().String("listen", ":9090", "address to serve /metrics and /report on")

	if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	viper.SetEnvPrefix("SGENGINE")
	viper.AutomaticEnv()
	return nil
}
