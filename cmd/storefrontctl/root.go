package main

import (
	"github.com/robertarktes/travel-storefront/internal/config"
	"github.com/robertarktes/travel-storefront/internal/observability"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	verbose bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "storefrontctl",
		Short:         "Operator commands for the travel storefront",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")

	cmd.AddCommand(newMigrateCmd(flags))
	cmd.AddCommand(newSeedCmd(flags))
	cmd.AddCommand(newReconcileCmd(flags))

	return cmd
}

func loadEnv(flags *rootFlags) (*config.Config, observability.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	level := cfg.LogLevel
	if flags.verbose {
		level = "debug"
	}
	return cfg, observability.NewLogger(observability.LoggerOptions{Level: level}), nil
}
