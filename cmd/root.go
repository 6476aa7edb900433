// Package cmd defines the CLI commands for the harvester executable.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skubase/harvester/internal/config"
	"github.com/skubase/harvester/internal/logging"
	"github.com/skubase/harvester/internal/metrics"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvester",
		Short: "Harvests a vendor's product pages into a normalized SKU catalog",
		Long: `harvester crawls a hardware vendor's public product pages, extracts
typed SKU records from their specification tables, derives canonical
classification tags, and publishes the products, search index, and tag
vocabulary artifacts consumed by the catalog tooling.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./harvester.yaml)")

	cmd.AddCommand(newHarvestCmd())
	cmd.AddCommand(newCheckCmd())

	return cmd
}

// setup loads the configuration and builds the run-scoped logger.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("build logger: %w", err)
	}
	metrics.Init()
	return cfg, logger, nil
}

// Execute is the main entry point.
func Execute() error {
	return newRootCmd().Execute()
}
