package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skubase/harvester/internal/config"
	"github.com/skubase/harvester/internal/fetch"
	"github.com/skubase/harvester/internal/harvest"
	"github.com/skubase/harvester/internal/render"
	"github.com/skubase/harvester/internal/store"
)

// newHarvestCmd creates the 'harvest' subcommand running one batch pass.
func newHarvestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "harvest",
		Short: "Runs one crawl-and-extract pass and publishes the catalog artifacts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			pipeline, cleanup, err := buildPipeline(cmd, cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			if err := pipeline.Run(cmd.Context()); err != nil {
				return fmt.Errorf("harvest: %w", err)
			}
			logger.Info("harvest command finished")
			return nil
		},
	}
}

func buildPipeline(cmd *cobra.Command, cfg config.Config, logger *zap.Logger) (*harvest.Pipeline, func(), error) {
	cat, err := store.Open(cfg.Catalog.Dir, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("open catalog: %w", err)
	}
	cache, err := fetch.NewDiskCache(cfg.Catalog.CacheDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open cache: %w", err)
	}

	policy := fetch.NewRobotsPolicy(cmd.Context(), cfg.Crawler.BaseURL, cfg.Crawler.UserAgent, logger)
	fetcher := fetch.New(fetch.Config{
		UserAgent: cfg.Crawler.UserAgent,
		Timeout:   cfg.HTTPTimeout(),
	}, cache, policy, logger)

	var renderer render.Renderer = render.NewNoop()
	cleanup := func() {}
	if cfg.Render.Enabled {
		chrome := render.NewChromedp(render.ChromedpConfig{
			UserAgent:         cfg.Crawler.UserAgent,
			NavigationTimeout: cfg.NavTimeout(),
		})
		renderer = chrome
		cleanup = chrome.Close
	}

	pipeline := harvest.New(harvest.Config{
		Seeds:            cfg.Crawler.Seeds,
		Domain:           cfg.Crawler.Domain,
		ConsistencyCheck: cfg.Check.Enabled,
	}, fetch.WithRetry(fetcher, nil), renderer, cat, logger)

	return pipeline, cleanup, nil
}
