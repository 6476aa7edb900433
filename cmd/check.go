package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skubase/harvester/internal/catalog"
	"github.com/skubase/harvester/internal/harvest"
	"github.com/skubase/harvester/internal/rules"
	"github.com/skubase/harvester/internal/store"
)

// newCheckCmd creates the 'check' subcommand: it evaluates the rule set
// against an already-written catalog and prints every warning, without
// touching the artifacts.
func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Evaluates the compatibility rules against the harvested catalog",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			cat, err := store.Open(cfg.Catalog.Dir, logger)
			if err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}

			var products []catalog.ProductSku
			if err := cat.ReadDoc(harvest.DocProducts, &products); err != nil {
				return fmt.Errorf("no harvested catalog found: %w", err)
			}
			raw, err := cat.ReadRaw(harvest.DocRules)
			if err != nil {
				return fmt.Errorf("no rules document found: %w", err)
			}
			ruleSet, err := catalog.DecodeRules(raw)
			if err != nil {
				return err
			}

			total := 0
			for _, product := range products {
				result := rules.Evaluate(product.Tags, harvest.NumericFields(product), ruleSet)
				for _, warning := range result.Warnings {
					total++
					fmt.Printf("%s: %s\n", product.SKU, warning)
				}
			}
			logger.Info("consistency check finished",
				zap.Int("products", len(products)),
				zap.Int("warnings", total),
			)
			return nil
		},
	}
}
