// Package harvest orchestrates the full batch pass: crawl, fetch, render
// decision, extraction, tag merge, and artifact publication.
package harvest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skubase/harvester/internal/catalog"
	"github.com/skubase/harvester/internal/crawl"
	"github.com/skubase/harvester/internal/extract"
	"github.com/skubase/harvester/internal/fetch"
	"github.com/skubase/harvester/internal/index"
	"github.com/skubase/harvester/internal/metrics"
	"github.com/skubase/harvester/internal/render"
	"github.com/skubase/harvester/internal/rules"
	"github.com/skubase/harvester/internal/store"
)

// Artifact and input document names in the catalog store.
const (
	DocProducts         = "products"
	DocIndex            = "index"
	DocTags             = "tags"
	DocUserTags         = "user_tags"
	DocManualComponents = "manual_components"
	DocRules            = "rules"
)

// Config scopes one harvest run.
type Config struct {
	Seeds            []string
	Domain           string
	ConsistencyCheck bool
}

// Pipeline wires the collaborators of one run. The fetcher is expected to
// be retry-wrapped; the renderer may be the noop implementation.
type Pipeline struct {
	cfg      Config
	fetcher  fetch.Doer
	renderer render.Renderer
	catalog  *store.Catalog
	logger   *zap.Logger
	now      func() time.Time
}

// New builds a Pipeline.
func New(cfg Config, fetcher fetch.Doer, renderer render.Renderer, cat *store.Catalog, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		cfg:      cfg,
		fetcher:  fetcher,
		renderer: renderer,
		catalog:  cat,
		logger:   logger,
		now:      time.Now,
	}
}

// Run executes one batch pass. Per-URL and per-product failures are
// logged and skipped; only a fully unreachable seed set or an artifact
// write failure aborts the run. A completed run always publishes a
// products artifact holding every successfully extracted SKU.
func (p *Pipeline) Run(ctx context.Context) error {
	runID := uuid.NewString()
	logger := p.logger.With(zap.String("run_id", runID))
	logger.Info("harvest run starting", zap.Strings("seeds", p.cfg.Seeds))

	overrides, err := p.loadUserTags()
	if err != nil {
		return err
	}

	state := crawl.NewState()
	crawler := crawl.New(crawl.Config{Domain: p.cfg.Domain}, p.fetcher, p.catalog, logger)
	if err := crawler.Run(ctx, state, p.cfg.Seeds); err != nil {
		return fmt.Errorf("crawl phase: %w", err)
	}

	harvestedAt := p.now().UTC()
	extractor := extract.New(overrides)
	products := p.extractAll(ctx, state.ProductURLs(), extractor, harvestedAt, logger)
	// A cancellation mid-extraction leaves product URLs unprocessed; that
	// must not publish as a completed harvest.
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("extract phase interrupted: %w", err)
	}

	sort.Slice(products, func(i, j int) bool { return products[i].SKU < products[j].SKU })

	if err := p.writeArtifacts(products); err != nil {
		return err
	}
	if err := p.seedInputs(); err != nil {
		return err
	}
	if p.cfg.ConsistencyCheck {
		if err := p.checkConsistency(products, logger); err != nil {
			return err
		}
	}

	logger.Info("harvest run finished",
		zap.Int("visited", state.VisitedCount()),
		zap.Int("product_urls", len(state.ProductURLs())),
		zap.Int("products", len(products)),
	)
	return nil
}

// extractAll processes every product URL strictly sequentially; the crawl
// frontier already paid the politeness cost per network fetch, and per-URL
// failure isolation plus the sort-before-write invariant matter more here
// than throughput.
func (p *Pipeline) extractAll(
	ctx context.Context,
	productURLs []string,
	extractor *extract.Extractor,
	harvestedAt time.Time,
	logger *zap.Logger,
) []catalog.ProductSku {
	products := make([]catalog.ProductSku, 0, len(productURLs))
	for _, productURL := range productURLs {
		if ctx.Err() != nil {
			break
		}
		product, err := p.processProduct(ctx, productURL, extractor, harvestedAt)
		if err != nil {
			logger.Warn("product page failed", zap.String("url", productURL), zap.Error(err))
			p.appendParseLog(productURL, fmt.Sprintf("failed: %v", err))
			continue
		}
		p.appendParseLog(product.SKU, fmt.Sprintf("parsed from %s", productURL))
		products = append(products, product)
	}
	return products
}

func (p *Pipeline) processProduct(
	ctx context.Context,
	productURL string,
	extractor *extract.Extractor,
	harvestedAt time.Time,
) (catalog.ProductSku, error) {
	result, err := p.fetcher.Fetch(ctx, productURL)
	if err != nil {
		metrics.ProductProcessed("fetch_failed")
		return catalog.ProductSku{}, err
	}

	html := string(result.Body)
	if render.NeedsRender(result.Body) {
		metrics.RenderPromoted()
		rendered, err := p.renderer.Render(ctx, productURL)
		if err != nil {
			metrics.ProductProcessed("render_failed")
			return catalog.ProductSku{}, err
		}
		html = rendered
	}

	product, err := extractor.Extract(html, productURL, harvestedAt)
	if err != nil {
		metrics.ProductProcessed("invalid")
		return catalog.ProductSku{}, err
	}

	if err := p.catalog.SaveRawHTML(product.SKU, []byte(html)); err != nil {
		p.logger.Warn("raw html retention failed", zap.String("sku", product.SKU), zap.Error(err))
	}
	metrics.ProductProcessed("extracted")
	return product, nil
}

// loadUserTags reads the user tag override document. A missing document
// means no overrides; a malformed one is a descriptive error, never a
// silent pass.
func (p *Pipeline) loadUserTags() (map[string][]string, error) {
	if !p.catalog.Exists(DocUserTags) {
		return map[string][]string{}, nil
	}
	raw, err := p.catalog.ReadRaw(DocUserTags)
	if err != nil {
		return nil, err
	}
	overrides, err := catalog.DecodeUserTags(raw)
	if err != nil {
		return nil, err
	}
	return overrides, nil
}

// writeArtifacts publishes products, index, and tags. Each write is
// atomic; any failure here is fatal to the run.
func (p *Pipeline) writeArtifacts(products []catalog.ProductSku) error {
	if err := p.catalog.WriteDoc(DocProducts, products); err != nil {
		return err
	}
	searchIndex, vocabulary := index.Build(products)
	if err := p.catalog.WriteDoc(DocIndex, searchIndex); err != nil {
		return err
	}
	return p.catalog.WriteDoc(DocTags, vocabulary)
}

// seedInputs creates the read-only input documents when absent: empty
// user_tags and manual_components, and the illustrative default rule set.
func (p *Pipeline) seedInputs() error {
	if err := p.catalog.EnsureDoc(DocUserTags, map[string][]string{}); err != nil {
		return err
	}
	if err := p.catalog.EnsureDoc(DocManualComponents, map[string]any{}); err != nil {
		return err
	}
	return p.catalog.EnsureDoc(DocRules, catalog.DefaultRules())
}

// checkConsistency runs the rule engine over every harvested record and
// logs the warnings. It never mutates the catalog.
func (p *Pipeline) checkConsistency(products []catalog.ProductSku, logger *zap.Logger) error {
	raw, err := p.catalog.ReadRaw(DocRules)
	if err != nil {
		return err
	}
	ruleSet, err := catalog.DecodeRules(raw)
	if err != nil {
		return err
	}
	for _, product := range products {
		result := rules.Evaluate(product.Tags, NumericFields(product), ruleSet)
		for _, warning := range result.Warnings {
			logger.Warn("consistency warning", zap.String("sku", product.SKU), zap.String("warning", warning))
		}
	}
	return nil
}

// NumericFields exposes a product's numeric attributes under the names the
// rule vocabulary uses for threshold checks.
func NumericFields(p catalog.ProductSku) map[string]float64 {
	fields := map[string]float64{}
	if p.Sockets != nil {
		fields["sockets"] = *p.Sockets
	}
	if p.MemorySlots != nil {
		fields["memory_slots"] = *p.MemorySlots
	}
	if p.MaxMemoryTB != nil {
		fields["max_memory_tb"] = *p.MaxMemoryTB
	}
	if p.GPUSupport.MaxGPUCount != nil {
		fields["max_gpu_count"] = *p.GPUSupport.MaxGPUCount
	}
	return fields
}

func (p *Pipeline) appendParseLog(ref, message string) {
	if err := p.catalog.AppendLog(store.ParseLog, p.now(), ref, message); err != nil {
		p.logger.Error("parse log write failed", zap.Error(err))
	}
}
