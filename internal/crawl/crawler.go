package crawl

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/skubase/harvester/internal/fetch"
	"github.com/skubase/harvester/internal/metrics"
	"github.com/skubase/harvester/internal/store"
)

// Config scopes a crawl run.
type Config struct {
	Domain string
}

// Crawler discovers product pages breadth-first inside the configured
// domain. Link discovery order affects nothing semantically, so the loop
// is written purely sequentially; politeness comes from the fetch layer.
type Crawler struct {
	cfg        Config
	fetcher    fetch.Doer
	classifier *Classifier
	catalog    *store.Catalog
	logger     *zap.Logger
	now        func() time.Time
}

// New builds a Crawler. fetcher is expected to be retry-wrapped.
func New(cfg Config, fetcher fetch.Doer, catalog *store.Catalog, logger *zap.Logger) *Crawler {
	return &Crawler{
		cfg:        cfg,
		fetcher:    fetcher,
		classifier: NewClassifier(cfg.Domain),
		catalog:    catalog,
		logger:     logger,
		now:        time.Now,
	}
}

// Run walks the link graph from seeds, filling state with visited URLs and
// classified product pages. Single-URL failures are appended to the crawl
// failure log and never abort the run; a seed set that yields no
// successful fetch at all is fatal.
func (c *Crawler) Run(ctx context.Context, state *State, seeds []string) error {
	for _, seed := range seeds {
		normalized, err := Normalize(seed, nil)
		if err != nil {
			c.logFailure(seed, err)
			continue
		}
		state.Enqueue(normalized)
	}

	fetched := 0
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("crawl canceled: %w", err)
		}
		current, ok := state.Dequeue()
		if !ok {
			break
		}
		if !state.MarkVisited(current) {
			continue
		}

		result, err := c.fetcher.Fetch(ctx, current)
		if err != nil {
			metrics.CrawlFailure()
			c.logFailure(current, err)
			continue
		}
		fetched++
		metrics.PageFetched(result.FromCache)

		links, err := c.extractLinks(result.Body, current)
		if err != nil {
			c.logFailure(current, err)
			continue
		}
		for _, link := range links {
			if !state.Visited(link) {
				state.Enqueue(link)
			}
			if c.classifier.IsProduct(link) {
				state.AddProduct(link)
			}
		}
	}

	if fetched == 0 {
		return fmt.Errorf("seed list unreachable: none of %d seeds produced a page", len(seeds))
	}
	c.logger.Info("crawl finished",
		zap.Int("visited", state.VisitedCount()),
		zap.Int("product_urls", len(state.ProductURLs())),
	)
	return nil
}

// extractLinks pulls outbound anchors, normalizes them against the page's
// own URL, and keeps only in-domain links.
func (c *Crawler) extractLinks(body []byte, pageURL string) ([]string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url %q: %w", pageURL, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parse html of %s: %w", pageURL, err)
	}

	seen := map[string]struct{}{}
	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if strings.TrimSpace(href) == "" {
			return
		}
		normalized, err := Normalize(href, base)
		if err != nil {
			return
		}
		target, err := url.Parse(normalized)
		if err != nil || !InDomain(target, c.cfg.Domain) {
			return
		}
		if _, ok := seen[normalized]; ok {
			return
		}
		seen[normalized] = struct{}{}
		links = append(links, normalized)
	})
	return links, nil
}

func (c *Crawler) logFailure(url string, err error) {
	c.logger.Warn("crawl failure", zap.String("url", url), zap.Error(err))
	if logErr := c.catalog.AppendLog(store.CrawlLog, c.now(), url, err.Error()); logErr != nil {
		c.logger.Error("crawl log write failed", zap.Error(logErr))
	}
}
