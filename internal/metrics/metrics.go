// Package metrics exposes Prometheus collectors for the harvest pipeline.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesFetchedTotal    *prometheus.CounterVec
	crawlFailuresTotal   prometheus.Counter
	fetchRetriesTotal    prometheus.Counter
	productsHarvested    *prometheus.CounterVec
	renderPromotionTotal prometheus.Counter

	once sync.Once
)

// Init registers the collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		pagesFetchedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_pages_fetched_total",
				Help: "Total pages served to the pipeline, labeled by source.",
			},
			[]string{"source"},
		)
		crawlFailuresTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "harvester_crawl_failures_total",
				Help: "Total per-URL crawl failures logged and skipped.",
			},
		)
		fetchRetriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "harvester_fetch_retries_total",
				Help: "Total fetch attempts beyond the first.",
			},
		)
		productsHarvested = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "harvester_products_total",
				Help: "Total product pages processed, labeled by outcome.",
			},
			[]string{"outcome"},
		)
		renderPromotionTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "harvester_render_promotions_total",
				Help: "Total pages promoted to the rendering fallback.",
			},
		)
	})
}

// PageFetched records a page served to the pipeline.
func PageFetched(fromCache bool) {
	if pagesFetchedTotal == nil {
		return
	}
	source := "network"
	if fromCache {
		source = "cache"
	}
	pagesFetchedTotal.WithLabelValues(source).Inc()
}

// CrawlFailure records one skipped crawl URL.
func CrawlFailure() {
	if crawlFailuresTotal != nil {
		crawlFailuresTotal.Inc()
	}
}

// FetchRetry records one retried fetch attempt.
func FetchRetry() {
	if fetchRetriesTotal != nil {
		fetchRetriesTotal.Inc()
	}
}

// ProductProcessed records one product page outcome ("extracted",
// "render_failed", "fetch_failed", or "invalid").
func ProductProcessed(outcome string) {
	if productsHarvested != nil {
		productsHarvested.WithLabelValues(outcome).Inc()
	}
}

// RenderPromoted records one promotion to the rendering fallback.
func RenderPromoted() {
	if renderPromotionTotal != nil {
		renderPromotionTotal.Inc()
	}
}
