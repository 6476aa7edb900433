// Package fetch implements the robots-compliant, disk-cached, retrying
// HTTP fetch primitive used by the crawl and extraction phases.
package fetch

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Result is the outcome of one fetch. FromCache is true when the body was
// served from disk without a network call.
type Result struct {
	Body      []byte
	FromCache bool
}

// Doer is the fetch contract consumed by the crawler and the harvest
// pipeline. The retry wrapper implements it too, so the two compose.
type Doer interface {
	Fetch(ctx context.Context, url string) (Result, error)
}

// DelayFunc returns the politeness delay applied after a network fetch.
type DelayFunc func() time.Duration

// PauseFunc blocks for the given duration, honoring ctx cancellation.
type PauseFunc func(ctx context.Context, d time.Duration)

// Config controls fetcher behavior. Delay and Pause have production
// defaults and exist as knobs so tests never sleep for real.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	Delay     DelayFunc
	Pause     PauseFunc
}

// Fetcher serves bodies from the disk cache when possible and otherwise
// issues a single HTTP GET through a Colly collector, persisting the body
// before returning. The self-throttle delay applies only to network
// fetches, never to cache hits.
type Fetcher struct {
	cfg           Config
	cache         *DiskCache
	policy        RobotsPolicy
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// New builds a Fetcher.
func New(cfg Config, cache *DiskCache, policy RobotsPolicy, logger *zap.Logger) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Delay == nil {
		cfg.Delay = randomPolitenessDelay
	}
	if cfg.Pause == nil {
		cfg.Pause = timerPause
	}
	// Robots handling is the policy's job; the collector must not consult
	// robots.txt a second time with different semantics.
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	return &Fetcher{
		cfg:           cfg,
		cache:         cache,
		policy:        policy,
		baseCollector: c,
		logger:        logger,
	}
}

// Fetch implements Doer.
func (f *Fetcher) Fetch(ctx context.Context, url string) (Result, error) {
	if !f.policy.Allowed(url) {
		return Result{}, fmt.Errorf("%s: %w", url, ErrRobotsDisallowed)
	}

	if body, ok := f.cache.Get(url); ok {
		f.logger.Debug("cache hit", zap.String("url", url))
		return Result{Body: body, FromCache: true}, nil
	}

	body, err := f.get(ctx, url)
	if err != nil {
		return Result{}, err
	}
	if err := f.cache.Set(url, body); err != nil {
		return Result{}, err
	}

	f.cfg.Pause(ctx, f.cfg.Delay())
	return Result{Body: body, FromCache: false}, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(f.cfg.Timeout)

	var (
		body     []byte
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	collector.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = &FetchError{URL: url, StatusCode: status, Err: err}
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			// Visit reports HTTP failures too; the OnError hook saw the
			// response and its error carries the status code, so it wins.
			if fetchErr != nil {
				return nil, fetchErr
			}
			return nil, &FetchError{URL: url, Err: err}
		}
	}
	if fetchErr != nil {
		return nil, fetchErr
	}
	return body, nil
}

// randomPolitenessDelay spreads network fetches 600-1000ms apart.
func randomPolitenessDelay() time.Duration {
	return 600*time.Millisecond + time.Duration(rand.Int63n(int64(400*time.Millisecond)))
}

func timerPause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
