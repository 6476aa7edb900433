package fetch

import (
	"context"
	"errors"
	"time"

	"github.com/skubase/harvester/internal/metrics"
)

// Retry budget: 4 total attempts with backoff doubling from 500ms, so a
// failing URL waits 500, 1000, and 2000 ms before attempts 2, 3, and 4.
const (
	retryAttempts    = 4
	retryBaseBackoff = 500 * time.Millisecond
)

// Retrier wraps a Doer with the fixed retry budget. It implements Doer
// itself so callers compose it transparently over the Fetcher.
type Retrier struct {
	inner Doer
	pause PauseFunc
}

// WithRetry wraps d. pause may be nil for the production timer pause.
func WithRetry(d Doer, pause PauseFunc) *Retrier {
	if pause == nil {
		pause = timerPause
	}
	return &Retrier{inner: d, pause: pause}
}

// Fetch retries transient failures with an explicit attempt counter.
// Robots denials are permanent for the URL and propagate immediately;
// after the last attempt the final error propagates unchanged.
func (r *Retrier) Fetch(ctx context.Context, url string) (Result, error) {
	backoff := retryBaseBackoff
	var lastErr error
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		result, err := r.inner.Fetch(ctx, url)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, ErrRobotsDisallowed) {
			return Result{}, err
		}
		lastErr = err
		if attempt == retryAttempts {
			break
		}
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		metrics.FetchRetry()
		r.pause(ctx, backoff)
		backoff *= 2
	}
	return Result{}, lastErr
}
