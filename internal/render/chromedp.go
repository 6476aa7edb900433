package render

import (
	"context"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
)

// ChromedpConfig controls the headless browser renderer.
type ChromedpConfig struct {
	UserAgent         string
	NavigationTimeout time.Duration
}

// Chromedp implements Renderer with headless Chrome. One exec allocator is
// shared across renders; each Render runs in its own browser context.
type Chromedp struct {
	cfg         ChromedpConfig
	allocator   context.Context
	allocCancel context.CancelFunc
}

// NewChromedp creates the renderer and its browser allocator.
func NewChromedp(cfg ChromedpConfig) *Chromedp {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &Chromedp{cfg: cfg, allocator: allocCtx, allocCancel: allocCancel}
}

// Close releases the browser allocator.
func (r *Chromedp) Close() { r.allocCancel() }

// Render navigates with the headless browser and returns the full DOM
// after the body is ready and in-flight hydration has settled.
func (r *Chromedp) Render(ctx context.Context, url string) (string, error) {
	taskCtx, taskCancel := chromedp.NewContext(r.allocator)
	defer taskCancel()

	taskCtx, cancel := context.WithTimeout(taskCtx, r.cfg.NavigationTimeout)
	defer cancel()

	// Honor cancellation of the caller's context as well.
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-taskCtx.Done():
		}
	}()

	var html string
	actions := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(500 * time.Millisecond),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if r.cfg.UserAgent != "" {
		actions = append([]chromedp.Action{
			chromedp.ActionFunc(func(ctx context.Context) error {
				return emulation.SetUserAgentOverride(r.cfg.UserAgent).Do(ctx)
			}),
		}, actions...)
	}
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return "", &RenderError{URL: url, Err: err}
	}
	return html, nil
}
