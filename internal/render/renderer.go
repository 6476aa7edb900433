// Package render provides the on-demand full-page rendering fallback for
// client-rendered product pages, plus the heuristic deciding when it is
// needed.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
)

// Renderer fetches a URL through a real browser and returns the fully
// rendered markup. It is an external collaborator of the pipeline; a
// failure is surfaced to the caller like a fetch failure.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

// RenderError reports a fallback renderer failure.
type RenderError struct {
	URL string
	Err error
}

func (e *RenderError) Error() string { return fmt.Sprintf("render %s: %v", e.URL, e.Err) }

func (e *RenderError) Unwrap() error { return e.Err }

// Markers of client-side rendering frameworks. This is a deliberately
// narrow signal: pages built on other platforms can slip past it, and a
// static page embedding one of these strings is promoted needlessly.
var clientRenderMarkers = [][]byte{
	[]byte("data-reactroot"),
	[]byte("__NEXT_DATA__"),
}

// NeedsRender reports whether the raw markup looks client-rendered and
// should be re-fetched through the rendering fallback.
func NeedsRender(body []byte) bool {
	for _, marker := range clientRenderMarkers {
		if bytes.Contains(body, marker) {
			return true
		}
	}
	return false
}

// Noop implements Renderer for builds without a browser available.
type Noop struct{}

// NewNoop creates the stub renderer.
func NewNoop() *Noop { return &Noop{} }

// Render always fails.
func (Noop) Render(_ context.Context, url string) (string, error) {
	return "", &RenderError{URL: url, Err: errors.New("rendering fallback not configured")}
}
