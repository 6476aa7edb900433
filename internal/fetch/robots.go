package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

// RobotsPolicy answers whether the harvester may fetch a URL.
type RobotsPolicy interface {
	Allowed(rawURL string) bool
}

// robotsPolicy evaluates the target site's robots.txt, fetched once per
// run, against the harvester's user agent.
type robotsPolicy struct {
	group     *robotstxt.Group
	userAgent string
}

// NewRobotsPolicy fetches and parses robots.txt for the site's base URL.
// When robots.txt itself cannot be fetched the policy degrades to
// allow-all; that is a deliberate permissive default and is logged as
// such, not treated as an error.
func NewRobotsPolicy(ctx context.Context, baseURL, userAgent string, logger *zap.Logger) RobotsPolicy {
	robotsURL, err := url.Parse(baseURL)
	if err != nil {
		logger.Warn("invalid base URL for robots.txt; allowing all", zap.String("base_url", baseURL), zap.Error(err))
		return allowAll{}
	}
	robotsURL.Path = "/robots.txt"
	robotsURL.RawQuery = ""
	robotsURL.Fragment = ""

	data, err := fetchRobots(ctx, robotsURL.String(), userAgent)
	if err != nil {
		logger.Warn("robots.txt unavailable; allowing all", zap.String("robots_url", robotsURL.String()), zap.Error(err))
		return allowAll{}
	}
	return &robotsPolicy{group: data.FindGroup(userAgent), userAgent: userAgent}
}

// Allowed implements RobotsPolicy.
func (p *robotsPolicy) Allowed(rawURL string) bool {
	if p.group == nil {
		return true
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := parsed.Path
	if path == "" {
		path = "/"
	}
	return p.group.Test(path)
}

func fetchRobots(ctx context.Context, robotsURL, userAgent string) (*robotstxt.RobotsData, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new robots request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read robots body: %w", err)
	}
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots: %w", err)
	}
	return data, nil
}

type allowAll struct{}

func (allowAll) Allowed(string) bool { return true }
