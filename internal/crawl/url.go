package crawl

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Normalize resolves raw against base, strips the fragment, lowercases the
// scheme and host, and removes default ports, so the visited set never
// stores two spellings of the same page.
func Normalize(raw string, base *url.URL) (string, error) {
	ref, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", raw, err)
	}
	u := ref
	if base != nil {
		u = base.ResolveReference(ref)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Scheme == "http" {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}
	u.Fragment = ""

	return u.String(), nil
}

// InDomain reports whether u belongs to domain or one of its subdomains.
func InDomain(u *url.URL, domain string) bool {
	host := strings.ToLower(u.Hostname())
	domain = strings.ToLower(domain)
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// Classifier decides whether an in-domain URL is a product page.
type Classifier struct {
	pattern *regexp.Regexp
}

// NewClassifier builds the product-URL matcher for a domain. Product pages
// live under /products/, /product/, or /solutions/ path segments.
func NewClassifier(domain string) *Classifier {
	escaped := regexp.QuoteMeta(strings.ToLower(domain))
	return &Classifier{
		pattern: regexp.MustCompile(`(?i)` + escaped + `(?::\d+)?/(?:products|product|solutions)/`),
	}
}

// IsProduct reports whether rawURL matches the product-page pattern.
func (c *Classifier) IsProduct(rawURL string) bool {
	return c.pattern.MatchString(rawURL)
}
