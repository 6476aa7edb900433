package fetch

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// DiskCache stores one raw fetched body per URL, keyed by a stable hash of
// the URL. Entries are created on first successful fetch and read on later
// runs; the pipeline never expires or rewrites them — cache staleness is a
// run-to-run operational decision.
type DiskCache struct {
	dir string
}

// NewDiskCache creates the cache directory if needed.
func NewDiskCache(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	return &DiskCache{dir: dir}, nil
}

// Get returns the cached body for url, if present.
func (c *DiskCache) Get(url string) ([]byte, bool) {
	data, err := os.ReadFile(c.pathFor(url))
	if err != nil {
		return nil, false
	}
	return data, true
}

// Set persists the body for url.
func (c *DiskCache) Set(url string, body []byte) error {
	if err := os.WriteFile(c.pathFor(url), body, 0o600); err != nil {
		return fmt.Errorf("write cache entry for %s: %w", url, err)
	}
	return nil
}

// keyFor is the SHA-256 hex digest of the URL, used as the file name.
func (c *DiskCache) keyFor(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

func (c *DiskCache) pathFor(url string) string {
	return filepath.Join(c.dir, c.keyFor(url)+".html")
}
