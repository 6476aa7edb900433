// Package store persists catalog artifacts as a file-based key-value
// store: one JSON document per name, written atomically, plus append-only
// failure logs and raw per-SKU HTML retained for audit and replay.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Log names used by the harvest pipeline.
const (
	CrawlLog = "crawl"
	ParseLog = "parse"
)

// Catalog is a directory-backed artifact store.
type Catalog struct {
	dir    string
	logger *zap.Logger
}

// Open prepares the catalog directory layout. The raw and logs
// subdirectories are created eagerly so append paths never race a mkdir.
func Open(dir string, logger *zap.Logger) (*Catalog, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("catalog directory is required")
	}
	for _, sub := range []string{dir, filepath.Join(dir, "raw"), filepath.Join(dir, "logs")} {
		if err := os.MkdirAll(sub, 0o750); err != nil {
			return nil, fmt.Errorf("create catalog dir %s: %w", sub, err)
		}
	}
	return &Catalog{dir: dir, logger: logger}, nil
}

// Dir returns the catalog root directory.
func (c *Catalog) Dir() string { return c.dir }

// WriteDoc persists one named JSON document atomically: the payload is
// written to a temporary file and renamed into place, so a crash mid-write
// never corrupts a previously valid artifact.
func (c *Catalog) WriteDoc(name string, v any) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s document: %w", name, err)
	}
	target := c.docPath(name)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, append(payload, '\n'), 0o600); err != nil {
		return fmt.Errorf("write %s document: %w", name, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("publish %s document: %w", name, err)
	}
	return nil
}

// ReadDoc loads one named JSON document into v.
func (c *Catalog) ReadDoc(name string, v any) error {
	data, err := os.ReadFile(c.docPath(name))
	if err != nil {
		return fmt.Errorf("read %s document: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s document: %w", name, err)
	}
	return nil
}

// ReadRaw returns the raw bytes of one named document.
func (c *Catalog) ReadRaw(name string) ([]byte, error) {
	data, err := os.ReadFile(c.docPath(name))
	if err != nil {
		return nil, fmt.Errorf("read %s document: %w", name, err)
	}
	return data, nil
}

// Exists reports whether a named document is present.
func (c *Catalog) Exists(name string) bool {
	_, err := os.Stat(c.docPath(name))
	return err == nil
}

// EnsureDoc writes a named document only when it does not exist yet. It is
// used to seed read-only inputs (user_tags, manual_components, rules).
func (c *Catalog) EnsureDoc(name string, v any) error {
	if c.Exists(name) {
		return nil
	}
	return c.WriteDoc(name, v)
}

// AppendLog appends one line to a named log in the format
// "[ISO-8601 timestamp] <url-or-sku> <message>". Log writes are
// best-effort for callers: failures are reported but should not abort a
// crawl loop.
func (c *Catalog) AppendLog(name string, ts time.Time, ref, message string) error {
	line := fmt.Sprintf("[%s] %s %s\n", ts.UTC().Format(time.RFC3339), ref, message)
	path := filepath.Join(c.dir, "logs", name+".log")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open log %s: %w", name, err)
	}
	_, werr := f.WriteString(line)
	cerr := f.Close()
	if werr != nil {
		return fmt.Errorf("append log %s: %w", name, werr)
	}
	if cerr != nil {
		return fmt.Errorf("close log %s: %w", name, cerr)
	}
	return nil
}

// SaveRawHTML retains the rendered markup for one SKU.
func (c *Catalog) SaveRawHTML(sku string, body []byte) error {
	if strings.ContainsAny(sku, "/\\") {
		return fmt.Errorf("sku %q is not a valid file name", sku)
	}
	path := filepath.Join(c.dir, "raw", sku+".html")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		return fmt.Errorf("write raw html for %s: %w", sku, err)
	}
	return nil
}

// IsNotExist reports whether err stems from a missing document.
func IsNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}

func (c *Catalog) docPath(name string) string {
	return filepath.Join(c.dir, name+".json")
}
