package store_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/skubase/harvester/internal/store"
)

func TestOpenCreatesLayout(t *testing.T) {
	dir := t.TempDir()
	_, err := store.Open(filepath.Join(dir, "catalog"), zap.NewNop())
	require.NoError(t, err)

	assert.DirExists(t, filepath.Join(dir, "catalog", "raw"))
	assert.DirExists(t, filepath.Join(dir, "catalog", "logs"))
}

func TestOpenRequiresDir(t *testing.T) {
	_, err := store.Open("  ", zap.NewNop())
	assert.Error(t, err)
}

func TestWriteAndReadDoc(t *testing.T) {
	cat, err := store.Open(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	type payload struct {
		Value string `json:"value"`
	}
	require.NoError(t, cat.WriteDoc("products", payload{Value: "x"}))

	var got payload
	require.NoError(t, cat.ReadDoc("products", &got))
	assert.Equal(t, "x", got.Value)

	// Published atomically: no temp file remains.
	_, err = os.Stat(filepath.Join(cat.Dir(), "products.json.tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestWriteDocIsByteStable(t *testing.T) {
	cat, err := store.Open(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	doc := map[string][]string{"sx-100": {"a", "b"}}
	require.NoError(t, cat.WriteDoc("user_tags", doc))
	first, err := cat.ReadRaw("user_tags")
	require.NoError(t, err)

	require.NoError(t, cat.WriteDoc("user_tags", doc))
	second, err := cat.ReadRaw("user_tags")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, json.Valid(first))
}

func TestEnsureDocDoesNotOverwrite(t *testing.T) {
	cat, err := store.Open(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, cat.WriteDoc("rules", []string{"original"}))
	require.NoError(t, cat.EnsureDoc("rules", []string{"replacement"}))

	var got []string
	require.NoError(t, cat.ReadDoc("rules", &got))
	assert.Equal(t, []string{"original"}, got)

	assert.False(t, cat.Exists("manual_components"))
	require.NoError(t, cat.EnsureDoc("manual_components", map[string]any{}))
	assert.True(t, cat.Exists("manual_components"))
}

func TestAppendLogFormat(t *testing.T) {
	cat, err := store.Open(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	ts := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	require.NoError(t, cat.AppendLog(store.CrawlLog, ts, "https://vendor.test/x", "fetch failed"))
	require.NoError(t, cat.AppendLog(store.CrawlLog, ts.Add(time.Second), "https://vendor.test/y", "parse failed"))

	data, err := os.ReadFile(filepath.Join(cat.Dir(), "logs", "crawl.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[2026-08-30T12:00:00Z] https://vendor.test/x fetch failed", lines[0])
	assert.Equal(t, "[2026-08-30T12:00:01Z] https://vendor.test/y parse failed", lines[1])
}

func TestSaveRawHTML(t *testing.T) {
	cat, err := store.Open(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, cat.SaveRawHTML("sx-100", []byte("<html></html>")))
	data, err := os.ReadFile(filepath.Join(cat.Dir(), "raw", "sx-100.html"))
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(data))

	assert.Error(t, cat.SaveRawHTML("../escape", []byte("x")))
}
