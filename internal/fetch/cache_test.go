package fetch

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskCacheRoundTrip(t *testing.T) {
	cache, err := NewDiskCache(t.TempDir())
	require.NoError(t, err)

	_, ok := cache.Get("https://vendor.test/products/sx-100")
	assert.False(t, ok)

	require.NoError(t, cache.Set("https://vendor.test/products/sx-100", []byte("<html>sx-100</html>")))
	body, ok := cache.Get("https://vendor.test/products/sx-100")
	require.True(t, ok)
	assert.Equal(t, "<html>sx-100</html>", string(body))

	// Distinct URLs never collide.
	_, ok = cache.Get("https://vendor.test/products/sx-200")
	assert.False(t, ok)
}

func TestDiskCacheKeyIsStable(t *testing.T) {
	dir := t.TempDir()
	cache, err := NewDiskCache(dir)
	require.NoError(t, err)
	require.NoError(t, cache.Set("https://vendor.test/a", []byte("one")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	// A second cache over the same directory sees the entry.
	reopened, err := NewDiskCache(dir)
	require.NoError(t, err)
	body, ok := reopened.Get("https://vendor.test/a")
	require.True(t, ok)
	assert.Equal(t, "one", string(body))
}
