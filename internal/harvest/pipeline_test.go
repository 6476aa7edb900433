package harvest_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/skubase/harvester/internal/catalog"
	"github.com/skubase/harvester/internal/fetch"
	"github.com/skubase/harvester/internal/harvest"
	"github.com/skubase/harvester/internal/index"
	"github.com/skubase/harvester/internal/render"
	"github.com/skubase/harvester/internal/store"
)

// siteFetcher serves canned pages keyed by URL, standing in for the fetch
// stack. URLs with no entry fail like a transport error.
type siteFetcher struct {
	pages map[string]string
	fail  map[string]bool
}

func (f *siteFetcher) Fetch(_ context.Context, rawURL string) (fetch.Result, error) {
	if f.fail[rawURL] {
		return fetch.Result{}, &fetch.FetchError{URL: rawURL, Err: errors.New("connection reset")}
	}
	body, ok := f.pages[rawURL]
	if !ok {
		return fetch.Result{}, &fetch.FetchError{URL: rawURL, StatusCode: 404}
	}
	return fetch.Result{Body: []byte(body)}, nil
}

type staticRenderer struct {
	html   string
	called []string
}

func (r *staticRenderer) Render(_ context.Context, url string) (string, error) {
	r.called = append(r.called, url)
	return r.html, nil
}

func productPage(name, cpu string) string {
	return `<html><body><h1>` + name + `</h1><table>
		<tr><th>Processor</th><td>` + cpu + `</td></tr>
		<tr><th>Sockets</th><td>2</td></tr>
		<tr><th>Memory Type</th><td>DDR5</td></tr>
	</table></body></html>`
}

func defaultSite() map[string]string {
	return map[string]string{
		"https://vendor.test/": `<html><body>
			<a href="/products/b-200">B</a>
			<a href="/products/a-100">A</a>
		</body></html>`,
		"https://vendor.test/products/b-200": productPage("Rack B", "AMD EPYC 9654"),
		"https://vendor.test/products/a-100": productPage("Rack A", "Intel Xeon 6530"),
	}
}

func newPipeline(t *testing.T, fetcher fetch.Doer, renderer render.Renderer, check bool) (*harvest.Pipeline, *store.Catalog) {
	t.Helper()
	cat, err := store.Open(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	cfg := harvest.Config{
		Seeds:            []string{"https://vendor.test/"},
		Domain:           "vendor.test",
		ConsistencyCheck: check,
	}
	return harvest.New(cfg, fetcher, renderer, cat, zap.NewNop()), cat
}

func readDoc(t *testing.T, cat *store.Catalog, name string, v any) {
	t.Helper()
	require.NoError(t, cat.ReadDoc(name, v))
}

func TestPipelinePublishesSortedArtifacts(t *testing.T) {
	fetcher := &siteFetcher{pages: defaultSite()}
	pipeline, cat := newPipeline(t, fetcher, render.NewNoop(), false)

	require.NoError(t, pipeline.Run(context.Background()))

	var products []catalog.ProductSku
	readDoc(t, cat, harvest.DocProducts, &products)
	require.Len(t, products, 2)
	// Discovery order was b-200 first; the artifact is SKU-sorted.
	assert.Equal(t, "a-100", products[0].SKU)
	assert.Equal(t, "b-200", products[1].SKU)
	require.NotNil(t, products[0].CPUVendor)
	assert.Equal(t, "intel", *products[0].CPUVendor)
	require.NotNil(t, products[1].CPUVendor)
	assert.Equal(t, "amd", *products[1].CPUVendor)

	var idx index.Index
	readDoc(t, cat, harvest.DocIndex, &idx)
	assert.Equal(t, []string{"a-100", "b-200"}, idx.Postings["rack"])
	assert.Equal(t, []string{"a-100"}, idx.Postings["100"])
	assert.Equal(t, 2, idx.Facets["tags"]["ddr5"])

	var vocabulary []index.TagCount
	readDoc(t, cat, harvest.DocTags, &vocabulary)
	require.NotEmpty(t, vocabulary)
	assert.Equal(t, index.TagCount{Tag: "ddr5", Count: 2}, vocabulary[0])

	for _, sku := range []string{"a-100", "b-200"} {
		raw, err := os.ReadFile(filepath.Join(cat.Dir(), "raw", sku+".html"))
		require.NoError(t, err)
		assert.NotEmpty(t, raw)
	}

	data, err := os.ReadFile(filepath.Join(cat.Dir(), "logs", "parse.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "a-100 parsed from https://vendor.test/products/a-100")
	assert.Contains(t, string(data), "b-200 parsed from https://vendor.test/products/b-200")
}

func TestPipelineSeedsInputDocumentsOnce(t *testing.T) {
	pipeline, cat := newPipeline(t, &siteFetcher{pages: defaultSite()}, render.NewNoop(), false)
	require.NoError(t, pipeline.Run(context.Background()))

	var overrides map[string][]string
	readDoc(t, cat, harvest.DocUserTags, &overrides)
	assert.Empty(t, overrides)

	var components map[string]any
	readDoc(t, cat, harvest.DocManualComponents, &components)
	assert.Empty(t, components)

	raw, err := cat.ReadRaw(harvest.DocRules)
	require.NoError(t, err)
	seeded, err := catalog.DecodeRules(raw)
	require.NoError(t, err)
	require.Len(t, seeded, 1)
	assert.Equal(t, "gpu-requires-power", seeded[0].ID)
}

func TestPipelineAppliesUserTagOverrides(t *testing.T) {
	pipeline, cat := newPipeline(t, &siteFetcher{pages: defaultSite()}, render.NewNoop(), false)
	require.NoError(t, cat.WriteDoc(harvest.DocUserTags, map[string][]string{
		"a-100": {"flagship"},
	}))

	require.NoError(t, pipeline.Run(context.Background()))

	var products []catalog.ProductSku
	readDoc(t, cat, harvest.DocProducts, &products)
	require.Len(t, products, 2)
	assert.Contains(t, products[0].Tags, "flagship")
	assert.NotContains(t, products[1].Tags, "flagship")

	// Seeding must not clobber the operator-authored document.
	var overrides map[string][]string
	readDoc(t, cat, harvest.DocUserTags, &overrides)
	assert.Equal(t, []string{"flagship"}, overrides["a-100"])
}

func TestPipelineMalformedUserTagsIsFatal(t *testing.T) {
	pipeline, cat := newPipeline(t, &siteFetcher{pages: defaultSite()}, render.NewNoop(), false)
	path := filepath.Join(cat.Dir(), harvest.DocUserTags+".json")
	require.NoError(t, os.WriteFile(path, []byte(`{"a-100": "not-a-list"}`), 0o644))

	err := pipeline.Run(context.Background())
	require.Error(t, err)

	assert.False(t, cat.Exists(harvest.DocProducts), "no artifacts on a failed run")
}

func TestPipelineSkipsFailedProductPages(t *testing.T) {
	fetcher := &siteFetcher{
		pages: defaultSite(),
		fail:  map[string]bool{"https://vendor.test/products/b-200": true},
	}
	pipeline, cat := newPipeline(t, fetcher, render.NewNoop(), false)

	require.NoError(t, pipeline.Run(context.Background()))

	var products []catalog.ProductSku
	readDoc(t, cat, harvest.DocProducts, &products)
	require.Len(t, products, 1)
	assert.Equal(t, "a-100", products[0].SKU)

	data, err := os.ReadFile(filepath.Join(cat.Dir(), "logs", "parse.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "https://vendor.test/products/b-200 failed:")
}

func TestPipelinePromotesClientRenderedPages(t *testing.T) {
	pages := defaultSite()
	pages["https://vendor.test/products/a-100"] = `<html><body>
		<script id="__NEXT_DATA__" type="application/json">{}</script>
	</body></html>`
	renderer := &staticRenderer{html: productPage("Rack A", "Intel Xeon 6530")}
	pipeline, cat := newPipeline(t, &siteFetcher{pages: pages}, renderer, false)

	require.NoError(t, pipeline.Run(context.Background()))

	assert.Equal(t, []string{"https://vendor.test/products/a-100"}, renderer.called)

	var products []catalog.ProductSku
	readDoc(t, cat, harvest.DocProducts, &products)
	require.Len(t, products, 2)
	require.NotNil(t, products[0].CPUVendor)
	assert.Equal(t, "intel", *products[0].CPUVendor)
}

// cancelingFetcher cancels the run's context on its nth call, standing in
// for an externally imposed deadline firing mid-run.
type cancelingFetcher struct {
	inner  fetch.Doer
	cancel context.CancelFunc
	at     int
	calls  int
}

func (f *cancelingFetcher) Fetch(ctx context.Context, rawURL string) (fetch.Result, error) {
	f.calls++
	if f.calls == f.at {
		f.cancel()
	}
	return f.inner.Fetch(ctx, rawURL)
}

func TestPipelineCancellationMidExtractionIsFatal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Crawl fetches the seed plus both product pages (calls 1-3); the
	// extraction pass re-fetches them, so call 4 is mid-extraction.
	fetcher := &cancelingFetcher{inner: &siteFetcher{pages: defaultSite()}, cancel: cancel, at: 4}
	pipeline, cat := newPipeline(t, fetcher, render.NewNoop(), false)

	err := pipeline.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	assert.False(t, cat.Exists(harvest.DocProducts), "an interrupted run must not publish artifacts")
}

func TestPipelineConsistencyCheckReadsSeededRules(t *testing.T) {
	pipeline, _ := newPipeline(t, &siteFetcher{pages: defaultSite()}, render.NewNoop(), true)
	require.NoError(t, pipeline.Run(context.Background()))
}

func TestProductsArtifactIsStrictJSON(t *testing.T) {
	pipeline, cat := newPipeline(t, &siteFetcher{pages: defaultSite()}, render.NewNoop(), false)
	require.NoError(t, pipeline.Run(context.Background()))

	raw, err := cat.ReadRaw(harvest.DocProducts)
	require.NoError(t, err)

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var products []catalog.ProductSku
	require.NoError(t, dec.Decode(&products), "artifact must round-trip under strict decoding")
}
