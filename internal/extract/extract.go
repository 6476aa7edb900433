// Package extract converts rendered product-page markup into typed,
// schema-valid catalog records with field-level provenance tracked through
// the missing-fields set.
package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/skubase/harvester/internal/catalog"
	"github.com/skubase/harvester/internal/tags"
)

var (
	numberPattern     = regexp.MustCompile(`\d+(?:\.\d+)?`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Extractor assembles ProductSku records. User tag overrides are merged
// (union) into the derived tag set at extraction time; the override map is
// owned outside the pipeline and read-only to it.
type Extractor struct {
	overrides map[string][]string
}

// New builds an Extractor. overrides may be nil.
func New(overrides map[string][]string) *Extractor {
	if overrides == nil {
		overrides = map[string][]string{}
	}
	return &Extractor{overrides: overrides}
}

// Extract parses rendered HTML into a validated ProductSku. The output is
// deterministic for fixed markup and timestamp: no wall clock or random
// state is consulted.
func (e *Extractor) Extract(html, sourceURL string, timestamp time.Time) (catalog.ProductSku, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return catalog.ProductSku{}, fmt.Errorf("parse html of %s: %w", sourceURL, err)
	}

	rows := collectRows(doc)
	title := cleanText(doc.Find("h1").First().Text())
	if title == "" {
		title = cleanText(doc.Find("title").First().Text())
	}

	sku := skuFromURL(sourceURL)
	if sku == "" {
		sku = title
	}

	name := rows.lookup(labelSynonyms["name"])
	if name == nil {
		name = catalog.StrPtr(title)
	}
	cpuFamily := rows.lookup(labelSynonyms["cpu_family"])
	coolingText := rows.lookup(labelSynonyms["cooling"])
	managementText := rows.lookup(labelSynonyms["management"])
	networkingText := rows.lookup(labelSynonyms["networking"])
	gpuText := rows.lookup(labelSynonyms["gpu_support"])

	product := catalog.ProductSku{
		SKU:                sku,
		Name:               name,
		Family:             rows.lookup(labelSynonyms["family"]),
		SolutionCategories: splitList(rows.lookup(labelSynonyms["solution_categories"]), ",", "/"),
		FormFactor:         rows.lookup(labelSynonyms["form_factor"]),
		NodeDensity:        rows.lookup(labelSynonyms["node_density"]),
		CPUVendor:          detectCPUVendor(cpuFamily),
		CPUFamily:          cpuFamily,
		Sockets:            parseNumber(rows.lookup(labelSynonyms["sockets"])),
		MemoryType:         rows.lookup(labelSynonyms["memory_type"]),
		MemorySlots:        parseNumber(rows.lookup(labelSynonyms["memory_slots"])),
		MaxMemoryTB:        parseNumber(rows.lookup(labelSynonyms["max_memory_tb"])),
		PCIeGen:            rows.lookup(labelSynonyms["pcie_gen"]),
		StorageBays:        parseStorageBays(rows.lookup(labelSynonyms["storage"])),
		Networking:         parseNetworking(networkingText),
		GPUSupport:         parseGPUSupport(gpuText),
		PowerNotes:         rows.lookup(labelSynonyms["power_notes"]),
		Cooling:            parseCooling(coolingText),
		Management:         parseManagement(managementText),
		SourceURL:          sourceURL,
		LastSeenAt:         timestamp.UTC().Format(time.RFC3339),
		DataQuality: catalog.DataQuality{
			MissingFields: []string{},
			ParseWarnings: []string{},
		},
	}

	product.Tags = mergeTags(tags.Derive(product), e.overrides[product.SKU])
	product.DataQuality.MissingFields = missingFields(product)

	if err := product.Validate(); err != nil {
		return catalog.ProductSku{}, err
	}
	return product, nil
}

// specRow is one two-or-more-column table row, label cell then value cell.
type specRow struct {
	key   string
	value string
}

type specRows []specRow

// collectRows snapshots every candidate table row in document order.
func collectRows(doc *goquery.Document) specRows {
	var rows specRows
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("th, td")
		if cells.Length() < 2 {
			return
		}
		rows = append(rows, specRow{
			key:   strings.ToLower(cleanText(cells.Eq(0).Text())),
			value: cleanText(cells.Eq(1).Text()),
		})
	})
	return rows
}

// lookup returns the value of the first row whose label cell contains any
// synonym, or nil when no row matches.
func (r specRows) lookup(synonyms []string) *string {
	for _, row := range r {
		for _, label := range synonyms {
			if strings.Contains(row.key, label) {
				return catalog.StrPtr(row.value)
			}
		}
	}
	return nil
}

// skuFromURL derives the SKU from the URL's last non-empty path segment,
// with any query suffix stripped.
func skuFromURL(sourceURL string) string {
	trimmed := sourceURL
	if parsed, err := url.Parse(sourceURL); err == nil {
		trimmed = parsed.Path
	}
	segments := strings.Split(trimmed, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if segments[i] != "" {
			sku, _, _ := strings.Cut(segments[i], "?")
			return sku
		}
	}
	return ""
}

// parseNumber extracts the first decimal-or-integer token, or nil.
func parseNumber(raw *string) *float64 {
	if raw == nil {
		return nil
	}
	match := numberPattern.FindString(*raw)
	if match == "" {
		return nil
	}
	var v float64
	if _, err := fmt.Sscanf(match, "%f", &v); err != nil {
		return nil
	}
	return &v
}

// detectCPUVendor lowercases the raw text and matches vendor substrings,
// first match winning.
func detectCPUVendor(raw *string) *string {
	if raw == nil {
		return nil
	}
	lower := strings.ToLower(*raw)
	if strings.Contains(lower, "intel") {
		return catalog.StrPtr(catalog.VendorIntel)
	}
	if strings.Contains(lower, "amd") {
		return catalog.StrPtr(catalog.VendorAMD)
	}
	return nil
}

// parseStorageBays splits the raw storage text on comma/semicolon into
// independent bay descriptors, each with its own optional count and
// hot-swap flag.
func parseStorageBays(raw *string) []catalog.StorageBay {
	bays := []catalog.StorageBay{}
	if raw == nil {
		return bays
	}
	for _, part := range strings.FieldsFunc(*raw, func(r rune) bool { return r == ',' || r == ';' }) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		bay := catalog.StorageBay{Type: part, Count: parseNumber(&part)}
		if strings.Contains(strings.ToLower(part), "hot") {
			bay.HotSwap = catalog.BoolPtr(true)
		}
		bays = append(bays, bay)
	}
	return bays
}

func parseNetworking(raw *string) catalog.Networking {
	n := catalog.Networking{Notes: raw}
	if raw == nil {
		return n
	}
	n.OCPMezz = catalog.BoolPtr(strings.Contains(strings.ToLower(*raw), "ocp"))
	n.OCPMezzCount = parseNumber(raw)
	return n
}

func parseGPUSupport(raw *string) catalog.GPUSupport {
	g := catalog.GPUSupport{Notes: raw}
	if raw == nil {
		return g
	}
	g.Supported = catalog.BoolPtr(true)
	g.MaxGPUCount = parseNumber(raw)
	return g
}

// parseCooling derives the three-way cooling mode: "liquid" in the text
// means liquid, refined to liquid-ready by "ready"; any other text is air.
func parseCooling(raw *string) catalog.Cooling {
	c := catalog.Cooling{Notes: raw}
	if raw == nil {
		return c
	}
	lower := strings.ToLower(*raw)
	mode := catalog.CoolingAir
	if strings.Contains(lower, "liquid") {
		mode = catalog.CoolingLiquid
		if strings.Contains(lower, "ready") {
			mode = catalog.CoolingLiquidReady
		}
	}
	c.Mode = catalog.StrPtr(mode)
	return c
}

func parseManagement(raw *string) catalog.Management {
	m := catalog.Management{Notes: raw}
	if raw == nil {
		return m
	}
	m.BMC = catalog.BoolPtr(strings.Contains(strings.ToLower(*raw), "bmc"))
	return m
}

func splitList(raw *string, separators ...string) []string {
	out := []string{}
	if raw == nil {
		return out
	}
	parts := []string{*raw}
	for _, sep := range separators {
		var next []string
		for _, p := range parts {
			next = append(next, strings.Split(p, sep)...)
		}
		parts = next
	}
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func mergeTags(derived, extra []string) []string {
	merged := append([]string{}, derived...)
	seen := map[string]struct{}{}
	for _, t := range derived {
		seen[t] = struct{}{}
	}
	for _, t := range extra {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		merged = append(merged, t)
	}
	return merged
}

// missingFields computes the exact set of tracked fields whose final value
// is null or empty. It is derived, never authored.
func missingFields(p catalog.ProductSku) []string {
	missing := []string{}
	checks := []struct {
		field   string
		present bool
	}{
		{"name", p.Name != nil},
		{"family", p.Family != nil},
		{"solution_categories", len(p.SolutionCategories) > 0},
		{"form_factor", p.FormFactor != nil},
		{"node_density", p.NodeDensity != nil},
		{"cpu_vendor", p.CPUVendor != nil},
		{"cpu_family", p.CPUFamily != nil},
		{"sockets", p.Sockets != nil},
		{"memory_type", p.MemoryType != nil},
		{"memory_slots", p.MemorySlots != nil},
		{"max_memory_tb", p.MaxMemoryTB != nil},
		{"pcie_gen", p.PCIeGen != nil},
		{"storage_bays", len(p.StorageBays) > 0},
		{"networking", p.Networking.Notes != nil},
		{"gpu_support", p.GPUSupport.Notes != nil},
		{"power_notes", p.PowerNotes != nil},
		{"cooling", p.Cooling.Notes != nil},
		{"management", p.Management.Notes != nil},
	}
	for _, check := range checks {
		if !check.present {
			missing = append(missing, check.field)
		}
	}
	return missing
}

func cleanText(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}
