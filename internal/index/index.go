// Package index builds the searchable catalog artifacts: a full-text
// index over SKU, name, and family, the tag facet table, and the
// tag-frequency vocabulary.
package index

import (
	"sort"
	"strings"
	"unicode"

	"github.com/skubase/harvester/internal/catalog"
)

// StoredFields are the per-document fields kept alongside the index for
// result enrichment without a catalog round trip.
type StoredFields struct {
	SKU                string   `json:"sku"`
	Tags               []string `json:"tags"`
	SolutionCategories []string `json:"solution_categories"`
	FormFactor         *string  `json:"form_factor"`
}

// Index is the serialized full-text index plus the facet table.
type Index struct {
	Fields   []string                  `json:"fields"`
	Postings map[string][]string       `json:"postings"`
	Stored   map[string]StoredFields   `json:"stored"`
	Facets   map[string]map[string]int `json:"facets"`
}

// TagCount is one row of the tag-frequency artifact.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Build constructs the index and the tag-frequency table from the sorted
// product list. Counts are per distinct product; the frequency table is
// sorted descending by count with ties broken by tag ascending.
func Build(products []catalog.ProductSku) (Index, []TagCount) {
	idx := Index{
		Fields:   []string{"sku", "name", "family"},
		Postings: map[string][]string{},
		Stored:   map[string]StoredFields{},
		Facets:   map[string]map[string]int{"tags": {}},
	}

	for _, p := range products {
		texts := []string{p.SKU}
		if p.Name != nil {
			texts = append(texts, *p.Name)
		}
		if p.Family != nil {
			texts = append(texts, *p.Family)
		}
		for _, token := range tokenize(texts) {
			idx.Postings[token] = appendUnique(idx.Postings[token], p.SKU)
		}

		idx.Stored[p.SKU] = StoredFields{
			SKU:                p.SKU,
			Tags:               p.Tags,
			SolutionCategories: p.SolutionCategories,
			FormFactor:         p.FormFactor,
		}
		for _, tag := range p.Tags {
			idx.Facets["tags"][tag]++
		}
	}

	for token := range idx.Postings {
		sort.Strings(idx.Postings[token])
	}

	vocabulary := make([]TagCount, 0, len(idx.Facets["tags"]))
	for tag, count := range idx.Facets["tags"] {
		vocabulary = append(vocabulary, TagCount{Tag: tag, Count: count})
	}
	sort.Slice(vocabulary, func(i, j int) bool {
		if vocabulary[i].Count != vocabulary[j].Count {
			return vocabulary[i].Count > vocabulary[j].Count
		}
		return vocabulary[i].Tag < vocabulary[j].Tag
	})

	return idx, vocabulary
}

// Search returns the stored fields of every document matching all query
// tokens, in SKU order. It exists for downstream tooling consuming the
// index artifact in-process.
func (idx Index) Search(query string) []StoredFields {
	tokens := tokenize([]string{query})
	if len(tokens) == 0 {
		return nil
	}

	var matched map[string]int
	for _, token := range tokens {
		postings := idx.Postings[token]
		next := make(map[string]int, len(postings))
		for _, sku := range postings {
			if matched == nil || matched[sku] > 0 {
				next[sku]++
			}
		}
		matched = next
		if len(matched) == 0 {
			return nil
		}
	}

	skus := make([]string, 0, len(matched))
	for sku := range matched {
		skus = append(skus, sku)
	}
	sort.Strings(skus)

	results := make([]StoredFields, 0, len(skus))
	for _, sku := range skus {
		results = append(results, idx.Stored[sku])
	}
	return results
}

// tokenize lowercases the inputs and splits on every non-alphanumeric
// rune, deduplicating the resulting tokens.
func tokenize(texts []string) []string {
	seen := map[string]struct{}{}
	var tokens []string
	for _, text := range texts {
		fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, f := range fields {
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
