package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Threshold is a numeric-field constraint used by rule min/max checks.
type Threshold struct {
	Field string  `json:"field"`
	Value float64 `json:"value"`
}

// Rule is one declarative compatibility check. Rules are immutable inputs
// loaded once per evaluation; no rule mutates catalog data.
type Rule struct {
	ID         string      `json:"id"`
	MatchTags  []string    `json:"match_tags,omitempty"`
	Requires   []string    `json:"requires,omitempty"`
	Excludes   []string    `json:"excludes,omitempty"`
	DependsOn  []string    `json:"depends_on,omitempty"`
	Min        []Threshold `json:"min,omitempty"`
	Max        []Threshold `json:"max,omitempty"`
	AutoAdd    []string    `json:"auto_add,omitempty"`
	AutoRemove []string    `json:"auto_remove,omitempty"`
}

// DefaultRules is the illustrative rule set seeded into the rules artifact
// when none exists.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:        "gpu-requires-power",
			MatchTags: []string{"gpu:4"},
			Requires:  []string{"power:redundant"},
			AutoAdd:   []string{"power-check"},
		},
	}
}

// DecodeRules parses a rules document, rejecting unknown fields and rules
// without an id. Malformed input is an error, never silently skipped.
func DecodeRules(data []byte) ([]Rule, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var rules []Rule
	if err := dec.Decode(&rules); err != nil {
		return nil, fmt.Errorf("decode rules document: %w", err)
	}
	for i, r := range rules {
		if r.ID == "" {
			return nil, fmt.Errorf("rules[%d]: missing id", i)
		}
	}
	return rules, nil
}

// DecodeUserTags parses the user tag override document, a mapping from SKU
// to additional tags. It rejects documents that are not a string-to-list map.
func DecodeUserTags(data []byte) (map[string][]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var overrides map[string][]string
	if err := dec.Decode(&overrides); err != nil {
		return nil, fmt.Errorf("decode user_tags document: %w", err)
	}
	if overrides == nil {
		overrides = map[string][]string{}
	}
	return overrides, nil
}
