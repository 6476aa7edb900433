// Package rules evaluates declarative compatibility rules against an
// active tag set and numeric attributes. The engine is stateless and is
// shared verbatim between the post-harvest consistency pass and the
// configurator, which calls it again with user selections applied.
package rules

import (
	"fmt"

	"github.com/skubase/harvester/internal/catalog"
)

// Result is the outcome of one evaluation pass. DerivedTags is the union
// of auto_add tags across every active rule; Warnings are reported in
// rule-then-check order, which is stable and part of the contract.
type Result struct {
	DerivedTags []string `json:"derivedTags"`
	Warnings    []string `json:"warnings"`
}

// Evaluate runs every rule, in input order, against the active tag set and
// numeric fields. The input tag set is never mutated: auto_remove matches
// produce advisory warnings instead of removals. Numeric fields absent
// from the map evaluate as zero.
func Evaluate(activeTags []string, numericFields map[string]float64, ruleSet []catalog.Rule) Result {
	active := make(map[string]struct{}, len(activeTags))
	for _, t := range activeTags {
		active[t] = struct{}{}
	}

	derived := newOrderedSet()
	warnings := []string{}

	for _, rule := range ruleSet {
		if !allPresent(active, rule.MatchTags) {
			continue
		}

		for _, required := range rule.Requires {
			if _, ok := active[required]; !ok {
				warnings = append(warnings, fmt.Sprintf("Rule %s: missing required tag %s", rule.ID, required))
			}
		}
		for _, excluded := range rule.Excludes {
			if _, ok := active[excluded]; ok {
				warnings = append(warnings, fmt.Sprintf("Rule %s: tag %s is excluded", rule.ID, excluded))
			}
		}
		for _, dependency := range rule.DependsOn {
			if _, ok := active[dependency]; !ok {
				warnings = append(warnings, fmt.Sprintf("Rule %s: depends on %s", rule.ID, dependency))
			}
		}
		for _, constraint := range rule.Min {
			if numericFields[constraint.Field] < constraint.Value {
				warnings = append(warnings, fmt.Sprintf("Rule %s: %s below minimum %g", rule.ID, constraint.Field, constraint.Value))
			}
		}
		for _, constraint := range rule.Max {
			if numericFields[constraint.Field] > constraint.Value {
				warnings = append(warnings, fmt.Sprintf("Rule %s: %s above maximum %g", rule.ID, constraint.Field, constraint.Value))
			}
		}
		for _, tag := range rule.AutoAdd {
			derived.add(tag)
		}
		for _, tag := range rule.AutoRemove {
			if _, ok := active[tag]; ok {
				warnings = append(warnings, fmt.Sprintf("Rule %s: auto-remove %s", rule.ID, tag))
			}
		}
	}

	return Result{DerivedTags: derived.ordered, Warnings: warnings}
}

// allPresent reports whether every tag is in the active set. An empty
// match list means the rule is always active.
func allPresent(active map[string]struct{}, match []string) bool {
	for _, tag := range match {
		if _, ok := active[tag]; !ok {
			return false
		}
	}
	return true
}

type orderedSet struct {
	seen    map[string]struct{}
	ordered []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: map[string]struct{}{}, ordered: []string{}}
}

func (s *orderedSet) add(v string) {
	if _, ok := s.seen[v]; ok {
		return
	}
	s.seen[v] = struct{}{}
	s.ordered = append(s.ordered, v)
}
