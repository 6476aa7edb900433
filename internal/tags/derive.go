// Package tags derives canonical classification tags from structured
// product fields. Derivation is pure: identical fields always yield an
// identical tag set, regardless of call order or external state.
package tags

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/skubase/harvester/internal/catalog"
)

var (
	pcieGenPattern   = regexp.MustCompile(`(?i)(gen\s*\d|\d\.\d)`)
	nodeCountPattern = regexp.MustCompile(`(?i)\d+n`)
	whitespace       = regexp.MustCompile(`\s+`)
)

// Derive maps product fields to canonical tag strings. Unmapped or null
// inputs contribute no tag. The returned slice preserves insertion order
// for display; semantically the result is a set.
func Derive(p catalog.ProductSku) []string {
	set := newTagSet()

	if p.CPUVendor != nil {
		set.add("cpu:" + *p.CPUVendor)
	}
	if p.Sockets != nil {
		set.add(fmt.Sprintf("socket:%s", trimNumber(*p.Sockets)))
	}
	if p.MemoryType != nil {
		normalized := strings.ToLower(*p.MemoryType)
		if strings.Contains(normalized, "ddr5") {
			set.add("ddr5")
		}
		if strings.Contains(normalized, "rdimm") {
			set.add("rdimm")
		}
		if strings.Contains(normalized, "lrdimm") {
			set.add("lrdimm")
		}
	}
	if p.PCIeGen != nil {
		if m := pcieGenPattern.FindString(*p.PCIeGen); m != "" {
			set.add("pcie:" + whitespace.ReplaceAllString(strings.ToLower(m), ""))
		}
	}
	if p.FormFactor != nil {
		set.add("form:" + strings.ToLower(*p.FormFactor))
	}
	if p.NodeDensity != nil {
		set.add("density:" + strings.ToLower(*p.NodeDensity))
		if nodeCountPattern.MatchString(*p.NodeDensity) {
			set.add("multi-node")
		}
	}
	if p.GPUSupport.MaxGPUCount != nil && *p.GPUSupport.MaxGPUCount != 0 {
		set.add(fmt.Sprintf("gpu:%s", trimNumber(*p.GPUSupport.MaxGPUCount)))
	}
	for _, bay := range p.StorageBays {
		bayType := strings.ToLower(bay.Type)
		if !strings.Contains(bayType, "nvme") {
			continue
		}
		if strings.Contains(bayType, "u.2") || strings.Contains(bayType, "u.3") {
			set.add("nvme:u2")
		}
		if strings.Contains(bayType, "e1.s") {
			set.add("nvme:e1s")
		}
	}

	return set.ordered
}

// trimNumber renders a float in plain decimal notation: integral counts
// produce tags like socket:2, and large values never switch to scientific
// notation.
func trimNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type tagSet struct {
	seen    map[string]struct{}
	ordered []string
}

func newTagSet() *tagSet {
	return &tagSet{seen: map[string]struct{}{}, ordered: []string{}}
}

func (s *tagSet) add(tag string) {
	if _, ok := s.seen[tag]; ok {
		return
	}
	s.seen[tag] = struct{}{}
	s.ordered = append(s.ordered, tag)
}
