// Package catalog defines the harvested product schema and the declarative
// rule documents shared by the harvester and the configurator.
package catalog

import (
	"fmt"
	"strings"
	"time"
)

// CPU vendor values accepted by the schema.
const (
	VendorIntel = "intel"
	VendorAMD   = "amd"
)

// Cooling modes accepted by the schema.
const (
	CoolingAir         = "air"
	CoolingLiquid      = "liquid"
	CoolingLiquidReady = "liquid-ready"
)

// StorageBay describes one drive bay group parsed from the storage row.
type StorageBay struct {
	Type    string   `json:"type"`
	Count   *float64 `json:"count"`
	HotSwap *bool    `json:"hot_swap"`
}

// Networking captures the networking sub-record. All fields are nullable;
// null means the page carried no usable value.
type Networking struct {
	OCPMezz      *bool    `json:"ocp_mezz"`
	OCPMezzCount *float64 `json:"ocp_mezz_count"`
	Notes        *string  `json:"notes"`
}

// GPUSupport captures the GPU sub-record.
type GPUSupport struct {
	Supported   *bool    `json:"supported"`
	MaxGPUCount *float64 `json:"max_gpu_count"`
	Notes       *string  `json:"notes"`
}

// Cooling captures the cooling sub-record. Mode is one of the Cooling*
// constants when set.
type Cooling struct {
	Mode  *string `json:"mode"`
	Notes *string `json:"notes"`
}

// Management captures the out-of-band management sub-record.
type Management struct {
	BMC   *bool   `json:"bmc"`
	Notes *string `json:"notes"`
}

// DataQuality tracks which fields could not be resolved for a record.
// MissingFields is derived after extraction and must never be hand-set.
type DataQuality struct {
	MissingFields []string `json:"missing_fields"`
	ParseWarnings []string `json:"parse_warnings"`
}

// ProductSku is the canonical harvested entity, keyed by SKU. Scalar
// pointer fields use nil for "not found on page".
type ProductSku struct {
	SKU                string       `json:"sku"`
	Name               *string      `json:"name"`
	Family             *string      `json:"family"`
	SolutionCategories []string     `json:"solution_categories"`
	FormFactor         *string      `json:"form_factor"`
	NodeDensity        *string      `json:"node_density"`
	CPUVendor          *string      `json:"cpu_vendor"`
	CPUFamily          *string      `json:"cpu_family"`
	Sockets            *float64     `json:"sockets"`
	MemoryType         *string      `json:"memory_type"`
	MemorySlots        *float64     `json:"memory_slots"`
	MaxMemoryTB        *float64     `json:"max_memory_tb"`
	PCIeGen            *string      `json:"pcie_gen"`
	StorageBays        []StorageBay `json:"storage_bays"`
	Networking         Networking   `json:"networking"`
	GPUSupport         GPUSupport   `json:"gpu_support"`
	PowerNotes         *string      `json:"power_notes"`
	Cooling            Cooling      `json:"cooling"`
	Management         Management   `json:"management"`
	Tags               []string     `json:"tags"`
	SourceURL          string       `json:"source_url"`
	LastSeenAt         string       `json:"last_seen_at"`
	DataQuality        DataQuality  `json:"data_quality"`
}

// ValidationError reports a record that does not satisfy the schema.
type ValidationError struct {
	SKU    string
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("product %q failed schema validation: %s", e.SKU, strings.Join(e.Fields, ", "))
}

// Validate checks the type-level invariants of the schema. Content fields
// are all nullable, so only required scalars, enum membership, and slice
// presence can fail here. A record failing Validate is never persisted.
func (p *ProductSku) Validate() error {
	var bad []string
	if strings.TrimSpace(p.SKU) == "" {
		bad = append(bad, "sku must be non-empty")
	}
	if strings.TrimSpace(p.SourceURL) == "" {
		bad = append(bad, "source_url must be non-empty")
	}
	if _, err := time.Parse(time.RFC3339, p.LastSeenAt); err != nil {
		bad = append(bad, "last_seen_at must be an RFC 3339 timestamp")
	}
	if p.CPUVendor != nil && *p.CPUVendor != VendorIntel && *p.CPUVendor != VendorAMD {
		bad = append(bad, fmt.Sprintf("cpu_vendor %q is not a known vendor", *p.CPUVendor))
	}
	if p.Cooling.Mode != nil {
		switch *p.Cooling.Mode {
		case CoolingAir, CoolingLiquid, CoolingLiquidReady:
		default:
			bad = append(bad, fmt.Sprintf("cooling.mode %q is not a known mode", *p.Cooling.Mode))
		}
	}
	for i, bay := range p.StorageBays {
		if strings.TrimSpace(bay.Type) == "" {
			bad = append(bad, fmt.Sprintf("storage_bays[%d].type must be non-empty", i))
		}
	}
	if p.SolutionCategories == nil {
		bad = append(bad, "solution_categories must be present")
	}
	if p.Tags == nil {
		bad = append(bad, "tags must be present")
	}
	if p.StorageBays == nil {
		bad = append(bad, "storage_bays must be present")
	}
	if p.DataQuality.MissingFields == nil {
		bad = append(bad, "data_quality.missing_fields must be present")
	}
	if p.DataQuality.ParseWarnings == nil {
		bad = append(bad, "data_quality.parse_warnings must be present")
	}
	if len(bad) > 0 {
		return &ValidationError{SKU: p.SKU, Fields: bad}
	}
	return nil
}

// StrPtr returns a pointer to s, or nil when s is empty after trimming.
func StrPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// NumPtr returns a pointer to v.
func NumPtr(v float64) *float64 { return &v }

// BoolPtr returns a pointer to v.
func BoolPtr(v bool) *bool { return &v }
