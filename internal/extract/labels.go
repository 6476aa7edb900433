package extract

// labelSynonyms maps each canonical field to the ordered label spellings
// accepted for it. The lookup is a data-driven dictionary on purpose: new
// synonyms are additive and never grow a conditional chain.
//
// Matching is case-insensitive substring containment against the first
// cell of every two-or-more-column table row, first match in document
// order winning. That can false-positive across fields (a "CPU socket"
// row satisfies both the sockets and cpu_family lookups depending on table
// order); the ambiguity is documented behavior, resolved by row order.
var labelSynonyms = map[string][]string{
	"name":                {"product name", "model"},
	"family":              {"family"},
	"form_factor":         {"form factor", "form-factor", "chassis"},
	"node_density":        {"node density"},
	"cpu_family":          {"processor", "cpu"},
	"sockets":             {"socket", "cpu sockets"},
	"memory_type":         {"memory type", "memory"},
	"memory_slots":        {"memory slots"},
	"max_memory_tb":       {"max memory", "maximum memory"},
	"pcie_gen":            {"pcie", "pci-e"},
	"power_notes":         {"power"},
	"cooling":             {"cooling"},
	"management":          {"management", "bmc"},
	"networking":          {"network", "ocp"},
	"gpu_support":         {"gpu", "graphics"},
	"solution_categories": {"solution", "category"},
	"storage":             {"storage", "drive bay"},
}
