package entities

// SearchTier identifies which knowledge base tier answered a search
type SearchTier int

const (
	// SearchTierNone means neither tier matched; suggestions may be present
	SearchTierNone SearchTier = 0
	// SearchTierCurated means the curated (tier 1) set answered
	SearchTierCurated SearchTier = 1
	// SearchTierReference means the reference (tier 2) set answered
	SearchTierReference SearchTier = 2
)

// TieredSearchResult is the outcome of a tiered knowledge base search.
// A miss is a normal result, not an error.
type TieredSearchResult struct {
	Query       string                `json:"query"`
	Tier        SearchTier            `json:"tier"`
	Curated     []*CuratedCondition   `json:"curated,omitempty"`
	Reference   []*ReferenceCondition `json:"reference,omitempty"`
	Suggestions []string              `json:"suggestions,omitempty"`
}

// Found reports whether either tier matched
func (r *TieredSearchResult) Found() bool {
	return r.Tier != SearchTierNone
}
