package types

// ExtractResult is the output of running an extractor over one file.
type ExtractResult struct {
	Definitions []Definition
	References  []Reference

	// Fallback is true when the primary extraction strategy failed and
	// the generic line-oriented pass produced this result instead.
	Fallback bool
}

// SearchResult is a single ranked search hit.
type SearchResult struct {
	Definition Definition `json:"definition"`
	Rank       int        `json:"rank"`  // 1-based position in the result set
	Score      float64    `json:"score"` // 1.0 for exact matches, lower for partial

	// Usage annotations resolved against the cross-reference index.
	UsageCount   int         `json:"usage_count"`
	SampleUsages []Reference `json:"sample_usages,omitempty"`
}

// ImpactReport summarizes who depends on a term.
type ImpactReport struct {
	Term          string      `json:"term"`
	Count         int         `json:"count"` // total recorded references
	SampleUsages  []Reference `json:"sample_usages,omitempty"`
	AffectedFiles []string    `json:"affected_files,omitempty"`
}

// Validate checks structural validity of the search result.
func (sr *SearchResult) Validate() error {
	if sr.Rank < 1 {
		return ErrInvalidRank
	}
	if sr.Score < 0 || sr.Score > 1 {
		return ErrInvalidScore
	}
	return sr.Definition.Validate()
}
