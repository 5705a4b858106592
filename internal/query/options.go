package query

import (
	"sort"
	"strings"

	"github.com/kwatts/codescout/pkg/types"
)

// SortKey selects the result ordering.
type SortKey string

const (
	SortRelevance SortKey = "relevance" // score, best first (default)
	SortUsage     SortKey = "usage"     // cross-reference count, most used first
	SortName      SortKey = "name"      // term, ascending
	SortFile      SortKey = "file"      // file path, then line
)

// DefaultMaxResults caps result sets when the caller does not.
const DefaultMaxResults = 100

// Options narrows and shapes a search.
type Options struct {
	// Kinds keeps only definitions of the given kinds. Empty means all.
	Kinds []types.DefinitionKind

	// FilePatterns keeps only definitions whose file path matches at
	// least one doublestar glob (e.g. "internal/**", "**/*.go").
	FilePatterns []string

	// Exact disables the partial/substring scoring path; only
	// case-sensitive full-term matches pass.
	Exact bool

	// Sort selects the result ordering; zero value means relevance.
	Sort SortKey

	// MaxResults truncates the result set; zero means DefaultMaxResults.
	MaxResults int
}

func (o Options) maxResults() int {
	if o.MaxResults <= 0 {
		return DefaultMaxResults
	}
	return o.MaxResults
}

func (o Options) sortKey() SortKey {
	if o.Sort == "" {
		return SortRelevance
	}
	return o.Sort
}

// fingerprint renders the options deterministically for cache keys.
func (o Options) fingerprint() string {
	kinds := make([]string, len(o.Kinds))
	for i, k := range o.Kinds {
		kinds[i] = string(k)
	}
	sort.Strings(kinds)

	pats := append([]string(nil), o.FilePatterns...)
	sort.Strings(pats)

	var b strings.Builder
	b.WriteString(strings.Join(kinds, ","))
	b.WriteByte('|')
	b.WriteString(strings.Join(pats, ","))
	b.WriteByte('|')
	if o.Exact {
		b.WriteByte('x')
	}
	b.WriteString(string(o.sortKey()))
	return b.String()
}
