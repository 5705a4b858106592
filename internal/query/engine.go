package query

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kwatts/codescout/internal/index"
	"github.com/kwatts/codescout/pkg/types"
)

// ErrInvalidQuery is returned for malformed query syntax, including
// regex patterns that do not compile. The index is never mutated by a
// failed query.
var ErrInvalidQuery = errors.New("invalid query")

const (
	cacheSize = 1000
	cacheTTL  = time.Minute
)

// cacheEntry pairs cached results with their expiry.
type cacheEntry struct {
	results   []types.SearchResult
	expiresAt time.Time
}

// Engine evaluates queries against a semantic index and annotates
// results from a cross-reference index.
type Engine struct {
	defs  *index.Semantic
	refs  *index.CrossRef
	cache *lru.Cache[[32]byte, *cacheEntry]
}

// New creates a query engine over the given indices.
func New(defs *index.Semantic, refs *index.CrossRef) *Engine {
	cache, err := lru.New[[32]byte, *cacheEntry](cacheSize)
	if err != nil {
		// Only reachable with a non-positive size constant.
		panic(fmt.Sprintf("failed to create query cache: %v", err))
	}
	return &Engine{defs: defs, refs: refs, cache: cache}
}

// Search evaluates one query expression.
func (e *Engine) Search(query string, opts Options) ([]types.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", ErrInvalidQuery)
	}

	key := cacheKey(query, opts)
	if entry, ok := e.cache.Get(key); ok && time.Now().Before(entry.expiresAt) {
		return entry.results, nil
	}

	candidates, err := e.evaluate(query, opts)
	if err != nil {
		return nil, err
	}

	results := e.finalize(candidates, opts)
	e.cache.Add(key, &cacheEntry{results: results, expiresAt: time.Now().Add(cacheTTL)})
	return results, nil
}

// SearchUnion evaluates each term independently and unions the result
// sets by identity key, keeping the best score per definition. Concept
// groups (externally supplied named term sets) are searched through
// this.
func (e *Engine) SearchUnion(terms []string, opts Options) ([]types.SearchResult, error) {
	if len(terms) == 0 {
		return nil, fmt.Errorf("%w: no terms", ErrInvalidQuery)
	}

	union := make(map[string]index.Candidate)
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		cands, err := e.evaluate(term, opts)
		if err != nil {
			return nil, err
		}
		mergeUnion(union, cands)
	}

	return e.finalize(union, opts), nil
}

// InvalidateCache drops all cached responses. The indexer calls this
// when a pass commits.
func (e *Engine) InvalidateCache() {
	e.cache.Purge()
}

// evaluate resolves a query expression to candidates keyed by identity.
// Precedence: regex, OR, AND, NOT, plain term.
func (e *Engine) evaluate(query string, opts Options) (map[string]index.Candidate, error) {
	if len(query) >= 2 && strings.HasPrefix(query, "/") && strings.HasSuffix(query, "/") {
		return e.evalRegex(query[1:len(query)-1], opts)
	}

	if strings.Contains(query, "|") {
		union := make(map[string]index.Candidate)
		for _, part := range strings.Split(query, "|") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			cands, err := e.evaluate(part, opts)
			if err != nil {
				return nil, err
			}
			mergeUnion(union, cands)
		}
		return union, nil
	}

	if strings.Contains(query, "&") {
		var acc map[string]index.Candidate
		for _, part := range strings.Split(query, "&") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			cands, err := e.evaluate(part, opts)
			if err != nil {
				return nil, err
			}
			if acc == nil {
				acc = cands
				continue
			}
			acc = intersect(acc, cands)
		}
		if acc == nil {
			return nil, fmt.Errorf("%w: empty conjunction", ErrInvalidQuery)
		}
		return acc, nil
	}

	if strings.HasPrefix(query, "!") {
		return e.evalNot(strings.TrimSpace(query[1:]), opts)
	}

	return e.evalTerm(query, opts), nil
}

// evalRegex compiles the pattern once and matches it against each
// definition's term and context line, bypassing the term indices.
func (e *Engine) evalRegex(pattern string, opts Options) (map[string]index.Candidate, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	out := make(map[string]index.Candidate)
	for _, def := range e.defs.All() {
		if re.MatchString(def.Term) || re.MatchString(def.Context) {
			out[def.Key()] = index.Candidate{Def: def, Score: 1.0}
		}
	}
	return out, nil
}

// evalNot computes the baseline (every definition passing the active
// filters) and subtracts the operand's matches.
func (e *Engine) evalNot(operand string, opts Options) (map[string]index.Candidate, error) {
	if operand == "" {
		return nil, fmt.Errorf("%w: negation needs an operand", ErrInvalidQuery)
	}

	exclude, err := e.evaluate(operand, opts)
	if err != nil {
		return nil, err
	}

	out := make(map[string]index.Candidate)
	for _, def := range e.defs.All() {
		key := def.Key()
		if _, bad := exclude[key]; bad {
			continue
		}
		out[key] = index.Candidate{Def: def, Score: 1.0}
	}
	return out, nil
}

func (e *Engine) evalTerm(term string, opts Options) map[string]index.Candidate {
	out := make(map[string]index.Candidate)
	for _, cand := range e.defs.Lookup(term, opts.Exact) {
		out[cand.Def.Key()] = cand
	}
	return out
}

// finalize applies the filter pipeline in its fixed order: kind filter,
// file-glob filter, dedupe (the map already guarantees it), sort,
// truncate, then usage annotation.
func (e *Engine) finalize(candidates map[string]index.Candidate, opts Options) []types.SearchResult {
	kindOK := func(types.DefinitionKind) bool { return true }
	if len(opts.Kinds) > 0 {
		allowed := make(map[types.DefinitionKind]bool, len(opts.Kinds))
		for _, k := range opts.Kinds {
			allowed[k] = true
		}
		kindOK = func(k types.DefinitionKind) bool { return allowed[k] }
	}

	filtered := make([]index.Candidate, 0, len(candidates))
	for _, cand := range candidates {
		if !kindOK(cand.Def.Kind) {
			continue
		}
		if !matchesAnyPattern(cand.Def.Location.File, opts.FilePatterns) {
			continue
		}
		filtered = append(filtered, cand)
	}

	e.sortCandidates(filtered, opts.sortKey())

	if max := opts.maxResults(); len(filtered) > max {
		filtered = filtered[:max]
	}

	results := make([]types.SearchResult, len(filtered))
	for i, cand := range filtered {
		refs := e.refs.ReferencesTo(cand.Def.Term)
		samples := refs
		if len(samples) > 3 {
			samples = samples[:3]
		}
		results[i] = types.SearchResult{
			Definition:   *cand.Def,
			Rank:         i + 1,
			Score:        cand.Score,
			UsageCount:   len(refs),
			SampleUsages: samples,
		}
	}
	return results
}

func (e *Engine) sortCandidates(cands []index.Candidate, key SortKey) {
	switch key {
	case SortUsage:
		counts := make(map[string]int, len(cands))
		for _, c := range cands {
			term := strings.ToLower(c.Def.Term)
			if _, ok := counts[term]; !ok {
				counts[term] = e.refs.UsageCount(term)
			}
		}
		sort.Slice(cands, func(i, j int) bool {
			ci := counts[strings.ToLower(cands[i].Def.Term)]
			cj := counts[strings.ToLower(cands[j].Def.Term)]
			if ci != cj {
				return ci > cj
			}
			return defLess(cands[i].Def, cands[j].Def)
		})
	case SortName:
		sort.Slice(cands, func(i, j int) bool {
			if cands[i].Def.Term != cands[j].Def.Term {
				return cands[i].Def.Term < cands[j].Def.Term
			}
			return defLess(cands[i].Def, cands[j].Def)
		})
	case SortFile:
		sort.Slice(cands, func(i, j int) bool {
			return defLess(cands[i].Def, cands[j].Def)
		})
	default: // SortRelevance
		sort.Slice(cands, func(i, j int) bool {
			if cands[i].Score != cands[j].Score {
				return cands[i].Score > cands[j].Score
			}
			return defLess(cands[i].Def, cands[j].Def)
		})
	}
}

// defLess is the stable tie-break ordering: file, line, column, term.
func defLess(a, b *types.Definition) bool {
	if a.Location.File != b.Location.File {
		return a.Location.File < b.Location.File
	}
	if a.Location.Line != b.Location.Line {
		return a.Location.Line < b.Location.Line
	}
	if a.Location.Column != b.Location.Column {
		return a.Location.Column < b.Location.Column
	}
	return a.Term < b.Term
}

func matchesAnyPattern(path string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, path); err == nil && ok {
			return true
		}
	}
	return false
}

func mergeUnion(dst, src map[string]index.Candidate) {
	for key, cand := range src {
		if cur, ok := dst[key]; !ok || cand.Score > cur.Score {
			dst[key] = cand
		}
	}
}

// intersect keeps definitions present in both sets; the lower of the two
// scores survives.
func intersect(a, b map[string]index.Candidate) map[string]index.Candidate {
	out := make(map[string]index.Candidate)
	for key, ca := range a {
		cb, ok := b[key]
		if !ok {
			continue
		}
		if cb.Score < ca.Score {
			ca.Score = cb.Score
		}
		out[key] = ca
	}
	return out
}

func cacheKey(query string, opts Options) [32]byte {
	return sha256.Sum256([]byte(query + "\x00" + opts.fingerprint() + "\x00" + fmt.Sprint(opts.maxResults())))
}
