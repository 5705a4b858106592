package index

import (
	"sort"
	"strings"
	"sync"

	"github.com/kwatts/codescout/internal/extract"
	"github.com/kwatts/codescout/pkg/types"
)

// minTokenLen is the shortest sub-token worth indexing; shorter tokens
// produce more noise than recall.
const minTokenLen = 3

// Candidate is an index hit before filtering and ranking.
type Candidate struct {
	Def   *types.Definition
	Score float64
}

// Semantic is the definition index. All lookup structures are derived
// and rebuilt in lockstep on every add/remove; RemoveFile evicts a
// file's entries from every structure before a re-add, so re-indexing a
// file can never duplicate entries.
type Semantic struct {
	mu sync.RWMutex

	// byKey maps Definition.Key() to the definition; it is the identity
	// set all other structures point into.
	byKey map[string]*types.Definition

	// exact maps lowercased term -> key -> definition.
	exact map[string]map[string]*types.Definition

	// partial maps sub-token -> key -> definition.
	partial map[string]map[string]*types.Definition

	// byFile maps file path -> key -> definition.
	byFile map[string]map[string]*types.Definition
}

// NewSemantic creates an empty semantic index.
func NewSemantic() *Semantic {
	return &Semantic{
		byKey:   make(map[string]*types.Definition),
		exact:   make(map[string]map[string]*types.Definition),
		partial: make(map[string]map[string]*types.Definition),
		byFile:  make(map[string]map[string]*types.Definition),
	}
}

// Add inserts a definition. Adding a definition with an existing
// identity key replaces the previous entry, which keeps insertion
// idempotent.
func (s *Semantic) Add(def types.Definition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLocked(&def)
}

// AddBatch inserts a file's worth of definitions under one lock
// acquisition. The indexing pipeline merges per-file batches through
// this so readers never observe a torn file.
func (s *Semantic) AddBatch(defs []types.Definition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range defs {
		s.addLocked(&defs[i])
	}
}

func (s *Semantic) addLocked(def *types.Definition) {
	key := def.Key()
	if old, ok := s.byKey[key]; ok {
		s.evictLocked(key, old)
	}
	s.byKey[key] = def

	lower := strings.ToLower(def.Term)
	putIndex(s.exact, lower, key, def)

	for _, tok := range extract.SplitIdentifier(def.Term) {
		if len(tok) < minTokenLen {
			continue
		}
		putIndex(s.partial, tok, key, def)
	}

	putIndex(s.byFile, def.Location.File, key, def)
}

// RemoveFile evicts every definition originating in path from all
// structures. It is a no-op for unknown paths.
func (s *Semantic) RemoveFile(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, def := range s.byFile[path] {
		s.evictLocked(key, def)
	}
	delete(s.byFile, path)
}

func (s *Semantic) evictLocked(key string, def *types.Definition) {
	delete(s.byKey, key)
	dropIndex(s.exact, strings.ToLower(def.Term), key)
	for _, tok := range extract.SplitIdentifier(def.Term) {
		if len(tok) < minTokenLen {
			continue
		}
		dropIndex(s.partial, tok, key)
	}
	dropIndex(s.byFile, def.Location.File, key)
}

// Lookup finds candidates for a single term. An exact lowercase match
// scores 1.0. Otherwise the partial-token index is scanned for tokens
// containing the query and hits score len(query)/len(term): the smaller
// the overlap relative to the matched term, the lower the score. With
// exactOnly set, only case-sensitive full-term matches pass.
func (s *Semantic) Lookup(query string, exactOnly bool) []Candidate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lower := strings.ToLower(query)
	seen := make(map[string]bool)
	var out []Candidate

	if exactOnly {
		for key, def := range s.exact[lower] {
			if def.Term != query {
				continue
			}
			seen[key] = true
			out = append(out, Candidate{Def: def, Score: 1.0})
		}
		return out
	}

	for key, def := range s.exact[lower] {
		seen[key] = true
		out = append(out, Candidate{Def: def, Score: 1.0})
	}

	if len(lower) < minTokenLen {
		return out
	}

	for tok, defs := range s.partial {
		if !strings.Contains(tok, lower) {
			continue
		}
		for key, def := range defs {
			if seen[key] {
				continue
			}
			seen[key] = true
			score := float64(len(query)) / float64(len(def.Term))
			if score > 1 {
				score = 1
			}
			out = append(out, Candidate{Def: def, Score: score})
		}
	}
	return out
}

// All returns every definition in the index. The slice is a snapshot;
// callers may keep it across lock boundaries.
func (s *Semantic) All() []*types.Definition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*types.Definition, 0, len(s.byKey))
	for _, def := range s.byKey {
		out = append(out, def)
	}
	return out
}

// FileDefinitions returns the definitions recorded for one file, sorted
// by location for stable output.
func (s *Semantic) FileDefinitions(path string) []types.Definition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.Definition, 0, len(s.byFile[path]))
	for _, def := range s.byFile[path] {
		out = append(out, *def)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Location.Line != out[j].Location.Line {
			return out[i].Location.Line < out[j].Location.Line
		}
		return out[i].Location.Column < out[j].Location.Column
	})
	return out
}

// Files returns every indexed file path, sorted.
func (s *Semantic) Files() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.byFile))
	for path := range s.byFile {
		out = append(out, path)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of live definitions.
func (s *Semantic) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byKey)
}

func putIndex(m map[string]map[string]*types.Definition, bucket, key string, def *types.Definition) {
	inner, ok := m[bucket]
	if !ok {
		inner = make(map[string]*types.Definition)
		m[bucket] = inner
	}
	inner[key] = def
}

func dropIndex(m map[string]map[string]*types.Definition, bucket, key string) {
	inner, ok := m[bucket]
	if !ok {
		return
	}
	delete(inner, key)
	if len(inner) == 0 {
		delete(m, bucket)
	}
}
