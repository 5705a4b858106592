package index

import (
	"sort"
	"strings"
	"sync"

	"github.com/kwatts/codescout/pkg/types"
)

// maxSampleUsages bounds the sample call sites attached to an impact
// report.
const maxSampleUsages = 3

// CrossRef is the reference index: lowercased target term -> usage
// sites. Like Semantic, entries are owned in per-file batches and
// evicted wholesale on RemoveFile.
type CrossRef struct {
	mu sync.RWMutex

	// byTerm maps lowercased target term -> reference key -> reference.
	byTerm map[string]map[string]*types.Reference

	// byFile maps origin file -> reference key -> reference.
	byFile map[string]map[string]*types.Reference
}

// NewCrossRef creates an empty cross-reference index.
func NewCrossRef() *CrossRef {
	return &CrossRef{
		byTerm: make(map[string]map[string]*types.Reference),
		byFile: make(map[string]map[string]*types.Reference),
	}
}

// Add records a usage site. The target term is case-normalized.
func (x *CrossRef) Add(ref types.Reference) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.addLocked(&ref)
}

// AddBatch records a file's worth of references under one lock
// acquisition.
func (x *CrossRef) AddBatch(refs []types.Reference) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for i := range refs {
		x.addLocked(&refs[i])
	}
}

func (x *CrossRef) addLocked(ref *types.Reference) {
	ref.TargetTerm = strings.ToLower(ref.TargetTerm)
	key := ref.Key()

	putRef(x.byTerm, ref.TargetTerm, key, ref)
	putRef(x.byFile, ref.From.File, key, ref)
}

// RemoveFile evicts every reference originating in path.
func (x *CrossRef) RemoveFile(path string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	for key, ref := range x.byFile[path] {
		dropRef(x.byTerm, ref.TargetTerm, key)
	}
	delete(x.byFile, path)
}

// ReferencesTo returns every recorded usage of term, sorted by location.
func (x *CrossRef) ReferencesTo(term string) []types.Reference {
	x.mu.RLock()
	defer x.mu.RUnlock()

	refs := x.byTerm[strings.ToLower(term)]
	out := make([]types.Reference, 0, len(refs))
	for _, ref := range refs {
		out = append(out, *ref)
	}
	sortRefs(out)
	return out
}

// UsageCount returns the number of recorded usages of term.
func (x *CrossRef) UsageCount(term string) int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.byTerm[strings.ToLower(term)])
}

// Impact summarizes who depends on term: total usage count, a bounded
// set of sample usages, and the distinct files a change would touch.
func (x *CrossRef) Impact(term string) types.ImpactReport {
	refs := x.ReferencesTo(term)

	report := types.ImpactReport{
		Term:  term,
		Count: len(refs),
	}

	files := make(map[string]bool)
	for _, ref := range refs {
		files[ref.From.File] = true
	}
	for f := range files {
		report.AffectedFiles = append(report.AffectedFiles, f)
	}
	sort.Strings(report.AffectedFiles)

	n := len(refs)
	if n > maxSampleUsages {
		n = maxSampleUsages
	}
	report.SampleUsages = refs[:n]

	return report
}

// FileReferences returns the references recorded for one file, sorted by
// location.
func (x *CrossRef) FileReferences(path string) []types.Reference {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make([]types.Reference, 0, len(x.byFile[path]))
	for _, ref := range x.byFile[path] {
		out = append(out, *ref)
	}
	sortRefs(out)
	return out
}

// Len returns the number of live references.
func (x *CrossRef) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()

	n := 0
	for _, refs := range x.byFile {
		n += len(refs)
	}
	return n
}

func sortRefs(refs []types.Reference) {
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].From.File != refs[j].From.File {
			return refs[i].From.File < refs[j].From.File
		}
		if refs[i].From.Line != refs[j].From.Line {
			return refs[i].From.Line < refs[j].From.Line
		}
		return refs[i].From.Column < refs[j].From.Column
	})
}

func putRef(m map[string]map[string]*types.Reference, bucket, key string, ref *types.Reference) {
	inner, ok := m[bucket]
	if !ok {
		inner = make(map[string]*types.Reference)
		m[bucket] = inner
	}
	inner[key] = ref
}

func dropRef(m map[string]map[string]*types.Reference, bucket, key string) {
	inner, ok := m[bucket]
	if !ok {
		return
	}
	delete(inner, key)
	if len(inner) == 0 {
		delete(m, bucket)
	}
}
