// Package impact maps an uncommitted change set to the files and
// symbols it could break. For each changed file it compares the
// previously indexed definitions against a fresh extraction of the
// working copy to find which declarations were added, removed or
// modified, then aggregates the cross-reference fan-in of those
// symbols into a risk-classified report.
package impact

import (
	"sort"
	"strings"

	"github.com/kwatts/codescout/internal/extract"
	"github.com/kwatts/codescout/internal/git"
	"github.com/kwatts/codescout/internal/index"
	"github.com/kwatts/codescout/internal/scan"
	"github.com/kwatts/codescout/pkg/types"
)

// Risk classifies the blast radius of a change set.
type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// ChangeKind says what happened to a symbol.
type ChangeKind string

const (
	SymbolAdded    ChangeKind = "added"
	SymbolRemoved  ChangeKind = "removed"
	SymbolModified ChangeKind = "modified"
)

// Thresholds tune the risk classification. They are parameters, not
// constants: what counts as "a lot of affected files" differs per
// project.
type Thresholds struct {
	// MediumMax is the largest affected-file count still classified
	// medium; anything above is high.
	MediumMax int

	// HubFanIn marks a symbol as a hub: touching a symbol with at
	// least this many recorded references is high risk regardless of
	// the aggregate count.
	HubFanIn int
}

// DefaultThresholds are reasonable for mid-sized projects.
var DefaultThresholds = Thresholds{MediumMax: 5, HubFanIn: 10}

// SymbolImpact is the fan-in of one changed symbol.
type SymbolImpact struct {
	Term   string             `json:"term"`
	File   string             `json:"file"`
	Change ChangeKind         `json:"change"`
	Report types.ImpactReport `json:"report"`
}

// Report is the aggregated result of analyzing one change set.
type Report struct {
	ChangedFiles  []string       `json:"changed_files"`
	Symbols       []SymbolImpact `json:"symbols,omitempty"`
	AffectedFiles []string       `json:"affected_files,omitempty"`
	Risk          Risk           `json:"risk"`
}

// Analyzer derives change-risk reports from a git change set plus the
// live indices.
type Analyzer struct {
	walker     *scan.Walker
	registry   *extract.Registry
	defs       *index.Semantic
	refs       *index.CrossRef
	thresholds Thresholds
}

// New creates an analyzer. Zero-valued thresholds fall back to
// DefaultThresholds.
func New(walker *scan.Walker, registry *extract.Registry, defs *index.Semantic, refs *index.CrossRef, thresholds Thresholds) *Analyzer {
	if thresholds.MediumMax <= 0 {
		thresholds.MediumMax = DefaultThresholds.MediumMax
	}
	if thresholds.HubFanIn <= 0 {
		thresholds.HubFanIn = DefaultThresholds.HubFanIn
	}
	return &Analyzer{
		walker:     walker,
		registry:   registry,
		defs:       defs,
		refs:       refs,
		thresholds: thresholds,
	}
}

// symbolKinds are the definition kinds considered declarations for
// change detection; strings and comments churn too much to be useful
// impact signals.
var symbolKinds = map[types.DefinitionKind]bool{
	types.KindFunction:  true,
	types.KindClass:     true,
	types.KindInterface: true,
	types.KindVariable:  true,
	types.KindConstant:  true,
	types.KindModule:    true,
}

// Analyze maps a change set to its impact report.
func (a *Analyzer) Analyze(changes []git.ChangedFile) (*Report, error) {
	report := &Report{Risk: RiskLow}

	changed := make(map[string]bool, len(changes))
	for _, cf := range changes {
		changed[cf.Path] = true
		report.ChangedFiles = append(report.ChangedFiles, cf.Path)
	}
	sort.Strings(report.ChangedFiles)

	affected := make(map[string]bool)
	hub := false

	for _, cf := range changes {
		for _, sym := range a.changedSymbols(cf) {
			imp := a.refs.Impact(sym.Term)
			sym.Report = imp
			report.Symbols = append(report.Symbols, sym)

			if imp.Count >= a.thresholds.HubFanIn {
				hub = true
			}
			for _, f := range imp.AffectedFiles {
				// The changed files themselves are already in the
				// report; impact is about everyone else.
				if !changed[f] {
					affected[f] = true
				}
			}
		}
	}

	for f := range affected {
		report.AffectedFiles = append(report.AffectedFiles, f)
	}
	sort.Strings(report.AffectedFiles)

	report.Risk = a.classify(len(report.AffectedFiles), hub)
	return report, nil
}

func (a *Analyzer) classify(affectedFiles int, hub bool) Risk {
	switch {
	case hub || affectedFiles > a.thresholds.MediumMax:
		return RiskHigh
	case affectedFiles >= 1:
		return RiskMedium
	default:
		return RiskLow
	}
}

// changedSymbols diffs the indexed declarations of one file against a
// fresh extraction of its working copy.
func (a *Analyzer) changedSymbols(cf git.ChangedFile) []SymbolImpact {
	old := declarationsByTerm(a.defs.FileDefinitions(cf.Path))

	fresh := map[string][]types.Definition{}
	if cf.Status != git.StatusDeleted {
		if content, err := a.walker.ReadFile(cf.Path); err == nil {
			res := a.registry.ExtractFile(content, cf.Path)
			fresh = declarationsByTerm(res.Definitions)
		}
	}

	var out []SymbolImpact

	for term := range fresh {
		if _, ok := old[term]; !ok {
			out = append(out, SymbolImpact{Term: term, File: cf.Path, Change: SymbolAdded})
		}
	}
	for term, oldDefs := range old {
		freshDefs, ok := fresh[term]
		if !ok {
			out = append(out, SymbolImpact{Term: term, File: cf.Path, Change: SymbolRemoved})
			continue
		}
		if a.modified(oldDefs, freshDefs, cf.Hunks) {
			out = append(out, SymbolImpact{Term: term, File: cf.Path, Change: SymbolModified})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Term < out[j].Term })
	return out
}

// modified reports whether a surviving symbol actually changed: its
// declaration moved or its line text differs, or a diff hunk overlaps
// its declaration line.
func (a *Analyzer) modified(old, fresh []types.Definition, hunks []git.Hunk) bool {
	if len(old) != len(fresh) {
		return true
	}
	for i := range fresh {
		if old[i].Location.Line != fresh[i].Location.Line ||
			strings.TrimSpace(old[i].Context) != strings.TrimSpace(fresh[i].Context) {
			return true
		}
		for _, h := range hunks {
			if fresh[i].Location.Line >= h.StartLine && fresh[i].Location.Line < h.StartLine+max(h.LineCount, 1) {
				return true
			}
		}
	}
	return false
}

// declarationsByTerm groups a file's symbol-kind definitions by term,
// each group sorted by location.
func declarationsByTerm(defs []types.Definition) map[string][]types.Definition {
	out := make(map[string][]types.Definition)
	for _, d := range defs {
		if !symbolKinds[d.Kind] {
			continue
		}
		out[d.Term] = append(out[d.Term], d)
	}
	for _, group := range out {
		sort.Slice(group, func(i, j int) bool {
			return group[i].Location.Line < group[j].Location.Line
		})
	}
	return out
}
