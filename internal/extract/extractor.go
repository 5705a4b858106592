package extract

import (
	"github.com/kwatts/codescout/pkg/types"
)

// Extractor is the fixed extraction contract. Implementations are pure:
// the same content and path always yield the same result, and Extract
// must not fail past its boundary.
type Extractor interface {
	// Name identifies the extractor (usually the language name).
	Name() string

	// CanHandle reports whether this extractor recognizes the path.
	CanHandle(path string) bool

	// Extract maps file content to the definitions and references in it.
	Extract(content []byte, path string) types.ExtractResult
}

// Registry dispatches files to the first extractor that can handle them,
// falling back to the generic pass for everything else.
type Registry struct {
	extractors []Extractor
	fallback   Extractor
}

// NewRegistry builds a registry over the given extractors. Order matters:
// the first match wins, so more specific extractors go first.
func NewRegistry(extractors ...Extractor) *Registry {
	return &Registry{
		extractors: extractors,
		fallback:   NewGeneric(),
	}
}

// DefaultRegistry returns a registry with every built-in extractor:
// the framework component splitter, the table-driven language
// extractors, and the config-format extractor.
func DefaultRegistry() *Registry {
	exts := []Extractor{NewFramework()}
	for _, syn := range BuiltinSyntaxes() {
		exts = append(exts, NewForSyntax(syn))
	}
	exts = append(exts, NewConfig())
	return NewRegistry(exts...)
}

// ForPath returns the extractor that will handle the path. The generic
// fallback handles anything no registered extractor claims.
func (r *Registry) ForPath(path string) Extractor {
	for _, e := range r.extractors {
		if e.CanHandle(path) {
			return e
		}
	}
	return r.fallback
}

// CanHandle reports whether any registered extractor (not the fallback)
// claims the path. Walkers use this to skip binary and unknown files.
func (r *Registry) CanHandle(path string) bool {
	for _, e := range r.extractors {
		if e.CanHandle(path) {
			return true
		}
	}
	return false
}

// ExtractFile runs the matching extractor over content. A panic in the
// primary strategy is recovered and the generic line-oriented pass runs
// instead, so extraction never aborts a batch.
func (r *Registry) ExtractFile(content []byte, path string) (res types.ExtractResult) {
	ext := r.ForPath(path)

	defer func() {
		if rec := recover(); rec != nil {
			res = r.fallback.Extract(content, path)
			res.Fallback = true
		}
	}()

	return ext.Extract(content, path)
}
