package types

import "fmt"

// ReferenceKind classifies a usage site.
type ReferenceKind string

const (
	RefCall          ReferenceKind = "call"
	RefInstantiation ReferenceKind = "instantiation"
	RefExtends       ReferenceKind = "extends"
	RefImplements    ReferenceKind = "implements"
	RefImport        ReferenceKind = "import"
	RefType          ReferenceKind = "type-reference"
	RefUsage         ReferenceKind = "usage"
	RefConfigLink    ReferenceKind = "config-link"
	RefVariableLink  ReferenceKind = "variable-link"
)

// Reference is a discovered usage site pointing at a target term. The
// target is not required to resolve to an indexed Definition; references
// to external or unknown symbols are recorded as-is.
type Reference struct {
	TargetTerm string        `json:"target"` // case-normalized at index time
	Kind       ReferenceKind `json:"kind"`
	From       Location      `json:"from"`
	Context    string        `json:"context"` // the source line verbatim
}

// Key returns a stable identity for the reference site.
func (r *Reference) Key() string {
	return fmt.Sprintf("%s:%d:%d:%s", r.From.File, r.From.Line, r.From.Column, r.TargetTerm)
}

// Validate checks structural validity of the reference.
func (r *Reference) Validate() error {
	if r.TargetTerm == "" {
		return ErrEmptyTerm
	}
	if r.From.File == "" {
		return ErrMissingLocation
	}
	return nil
}
