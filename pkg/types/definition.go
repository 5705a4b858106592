package types

import (
	"errors"
	"fmt"
)

// DefinitionKind classifies a declaration site.
type DefinitionKind string

const (
	KindFunction  DefinitionKind = "function"
	KindClass     DefinitionKind = "class"
	KindVariable  DefinitionKind = "variable"
	KindConstant  DefinitionKind = "constant"
	KindString    DefinitionKind = "string"
	KindComment   DefinitionKind = "comment"
	KindImport    DefinitionKind = "import"
	KindInterface DefinitionKind = "interface"
	KindModule    DefinitionKind = "module"
)

// AllKinds lists every valid definition kind.
var AllKinds = []DefinitionKind{
	KindFunction, KindClass, KindVariable, KindConstant,
	KindString, KindComment, KindImport, KindInterface, KindModule,
}

// Location identifies a position in a source file. Line and Column are
// 1-based.
type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// MarkerKind classifies a development marker comment.
type MarkerKind string

const (
	MarkerTODO  MarkerKind = "TODO"
	MarkerFIXME MarkerKind = "FIXME"
	MarkerHACK  MarkerKind = "HACK"
	MarkerXXX   MarkerKind = "XXX"
	MarkerNOTE  MarkerKind = "NOTE"
)

// MetadataKind discriminates the Metadata variant.
type MetadataKind string

const (
	MetaNone      MetadataKind = ""
	MetaMarker    MetadataKind = "marker"    // development marker comment
	MetaDirective MetadataKind = "directive" // framework template directive
	MetaSelector  MetadataKind = "selector"  // style selector / CSS class
	MetaConfigKey MetadataKind = "config"    // configuration key path
)

// Metadata is a tagged variant carrying language-feature details for a
// Definition. Exactly the fields matching Kind are meaningful; the rest
// stay zero.
type Metadata struct {
	Kind MetadataKind `json:"kind,omitempty"`

	// MetaMarker
	Marker MarkerKind `json:"marker,omitempty"`

	// MetaDirective
	Directive string `json:"directive,omitempty"`

	// MetaSelector
	Selector string `json:"selector,omitempty"`

	// MetaConfigKey: dotted path of the key within the document
	KeyPath string `json:"key_path,omitempty"`
}

// Definition is a discovered declaration site.
type Definition struct {
	Term             string         `json:"term"`
	Kind             DefinitionKind `json:"kind"`
	Location         Location       `json:"location"`
	Context          string         `json:"context"`               // the source line verbatim
	SurroundingLines []string       `json:"surrounding,omitempty"` // up to 2 lines before and after
	RelatedTerms     []string       `json:"related,omitempty"`
	Language         string         `json:"language"`
	Metadata         Metadata       `json:"metadata,omitzero"`
}

// Key returns the identity key of the definition. No two definitions in a
// live index may share a key.
func (d *Definition) Key() string {
	return fmt.Sprintf("%s:%d:%d:%s", d.Location.File, d.Location.Line, d.Location.Column, d.Term)
}

// Validate checks structural validity of the definition.
func (d *Definition) Validate() error {
	if d.Term == "" {
		return ErrEmptyTerm
	}
	if d.Location.File == "" {
		return ErrMissingLocation
	}
	if d.Location.Line <= 0 {
		return errors.New("line must be positive")
	}
	return d.ValidateKind()
}

// ValidateKind checks that the definition kind is one of the known kinds.
func (d *Definition) ValidateKind() error {
	switch d.Kind {
	case KindFunction, KindClass, KindVariable, KindConstant,
		KindString, KindComment, KindImport, KindInterface, KindModule:
		return nil
	default:
		return fmt.Errorf("invalid definition kind %q", d.Kind)
	}
}
