package extract

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kwatts/codescout/pkg/types"
)

// DeclPattern matches one declaration form of a language. NameGroup is
// the capture group holding the declared name.
type DeclPattern struct {
	Re        *regexp.Regexp
	Kind      types.DefinitionKind
	NameGroup int

	// Raw matches against the original line instead of the copy with
	// string literals blanked out. Import patterns need this: the module
	// path they capture lives inside a string literal.
	Raw bool

	// EntersClass marks class-like declarations: the tracker records the
	// name so following member declarations can be qualified.
	EntersClass bool

	// Member marks declarations that belong to an enclosing class when
	// one is active (methods, fields).
	Member bool
}

// RefPattern matches one usage form of a language. TargetGroup is the
// capture group holding the referenced term.
type RefPattern struct {
	Re          *regexp.Regexp
	Kind        types.ReferenceKind
	TargetGroup int

	// Raw matches against the original line (see DeclPattern.Raw).
	Raw bool
}

// Syntax is the complete pattern table for one language. The table-driven
// extractor differs per language only through this data.
type Syntax struct {
	Name       string
	Extensions []string

	LineComment string
	BlockStart  string
	BlockEnd    string

	StringDelims []byte

	// IndentScoped languages (Python, YAML) close scopes by dedent
	// instead of closing braces.
	IndentScoped bool

	Decls []DeclPattern
	Refs  []RefPattern

	// Keywords are never recorded as reference targets.
	Keywords map[string]bool
}

// languageExtractor runs the shared heuristic pass over one Syntax table.
type languageExtractor struct {
	syn *Syntax
}

// NewForSyntax wraps a syntax table in the shared table-driven extractor.
func NewForSyntax(syn *Syntax) Extractor {
	return &languageExtractor{syn: syn}
}

func (e *languageExtractor) Name() string { return e.syn.Name }

func (e *languageExtractor) CanHandle(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range e.syn.Extensions {
		if ext == want {
			return true
		}
	}
	return false
}

// Extract scans content line by line, applying the declaration and
// reference tables while tracking comment state and approximate scope.
func (e *languageExtractor) Extract(content []byte, path string) types.ExtractResult {
	syn := e.syn
	lines := strings.Split(string(content), "\n")

	var res types.ExtractResult
	tracker := &scopeTracker{indentScoped: syn.IndentScoped}
	inBlockComment := false

	for i, line := range lines {
		lineNo := i + 1

		// Block comment state handling comes first: a line inside a block
		// comment is only ever a comment.
		if inBlockComment {
			e.emitComment(&res, lines, i, path, line)
			if syn.BlockEnd != "" && strings.Contains(line, syn.BlockEnd) {
				inBlockComment = false
			}
			continue
		}

		stripped := stripStrings(line, syn.StringDelims)

		if syn.BlockStart != "" {
			if start := strings.Index(stripped, syn.BlockStart); start >= 0 {
				if syn.BlockEnd == "" || !strings.Contains(stripped[start+len(syn.BlockStart):], syn.BlockEnd) {
					inBlockComment = true
				}
				e.emitComment(&res, lines, i, path, line)
				tracker.observe(stripped[:start])
				continue
			}
		}

		code := stripped
		if syn.LineComment != "" {
			if idx := strings.Index(stripped, syn.LineComment); idx >= 0 {
				comment := line[idx:] // stripStrings preserves length
				if strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(comment), syn.LineComment)) != "" {
					e.emitComment(&res, lines, i, path, comment)
				}
				code = stripped[:idx]
			}
		}

		// String literals come from the original line; patterns run on the
		// blanked copy so literal contents cannot fake declarations.
		if lit, col := firstString(line, syn.StringDelims); len(lit) >= 3 {
			res.Definitions = append(res.Definitions, types.Definition{
				Term:             lit,
				Kind:             types.KindString,
				Location:         types.Location{File: path, Line: lineNo, Column: col},
				Context:          line,
				SurroundingLines: surrounding(lines, i),
				Language:         syn.Name,
			})
		}

		// Dedents close scopes before this line's declarations are read;
		// brace counting happens after, the opening brace of a class line
		// belongs to the body that follows it.
		if syn.IndentScoped {
			tracker.observe(code)
		}

		declared := e.applyDecls(&res, lines, i, path, line, code, tracker)
		e.applyRefs(&res, path, line, code, lineNo, declared)

		if !syn.IndentScoped {
			tracker.observe(code)
		}
	}

	return res
}

// applyDecls runs the declaration table over one line and returns the set
// of names declared there, used to suppress self-references.
func (e *languageExtractor) applyDecls(res *types.ExtractResult, lines []string, i int, path, line, code string, tracker *scopeTracker) map[string]bool {
	declared := map[string]bool{}
	lineNo := i + 1

	for _, dp := range e.syn.Decls {
		input := code
		if dp.Raw {
			input = line
		}
		matches := dp.Re.FindAllStringSubmatch(input, -1)
		for _, m := range matches {
			if dp.NameGroup >= len(m) {
				continue
			}
			name := m[dp.NameGroup]
			if name == "" || e.syn.Keywords[name] {
				continue
			}

			def := types.Definition{
				Term:             name,
				Kind:             dp.Kind,
				Location:         types.Location{File: path, Line: lineNo, Column: columnOf(line, name)},
				Context:          line,
				SurroundingLines: surrounding(lines, i),
				RelatedTerms:     relatedTerms(line, name),
				Language:         e.syn.Name,
			}
			if dp.Member {
				if class := tracker.current(); class != "" {
					def.RelatedTerms = append(def.RelatedTerms, class+"."+name)
				}
			}
			res.Definitions = append(res.Definitions, def)
			declared[name] = true

			if dp.EntersClass {
				tracker.enterClass(name, indentOf(line))
			}
		}
	}
	return declared
}

// applyRefs runs the reference table over one line. Names declared on the
// same line and language keywords are not recorded as usages.
func (e *languageExtractor) applyRefs(res *types.ExtractResult, path, line, code string, lineNo int, declared map[string]bool) {
	for _, rp := range e.syn.Refs {
		input := code
		if rp.Raw {
			input = line
		}
		matches := rp.Re.FindAllStringSubmatchIndex(input, -1)
		for _, m := range matches {
			g := rp.TargetGroup
			if 2*g+1 >= len(m) || m[2*g] < 0 {
				continue
			}
			target := input[m[2*g]:m[2*g+1]]
			if target == "" || len(target) <= 1 {
				continue
			}
			if declared[target] || e.syn.Keywords[target] {
				continue
			}
			res.References = append(res.References, types.Reference{
				TargetTerm: strings.ToLower(target),
				Kind:       rp.Kind,
				From:       types.Location{File: path, Line: lineNo, Column: m[2*g] + 1},
				Context:    line,
			})
		}
	}
}

// emitComment records a comment definition. Development markers carry a
// tagged metadata payload; plain comments are indexed by their text.
func (e *languageExtractor) emitComment(res *types.ExtractResult, lines []string, i int, path, comment string) {
	text := commentText(comment, e.syn)
	if len(text) < 3 {
		return
	}

	def := types.Definition{
		Term:             truncate(text, 120),
		Kind:             types.KindComment,
		Location:         types.Location{File: path, Line: i + 1, Column: columnOf(lines[i], strings.Fields(text)[0])},
		Context:          lines[i],
		SurroundingLines: surrounding(lines, i),
		RelatedTerms:     relatedTerms(text, ""),
		Language:         e.syn.Name,
	}
	if marker, ok := markerIn(text); ok {
		def.Metadata = types.Metadata{Kind: types.MetaMarker, Marker: marker}
	}
	res.Definitions = append(res.Definitions, def)
}

// commentText strips comment delimiters and collapses whitespace.
func commentText(comment string, syn *Syntax) string {
	s := strings.TrimSpace(comment)
	if syn.LineComment != "" {
		s = strings.TrimPrefix(s, syn.LineComment)
	}
	if syn.BlockStart != "" {
		s = strings.TrimPrefix(s, syn.BlockStart)
	}
	if syn.BlockEnd != "" {
		s = strings.TrimSuffix(s, syn.BlockEnd)
	}
	s = strings.TrimLeft(s, "*!/ \t")
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
