package extract

import (
	"regexp"
	"strings"

	"github.com/kwatts/codescout/pkg/types"
)

// genericExtractor is the last-resort line-oriented pass. It knows no
// language, only the declaration shapes, comment markers and string forms
// common across most of them. It handles any path, so extraction always
// produces something.
type genericExtractor struct{}

// NewGeneric returns the fallback extractor used when no language table
// matches, or when a primary extractor fails on a file.
func NewGeneric() Extractor {
	return &genericExtractor{}
}

var (
	genericFuncRe  = regexp.MustCompile(`\b(?:func|function|fn|def|sub|proc)\s+([A-Za-z_]\w*)`)
	genericClassRe = regexp.MustCompile(`\b(?:class|struct|interface|trait|enum)\s+([A-Za-z_]\w*)`)
	genericVarRe   = regexp.MustCompile(`^\s*(?:var|let|const|my|local)\s+\$?([A-Za-z_]\w*)`)
	genericComment = regexp.MustCompile(`^\s*(?://|#|;|--|\*)\s*(.+)`)
)

func (g *genericExtractor) Name() string { return "generic" }

// CanHandle always reports true; the generic pass is the floor under
// every other extractor.
func (g *genericExtractor) CanHandle(string) bool { return true }

func (g *genericExtractor) Extract(content []byte, path string) types.ExtractResult {
	lines := strings.Split(string(content), "\n")
	var res types.ExtractResult

	for i, line := range lines {
		lineNo := i + 1

		if m := genericComment.FindStringSubmatch(line); m != nil {
			text := strings.Join(strings.Fields(m[1]), " ")
			if len(text) >= 3 {
				def := types.Definition{
					Term:             truncate(text, 120),
					Kind:             types.KindComment,
					Location:         types.Location{File: path, Line: lineNo, Column: columnOf(line, m[1])},
					Context:          line,
					SurroundingLines: surrounding(lines, i),
					Language:         "generic",
				}
				if marker, ok := markerIn(text); ok {
					def.Metadata = types.Metadata{Kind: types.MetaMarker, Marker: marker}
				}
				res.Definitions = append(res.Definitions, def)
			}
			continue
		}

		for _, pat := range []struct {
			re   *regexp.Regexp
			kind types.DefinitionKind
		}{
			{genericFuncRe, types.KindFunction},
			{genericClassRe, types.KindClass},
			{genericVarRe, types.KindVariable},
		} {
			if m := pat.re.FindStringSubmatch(line); m != nil {
				res.Definitions = append(res.Definitions, types.Definition{
					Term:             m[1],
					Kind:             pat.kind,
					Location:         types.Location{File: path, Line: lineNo, Column: columnOf(line, m[1])},
					Context:          line,
					SurroundingLines: surrounding(lines, i),
					RelatedTerms:     relatedTerms(line, m[1]),
					Language:         "generic",
				})
			}
		}

		if lit, col := firstString(line, []byte{'"', '\''}); len(lit) >= 3 {
			res.Definitions = append(res.Definitions, types.Definition{
				Term:     lit,
				Kind:     types.KindString,
				Location: types.Location{File: path, Line: lineNo, Column: col},
				Context:  line,
				Language: "generic",
			})
		}
	}

	return res
}
