package extract

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kwatts/codescout/pkg/types"
)

// frameworkExtractor handles single-file components (Vue, Svelte) that
// mix a script region, a template region and a style region in one file.
// The file is split into sections first; the script section is handed to
// the matching language table at a line offset, and dedicated pattern
// tables run over the template and style sections.
type frameworkExtractor struct {
	js *languageExtractor
	ts *languageExtractor
}

// NewFramework returns the single-file-component extractor.
func NewFramework() Extractor {
	return &frameworkExtractor{
		js: &languageExtractor{syn: javascriptSyntax()},
		ts: &languageExtractor{syn: typescriptSyntax()},
	}
}

var (
	sectionOpenRe  = regexp.MustCompile(`^\s*<(script|template|style)\b([^>]*)>`)
	sectionCloseRe = regexp.MustCompile(`^\s*</(script|template|style)>`)

	// Shorthand directives start with @ or :, which never sit on a word
	// boundary, so the pattern anchors on start-of-line or whitespace.
	directiveRe = regexp.MustCompile(`(?:^|\s)(v-[a-z-]+|@[a-z]+|:[a-z-]+|on:[a-z]+|bind:[a-z]+)\s*=`)
	mustacheRe  = regexp.MustCompile(`\{\{?\s*([A-Za-z_$][\w$]*)`)
	selectorRe  = regexp.MustCompile(`^\s*([.#][A-Za-z_][\w-]*)`)
	classAttrRe = regexp.MustCompile(`\bclass\s*=\s*"([^"]+)"`)
	langAttrRe  = regexp.MustCompile(`lang\s*=\s*"([^"]+)"`)
)

func (f *frameworkExtractor) Name() string { return "framework" }

func (f *frameworkExtractor) CanHandle(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".vue", ".svelte":
		return true
	}
	return false
}

// section is one region of a single-file component. Offset is the
// 0-based index of the first content line in the whole file.
type section struct {
	kind   string // script, template, style
	lang   string // from the lang="..." attribute, if any
	offset int
	lines  []string
}

func (f *frameworkExtractor) Extract(content []byte, path string) types.ExtractResult {
	lines := strings.Split(string(content), "\n")
	sections := splitSections(lines)

	var res types.ExtractResult
	for _, sec := range sections {
		switch sec.kind {
		case "script":
			f.extractScript(&res, sec, path)
		case "template":
			f.extractTemplate(&res, sec, path)
		case "style":
			f.extractStyle(&res, sec, path)
		}
	}
	return res
}

// splitSections cuts the file into top-level script/template/style
// regions. Nested tags of the same name inside a template (rare in
// practice) are not tracked; the first close tag ends a section.
func splitSections(lines []string) []section {
	var sections []section
	var cur *section

	for i, line := range lines {
		if cur == nil {
			if m := sectionOpenRe.FindStringSubmatch(line); m != nil {
				sec := section{kind: m[1], offset: i + 1}
				if lm := langAttrRe.FindStringSubmatch(m[2]); lm != nil {
					sec.lang = lm[1]
				}
				cur = &sec
			}
			continue
		}
		if m := sectionCloseRe.FindStringSubmatch(line); m != nil && m[1] == cur.kind {
			sections = append(sections, *cur)
			cur = nil
			continue
		}
		cur.lines = append(cur.lines, line)
	}
	if cur != nil {
		sections = append(sections, *cur)
	}
	return sections
}

// extractScript dispatches the script body to the JS or TS table and
// shifts the resulting locations by the section's line offset.
func (f *frameworkExtractor) extractScript(res *types.ExtractResult, sec section, path string) {
	ext := f.js
	if sec.lang == "ts" || sec.lang == "typescript" {
		ext = f.ts
	}

	sub := ext.Extract([]byte(strings.Join(sec.lines, "\n")), path)
	for i := range sub.Definitions {
		sub.Definitions[i].Location.Line += sec.offset
	}
	for i := range sub.References {
		sub.References[i].From.Line += sec.offset
	}
	res.Definitions = append(res.Definitions, sub.Definitions...)
	res.References = append(res.References, sub.References...)
}

// extractTemplate records framework directives as tagged definitions and
// mustache bindings as variable-link references into the script scope.
func (f *frameworkExtractor) extractTemplate(res *types.ExtractResult, sec section, path string) {
	for i, line := range sec.lines {
		lineNo := sec.offset + i + 1

		for _, m := range directiveRe.FindAllStringSubmatch(line, -1) {
			res.Definitions = append(res.Definitions, types.Definition{
				Term:     m[1],
				Kind:     types.KindVariable,
				Location: types.Location{File: path, Line: lineNo, Column: columnOf(line, m[1])},
				Context:  line,
				Language: "template",
				Metadata: types.Metadata{Kind: types.MetaDirective, Directive: m[1]},
			})
		}

		for _, m := range mustacheRe.FindAllStringSubmatch(line, -1) {
			res.References = append(res.References, types.Reference{
				TargetTerm: strings.ToLower(m[1]),
				Kind:       types.RefVariableLink,
				From:       types.Location{File: path, Line: lineNo, Column: columnOf(line, m[1])},
				Context:    line,
			})
		}

		if m := classAttrRe.FindStringSubmatch(line); m != nil {
			for _, class := range strings.Fields(m[1]) {
				res.References = append(res.References, types.Reference{
					TargetTerm: strings.ToLower(class),
					Kind:       types.RefUsage,
					From:       types.Location{File: path, Line: lineNo, Column: columnOf(line, class)},
					Context:    line,
				})
			}
		}
	}
}

// extractStyle records selectors as tagged definitions so template class
// usages resolve to their style rules.
func (f *frameworkExtractor) extractStyle(res *types.ExtractResult, sec section, path string) {
	for i, line := range sec.lines {
		lineNo := sec.offset + i + 1
		if m := selectorRe.FindStringSubmatch(line); m != nil {
			name := strings.TrimLeft(m[1], ".#")
			res.Definitions = append(res.Definitions, types.Definition{
				Term:     name,
				Kind:     types.KindVariable,
				Location: types.Location{File: path, Line: lineNo, Column: columnOf(line, m[1])},
				Context:  line,
				Language: "css",
				Metadata: types.Metadata{Kind: types.MetaSelector, Selector: m[1]},
			})
		}
	}
}
