package extract

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/kwatts/codescout/pkg/types"
)

// surroundingWindow is the number of context lines captured on each side
// of a definition.
const surroundingWindow = 2

var identRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

var markerRe = regexp.MustCompile(`\b(TODO|FIXME|HACK|XXX|NOTE)\b`)

// SplitIdentifier breaks an identifier into its camelCase and snake_case
// sub-tokens, lowercased. "getUserName" yields [get, user, name];
// "user_name" yields [user, name]. Tokens of length <= 2 are kept here;
// the index decides which are worth indexing.
func SplitIdentifier(ident string) []string {
	var tokens []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, strings.ToLower(cur.String()))
			cur.Reset()
		}
	}

	runes := []rune(ident)
	for i, r := range runes {
		switch {
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			flush()
		case unicode.IsUpper(r):
			// Start a new token on a lower->upper boundary, or on the
			// last upper of an acronym run (HTTPServer -> http, server).
			if i > 0 && (unicode.IsLower(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))) {
				flush()
			}
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

// identifiersIn returns all identifier-shaped tokens on a line.
func identifiersIn(line string) []string {
	return identRe.FindAllString(line, -1)
}

// relatedTerms collects identifiers on a line other than the term itself,
// deduplicated, capped to keep definitions small.
func relatedTerms(line, term string) []string {
	const maxRelated = 8
	seen := map[string]bool{term: true}
	var out []string
	for _, id := range identifiersIn(line) {
		if seen[id] || len(id) <= 2 {
			continue
		}
		seen[id] = true
		out = append(out, id)
		if len(out) >= maxRelated {
			break
		}
	}
	return out
}

// surrounding returns up to surroundingWindow lines before and after
// index i (exclusive of line i itself).
func surrounding(lines []string, i int) []string {
	start := i - surroundingWindow
	if start < 0 {
		start = 0
	}
	end := i + surroundingWindow + 1
	if end > len(lines) {
		end = len(lines)
	}
	out := make([]string, 0, end-start-1)
	for j := start; j < end; j++ {
		if j == i {
			continue
		}
		out = append(out, lines[j])
	}
	return out
}

// columnOf returns the 1-based column of the first occurrence of term on
// the line, or 1 when not found.
func columnOf(line, term string) int {
	if idx := strings.Index(line, term); idx >= 0 {
		return idx + 1
	}
	return 1
}

// markerIn reports the development marker on a comment line, if any.
func markerIn(line string) (types.MarkerKind, bool) {
	m := markerRe.FindString(line)
	if m == "" {
		return "", false
	}
	return types.MarkerKind(m), true
}

// scopeTracker approximates lexical scope with brace depth and, for
// indentation-scoped languages, leading-whitespace depth. It remembers
// the innermost enclosing class-like declaration so methods can be
// qualified as Class.method.
type scopeTracker struct {
	indentScoped bool

	braceDepth  int
	className   string
	classDepth  int // brace depth at which the class body starts
	classIndent int // indent at which the class was declared (indent-scoped)
}

// enterClass records that a class named name was declared on a line with
// the given indent. Must be called before observe for that line.
func (s *scopeTracker) enterClass(name string, indent int) {
	s.className = name
	s.classDepth = s.braceDepth
	s.classIndent = indent
}

// observe updates depth tracking with one source line. For brace-scoped
// languages it counts braces outside of obvious string/comment spans;
// for indentation-scoped languages it closes the class scope when a
// non-blank line dedents to or past the class declaration.
func (s *scopeTracker) observe(line string) {
	if s.indentScoped {
		trimmed := strings.TrimSpace(line)
		if s.className != "" && trimmed != "" && indentOf(line) <= s.classIndent {
			s.className = ""
		}
		return
	}

	opens := strings.Count(line, "{")
	closes := strings.Count(line, "}")
	s.braceDepth += opens - closes
	if s.className != "" && s.braceDepth <= s.classDepth {
		s.className = ""
	}
}

// current returns the enclosing class name, or "" at top level.
func (s *scopeTracker) current() string {
	return s.className
}

func indentOf(line string) int {
	n := 0
	for _, r := range line {
		switch r {
		case ' ':
			n++
		case '\t':
			n += 4
		default:
			return n
		}
	}
	return n
}

// stripStrings blanks out the contents of string literals on a line so
// declaration and reference patterns do not fire inside them. Delimiter
// characters are preserved, interior bytes become spaces. Escapes are
// honored for backslash only.
func stripStrings(line string, delims []byte) string {
	if len(delims) == 0 {
		return line
	}
	out := []byte(line)
	var open byte
	for i := 0; i < len(out); i++ {
		c := out[i]
		if open != 0 {
			if c == '\\' {
				if i+1 < len(out) {
					out[i], out[i+1] = ' ', ' '
					i++
				}
				continue
			}
			if c == open {
				open = 0
				continue
			}
			out[i] = ' '
			continue
		}
		for _, d := range delims {
			if c == d {
				open = c
				break
			}
		}
	}
	return string(out)
}

// firstString returns the first string literal on a line (content without
// delimiters) and its 1-based column, or "" when the line has none.
func firstString(line string, delims []byte) (string, int) {
	for i := 0; i < len(line); i++ {
		for _, d := range delims {
			if line[i] == d {
				for j := i + 1; j < len(line); j++ {
					if line[j] == '\\' {
						j++
						continue
					}
					if line[j] == d {
						return line[i+1 : j], i + 2
					}
				}
				return "", 0 // unterminated
			}
		}
	}
	return "", 0
}
