package extract

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kwatts/codescout/pkg/types"
)

// configExtractor indexes configuration documents (JSON, YAML, TOML,
// INI, .env). Keys become definitions carrying their dotted path;
// string values that look like identifiers or paths become config-link
// references, so "who points at this" works across config and code.
type configExtractor struct{}

// NewConfig returns the configuration-format extractor.
func NewConfig() Extractor {
	return &configExtractor{}
}

var configExts = map[string]string{
	".json": "json",
	".yaml": "yaml",
	".yml":  "yaml",
	".toml": "toml",
	".ini":  "ini",
	".env":  "env",
}

var (
	yamlKeyRe    = regexp.MustCompile(`^(\s*)([A-Za-z_][\w.-]*)\s*:`)
	jsonKeyRe    = regexp.MustCompile(`"([^"]+)"\s*:`)
	tomlKeyRe    = regexp.MustCompile(`^\s*([A-Za-z_][\w.-]*)\s*=`)
	tomlTableRe  = regexp.MustCompile(`^\s*\[\[?([\w.-]+)\]?\]`)
	envKeyRe     = regexp.MustCompile(`^([A-Z_][A-Z0-9_]*)=`)
	valueIdentRe = regexp.MustCompile(`[:=]\s*"?([A-Za-z_][\w./-]{2,})"?\s*,?\s*$`)
)

func (c *configExtractor) Name() string { return "config" }

func (c *configExtractor) CanHandle(path string) bool {
	_, ok := configExts[strings.ToLower(filepath.Ext(path))]
	return ok
}

func (c *configExtractor) Extract(content []byte, path string) types.ExtractResult {
	format := configExts[strings.ToLower(filepath.Ext(path))]
	lines := strings.Split(string(content), "\n")

	var res types.ExtractResult

	// keyPath tracks the enclosing key at each indent level so nested
	// keys get dotted paths (server.port). Heuristic: YAML by indent,
	// TOML by table headers, JSON flat.
	var yamlStack []struct {
		indent int
		key    string
	}
	tomlTable := ""

	for i, line := range lines {
		lineNo := i + 1
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, ";") {
			continue
		}

		var key, keyPath string

		switch format {
		case "yaml":
			if m := yamlKeyRe.FindStringSubmatch(line); m != nil {
				indent := len(m[1])
				for len(yamlStack) > 0 && yamlStack[len(yamlStack)-1].indent >= indent {
					yamlStack = yamlStack[:len(yamlStack)-1]
				}
				key = m[2]
				parts := make([]string, 0, len(yamlStack)+1)
				for _, e := range yamlStack {
					parts = append(parts, e.key)
				}
				parts = append(parts, key)
				keyPath = strings.Join(parts, ".")
				yamlStack = append(yamlStack, struct {
					indent int
					key    string
				}{indent, key})
			}
		case "json":
			if m := jsonKeyRe.FindStringSubmatch(line); m != nil {
				key = m[1]
				keyPath = key
			}
		case "toml", "ini":
			if m := tomlTableRe.FindStringSubmatch(line); m != nil {
				tomlTable = m[1]
				key = m[1]
				keyPath = m[1]
			} else if m := tomlKeyRe.FindStringSubmatch(line); m != nil {
				key = m[1]
				keyPath = key
				if tomlTable != "" {
					keyPath = tomlTable + "." + key
				}
			}
		case "env":
			if m := envKeyRe.FindStringSubmatch(line); m != nil {
				key = m[1]
				keyPath = key
			}
		}

		if key != "" {
			res.Definitions = append(res.Definitions, types.Definition{
				Term:             key,
				Kind:             types.KindVariable,
				Location:         types.Location{File: path, Line: lineNo, Column: columnOf(line, key)},
				Context:          line,
				SurroundingLines: surrounding(lines, i),
				Language:         format,
				Metadata:         types.Metadata{Kind: types.MetaConfigKey, KeyPath: keyPath},
			})
		}

		// Identifier-shaped values cross-link config to code.
		if m := valueIdentRe.FindStringSubmatch(trimmed); m != nil && m[1] != key {
			val := m[1]
			if !isConfigNoise(val) {
				res.References = append(res.References, types.Reference{
					TargetTerm: strings.ToLower(val),
					Kind:       types.RefConfigLink,
					From:       types.Location{File: path, Line: lineNo, Column: columnOf(line, val)},
					Context:    line,
				})
			}
		}
	}

	return res
}

// isConfigNoise filters values that are never useful link targets.
func isConfigNoise(v string) bool {
	switch strings.ToLower(v) {
	case "true", "false", "null", "none", "yes", "no", "on", "off":
		return true
	}
	return false
}
