// Package extract discovers definitions and references in source files
// using line-oriented heuristics rather than full grammars.
//
// Every extractor satisfies the same contract: CanHandle reports whether
// the extractor recognizes a path, Extract maps file content to the
// definitions and references found in it. Extraction never fails past the
// package boundary; when a primary strategy cannot process a file, the
// generic fallback pass runs instead, so one malformed file never aborts
// an indexing batch.
//
// Concrete language support is data, not code: a single table-driven
// extractor is parameterized by a Syntax describing comment delimiters,
// string delimiters, declaration patterns and reference patterns for one
// language. Framework single-file components (script/template/style
// sections in one file) are split into sections first, with the script
// section dispatched at a line offset.
//
// The heuristics deliberately approximate lexical structure with brace
// and indentation depth tracking. This trades precision for robustness:
// malformed input degrades the result, it never raises.
package extract
