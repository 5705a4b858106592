// Package types defines the shared data model for the codescout index:
// definitions (declaration sites), references (usage sites), and the
// search result shapes returned by the query engine.
//
// A Definition records where something is declared (a function, type,
// variable, string literal, comment, import...) together with its source
// context. A Reference records a usage site pointing at a target term; it
// is not required to resolve to a known Definition, resolution happens at
// search time.
//
// Identity of a Definition within one index build is the tuple
// (file, line, column, term); see Definition.Key.
package types
