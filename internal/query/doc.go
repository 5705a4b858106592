// Package query evaluates search expressions against the semantic and
// cross-reference indices.
//
// Expression forms, tried in order:
//
//	/pattern/   regex mode: compiled once, matched against term and
//	            context, bypassing the term indices
//	A|B         union of the operands' result sets by identity key
//	A&B         intersection by identity key (both operands must match
//	            the same definition)
//	!A          all definitions passing the active filters, minus A
//	term        exact or fuzzy term lookup
//
// After evaluation, filters compose in a fixed order: kind filter, then
// file-glob filter, then dedupe, sort, truncate. Results are annotated
// with usage counts from the cross-reference index.
//
// Responses are cached in an LRU keyed by a hash of the query and its
// options; the indexer purges the cache when a pass commits.
package query
