// Package indexer coordinates the indexing pipeline: walk -> hash ->
// extract -> merge into the in-memory indices, with SQLite snapshot
// persistence on top.
//
// Two kinds of pass exist. Rebuild hashes and extracts everything under
// the root. DiffAndUpdate builds a fresh hash tree, diffs it against
// the previously committed one, and re-extracts only the files the
// diff names; an unchanged subtree is pruned from the comparison
// entirely, so the cost of "nothing changed" is near zero however
// large the project is.
//
// Files are processed in fixed-size batches. Within a batch a bounded
// worker pool reads and extracts in parallel; the results are merged
// into the shared indices by the coordinating goroutine between
// batches, so workers never touch the shared maps. A single file that
// fails to read or extract is tallied and skipped, never fatal.
// Cancelling the context stops the pass at the next batch boundary;
// the partially updated index is a valid, if incomplete, state.
package indexer
