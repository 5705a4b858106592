// Package index holds the in-memory semantic index and cross-reference
// index. Both are explicit objects owned by the caller; nothing here is
// a process-wide singleton, so one process can serve several projects
// with independent indices.
//
// The semantic index answers "where is X defined" through three derived
// structures kept in lockstep: an exact lowercased-term map, a partial
// sub-token map (camelCase/snake_case tokens longer than two characters,
// precomputed at insert time), and a per-file map used to evict a file's
// entries wholesale before re-indexing. The cross-reference index
// answers "who uses X" and backs usage-count ranking and impact reports.
//
// Concurrency: both indices guard their maps with a sync.RWMutex.
// Searches running concurrently with a reindex pass observe the last
// committed per-file batch, never a torn one, because mutation happens
// file-at-a-time under the write lock.
package index
