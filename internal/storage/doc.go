// Package storage persists the index as a SQLite snapshot so a restart
// does not force a full re-extraction.
//
// The snapshot is written whole: Save builds a fresh database in a
// temporary file next to the destination and renames it into place, so
// a crash mid-save can never leave a corrupt snapshot at the final
// path. Load rebuilds the full in-memory state from the snapshot and
// returns ErrCorrupt for anything it cannot deserialize; the caller's
// recovery is a full rebuild, never a hard failure.
//
// Two SQLite drivers are supported via build tags: the default is the
// pure Go modernc.org/sqlite, and the cgo_sqlite tag selects
// github.com/mattn/go-sqlite3.
package storage
