package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// SchemaVersion tracks the snapshot schema. Load refuses snapshots
// whose major version differs from ours; the caller rebuilds instead.
const SchemaVersion = "1.0.0"

const schemaUp = `
CREATE TABLE IF NOT EXISTS meta (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
    path TEXT PRIMARY KEY,
    failed INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS definitions (
    file TEXT NOT NULL,
    line INTEGER NOT NULL,
    col INTEGER NOT NULL,
    term TEXT NOT NULL,
    kind TEXT NOT NULL,
    context TEXT,
    surrounding TEXT,
    related TEXT,
    language TEXT,
    metadata TEXT,
    PRIMARY KEY (file, line, col, term)
);

CREATE INDEX IF NOT EXISTS idx_definitions_file ON definitions(file);

CREATE TABLE IF NOT EXISTS refs (
    file TEXT NOT NULL,
    line INTEGER NOT NULL,
    col INTEGER NOT NULL,
    target TEXT NOT NULL,
    kind TEXT NOT NULL,
    context TEXT,
    PRIMARY KEY (file, line, col, target)
);

CREATE INDEX IF NOT EXISTS idx_refs_file ON refs(file);
CREATE INDEX IF NOT EXISTS idx_refs_target ON refs(target);
`

// applySchema creates the snapshot schema on a fresh database.
func applySchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaUp); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	_, err := db.ExecContext(ctx,
		`INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)`, SchemaVersion)
	if err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	return nil
}

// checkSchemaVersion verifies a loaded snapshot's version is one we can
// read. A missing or unparsable version, or a different major, means
// the snapshot is unusable.
func checkSchemaVersion(ctx context.Context, db *sql.DB) error {
	var stored string
	err := db.QueryRowContext(ctx,
		`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&stored)
	if err != nil {
		return fmt.Errorf("%w: missing schema version", ErrCorrupt)
	}

	have, err := semver.NewVersion(stored)
	if err != nil {
		return fmt.Errorf("%w: bad schema version %q", ErrCorrupt, stored)
	}
	want := semver.MustParse(SchemaVersion)
	if have.Major() != want.Major() {
		return fmt.Errorf("%w: schema version %s is incompatible with %s", ErrCorrupt, stored, SchemaVersion)
	}
	return nil
}
