package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kwatts/codescout/internal/hashtree"
	"github.com/kwatts/codescout/pkg/types"
)

// SnapshotExt is the file extension snapshot files carry.
const SnapshotExt = ".db"

var (
	// ErrNotFound is returned when no snapshot exists at the given path.
	ErrNotFound = errors.New("snapshot not found")

	// ErrCorrupt is returned when a snapshot exists but cannot be
	// deserialized. Callers recover by discarding it and rebuilding.
	ErrCorrupt = errors.New("snapshot corrupt")
)

// Snapshot is everything needed to reconstruct the in-memory index
// without re-extraction: the per-file definition and reference batches
// plus the hash tree the next incremental pass diffs against.
type Snapshot struct {
	Root        string
	Tree        *hashtree.Node
	Definitions []types.Definition
	References  []types.Reference
	FailedFiles []string
}

// Save writes the snapshot atomically: a fresh database is built in a
// temporary file next to dest and renamed over it, so a crash mid-save
// leaves either the old snapshot or the new one, never a torn file.
func Save(ctx context.Context, dest string, snap *Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp := dest + ".tmp"
	_ = os.Remove(tmp)

	if err := writeSnapshot(ctx, tmp, snap); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, dest); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to move snapshot into place: %w", err)
	}
	return nil
}

func writeSnapshot(ctx context.Context, path string, snap *Snapshot) error {
	db, err := sql.Open(DriverName, path)
	if err != nil {
		return fmt.Errorf("failed to open snapshot database: %w", err)
	}
	defer func() { _ = db.Close() }()

	// Single bulk writer; durability comes from the rename, not WAL.
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=OFF"); err != nil {
		return fmt.Errorf("failed to set journal mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA synchronous=OFF"); err != nil {
		return fmt.Errorf("failed to set synchronous mode: %w", err)
	}

	if err := applySchema(ctx, db); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	treeJSON, err := json.Marshal(snap.Tree)
	if err != nil {
		return fmt.Errorf("failed to encode hash tree: %w", err)
	}
	for key, value := range map[string]string{
		"root": snap.Root,
		"tree": string(treeJSON),
	} {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)`, key, value); err != nil {
			return fmt.Errorf("failed to store meta %q: %w", key, err)
		}
	}

	failed := make(map[string]bool, len(snap.FailedFiles))
	for _, f := range snap.FailedFiles {
		failed[f] = true
	}
	files := make(map[string]bool)
	for i := range snap.Definitions {
		files[snap.Definitions[i].Location.File] = true
	}
	for i := range snap.References {
		files[snap.References[i].From.File] = true
	}
	for _, f := range snap.FailedFiles {
		files[f] = true
	}
	for path := range files {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO files (path, failed) VALUES (?, ?)`, path, failed[path]); err != nil {
			return fmt.Errorf("failed to store file row: %w", err)
		}
	}

	defStmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO definitions
		(file, line, col, term, kind, context, surrounding, related, language, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare definition insert: %w", err)
	}
	defer func() { _ = defStmt.Close() }()

	for i := range snap.Definitions {
		d := &snap.Definitions[i]
		surrounding, _ := json.Marshal(d.SurroundingLines)
		related, _ := json.Marshal(d.RelatedTerms)
		metadata, _ := json.Marshal(d.Metadata)
		if _, err := defStmt.ExecContext(ctx,
			d.Location.File, d.Location.Line, d.Location.Column,
			d.Term, string(d.Kind), d.Context,
			string(surrounding), string(related), d.Language, string(metadata)); err != nil {
			return fmt.Errorf("failed to store definition: %w", err)
		}
	}

	refStmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO refs (file, line, col, target, kind, context)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare reference insert: %w", err)
	}
	defer func() { _ = refStmt.Close() }()

	for i := range snap.References {
		r := &snap.References[i]
		if _, err := refStmt.ExecContext(ctx,
			r.From.File, r.From.Line, r.From.Column,
			r.TargetTerm, string(r.Kind), r.Context); err != nil {
			return fmt.Errorf("failed to store reference: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return db.Close()
}

// Load reads a snapshot back. A missing file yields ErrNotFound; any
// deserialization failure yields ErrCorrupt so the caller can fall back
// to a full rebuild.
func Load(ctx context.Context, path string) (*Snapshot, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer func() { _ = db.Close() }()

	if err := checkSchemaVersion(ctx, db); err != nil {
		return nil, err
	}

	snap := &Snapshot{}

	meta := map[string]string{}
	rows, err := db.QueryContext(ctx, `SELECT key, value FROM meta`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		meta[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	_ = rows.Close()

	snap.Root = meta["root"]
	if tree, ok := meta["tree"]; ok && tree != "" && tree != "null" {
		var node hashtree.Node
		if err := json.Unmarshal([]byte(tree), &node); err != nil {
			return nil, fmt.Errorf("%w: bad hash tree: %v", ErrCorrupt, err)
		}
		snap.Tree = &node
	}

	if err := loadDefinitions(ctx, db, snap); err != nil {
		return nil, err
	}
	if err := loadReferences(ctx, db, snap); err != nil {
		return nil, err
	}
	if err := loadFailedFiles(ctx, db, snap); err != nil {
		return nil, err
	}

	return snap, nil
}

func loadDefinitions(ctx context.Context, db *sql.DB, snap *Snapshot) error {
	rows, err := db.QueryContext(ctx, `
		SELECT file, line, col, term, kind, context, surrounding, related, language, metadata
		FROM definitions`)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var d types.Definition
		var kind, surrounding, related, metadata string
		if err := rows.Scan(&d.Location.File, &d.Location.Line, &d.Location.Column,
			&d.Term, &kind, &d.Context, &surrounding, &related, &d.Language, &metadata); err != nil {
			return fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		d.Kind = types.DefinitionKind(kind)
		if err := json.Unmarshal([]byte(surrounding), &d.SurroundingLines); err != nil && surrounding != "" {
			return fmt.Errorf("%w: bad surrounding lines: %v", ErrCorrupt, err)
		}
		if err := json.Unmarshal([]byte(related), &d.RelatedTerms); err != nil && related != "" {
			return fmt.Errorf("%w: bad related terms: %v", ErrCorrupt, err)
		}
		if err := json.Unmarshal([]byte(metadata), &d.Metadata); err != nil && metadata != "" {
			return fmt.Errorf("%w: bad metadata: %v", ErrCorrupt, err)
		}
		if err := d.Validate(); err != nil {
			return fmt.Errorf("%w: invalid definition: %v", ErrCorrupt, err)
		}
		snap.Definitions = append(snap.Definitions, d)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return nil
}

func loadReferences(ctx context.Context, db *sql.DB, snap *Snapshot) error {
	rows, err := db.QueryContext(ctx, `SELECT file, line, col, target, kind, context FROM refs`)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var r types.Reference
		var kind string
		if err := rows.Scan(&r.From.File, &r.From.Line, &r.From.Column,
			&r.TargetTerm, &kind, &r.Context); err != nil {
			return fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		r.Kind = types.ReferenceKind(kind)
		if err := r.Validate(); err != nil {
			return fmt.Errorf("%w: invalid reference: %v", ErrCorrupt, err)
		}
		snap.References = append(snap.References, r)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return nil
}

func loadFailedFiles(ctx context.Context, db *sql.DB, snap *Snapshot) error {
	rows, err := db.QueryContext(ctx, `SELECT path FROM files WHERE failed = 1`)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		snap.FailedFiles = append(snap.FailedFiles, path)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return nil
}
