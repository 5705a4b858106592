package storage

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwatts/codescout/internal/hashtree"
	"github.com/kwatts/codescout/pkg/types"
)

func sampleSnapshot() *Snapshot {
	return &Snapshot{
		Root: "/work/project",
		Tree: &hashtree.Node{
			Path: ".",
			Kind: hashtree.KindDirectory,
			Hash: 42,
			Children: map[string]*hashtree.Node{
				"auth.go": {Path: "auth.go", Kind: hashtree.KindFile, Hash: 7},
			},
		},
		Definitions: []types.Definition{
			{
				Term:             "authLogin",
				Kind:             types.KindFunction,
				Location:         types.Location{File: "auth.go", Line: 10, Column: 6},
				Context:          "func authLogin(user string) error {",
				SurroundingLines: []string{"// login entry point", "func authLogin(user string) error {"},
				RelatedTerms:     []string{"auth", "login"},
				Language:         "go",
			},
			{
				Term:     "TODO rate limit logins",
				Kind:     types.KindComment,
				Location: types.Location{File: "auth.go", Line: 8, Column: 4},
				Context:  "// TODO rate limit logins",
				Language: "go",
				Metadata: types.Metadata{Kind: types.MetaMarker, Marker: types.MarkerTODO},
			},
		},
		References: []types.Reference{
			{
				TargetTerm: "authlogin",
				Kind:       types.RefCall,
				From:       types.Location{File: "handler.go", Line: 22, Column: 9},
				Context:    "if err := authLogin(user); err != nil {",
			},
		},
		FailedFiles: []string{"broken.py"},
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	dest := filepath.Join(t.TempDir(), "snap"+SnapshotExt)

	require.NoError(t, Save(ctx, dest, sampleSnapshot()))

	got, err := Load(ctx, dest)
	require.NoError(t, err)

	assert.Equal(t, "/work/project", got.Root)
	require.NotNil(t, got.Tree)
	assert.Equal(t, uint64(42), got.Tree.Hash)
	assert.Equal(t, uint64(7), got.Tree.Children["auth.go"].Hash)

	require.Len(t, got.Definitions, 2)
	byTerm := map[string]types.Definition{}
	for _, d := range got.Definitions {
		byTerm[d.Term] = d
	}
	d := byTerm["authLogin"]
	assert.Equal(t, types.KindFunction, d.Kind)
	assert.Equal(t, 10, d.Location.Line)
	assert.Equal(t, []string{"auth", "login"}, d.RelatedTerms)

	marker := byTerm["TODO rate limit logins"]
	assert.Equal(t, types.MetaMarker, marker.Metadata.Kind)
	assert.Equal(t, types.MarkerTODO, marker.Metadata.Marker)

	require.Len(t, got.References, 1)
	assert.Equal(t, "authlogin", got.References[0].TargetTerm)
	assert.Equal(t, types.RefCall, got.References[0].Kind)

	assert.Equal(t, []string{"broken.py"}, got.FailedFiles)
}

func TestSaveOverwritesExisting(t *testing.T) {
	ctx := context.Background()
	dest := filepath.Join(t.TempDir(), "snap"+SnapshotExt)

	first := sampleSnapshot()
	require.NoError(t, Save(ctx, dest, first))

	second := sampleSnapshot()
	second.Definitions = second.Definitions[:1]
	second.References = nil
	second.FailedFiles = nil
	require.NoError(t, Save(ctx, dest, second))

	got, err := Load(ctx, dest)
	require.NoError(t, err)
	assert.Len(t, got.Definitions, 1)
	assert.Empty(t, got.References)
	assert.Empty(t, got.FailedFiles)
}

func TestSaveLeavesNoTempFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	dest := filepath.Join(dir, "snap"+SnapshotExt)

	require.NoError(t, Save(ctx, dest, sampleSnapshot()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "snap"+SnapshotExt, entries[0].Name())
}

func TestLoadMissingSnapshot(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "absent"+SnapshotExt))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadCorruptSnapshot(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "garbage"+SnapshotExt)
	require.NoError(t, os.WriteFile(dest, []byte("this is not a database"), 0o644))

	_, err := Load(context.Background(), dest)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestLoadIncompatibleSchemaMajor(t *testing.T) {
	ctx := context.Background()
	dest := filepath.Join(t.TempDir(), "snap"+SnapshotExt)
	require.NoError(t, Save(ctx, dest, sampleSnapshot()))

	db, err := sql.Open(DriverName, dest)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx,
		`UPDATE meta SET value = '99.0.0' WHERE key = 'schema_version'`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = Load(ctx, dest)
	assert.ErrorIs(t, err, ErrCorrupt)
}
