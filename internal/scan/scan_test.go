package scan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestWalkerRootNotFound(t *testing.T) {
	_, err := NewWalker(filepath.Join(t.TempDir(), "nope"), nil)
	assert.ErrorIs(t, err, ErrRootNotFound)
}

func TestWalkerRootIsFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "plain.txt", "x")

	_, err := NewWalker(filepath.Join(root, "plain.txt"), nil)
	assert.ErrorIs(t, err, ErrRootNotFound)
}

func TestPathsSortedRelative(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "b.go", "package b")
	writeFile(t, root, "a/one.py", "x = 1")
	writeFile(t, root, "a/two.js", "let y = 2")

	w, err := NewWalker(root, nil)
	require.NoError(t, err)

	paths, err := w.Paths()
	require.NoError(t, err)
	assert.Equal(t, []string{"a/one.py", "a/two.js", "b.go"}, paths)
}

func TestPathsSkipsHiddenAndJunkDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.go", "package keep")
	writeFile(t, root, ".hidden.go", "package hidden")
	writeFile(t, root, ".git/objects/blob", "binary")
	writeFile(t, root, "node_modules/lib/index.js", "module.exports = {}")
	writeFile(t, root, "vendor/dep/dep.go", "package dep")
	writeFile(t, root, "__pycache__/mod.pyc", "bytecode")

	w, err := NewWalker(root, nil)
	require.NoError(t, err)

	paths, err := w.Paths()
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.go"}, paths)
}

func TestPathsListsDotEnv(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main")
	writeFile(t, root, ".env", "API_KEY=secret")
	writeFile(t, root, ".envrc", "export PATH")
	writeFile(t, root, ".eslintrc", "{}")

	w, err := NewWalker(root, nil)
	require.NoError(t, err)

	paths, err := w.Paths()
	require.NoError(t, err)
	assert.Equal(t, []string{".env", "main.go"}, paths)
}

func TestPathsHonorsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "generated/\n*.log\n")
	writeFile(t, root, "main.go", "package main")
	writeFile(t, root, "debug.log", "noise")
	writeFile(t, root, "generated/out.go", "package out")

	w, err := NewWalker(root, nil)
	require.NoError(t, err)

	paths, err := w.Paths()
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go"}, paths)
}

func TestPathsAcceptsFilter(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "code.go", "package code")
	writeFile(t, root, "notes.md", "# notes")

	w, err := NewWalker(root, func(path string) bool {
		return filepath.Ext(path) == ".go"
	})
	require.NoError(t, err)

	paths, err := w.Paths()
	require.NoError(t, err)
	assert.Equal(t, []string{"code.go"}, paths)
}

func TestPathsSkipsOversizedFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "small.go", "package small")
	big := make([]byte, maxFileSize+1)
	require.NoError(t, os.WriteFile(filepath.Join(root, "huge.go"), big, 0o644))

	w, err := NewWalker(root, nil)
	require.NoError(t, err)

	paths, err := w.Paths()
	require.NoError(t, err)
	assert.Equal(t, []string{"small.go"}, paths)
}

func TestReadFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "pkg/file.go", "package pkg")

	w, err := NewWalker(root, nil)
	require.NoError(t, err)

	content, err := w.ReadFile("pkg/file.go")
	require.NoError(t, err)
	assert.Equal(t, "package pkg", string(content))

	_, err = w.ReadFile("pkg/missing.go")
	assert.Error(t, err)
}

func TestSkipDir(t *testing.T) {
	assert.True(t, SkipDir(".git"))
	assert.True(t, SkipDir(".anything"))
	assert.True(t, SkipDir("node_modules"))
	assert.True(t, SkipDir("target"))
	assert.False(t, SkipDir("."))
	assert.False(t, SkipDir("src"))
	assert.False(t, SkipDir("internal"))
}
