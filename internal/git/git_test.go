package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		code string
		want FileStatus
	}{
		{"??", StatusUntracked},
		{"R ", StatusRenamed},
		{"A ", StatusAdded},
		{" A", StatusAdded},
		{"D ", StatusDeleted},
		{" D", StatusDeleted},
		{"M ", StatusModified},
		{" M", StatusModified},
		{"MM", StatusModified},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusOf(tt.code), "code %q", tt.code)
	}
}

func TestHunkHeaderRegex(t *testing.T) {
	tests := []struct {
		line  string
		start string
		count string
	}{
		{"@@ -10,3 +12,4 @@", "12", "4"},
		{"@@ -5 +7 @@", "7", ""},
		{"@@ -1,0 +2,8 @@ func main() {", "2", "8"},
	}
	for _, tt := range tests {
		m := hunkHeaderRe.FindStringSubmatch(tt.line)
		require.NotNil(t, m, "line %q", tt.line)
		assert.Equal(t, tt.start, m[1])
		assert.Equal(t, tt.count, m[2])
	}

	assert.Nil(t, hunkHeaderRe.FindStringSubmatch("+++ b/file.go"))
	assert.Nil(t, hunkHeaderRe.FindStringSubmatch("@@ malformed @@"))
}

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
}

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	base := []string{"-c", "user.name=test", "-c", "user.email=test@example.com"}
	cmd := exec.Command("git", append(base, args...)...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
}

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	runGit(t, dir, "init", "-q")
	return dir
}

func TestNewProviderNotARepo(t *testing.T) {
	requireGit(t)
	_, err := NewProvider(t.TempDir())
	assert.ErrorIs(t, err, ErrNotARepo)
}

func TestNewProviderFindsRoot(t *testing.T) {
	requireGit(t)
	root := initRepo(t)
	sub := filepath.Join(root, "internal", "pkg")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	p, err := NewProvider(sub)
	require.NoError(t, err)

	// Resolve symlinks before comparing; macOS tempdirs live under one.
	wantRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	gotRoot, err := filepath.EvalSymlinks(p.Root())
	require.NoError(t, err)
	assert.Equal(t, wantRoot, gotRoot)
}

func TestChangedFiles(t *testing.T) {
	requireGit(t)
	root := initRepo(t)

	write := func(rel, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(root, rel), []byte(content), 0o644))
	}

	write("tracked.go", "package main\n\nfunc one() {}\n\nfunc two() {}\n")
	write("doomed.go", "package main\n")
	runGit(t, root, "add", ".")
	runGit(t, root, "commit", "-q", "-m", "initial")

	write("tracked.go", "package main\n\nfunc one() { panic(1) }\n\nfunc two() {}\n")
	write("untracked.go", "package main\n")
	require.NoError(t, os.Remove(filepath.Join(root, "doomed.go")))

	p, err := NewProvider(root)
	require.NoError(t, err)

	files, err := p.ChangedFiles()
	require.NoError(t, err)

	byPath := map[string]ChangedFile{}
	for _, f := range files {
		byPath[f.Path] = f
	}
	require.Len(t, byPath, 3)

	assert.Equal(t, StatusModified, byPath["tracked.go"].Status)
	assert.Equal(t, StatusUntracked, byPath["untracked.go"].Status)
	assert.Equal(t, StatusDeleted, byPath["doomed.go"].Status)

	hunks := byPath["tracked.go"].Hunks
	require.Len(t, hunks, 1)
	assert.Equal(t, 3, hunks[0].StartLine)
	assert.Equal(t, 1, hunks[0].LineCount)
}

func TestChangedFilesCleanRepo(t *testing.T) {
	requireGit(t)
	root := initRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.go"), []byte("package a\n"), 0o644))
	runGit(t, root, "add", ".")
	runGit(t, root, "commit", "-q", "-m", "initial")

	p, err := NewProvider(root)
	require.NoError(t, err)

	files, err := p.ChangedFiles()
	require.NoError(t, err)
	assert.Empty(t, files)
}
