// Package git wraps the git command line to report uncommitted changes:
// changed file paths, per-file status, and diff hunk line ranges. It is
// a thin collaborator for the impact analyzer; directories that are not
// git repositories are reported as such, never treated as errors by
// callers that can proceed without change data.
package git

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// ErrNotARepo means the directory is not inside a git work tree.
var ErrNotARepo = errors.New("not a git repository")

// FileStatus classifies one changed file.
type FileStatus string

const (
	StatusModified  FileStatus = "modified"
	StatusAdded     FileStatus = "added"
	StatusDeleted   FileStatus = "deleted"
	StatusRenamed   FileStatus = "renamed"
	StatusUntracked FileStatus = "untracked"
)

// Hunk is one contiguous changed line range in the working copy.
type Hunk struct {
	StartLine int
	LineCount int
}

// ChangedFile is one entry of the uncommitted change set.
type ChangedFile struct {
	Path   string // slash-separated, relative to the repo root
	Status FileStatus
	Hunks  []Hunk
}

// Provider runs git against one repository.
type Provider struct {
	repoRoot string
}

// NewProvider locates the repository containing dir. It returns
// ErrNotARepo when dir is not inside a git work tree.
func NewProvider(dir string) (*Provider, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid directory: %w", err)
	}

	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = abs
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotARepo, abs)
	}

	return &Provider{repoRoot: strings.TrimSpace(string(output))}, nil
}

// Root returns the repository root path.
func (p *Provider) Root() string {
	return p.repoRoot
}

// ChangedFiles returns the uncommitted change set: staged, unstaged and
// untracked files, with diff hunks for the modified ones.
func (p *Provider) ChangedFiles() ([]ChangedFile, error) {
	statusOut, err := p.run("status", "--porcelain")
	if err != nil {
		return nil, fmt.Errorf("git status failed: %w", err)
	}

	var files []ChangedFile
	scanner := bufio.NewScanner(bytes.NewReader(statusOut))
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) < 4 {
			continue
		}
		code := line[:2]
		path := strings.TrimSpace(line[3:])
		// Renames are listed as "old -> new"; the new path is the one
		// the index cares about.
		if idx := strings.Index(path, " -> "); idx >= 0 {
			path = path[idx+4:]
		}
		path = strings.Trim(path, `"`)

		files = append(files, ChangedFile{
			Path:   filepath.ToSlash(path),
			Status: statusOf(code),
		})
	}

	hunks, err := p.diffHunks()
	if err != nil {
		return nil, err
	}
	for i := range files {
		files[i].Hunks = hunks[files[i].Path]
	}

	return files, nil
}

func statusOf(code string) FileStatus {
	switch {
	case code == "??":
		return StatusUntracked
	case strings.ContainsAny(code, "R"):
		return StatusRenamed
	case strings.ContainsAny(code, "A"):
		return StatusAdded
	case strings.ContainsAny(code, "D"):
		return StatusDeleted
	default:
		return StatusModified
	}
}

var hunkHeaderRe = regexp.MustCompile(`^@@ -\d+(?:,\d+)? \+(\d+)(?:,(\d+))? @@`)

// diffHunks parses `git diff -U0 HEAD` into per-file changed line
// ranges.
func (p *Provider) diffHunks() (map[string][]Hunk, error) {
	out, err := p.run("diff", "-U0", "HEAD")
	if err != nil {
		// A repository with no commits yet has no HEAD to diff against;
		// the change set is still useful without hunks.
		return map[string][]Hunk{}, nil
	}

	hunks := make(map[string][]Hunk)
	var current string

	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, "+++ b/") {
			current = filepath.ToSlash(strings.TrimPrefix(line, "+++ b/"))
			continue
		}
		m := hunkHeaderRe.FindStringSubmatch(line)
		if m == nil || current == "" {
			continue
		}

		start, _ := strconv.Atoi(m[1])
		count := 1
		if m[2] != "" {
			count, _ = strconv.Atoi(m[2])
		}
		hunks[current] = append(hunks[current], Hunk{StartLine: start, LineCount: count})
	}

	return hunks, nil
}

func (p *Provider) run(args ...string) ([]byte, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = p.repoRoot
	return cmd.Output()
}
