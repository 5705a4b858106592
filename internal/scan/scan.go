// Package scan is the filesystem collaborator: it supplies the
// ignore-filtered file listing and read capability everything else is
// built on. Listing honors the project's .gitignore plus a built-in set
// of directories never worth indexing.
package scan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// ErrRootNotFound means the project root does not exist or is not a
// directory. Nothing degrades gracefully from this; callers fail fast
// before touching any index state.
var ErrRootNotFound = errors.New("project root not found")

// maxFileSize caps what the walker will list; larger files are almost
// never source code.
const maxFileSize = 2 << 20

// SkipDir reports whether a directory name is never worth indexing or
// watching.
func SkipDir(name string) bool {
	if strings.HasPrefix(name, ".") && name != "." {
		return true
	}
	_, skip := skipDirs[name]
	return skip
}

var skipDirs = map[string]struct{}{
	"node_modules":  {},
	"vendor":        {},
	"__pycache__":   {},
	"venv":          {},
	".venv":         {},
	"dist":          {},
	"build":         {},
	"target":        {},
	".git":          {},
	".hg":           {},
	".svn":          {},
	".idea":         {},
	".vscode":       {},
	".pytest_cache": {},
}

// Walker lists and reads files under one project root. It satisfies
// hashtree.Source.
type Walker struct {
	root    string
	gi      *ignore.GitIgnore
	accepts func(path string) bool
}

// NewWalker validates root and loads its .gitignore, if present.
// accepts, when non-nil, further restricts the listing (the indexer
// passes the extractor registry's CanHandle).
func NewWalker(root string, accepts func(path string) bool) (*Walker, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRootNotFound, root)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrRootNotFound, root)
	}

	w := &Walker{root: root, accepts: accepts}
	if gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore")); err == nil {
		w.gi = gi
	}
	return w, nil
}

// Root returns the walker's project root.
func (w *Walker) Root() string {
	return w.root
}

// Paths lists every acceptable file under the root as slash-separated
// relative paths, sorted. Unreadable subtrees are skipped, not fatal.
func (w *Walker) Paths() ([]string, error) {
	var out []string

	err := filepath.WalkDir(w.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == w.root {
				return fmt.Errorf("%w: %s", ErrRootNotFound, w.root)
			}
			return nil // skip unreadable entries
		}

		name := d.Name()
		rel, relErr := filepath.Rel(w.root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if path == w.root {
				return nil
			}
			if SkipDir(name) {
				return filepath.SkipDir
			}
			if w.gi != nil && w.gi.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		// .env is the one hidden file the extractors understand.
		if strings.HasPrefix(name, ".") && name != ".env" {
			return nil
		}
		if w.gi != nil && w.gi.MatchesPath(rel) {
			return nil
		}
		if info, err := d.Info(); err != nil || info.Size() > maxFileSize {
			return nil
		}
		if w.accepts != nil && !w.accepts(rel) {
			return nil
		}

		out = append(out, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(out)
	return out, nil
}

// ReadFile returns the contents of one file by its relative path.
func (w *Walker) ReadFile(rel string) ([]byte, error) {
	return os.ReadFile(filepath.Join(w.root, filepath.FromSlash(rel)))
}
