// Package hashtree computes and diffs a hierarchical content-hash tree
// over a project. A leaf hashes its file bytes; a directory hashes its
// children's names and hashes in deterministic order, so a directory
// hash changes exactly when some descendant changed. Diffing two trees
// prunes every subtree whose root hashes agree, which makes change
// detection cost proportional to the depth of the change rather than
// the size of the tree.
package hashtree

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// NodeKind distinguishes files from directories.
type NodeKind string

const (
	KindFile      NodeKind = "file"
	KindDirectory NodeKind = "directory"
)

// Node is one entry in the hash tree. Children are keyed by child name;
// key uniqueness is the tree's only ordering requirement.
type Node struct {
	Path     string           `json:"path"`
	Kind     NodeKind         `json:"kind"`
	Hash     uint64           `json:"hash,string"`
	Children map[string]*Node `json:"children,omitempty"`
}

// Source supplies the file listing and contents the tree is built from.
// The scan package's walker satisfies this.
type Source interface {
	// Paths lists every file under the root as slash-separated paths
	// relative to it.
	Paths() ([]string, error)

	// ReadFile returns the contents of one listed file.
	ReadFile(rel string) ([]byte, error)
}

// Build constructs the hash tree for everything src lists. Unreadable
// files are skipped and reported in failed; a partial tree is still a
// valid tree.
func Build(src Source) (*Node, []string, error) {
	paths, err := src.Paths()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list files: %w", err)
	}

	root := &Node{Path: ".", Kind: KindDirectory, Children: make(map[string]*Node)}
	var failed []string

	for _, rel := range paths {
		content, err := src.ReadFile(rel)
		if err != nil {
			failed = append(failed, rel)
			continue
		}
		insert(root, rel, xxhash.Sum64(content))
	}

	rehash(root)
	return root, failed, nil
}

// insert places a file node at rel, creating directory nodes on the way.
func insert(root *Node, rel string, hash uint64) {
	parts := strings.Split(path.Clean(rel), "/")
	cur := root
	for i, part := range parts {
		if i == len(parts)-1 {
			cur.Children[part] = &Node{
				Path: path.Join(cur.Path, part),
				Kind: KindFile,
				Hash: hash,
			}
			return
		}
		next, ok := cur.Children[part]
		if !ok || next.Kind != KindDirectory {
			next = &Node{
				Path:     path.Join(cur.Path, part),
				Kind:     KindDirectory,
				Children: make(map[string]*Node),
			}
			cur.Children[part] = next
		}
		cur = next
	}
}

// rehash computes directory hashes bottom-up. Children contribute in
// name order so the hash is deterministic regardless of walk order.
func rehash(n *Node) uint64 {
	if n.Kind == KindFile {
		return n.Hash
	}

	names := make([]string, 0, len(n.Children))
	for name := range n.Children {
		names = append(names, name)
	}
	sort.Strings(names)

	d := xxhash.New()
	var buf [8]byte
	for _, name := range names {
		child := n.Children[name]
		h := rehash(child)
		_, _ = d.WriteString(name)
		for i := 0; i < 8; i++ {
			buf[i] = byte(h >> (8 * i))
		}
		_, _ = d.Write(buf[:])
	}
	n.Hash = d.Sum64()
	return n.Hash
}

// Changes is the outcome of diffing two trees. Paths are relative,
// slash-separated, and refer to files only.
type Changes struct {
	Added   []string
	Removed []string
	Changed []string

	// Comparisons counts hash comparisons performed; an unchanged
	// subtree costs exactly one regardless of its size.
	Comparisons int
}

// Empty reports whether the diff found no differences.
func (c *Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Changed) == 0
}

// All returns every path the diff touched, in added, changed, removed
// order.
func (c *Changes) All() []string {
	out := make([]string, 0, len(c.Added)+len(c.Changed)+len(c.Removed))
	out = append(out, c.Added...)
	out = append(out, c.Changed...)
	out = append(out, c.Removed...)
	return out
}

// Diff compares two trees. Equal root hashes terminate immediately;
// otherwise it recurses per child, pruning any directory pair whose
// hashes agree. A nil side treats everything on the other side as
// added or removed.
func Diff(prev, next *Node) *Changes {
	c := &Changes{}
	diffNode(prev, next, c)
	sort.Strings(c.Added)
	sort.Strings(c.Removed)
	sort.Strings(c.Changed)
	return c
}

func diffNode(prev, next *Node, c *Changes) {
	switch {
	case prev == nil && next == nil:
		return
	case prev == nil:
		collect(next, &c.Added)
		return
	case next == nil:
		collect(prev, &c.Removed)
		return
	}

	c.Comparisons++
	if prev.Hash == next.Hash && prev.Kind == next.Kind {
		return // prune: identical subtree
	}

	if prev.Kind == KindFile || next.Kind == KindFile {
		if prev.Kind == next.Kind {
			c.Changed = append(c.Changed, next.Path)
			return
		}
		// A path flipped between file and directory: everything that was
		// there is gone, everything now there is fresh.
		collect(prev, &c.Removed)
		collect(next, &c.Added)
		return
	}

	names := make(map[string]bool, len(prev.Children)+len(next.Children))
	for name := range prev.Children {
		names[name] = true
	}
	for name := range next.Children {
		names[name] = true
	}
	for name := range names {
		diffNode(prev.Children[name], next.Children[name], c)
	}
}

// collect appends every file path in the subtree to dst.
func collect(n *Node, dst *[]string) {
	if n == nil {
		return
	}
	if n.Kind == KindFile {
		*dst = append(*dst, n.Path)
		return
	}
	for _, child := range n.Children {
		collect(child, dst)
	}
}
