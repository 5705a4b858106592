package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kwatts/codescout/internal/extract"
	"github.com/kwatts/codescout/internal/hashtree"
	"github.com/kwatts/codescout/internal/index"
	"github.com/kwatts/codescout/internal/scan"
	"github.com/kwatts/codescout/internal/storage"
	"github.com/kwatts/codescout/pkg/types"
)

// ErrPassInProgress is returned when a rebuild or update is requested
// while another pass is still running.
var ErrPassInProgress = errors.New("indexing pass already in progress")

// Indexer owns one project's indices and drives full and incremental
// passes over them.
type Indexer struct {
	walker   *scan.Walker
	registry *extract.Registry
	defs     *index.Semantic
	refs     *index.CrossRef

	snapshotPath string
	workers      int
	batchSize    int
	logger       *slog.Logger

	// onCommit runs after a pass commits (the query engine hooks its
	// cache purge here).
	onCommit func()

	// tree is the last committed hash tree; DiffAndUpdate diffs
	// against it. Only a pass holding the pass lock writes it; treeMu
	// makes the field safe for readers outside a pass (Save, Tree).
	treeMu sync.RWMutex
	tree   *hashtree.Node

	passLock IndexLock
}

// Config contains tunables for the indexer.
type Config struct {
	Workers      int    // concurrent extractions per batch (default: NumCPU)
	BatchSize    int    // files merged per batch (default: 32)
	SnapshotPath string // where Save/Load persist the index ("" disables)
	Logger       *slog.Logger
}

// Statistics describes what one pass did.
type Statistics struct {
	FilesIndexed  int
	FilesRemoved  int
	FilesFailed   int
	Definitions   int
	References    int
	Fallbacks     int // files rescued by the generic pass
	Duration      time.Duration
	ChangedFiles  []string
	ErrorMessages []string
}

// New creates an indexer over the given walker, extractors and indices.
// The indices stay owned by the caller; the indexer only mutates them
// during passes.
func New(walker *scan.Walker, registry *extract.Registry, defs *index.Semantic, refs *index.CrossRef, cfg *Config) *Indexer {
	if cfg == nil {
		cfg = &Config{}
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	return &Indexer{
		walker:       walker,
		registry:     registry,
		defs:         defs,
		refs:         refs,
		snapshotPath: cfg.SnapshotPath,
		workers:      workers,
		batchSize:    batchSize,
		logger:       logger,
	}
}

// OnCommit registers a hook invoked after every committed pass.
func (ix *Indexer) OnCommit(fn func()) {
	ix.onCommit = fn
}

// Tree returns the last committed hash tree, or nil before the first
// pass.
func (ix *Indexer) Tree() *hashtree.Node {
	ix.treeMu.RLock()
	defer ix.treeMu.RUnlock()
	return ix.tree
}

func (ix *Indexer) setTree(tree *hashtree.Node) {
	ix.treeMu.Lock()
	ix.tree = tree
	ix.treeMu.Unlock()
}

// Rebuild discards the current index contents and re-extracts every
// file under the root.
func (ix *Indexer) Rebuild(ctx context.Context) (*Statistics, error) {
	if !ix.passLock.TryAcquire() {
		return nil, ErrPassInProgress
	}
	defer ix.passLock.Release()

	return ix.rebuild(ctx)
}

// rebuild runs the full pass; the caller holds the pass lock.
func (ix *Indexer) rebuild(ctx context.Context) (*Statistics, error) {
	start := time.Now()
	stats := &Statistics{}

	tree, failed, err := hashtree.Build(ix.walker)
	if err != nil {
		return nil, err
	}
	ix.tallyFailed(stats, failed)

	// Evict everything currently indexed so a rebuild cannot leave
	// stale entries behind for files that no longer exist.
	for _, path := range ix.defs.Files() {
		ix.defs.RemoveFile(path)
		ix.refs.RemoveFile(path)
		stats.FilesRemoved++
	}

	var files []string
	collectFiles(tree, &files)
	if err := ix.processFiles(ctx, files, stats); err != nil {
		return stats, err
	}

	ix.commit(tree, stats, start)
	return stats, nil
}

// DiffAndUpdate builds a fresh hash tree, diffs it against the last
// committed one, and re-extracts exactly the changed and added files.
// Without a previous tree it behaves as a full rebuild.
func (ix *Indexer) DiffAndUpdate(ctx context.Context) (*Statistics, error) {
	if !ix.passLock.TryAcquire() {
		return nil, ErrPassInProgress
	}
	defer ix.passLock.Release()

	prev := ix.Tree()
	if prev == nil {
		return ix.rebuild(ctx)
	}

	start := time.Now()
	stats := &Statistics{}

	fresh, failed, err := hashtree.Build(ix.walker)
	if err != nil {
		return nil, err
	}
	ix.tallyFailed(stats, failed)

	changes := hashtree.Diff(prev, fresh)
	if changes.Empty() {
		stats.Duration = time.Since(start)
		return stats, nil
	}
	stats.ChangedFiles = changes.All()

	for _, path := range changes.Removed {
		ix.defs.RemoveFile(path)
		ix.refs.RemoveFile(path)
		stats.FilesRemoved++
	}

	touched := append(append([]string(nil), changes.Changed...), changes.Added...)
	if err := ix.processFiles(ctx, touched, stats); err != nil {
		return stats, err
	}

	ix.commit(fresh, stats, start)
	return stats, nil
}

// fileResult carries one worker's extraction back to the coordinator.
type fileResult struct {
	path string
	res  types.ExtractResult
	err  error
}

// processFiles runs the batch pipeline: parallel read+extract within a
// batch, single-owner merge between batches.
func (ix *Indexer) processFiles(ctx context.Context, files []string, stats *Statistics) error {
	for start := 0; start < len(files); start += ix.batchSize {
		// Cancellation is honored between batches so an interrupted
		// pass still leaves a consistent (if incomplete) index.
		if err := ctx.Err(); err != nil {
			return err
		}

		end := start + ix.batchSize
		if end > len(files) {
			end = len(files)
		}
		batch := files[start:end]

		results := make([]fileResult, len(batch))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(ix.workers)

		for i, path := range batch {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				content, err := ix.walker.ReadFile(path)
				if err != nil {
					results[i] = fileResult{path: path, err: err}
					return nil
				}
				results[i] = fileResult{path: path, res: ix.registry.ExtractFile(content, path)}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		// Merge: the coordinator is the only writer, one file at a
		// time, so concurrent readers never see a half-indexed file.
		for _, r := range results {
			if r.err != nil {
				stats.FilesFailed++
				stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", r.path, r.err))
				ix.logger.Warn("skipping unreadable file", "path", r.path, "error", r.err)
				continue
			}
			ix.defs.RemoveFile(r.path)
			ix.refs.RemoveFile(r.path)
			ix.defs.AddBatch(r.res.Definitions)
			ix.refs.AddBatch(r.res.References)

			stats.FilesIndexed++
			stats.Definitions += len(r.res.Definitions)
			stats.References += len(r.res.References)
			if r.res.Fallback {
				stats.Fallbacks++
			}
		}
	}
	return nil
}

func (ix *Indexer) commit(tree *hashtree.Node, stats *Statistics, start time.Time) {
	ix.setTree(tree)
	stats.Duration = time.Since(start)
	if ix.onCommit != nil {
		ix.onCommit()
	}
	ix.logger.Info("index pass committed",
		"indexed", stats.FilesIndexed,
		"removed", stats.FilesRemoved,
		"failed", stats.FilesFailed,
		"definitions", stats.Definitions,
		"references", stats.References,
		"duration", stats.Duration)
}

func (ix *Indexer) tallyFailed(stats *Statistics, failed []string) {
	for _, path := range failed {
		stats.FilesFailed++
		stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: unreadable", path))
	}
}

// Save persists the current index state to the configured snapshot
// path.
func (ix *Indexer) Save(ctx context.Context) error {
	if ix.snapshotPath == "" {
		return nil
	}

	snap := &storage.Snapshot{
		Root: ix.walker.Root(),
		Tree: ix.Tree(),
	}
	for _, path := range ix.defs.Files() {
		snap.Definitions = append(snap.Definitions, ix.defs.FileDefinitions(path)...)
		snap.References = append(snap.References, ix.refs.FileReferences(path)...)
	}

	if err := storage.Save(ctx, ix.snapshotPath, snap); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// LoadOrRebuild restores the index from its snapshot when one exists
// and is readable; a missing or corrupt snapshot triggers a full
// rebuild (and a fresh save) instead of an error.
func (ix *Indexer) LoadOrRebuild(ctx context.Context) (*Statistics, error) {
	if ix.snapshotPath != "" {
		snap, err := storage.Load(ctx, ix.snapshotPath)
		switch {
		case err == nil && snap.Root == ix.walker.Root():
			ix.defs.AddBatch(snap.Definitions)
			ix.refs.AddBatch(snap.References)
			ix.setTree(snap.Tree)
			if ix.onCommit != nil {
				ix.onCommit()
			}
			ix.logger.Info("index restored from snapshot",
				"definitions", len(snap.Definitions), "references", len(snap.References))
			// Catch up on anything that changed since the snapshot.
			return ix.DiffAndUpdate(ctx)
		case errors.Is(err, storage.ErrCorrupt):
			ix.logger.Warn("snapshot corrupt, rebuilding", "path", ix.snapshotPath, "error", err)
			_ = os.Remove(ix.snapshotPath)
		case err == nil:
			ix.logger.Warn("snapshot belongs to a different root, rebuilding",
				"snapshot_root", snap.Root, "root", ix.walker.Root())
		}
	}

	stats, err := ix.Rebuild(ctx)
	if err != nil {
		return stats, err
	}
	if err := ix.Save(ctx); err != nil {
		return stats, err
	}
	return stats, nil
}

func collectFiles(n *hashtree.Node, dst *[]string) {
	if n == nil {
		return
	}
	if n.Kind == hashtree.KindFile {
		*dst = append(*dst, n.Path)
		return
	}
	for _, child := range n.Children {
		collectFiles(child, dst)
	}
}
