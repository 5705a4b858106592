package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/kwatts/codescout/internal/extract"
	"github.com/kwatts/codescout/internal/git"
	"github.com/kwatts/codescout/internal/impact"
	"github.com/kwatts/codescout/internal/index"
	"github.com/kwatts/codescout/internal/indexer"
	"github.com/kwatts/codescout/internal/query"
	"github.com/kwatts/codescout/internal/scan"
	"github.com/kwatts/codescout/internal/watch"
)

// session holds the full pipeline for one indexed project root.
type session struct {
	root     string
	walker   *scan.Walker
	registry *extract.Registry
	defs     *index.Semantic
	refs     *index.CrossRef
	indexer  *indexer.Indexer
	engine   *query.Engine
	analyzer *impact.Analyzer

	// ready flips once an index pass has committed; queries against a
	// session that never indexed are rejected rather than returning
	// silently empty results. Tool handlers run concurrently, so the
	// flag and the watch state need their own synchronization.
	ready atomic.Bool

	watchMu     sync.Mutex
	watchCancel context.CancelFunc
}

// getSession returns the session for root, creating it on first use.
// Creation wires the pipeline but does not index.
func (s *Server) getSession(root string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[root]; ok {
		return sess, nil
	}

	registry := extract.DefaultRegistry()
	walker, err := scan.NewWalker(root, registry.CanHandle)
	if err != nil {
		return nil, err
	}

	defs := index.NewSemantic()
	refs := index.NewCrossRef()
	idx := indexer.New(walker, registry, defs, refs, &indexer.Config{
		SnapshotPath: s.snapshotPath(root),
		Logger:       s.logger,
	})
	engine := query.New(defs, refs)
	idx.OnCommit(func() { engine.InvalidateCache() })

	sess := &session{
		root:     root,
		walker:   walker,
		registry: registry,
		defs:     defs,
		refs:     refs,
		indexer:  idx,
		engine:   engine,
		analyzer: impact.New(walker, registry, defs, refs, impact.Thresholds{}),
	}
	s.sessions[root] = sess
	return sess, nil
}

// indexedSession returns the session for root only if it has already
// been indexed.
func (s *Server) indexedSession(root string) (*session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[root]
	s.mu.Unlock()
	if !ok || !sess.ready.Load() {
		return nil, newMCPError(ErrorCodeNotIndexed, "project not indexed", map[string]interface{}{
			"path":   root,
			"reason": "use index_codebase first",
		})
	}
	return sess, nil
}

// changedFiles resolves the session's git change set. A root that is
// not a git repository yields an explicit error; impact analysis is
// meaningless without a diff to analyze.
func (sess *session) changedFiles() ([]git.ChangedFile, error) {
	provider, err := git.NewProvider(sess.root)
	if err != nil {
		if errors.Is(err, git.ErrNotARepo) {
			return nil, fmt.Errorf("%s is not inside a git repository", sess.root)
		}
		return nil, err
	}
	return provider.ChangedFiles()
}

// index runs a full or incremental pass and persists the snapshot.
func (sess *session) index(ctx context.Context, force bool) (*indexer.Statistics, error) {
	var (
		stats *indexer.Statistics
		err   error
	)
	switch {
	case force:
		stats, err = sess.indexer.Rebuild(ctx)
	case !sess.ready.Load():
		// First pass for this session: restore the snapshot if one
		// exists and catch up, otherwise rebuild.
		stats, err = sess.indexer.LoadOrRebuild(ctx)
	default:
		stats, err = sess.indexer.DiffAndUpdate(ctx)
	}
	if err != nil {
		return nil, err
	}
	sess.ready.Store(true)
	return stats, sess.indexer.Save(ctx)
}

// watchUpdater persists the snapshot after every committed watcher
// pass. Watcher passes run outside any tool call, so without the save
// their results would be lost on shutdown.
type watchUpdater struct {
	idx *indexer.Indexer
}

func (u watchUpdater) DiffAndUpdate(ctx context.Context) (*indexer.Statistics, error) {
	stats, err := u.idx.DiffAndUpdate(ctx)
	if err != nil {
		return stats, err
	}
	return stats, u.idx.Save(ctx)
}

// startWatch begins background incremental updates for the session.
// Idempotent; the watcher runs until the process exits. A watcher pass
// that collides with a tool-triggered pass loses the pass lock and is
// retried on the next filesystem event.
func (sess *session) startWatch(logger *slog.Logger) error {
	sess.watchMu.Lock()
	defer sess.watchMu.Unlock()
	if sess.watchCancel != nil {
		return nil
	}
	w, err := watch.New(sess.root, watchUpdater{sess.indexer}, 0, logger)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(context.Background())
	sess.watchCancel = cancel
	go func() { _ = w.Run(ctx) }()
	return nil
}
