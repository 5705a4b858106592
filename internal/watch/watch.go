// Package watch keeps the index current while the codebase is being
// edited. It places recursive fsnotify watches on the indexed root,
// debounces bursts of filesystem events, and triggers one incremental
// index pass per quiet period. Individual events are not mapped to
// files: the hash tree already detects exactly what changed, so the
// watcher only needs to know that something did.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kwatts/codescout/internal/indexer"
	"github.com/kwatts/codescout/internal/scan"
)

// DefaultDebounce is the quiet period after the last event before an
// incremental pass runs. Editors write, rename and chmod in quick
// succession; one pass per save is enough.
const DefaultDebounce = 500 * time.Millisecond

// Updater is the slice of the indexer the watcher drives.
type Updater interface {
	DiffAndUpdate(ctx context.Context) (*indexer.Statistics, error)
}

// Watcher triggers incremental index updates on filesystem changes.
type Watcher struct {
	root     string
	updater  Updater
	fsw      *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger
	kick     chan struct{}
	done     chan struct{}
}

// New creates a watcher over root. A zero debounce uses
// DefaultDebounce; a nil logger discards.
func New(root string, updater Updater, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Watcher{
		root:     root,
		updater:  updater,
		fsw:      fsw,
		debounce: debounce,
		logger:   logger,
		kick:     make(chan struct{}, 1),
		done:     make(chan struct{}),
	}, nil
}

// Run watches until ctx is cancelled. It returns the error that set up
// the initial watches; runtime watch errors are logged and survived.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.addRecursive(w.root); err != nil {
		return err
	}

	go w.updateLoop(ctx)
	defer close(w.done)
	defer w.fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if skipPath(event.Name) {
		return
	}

	// New directories need their own watches before anything inside
	// them can be seen.
	if event.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(event.Name); err != nil {
				w.logger.Warn("watch add failed", "path", event.Name, "error", err)
			}
		}
	}

	if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) ||
		event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename) {
		select {
		case w.kick <- struct{}{}:
		default:
		}
	}
}

// updateLoop coalesces kicks: a pass runs only after debounce has
// elapsed with no further events.
func (w *Watcher) updateLoop(ctx context.Context) {
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case <-w.kick:
			timer.Reset(w.debounce)
		case <-timer.C:
			if _, err := w.updater.DiffAndUpdate(ctx); err != nil && ctx.Err() == nil {
				w.logger.Warn("incremental update failed", "error", err)
			}
		}
	}
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && skipPath(path) {
			return filepath.SkipDir
		}
		// Watches on already-deleted directories are not fatal.
		_ = w.fsw.Add(path)
		return nil
	})
}

func skipPath(path string) bool {
	return scan.SkipDir(filepath.Base(path))
}
