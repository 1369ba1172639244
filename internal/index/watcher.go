package index

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors the indexed roots and triggers incremental rebuilds
// when source files change. Rapid event bursts are debounced into a
// single builder pass with the usual change-detection and attribute
// merge semantics.
type Watcher struct {
	builder  *Builder
	opts     BuildOptions
	debounce time.Duration
	logger   *slog.Logger
}

// NewWatcher creates a watcher that reruns the builder with the given
// options on file changes.
func NewWatcher(builder *Builder, opts BuildOptions, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		builder:  builder,
		opts:     opts,
		debounce: 500 * time.Millisecond,
		logger:   logger,
	}
}

// Watch blocks until the context is canceled, rebuilding the index after
// each debounced burst of file system events.
func (w *Watcher) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	for _, root := range w.opts.Paths {
		if err := addRecursive(fsw, root); err != nil {
			return err
		}
	}

	var timer *time.Timer
	var timerC <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			// Newly created directories need their own watches.
			if event.Has(fsnotify.Create) {
				_ = addRecursive(fsw, event.Name)
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		case <-timerC:
			timerC = nil
			if _, err := w.builder.Run(ctx, w.opts); err != nil {
				w.logger.Error("incremental reindex failed", "error", err)
			} else {
				w.logger.Info("index refreshed")
			}
		}
	}
}

// addRecursive watches a directory tree, skipping hidden directories.
func addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		name := d.Name()
		if len(name) > 1 && name[0] == '.' {
			return filepath.SkipDir
		}
		_ = fsw.Add(path)
		return nil
	})
}
