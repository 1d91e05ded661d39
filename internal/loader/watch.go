package loader

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher invalidates a Cached filesystem loader when files under its root
// change.
type Watcher struct {
	fs      *Filesystem
	cache   *Cached
	watcher *fsnotify.Watcher
	logger  *slog.Logger
}

func NewWatcher(fsys *Filesystem, cache *Cached, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	err = filepath.WalkDir(fsys.Root(), func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && strings.HasPrefix(d.Name(), ".") && path != fsys.Root() {
			return filepath.SkipDir
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", fsys.Root(), err)
	}
	return &Watcher{fs: fsys, cache: cache, watcher: w, logger: logger}, nil
}

// Run processes file events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			if ev.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.watcher.Add(ev.Name); err != nil {
						w.logger.Warn("watch new directory", "path", ev.Name, "err", err)
					}
					continue
				}
			}
			keys := w.fs.KeysFor(ev.Name)
			if len(keys) == 0 {
				continue
			}
			w.cache.Invalidate(keys...)
			w.logger.Debug("decision changed", "path", ev.Name, "op", ev.Op.String(), "keys", keys)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("file watcher error", "err", err)
		}
	}
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}
