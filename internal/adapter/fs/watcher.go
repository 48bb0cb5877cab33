package fs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"docindex/internal/logging"
)

// ChangeKind says whether a path needs re-indexing or removal.
type ChangeKind int

const (
	ChangeUpdated ChangeKind = iota
	ChangeRemoved
)

// Batch is the set of paths that changed during one debounce window.
type Batch struct {
	Updated []string
	Removed []string
}

func (b Batch) Empty() bool {
	return len(b.Updated) == 0 && len(b.Removed) == 0
}

// Watcher reports changes to eligible files below a root. Events are
// coalesced per path and delivered in batches once the tree has been quiet
// for the debounce interval.
type Watcher struct {
	walker   *Walker
	debounce time.Duration
	logger   *slog.Logger
}

func NewWatcher(walker *Walker, debounce time.Duration, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{
		walker:   walker,
		debounce: debounce,
		logger:   logging.OrDefault(logger),
	}
}

// Watch blocks until ctx is done, calling handle for every batch. Handler
// calls never overlap. A handler error is logged and watching continues.
func (w *Watcher) Watch(ctx context.Context, root string, handle func(context.Context, Batch) error) error {
	root, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := w.addTree(fw, root, root); err != nil {
		return err
	}

	pending := make(map[string]ChangeKind)
	timer := time.NewTimer(time.Hour)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(fw, root, event.Name); err != nil {
						w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
					}
					continue
				}
			}
			kind, ok := w.classify(root, event)
			if !ok {
				continue
			}
			pending[event.Name] = kind
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case <-timer.C:
			batch := drain(pending)
			if batch.Empty() {
				continue
			}
			if err := handle(ctx, batch); err != nil {
				w.logger.Error("failed to apply changes", "updated", len(batch.Updated), "removed", len(batch.Removed), "error", err)
			}
		}
	}
}

// classify maps an fsnotify event to a change. Chmod, directories and
// ineligible files are ignored.
func (w *Watcher) classify(root string, event fsnotify.Event) (ChangeKind, bool) {
	if !w.walker.EligibleUnder(root, event.Name) {
		return 0, false
	}
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return ChangeRemoved, true
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil {
			// gone again before we looked
			return ChangeRemoved, true
		}
		if info.IsDir() {
			return 0, false
		}
		return ChangeUpdated, true
	default:
		return 0, false
	}
}

func (w *Watcher) addTree(fw *fsnotify.Watcher, root, dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if path != root {
			rel, err := filepath.Rel(root, path)
			if err == nil && w.walker.excludedDir(filepath.ToSlash(rel)) {
				return filepath.SkipDir
			}
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

func drain(pending map[string]ChangeKind) Batch {
	var b Batch
	for path, kind := range pending {
		if kind == ChangeRemoved {
			b.Removed = append(b.Removed, path)
		} else {
			b.Updated = append(b.Updated, path)
		}
		delete(pending, path)
	}
	sort.Strings(b.Updated)
	sort.Strings(b.Removed)
	return b
}
