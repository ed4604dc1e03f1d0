// Package fswatch watches the source directory recursively and emits
// debounced change events for the watch coordinator.
package fswatch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/uascm/uascm/internal/watch"
)

// Watcher wraps fsnotify with recursive directory registration and per-path
// debouncing. Rapid successive writes to one file collapse to one event.
type Watcher struct {
	root     string
	debounce time.Duration
	log      *zap.Logger

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New prepares a watcher over root. Debounce defaults to 100ms.
func New(root string, debounce time.Duration, log *zap.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	if log == nil {
		log = zap.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		root:     root,
		debounce: debounce,
		log:      log,
		watcher:  fw,
		pending:  make(map[string]*time.Timer),
	}, nil
}

// Run registers the directory tree, signals ready, and forwards events until
// ctx is canceled. The events channel closes when Run returns.
func (w *Watcher) Run(ctx context.Context, ready chan<- struct{}, events chan<- watch.FileEvent, errs chan<- error) error {
	defer w.stopPending()
	defer w.watcher.Close()

	if err := w.addRecursive(w.root); err != nil {
		return err
	}
	close(ready)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, ev, events)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			select {
			case errs <- err:
			default:
				w.log.Warn("watch error dropped", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event, events chan<- watch.FileEvent) {
	name := filepath.Base(ev.Name)
	if strings.HasPrefix(name, ".") {
		// Temp files from atomic writes and editor droppings.
		return
	}

	if ev.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(ev.Name); err != nil {
				w.log.Warn("watch new directory", zap.String("dir", ev.Name), zap.Error(err))
			}
			return
		}
	}
	if !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Rename) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.pending[ev.Name]; ok {
		timer.Stop()
	}
	path := ev.Name
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			return
		}
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			return
		}
		select {
		case events <- watch.FileEvent{
			Path:    filepath.ToSlash(rel),
			ModTime: info.ModTime(),
		}:
		case <-ctx.Done():
		}
	})
}
