// Package watcher imports books as they appear in a folder.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"raggedbooks/internal/contextutil"
)

// DefaultDebounce is how long a file must stay quiet before it is imported.
const DefaultDebounce = 2 * time.Second

// ImportFunc imports one file. Errors are logged and do not stop watching.
type ImportFunc func(ctx context.Context, path string) error

// RemoveFunc handles a matching file that was deleted or moved away.
type RemoveFunc func(ctx context.Context, path string) error

// Option configures a Watcher.
type Option func(*Watcher)

// WithRemove sets the handler called when a matching file disappears.
func WithRemove(fn RemoveFunc) Option {
	return func(w *Watcher) { w.removeFn = fn }
}

// Watcher watches a folder tree and imports matching files once they stop
// changing.
type Watcher struct {
	folder   string
	pattern  string
	debounce time.Duration
	importFn ImportFunc
	removeFn RemoveFunc

	mu      sync.Mutex
	pending map[string]*time.Timer
	ready   chan string
	done    chan struct{}
}

// New creates a watcher for files under folder matching the doublestar
// pattern, relative to folder.
func New(folder, pattern string, debounce time.Duration, importFn ImportFunc, opts ...Option) (*Watcher, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q", pattern)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w := &Watcher{
		folder:   folder,
		pattern:  pattern,
		debounce: debounce,
		importFn: importFn,
		pending:  make(map[string]*time.Timer),
		ready:    make(chan string, 64),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Watch blocks until ctx is done; a Watcher can only watch once. Files are
// imported one at a time in the order they settle. Directories created
// while watching are watched too, and matching files already inside them
// are imported.
func (w *Watcher) Watch(ctx context.Context) error {
	logger := contextutil.LoggerFromContext(ctx)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addTree(fsw, w.folder, false); err != nil {
		return err
	}
	logger.InfoContext(ctx, "watching folder", "folder", w.folder, "pattern", w.pattern, "debounce", w.debounce)

	defer close(w.done)
	defer w.stopTimers()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return errors.New("watcher closed")
			}
			w.handle(ctx, fsw, event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return errors.New("watcher closed")
			}
			logger.WarnContext(ctx, "watch error", "error", err)

		case path := <-w.ready:
			logger.InfoContext(ctx, "importing new file", "file", path)
			if err := w.importFn(ctx, path); err != nil {
				logger.ErrorContext(ctx, "failed to import file", "file", path, "error", err)
			}
		}
	}
}

func (w *Watcher) handle(ctx context.Context, fsw *fsnotify.Watcher, event fsnotify.Event) {
	logger := contextutil.LoggerFromContext(ctx)

	switch {
	case event.Has(fsnotify.Create):
		info, err := os.Stat(event.Name)
		if err != nil {
			return
		}
		if info.IsDir() {
			if err := w.addTree(fsw, event.Name, true); err != nil {
				logger.WarnContext(ctx, "failed to watch directory", "dir", event.Name, "error", err)
			}
			return
		}
		w.schedule(ctx, event.Name)

	case event.Has(fsnotify.Write):
		w.schedule(ctx, event.Name)

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.cancel(event.Name)
		if w.removeFn == nil || !w.Matches(event.Name) {
			return
		}
		if err := w.removeFn(ctx, event.Name); err != nil {
			logger.ErrorContext(ctx, "failed to remove file", "file", event.Name, "error", err)
		}
	}
}

// addTree watches root and every directory below it. With scan set, files
// already present are scheduled for import.
func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string, scan bool) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := fsw.Add(path); err != nil {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
			return nil
		}
		if scan && d.Type().IsRegular() {
			w.schedule(context.Background(), path)
		}
		return nil
	})
}

// Matches reports whether path, inside the watched folder, matches the
// pattern.
func (w *Watcher) Matches(path string) bool {
	rel, err := filepath.Rel(w.folder, path)
	if err != nil {
		return false
	}
	ok, err := doublestar.Match(w.pattern, filepath.ToSlash(rel))
	return err == nil && ok
}

func (w *Watcher) schedule(ctx context.Context, path string) {
	if !w.Matches(path) {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok && t.Stop() {
		t.Reset(w.debounce)
		return
	}
	contextutil.LoggerFromContext(ctx).DebugContext(ctx, "file changed", "file", path)
	var t *time.Timer
	t = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		if w.pending[path] == t {
			delete(w.pending, path)
		}
		w.mu.Unlock()
		select {
		case w.ready <- path:
		case <-w.done:
		}
	})
	w.pending[path] = t
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}
