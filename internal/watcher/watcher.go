// Package watcher watches drop directories and feeds new files into ingestion.
//
// Each watched root is a drop directory: files placed under
// <root>/<session-id>/... are ingested into that session. Files placed
// directly in the root (no session subdirectory) are ignored.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// IngestFunc receives the session ID (first-level subdirectory under the
// watched root) and the path of a file that settled after creation or write.
type IngestFunc func(sessionID, path string)

// Watcher watches drop directories and invokes an IngestFunc for files that
// stop changing. Write bursts are debounced per path.
type Watcher struct {
	roots      []string
	extensions []string
	recursive  bool
	onIngest   IngestFunc
	debounce   time.Duration
	logger     *zap.Logger

	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	pending  map[string]*time.Timer
	started  bool
	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce overrides the settle delay before a changed file is ingested.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher over the given drop directories. extensions filters
// which files are ingested (empty = all); onIngest is invoked once per
// settled file.
func New(roots []string, extensions []string, recursive bool, onIngest IngestFunc, opts ...Option) *Watcher {
	w := &Watcher{
		roots:      roots,
		extensions: extensions,
		recursive:  recursive,
		onIngest:   onIngest,
		debounce:   defaultDebounce,
		pending:    make(map[string]*time.Timer),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. It creates missing roots and runs until ctx is
// cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.fsw = fsw
	w.started = true
	if w.logger != nil {
		w.logger.Debug("watcher starting",
			zap.Strings("roots", w.roots),
			zap.Strings("extensions", w.extensions),
			zap.Bool("recursive", w.recursive))
	}
	for _, root := range w.roots {
		if err := w.addTreeLocked(root); err != nil {
			_ = w.fsw.Close()
			w.fsw = nil
			w.started = false
			w.mu.Unlock()
			return err
		}
	}
	w.mu.Unlock()
	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if err != nil && w.logger != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := ev.Name
	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			// New session directory dropped in; watch it and pick up
			// anything already inside.
			w.watchNewDir(path)
			return
		}
		if w.matchExtension(path) {
			w.schedule(path)
		}
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		w.cancel(path)
	}
}

func (w *Watcher) watchNewDir(dir string) {
	w.mu.Lock()
	fsw := w.fsw
	recursive := w.recursive
	w.mu.Unlock()
	if fsw == nil || !recursive {
		return
	}
	if w.logger != nil {
		w.logger.Debug("watcher adding new directory", zap.String("path", dir))
	}
	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if addErr := fsw.Add(path); addErr != nil && w.logger != nil {
				w.logger.Debug("watcher add failed", zap.String("path", path), zap.Error(addErr))
			}
			return nil
		}
		if w.matchExtension(path) {
			w.schedule(path)
		}
		return nil
	})
}

// sessionFor resolves the session ID for a file path: the first path element
// below the watched root. Returns "" for files outside all roots or directly
// inside a root.
func (w *Watcher) sessionFor(path string) string {
	clean := filepath.Clean(path)
	w.mu.Lock()
	roots := append([]string(nil), w.roots...)
	w.mu.Unlock()
	for _, root := range roots {
		rel, err := filepath.Rel(filepath.Clean(root), clean)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			continue
		}
		parts := strings.Split(rel, string(filepath.Separator))
		if len(parts) < 2 {
			return "" // file sits directly in the root
		}
		return parts[0]
	}
	return ""
}

func (w *Watcher) matchExtension(path string) bool {
	if len(w.extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range w.extensions {
		if strings.EqualFold(strings.TrimPrefix(e, "."), strings.TrimPrefix(ext, ".")) {
			return true
		}
	}
	return false
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		logger := w.logger
		w.mu.Unlock()
		session := w.sessionFor(path)
		if session == "" {
			if logger != nil {
				logger.Debug("watcher skipping file outside session directory", zap.String("path", path))
			}
			return
		}
		if logger != nil {
			logger.Debug("watcher ingesting settled file",
				zap.String("session_id", session), zap.String("path", path))
		}
		if w.onIngest != nil {
			w.onIngest(session, path)
		}
	})
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) addTreeLocked(root string) error {
	root = filepath.Clean(root)
	if _, err := os.Stat(root); err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		if err := os.MkdirAll(root, 0755); err != nil {
			return err
		}
	}
	if !w.recursive {
		return w.fsw.Add(root)
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
}

// SyncExisting ingests files already present under the watched roots. Call
// after Start to pick up files dropped while the service was down.
func (w *Watcher) SyncExisting() {
	w.mu.Lock()
	roots := append([]string(nil), w.roots...)
	w.mu.Unlock()
	for _, root := range roots {
		filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			if w.matchExtension(path) {
				w.schedule(path)
			}
			return nil
		})
	}
}

// Directories returns a copy of the watched root directories.
func (w *Watcher) Directories() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.roots...)
}

// Stop stops the watcher, cancelling pending ingestions.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.fsw == nil {
		w.mu.Unlock()
		return
	}
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	_ = w.fsw.Close()
	w.fsw = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
