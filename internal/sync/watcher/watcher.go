// Package watcher refreshes the ingestion registry when a file source
// changes on disk.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/stacklok/omnifield-ingest/internal/config"
	"github.com/stacklok/omnifield-ingest/internal/registry"
)

// DefaultDebounce is how long the watcher waits for events to settle
const DefaultDebounce = 500 * time.Millisecond

// ErrAlreadyRunning is returned when Watch is called twice
var ErrAlreadyRunning = errors.New("source watcher is already running")

// Refresher rebuilds the registry snapshot
type Refresher interface {
	Refresh(ctx context.Context) *registry.Snapshot
}

// Watcher observes the parent directories of file sources. Directories are
// watched rather than files so editors and deploy tools that replace a file
// by rename keep being observed.
type Watcher struct {
	refresher Refresher
	targets   map[string]string
	dirs      []string
	debounce  time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// Option configures a Watcher
type Option func(*Watcher)

// WithDebounce sets the quiet period before a refresh
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher for the file sources in srcs. Non-file sources are
// ignored.
func New(refresher Refresher, srcs []config.SourceConfig, opts ...Option) (*Watcher, error) {
	w := &Watcher{
		refresher: refresher,
		targets:   make(map[string]string),
		debounce:  DefaultDebounce,
	}

	seenDirs := make(map[string]bool)
	for i := range srcs {
		if srcs[i].File == nil {
			continue
		}
		path, err := filepath.Abs(srcs[i].File.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve path for source %s: %w", srcs[i].Name, err)
		}
		w.targets[path] = srcs[i].Name
		if dir := filepath.Dir(path); !seenDirs[dir] {
			seenDirs[dir] = true
			w.dirs = append(w.dirs, dir)
		}
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Paths returns the number of watched files
func (w *Watcher) Paths() int {
	return len(w.targets)
}

// Watch blocks until ctx is cancelled, refreshing the registry after file
// source changes settle
func (w *Watcher) Watch(ctx context.Context) error {
	if len(w.dirs) == 0 {
		slog.Debug("No file sources to watch")
		<-ctx.Done()
		return nil
	}

	w.mu.Lock()
	if w.watcher != nil {
		w.mu.Unlock()
		return ErrAlreadyRunning
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	w.watcher = fsw
	w.mu.Unlock()

	defer w.close()

	for _, dir := range w.dirs {
		if err := fsw.Add(dir); err != nil {
			// a missing directory only disables watching for its sources
			slog.Warn("Failed to watch source directory", "dir", dir, "error", err)
		}
	}
	slog.Info("Started watching file sources", "files", len(w.targets), "dirs", len(w.dirs))

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()
	var changed []string

	for {
		select {
		case <-ctx.Done():
			slog.Info("Stopping file source watcher")
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return fmt.Errorf("watcher event channel closed")
			}
			source, ok := w.targets[filepath.Clean(event.Name)]
			if !ok || !relevant(event) {
				continue
			}
			slog.Debug("File source changed", "source", source, "op", event.Op.String())
			changed = append(changed, source)
			timer.Reset(w.debounce)

		case <-timer.C:
			slog.Info("Refreshing after file source change", "sources", changed)
			changed = nil
			snap := w.refresher.Refresh(ctx)
			if snap != nil && snap.Degraded() {
				slog.Warn("Refresh after file change left degraded sources", "failed", snap.Failed())
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return fmt.Errorf("watcher error channel closed")
			}
			slog.Error("File watcher error", "error", err)
		}
	}
}

func relevant(event fsnotify.Event) bool {
	return event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Rename) ||
		event.Has(fsnotify.Remove)
}

func (w *Watcher) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher != nil {
		if err := w.watcher.Close(); err != nil {
			slog.Warn("Failed to close file watcher", "error", err)
		}
		w.watcher = nil
	}
}
