// Package watcher watches scan roots recursively and delivers debounced
// batches of changes, which drive organize re-runs in watch mode.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/lexandro/contentsieve/ignore"
)

// DefaultDebounce is the quiet period used when none is configured.
const DefaultDebounce = 500 * time.Millisecond

// IgnoreChecker decides which paths under one root are watched.
type IgnoreChecker interface {
	RootDir() string
	ShouldIgnoreDir(absolutePath string) bool
	ShouldIgnore(absolutePath string, isDir bool) bool
	Reload()
}

// Watcher provides recursive file system watching with debouncing over
// one or more roots.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	checkers  []IgnoreChecker
	logger    *zap.Logger
}

// New registers every non-ignored directory under each checker's root.
// Roots that do not exist are skipped with a warning.
func New(checkers []IgnoreChecker, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		debouncer: NewDebouncer(debounce),
		checkers:  checkers,
		logger:    logger,
	}

	for _, checker := range checkers {
		rootDir := checker.RootDir()
		if info, statErr := os.Stat(rootDir); statErr != nil || !info.IsDir() {
			logger.Warn("root not found, not watching", zap.String("root", rootDir))
			continue
		}
		err = filepath.WalkDir(rootDir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil // Skip entries that can't be read
			}
			if !d.IsDir() {
				return nil
			}
			if path != rootDir && checker.ShouldIgnoreDir(path) {
				return filepath.SkipDir
			}
			if watchErr := fsWatcher.Add(path); watchErr != nil {
				logger.Warn("failed to watch directory", zap.String("path", path), zap.Error(watchErr))
			}
			return nil
		})
		if err != nil {
			fsWatcher.Close()
			return nil, err
		}
	}

	return w, nil
}

// FromMatchers adapts scanner matchers to checkers.
func FromMatchers(matchers []*ignore.Matcher) []IgnoreChecker {
	checkers := make([]IgnoreChecker, len(matchers))
	for i, m := range matchers {
		checkers[i] = m
	}
	return checkers
}

// Events returns the channel that receives debounced file system events.
func (w *Watcher) Events() <-chan []DebouncedEvent {
	return w.debouncer.Output()
}

// Start begins listening for file system events. Call this in a goroutine.
// It runs until the watcher is closed.
func (w *Watcher) Start() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

// Run starts the watcher and calls onBatch for every debounced batch, one
// at a time, until ctx is done. It closes the watcher before returning.
func (w *Watcher) Run(ctx context.Context, onBatch func(ctx context.Context, events []DebouncedEvent)) error {
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		w.Start()
	}()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case events := <-w.Events():
			onBatch(ctx, events)
		}
	}

	err := w.Close()
	<-stopped
	return err
}

// checkerFor returns the checker whose root holds path.
func (w *Watcher) checkerFor(path string) IgnoreChecker {
	for _, c := range w.checkers {
		rel, err := filepath.Rel(c.RootDir(), path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return c
		}
	}
	return nil
}

// handleEvent processes a single fsnotify event, converting it to a debounced event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name
	checker := w.checkerFor(path)
	if checker == nil {
		return
	}

	// If a new directory was created, start watching it
	if event.Has(fsnotify.Create) {
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			if !checker.ShouldIgnoreDir(path) {
				if err := w.fsWatcher.Add(path); err != nil {
					w.logger.Warn("failed to watch new directory", zap.String("path", path), zap.Error(err))
				}
			}
			return // Don't emit events for directory creation
		}
	}

	if ignore.IsIgnoreFile(path) {
		checker.Reload()
		w.logger.Info("reloaded ignore rules", zap.String("trigger", path))
	} else if checker.ShouldIgnore(path, false) {
		return
	}

	var op EventOp
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpWrite
	case event.Has(fsnotify.Remove):
		op = OpRemove
	case event.Has(fsnotify.Rename):
		op = OpRename
	default:
		return
	}

	w.debouncer.Add(path, op)
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	w.debouncer.Stop()
	return w.fsWatcher.Close()
}
