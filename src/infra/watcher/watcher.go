package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/contre95/snapsaver/src/media"
	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

const (
	DefaultStabilityThreshold = 2 * time.Second
	DefaultPollInterval       = 100 * time.Millisecond
)

// Options tunes when a new file counts as finished.
type Options struct {
	// StabilityThreshold is how long size and mtime must stay unchanged.
	StabilityThreshold time.Duration
	// PollInterval is how often candidates are re-checked.
	PollInterval time.Duration
	// Ignore holds glob patterns matched against the base name and the path relative to the root.
	Ignore []string
}

// candidate is a created file that has not settled yet.
type candidate struct {
	size  int64
	mod   time.Time
	since time.Time
}

// Watcher observes one root directory recursively and reports new files once
// they stop changing. At most one observation is active at a time.
type Watcher struct {
	opts      Options
	ignores   []glob.Glob
	eventChan chan<- FileEvent
	errChan   chan<- error

	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	root     string
	running  bool
	stopChan chan struct{}
	done     chan struct{}
}

// NewWatcher creates a watcher that sends settled files to eventChan and
// observation errors to errChan.
func NewWatcher(eventChan chan<- FileEvent, errChan chan<- error, opts Options) (*Watcher, error) {
	if opts.StabilityThreshold <= 0 {
		opts.StabilityThreshold = DefaultStabilityThreshold
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	ignores := make([]glob.Glob, 0, len(opts.Ignore))
	for _, pattern := range opts.Ignore {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
		ignores = append(ignores, g)
	}
	return &Watcher{
		opts:      opts,
		ignores:   ignores,
		eventChan: eventChan,
		errChan:   errChan,
	}, nil
}

// Start begins observing root, stopping any previous observation first.
func (w *Watcher) Start(ctx context.Context, root string) error {
	w.Stop()

	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", media.ErrWatchSetup, root, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", media.ErrWatchSetup, root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", media.ErrWatchSetup, root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: %w", media.ErrWatchSetup, err)
	}
	if err := w.addRecursive(fsw, root, root); err != nil {
		fsw.Close()
		return fmt.Errorf("%w: %s: %w", media.ErrWatchSetup, root, err)
	}

	stopChan := make(chan struct{})
	done := make(chan struct{})
	w.mu.Lock()
	w.fsw = fsw
	w.root = root
	w.running = true
	w.stopChan = stopChan
	w.done = done
	w.mu.Unlock()

	go w.watchLoop(ctx, fsw, root, stopChan, done)

	slog.Info("File watcher started", "path", root, "stability", w.opts.StabilityThreshold)
	return nil
}

// Stop ends the observation. It is safe to call when nothing is running.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	slog.Info("Stopping file watcher", "path", w.root)
	w.running = false
	close(w.stopChan)
	w.fsw.Close()
	done := w.done
	w.mu.Unlock()

	<-done
}

// Running reports whether an observation is active and on which root.
func (w *Watcher) Running() (bool, string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running, w.root
}

// addRecursive watches dir and every non hidden directory below it.
func (w *Watcher) addRecursive(fsw *fsnotify.Watcher, root, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.isExcluded(root, path) {
			return filepath.SkipDir
		}
		return fsw.Add(path)
	})
}

// isExcluded reports whether path is hidden or matches an ignore pattern.
func (w *Watcher) isExcluded(root, path string) bool {
	if media.IsHidden(root, path) {
		return true
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	base := filepath.Base(path)
	for _, g := range w.ignores {
		if g.Match(base) || g.Match(filepath.ToSlash(rel)) {
			return true
		}
	}
	return false
}

// watchLoop processes file system events until stopped.
func (w *Watcher) watchLoop(ctx context.Context, fsw *fsnotify.Watcher, root string, stopChan <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	pending := make(map[string]*candidate)
	ticker := time.NewTicker(w.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(fsw, root, event, pending)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			slog.Error("File watcher error", "path", root, "error", err)
			select {
			case w.errChan <- fmt.Errorf("%w: %s: %w", media.ErrWatchSetup, root, err):
			case <-stopChan:
				return
			default:
				slog.Warn("Error channel full, dropping watcher error", "error", err)
			}

		case now := <-ticker.C:
			if !w.checkPending(pending, now, stopChan) {
				return
			}

		case <-stopChan:
			return

		case <-ctx.Done():
			return
		}
	}
}

// handleEvent tracks newly created files and directories.
func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, root string, event fsnotify.Event, pending map[string]*candidate) {
	if w.isExcluded(root, event.Name) {
		return
	}
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		delete(pending, event.Name)
		return
	}
	if !event.Has(fsnotify.Create) {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}
	if !info.IsDir() {
		w.track(event.Name, info, pending)
		return
	}

	// Files may land in a new directory before it is watched.
	if err := w.addRecursive(fsw, root, event.Name); err != nil {
		slog.Warn("Failed to watch new directory", "path", event.Name, "error", err)
	}
	_ = filepath.WalkDir(event.Name, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if w.isExcluded(root, path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			if info, err := d.Info(); err == nil {
				w.track(path, info, pending)
			}
		}
		return nil
	})
}

func (w *Watcher) track(path string, info fs.FileInfo, pending map[string]*candidate) {
	if !info.Mode().IsRegular() {
		return
	}
	if _, ok := pending[path]; ok {
		return
	}
	slog.Debug("Tracking new file until it settles", "path", path)
	pending[path] = &candidate{size: info.Size(), mod: info.ModTime(), since: time.Now()}
}

// checkPending emits every candidate that has been stable long enough.
// It returns false if the watcher was stopped while emitting.
func (w *Watcher) checkPending(pending map[string]*candidate, now time.Time, stopChan <-chan struct{}) bool {
	for path, c := range pending {
		info, err := os.Stat(path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				slog.Warn("Failed to stat pending file", "path", path, "error", err)
			}
			delete(pending, path)
			continue
		}
		if info.Size() != c.size || !info.ModTime().Equal(c.mod) {
			c.size, c.mod, c.since = info.Size(), info.ModTime(), now
			continue
		}
		if now.Sub(c.since) < w.opts.StabilityThreshold {
			continue
		}
		delete(pending, path)
		event := FileEvent{
			Path:      path,
			Filename:  filepath.Base(path),
			EventType: FileCreated,
			Timestamp: now,
		}
		select {
		case w.eventChan <- event:
			slog.Debug("Emitted settled file", "path", path)
		case <-stopChan:
			return false
		}
	}
	return true
}
