// Package suppress keeps a short-lived record of paths the app itself just
// wrote, so the watcher does not report them back as new files.
package suppress

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"
)

// DefaultWindow is how long a marked path stays suppressed.
const DefaultWindow = 3 * time.Second

// Clock returns the current time. Tests inject a fake one.
type Clock func() time.Time

// Set maps paths to the instant their suppression expires.
type Set struct {
	mu      sync.Mutex
	window  time.Duration
	now     Clock
	entries map[string]time.Time
}

// NewSet creates an empty Set. A nil clock means time.Now.
func NewSet(window time.Duration, now Clock) *Set {
	if window <= 0 {
		window = DefaultWindow
	}
	if now == nil {
		now = time.Now
	}
	return &Set{
		window:  window,
		now:     now,
		entries: make(map[string]time.Time),
	}
}

// Mark suppresses path for the configured window, counted from now.
func (s *Set) Mark(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[filepath.Clean(path)] = s.now().Add(s.window)
	slog.Debug("Suppressing path", "path", path, "window", s.window)
}

// Contains reports whether path is currently suppressed. Expired entries are
// removed as they are found.
func (s *Set) Contains(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	path = filepath.Clean(path)
	expiry, ok := s.entries[path]
	if !ok {
		return false
	}
	if !s.now().Before(expiry) {
		delete(s.entries, path)
		return false
	}
	return true
}

// Unmark drops path before its window ends.
func (s *Set) Unmark(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, filepath.Clean(path))
}

// Run sweeps expired entries every interval until ctx is done.
func (s *Set) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = s.window
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				slog.Debug("Swept expired suppressions", "count", n)
			}
		}
	}
}

// Sweep removes every expired entry and returns how many were dropped.
func (s *Set) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for path, expiry := range s.entries {
		if !now.Before(expiry) {
			delete(s.entries, path)
			removed++
		}
	}
	return removed
}

// Len returns the number of entries, expired or not.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Clear removes every entry.
func (s *Set) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]time.Time)
}

// Window returns the suppression window.
func (s *Set) Window() time.Duration {
	return s.window
}
