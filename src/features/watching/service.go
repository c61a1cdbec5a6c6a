package watching

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/contre95/snapsaver/src/features/metrics"
	"github.com/contre95/snapsaver/src/features/notifying"
	"github.com/contre95/snapsaver/src/infra/watcher"
	"github.com/contre95/snapsaver/src/media"
)

// DefaultRetryDelay is how long to wait before re-creating a failed watcher.
const DefaultRetryDelay = 5 * time.Second

// Watcher observes one directory at a time.
type Watcher interface {
	Start(ctx context.Context, root string) error
	Stop()
	Running() (bool, string)
}

// Suppressor reports paths the app itself just wrote.
type Suppressor interface {
	Contains(path string) bool
}

// ConfigSource provides the current directory settings.
type ConfigSource interface {
	Snapshot(ctx context.Context) (media.WatchConfiguration, error)
}

// Publisher delivers notifications to the presentation layer.
type Publisher interface {
	Publish(n notifying.Notification) notifying.Notification
}

// Status describes the watcher for status endpoints.
type Status struct {
	Running        bool                `json:"running"`
	Root           string              `json:"root"`
	RetryScheduled bool                `json:"retryScheduled"`
	Pending        *media.DetectedFile `json:"pending,omitempty"`
}

// Service owns the directory watcher and the single pending detected file.
type Service struct {
	watcher    Watcher
	events     <-chan watcher.FileEvent
	errs       <-chan error
	suppressed Suppressor
	config     ConfigSource
	publisher  Publisher
	metrics    *metrics.Recorder
	retryDelay time.Duration

	restartMu sync.Mutex

	mu      sync.Mutex
	ctx     context.Context
	retry   *time.Timer
	pending *media.DetectedFile
}

// NewService creates the watching service. events and errs must be the
// channels the watcher was created with.
func NewService(w Watcher, events <-chan watcher.FileEvent, errs <-chan error, suppressed Suppressor, config ConfigSource, publisher Publisher, recorder *metrics.Recorder, retryDelay time.Duration) *Service {
	if retryDelay <= 0 {
		retryDelay = DefaultRetryDelay
	}
	return &Service{
		watcher:    w,
		events:     events,
		errs:       errs,
		suppressed: suppressed,
		config:     config,
		publisher:  publisher,
		metrics:    recorder,
		retryDelay: retryDelay,
		ctx:        context.Background(),
	}
}

// Run starts watching the configured root and consumes watcher output until
// ctx is cancelled.
func (s *Service) Run(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	if err := s.Restart("startup"); err != nil {
		slog.Warn("Watcher not started", "error", err)
	}

	for {
		select {
		case event := <-s.events:
			s.HandleEvent(event)
		case err := <-s.errs:
			slog.Error("Watcher failed, scheduling restart", "error", err, "delay", s.retryDelay)
			s.publisher.Publish(notifying.Failure("File watcher error", err))
			s.scheduleRetry()
		case <-ctx.Done():
			s.shutdown()
			return
		}
	}
}

// Restart re-creates the watcher on the current effective root, or stops it
// when no root is configured.
func (s *Service) Restart(reason string) error {
	s.restartMu.Lock()
	defer s.restartMu.Unlock()

	s.mu.Lock()
	ctx := s.ctx
	if s.retry != nil {
		s.retry.Stop()
		s.retry = nil
	}
	s.mu.Unlock()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	cfg, err := s.config.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to read folders: %w", err)
	}
	s.metrics.ObserveRestart(reason)

	root := cfg.WatchRoot()
	if root == "" {
		s.watcher.Stop()
		s.metrics.SetWatcherRunning(false)
		slog.Info("No folder configured, watcher stopped", "reason", reason)
		return nil
	}

	if err := s.watcher.Start(ctx, root); err != nil {
		s.metrics.SetWatcherRunning(false)
		slog.Error("Failed to start watcher", "root", root, "reason", reason, "error", err)
		s.publisher.Publish(notifying.Failure("Failed to watch "+root, err))
		s.scheduleRetry()
		return err
	}
	s.metrics.SetWatcherRunning(true)
	slog.Info("Watching folder", "root", root, "reason", reason)
	return nil
}

// SettingsChanged restarts the watcher when the watch or save path changed.
func (s *Service) SettingsChanged(old, updated media.WatchConfiguration) {
	s.publisher.Publish(notifying.ConfigChanged(updated))
	if old.WatchPath == updated.WatchPath && old.SavePath == updated.SavePath {
		return
	}
	if err := s.Restart("settings"); err != nil {
		slog.Warn("Watcher restart after settings change failed", "error", err)
	}
}

// HandleEvent filters a watcher event and makes it the pending file.
func (s *Service) HandleEvent(event watcher.FileEvent) {
	if s.suppressed.Contains(event.Path) {
		slog.Debug("Ignoring file written by the app", "path", event.Path)
		s.metrics.ObserveDetection(metrics.DetectionSuppressed)
		return
	}
	if !media.IsSupported(event.Path) {
		slog.Debug("Ignoring unsupported file", "path", event.Path)
		s.metrics.ObserveDetection(metrics.DetectionUnsupported)
		return
	}

	file := media.NewDetectedFile(event.Path)
	s.mu.Lock()
	if s.pending != nil {
		slog.Warn("New file replaces the one waiting for a decision", "previous", s.pending.Path, "path", file.Path)
		s.metrics.ObserveDetection(metrics.DetectionReplaced)
	}
	s.pending = &file
	s.mu.Unlock()

	s.metrics.ObserveDetection(metrics.DetectionEmitted)
	s.metrics.SetPending(true)
	s.publisher.Publish(notifying.FileDetected(file))
}

// Pending returns the file waiting for a decision.
func (s *Service) Pending() (media.DetectedFile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return media.DetectedFile{}, false
	}
	return *s.pending, true
}

// Lookup returns the pending file if its id matches.
func (s *Service) Lookup(id string) (media.DetectedFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return media.DetectedFile{}, media.ErrNoPendingFile
	}
	if id != "" && id != s.pending.ID {
		return media.DetectedFile{}, fmt.Errorf("%w: %s", media.ErrStaleDecision, id)
	}
	return *s.pending, nil
}

// ClearPending forgets the pending file if it is still the one with id.
func (s *Service) ClearPending(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil && s.pending.ID == id {
		s.pending = nil
		s.metrics.SetPending(false)
	}
}

// Status reports the watcher state.
func (s *Service) Status() Status {
	running, root := s.watcher.Running()
	s.mu.Lock()
	defer s.mu.Unlock()
	status := Status{
		Running:        running,
		Root:           root,
		RetryScheduled: s.retry != nil,
	}
	if s.pending != nil {
		file := *s.pending
		status.Pending = &file
	}
	return status
}

// scheduleRetry restarts the watcher after the retry delay unless a retry is already pending.
func (s *Service) scheduleRetry() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.retry != nil || s.ctx.Err() != nil {
		return
	}
	s.retry = time.AfterFunc(s.retryDelay, func() {
		s.mu.Lock()
		s.retry = nil
		s.mu.Unlock()
		if err := s.Restart("retry"); err != nil {
			slog.Warn("Watcher retry failed", "error", err)
		}
	})
}

func (s *Service) shutdown() {
	s.mu.Lock()
	if s.retry != nil {
		s.retry.Stop()
		s.retry = nil
	}
	s.mu.Unlock()
	s.watcher.Stop()
	s.metrics.SetWatcherRunning(false)
	slog.Info("Watching service stopped")
}
