package resolving

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/contre95/snapsaver/src/features/metrics"
	"github.com/contre95/snapsaver/src/features/notifying"
	"github.com/contre95/snapsaver/src/media"
)

// PendingSource hands out the file waiting for a decision.
type PendingSource interface {
	Lookup(id string) (media.DetectedFile, error)
	ClearPending(id string)
}

// Suppressor records paths the pipeline is about to create.
type Suppressor interface {
	Mark(path string)
}

// ConfigSource provides the default destinations.
type ConfigSource interface {
	Snapshot(ctx context.Context) (media.WatchConfiguration, error)
}

// Publisher delivers notifications to the presentation layer.
type Publisher interface {
	Publish(n notifying.Notification) notifying.Notification
}

// Service runs user decisions against the filesystem. Decisions run one at a time.
type Service struct {
	files      media.FileManager
	suppressed Suppressor
	config     ConfigSource
	pending    PendingSource
	publisher  Publisher
	history    media.History
	metrics    *metrics.Recorder
	asciify    func() bool

	mu sync.Mutex
}

// NewService creates the resolution pipeline. asciify is read on every
// decision so config changes apply without a restart; nil means never.
func NewService(files media.FileManager, suppressed Suppressor, config ConfigSource, pending PendingSource, publisher Publisher, history media.History, recorder *metrics.Recorder, asciify func() bool) *Service {
	if asciify == nil {
		asciify = func() bool { return false }
	}
	return &Service{
		files:      files,
		suppressed: suppressed,
		config:     config,
		pending:    pending,
		publisher:  publisher,
		history:    history,
		metrics:    recorder,
		asciify:    asciify,
	}
}

// ResolvePending applies decision to the pending file identified by id. An
// empty id targets whatever file is pending. The pending file is cleared
// unless the decision was rejected before touching the filesystem.
func (s *Service) ResolvePending(ctx context.Context, id string, decision media.Decision) (media.Outcome, error) {
	file, err := s.pending.Lookup(id)
	if err != nil {
		s.publisher.Publish(notifying.Failure(failureMessage(decision.Kind), err))
		return media.Outcome{Decision: decision.Kind}, err
	}
	outcome, err := s.Resolve(ctx, file.Path, decision)
	if err == nil || !media.IsUserError(err) {
		s.pending.ClearPending(file.ID)
	}
	return outcome, err
}

// DeleteFile removes path. If it is the pending file, the pending slot is cleared.
func (s *Service) DeleteFile(ctx context.Context, path string) (media.Outcome, error) {
	if path == "" {
		err := fmt.Errorf("%w: no path given", media.ErrConfiguration)
		s.publisher.Publish(notifying.Failure(failureMessage(media.DecisionDelete), err))
		return media.Outcome{Decision: media.DecisionDelete}, err
	}
	outcome, err := s.Resolve(ctx, path, media.Delete())
	if file, lookupErr := s.pending.Lookup(""); lookupErr == nil && filepath.Clean(file.Path) == filepath.Clean(path) {
		s.pending.ClearPending(file.ID)
	}
	return outcome, err
}

// Resolve runs decision against sourcePath and reports the result.
func (s *Service) Resolve(ctx context.Context, sourcePath string, decision media.Decision) (media.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	outcome, err := s.run(ctx, sourcePath, decision)
	s.metrics.ObserveResolution(string(decision.Kind), err != nil, time.Since(start))
	s.record(ctx, outcome, err)

	if err != nil {
		slog.Error("Service.Resolve: decision failed", "decision", decision.Kind, "path", sourcePath, "error", err)
		s.publisher.Publish(notifying.Failure(failureMessage(decision.Kind), err))
		return outcome, err
	}
	slog.Info("Service.Resolve: decision applied", "decision", decision.Kind, "path", sourcePath, "message", outcome.Message)
	s.publisher.Publish(notifying.Success(outcome))
	return outcome, nil
}

// PendingFile returns the file waiting for a decision.
func (s *Service) PendingFile() (media.DetectedFile, error) {
	return s.pending.Lookup("")
}

// History returns the most recent decisions, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]media.Record, error) {
	return s.history.ListRecords(ctx, limit)
}

func (s *Service) run(ctx context.Context, sourcePath string, decision media.Decision) (media.Outcome, error) {
	outcome := media.Outcome{Decision: decision.Kind, SourcePath: sourcePath}

	switch decision.Kind {
	case media.DecisionDismiss:
		outcome.Message = "File dismissed"
		return outcome, nil

	case media.DecisionDelete:
		if err := s.files.Delete(sourcePath); err != nil {
			return outcome, fmt.Errorf("%w: %s: %w", media.ErrDelete, sourcePath, err)
		}
		outcome.Message = "File deleted successfully"
		return outcome, nil

	case media.DecisionRename, media.DecisionCopyKeep, media.DecisionCopyMove:
		return s.save(ctx, sourcePath, decision, outcome)

	default:
		_, err := media.ParseDecisionKind(string(decision.Kind))
		return outcome, err
	}
}

// save renames the source in place and, for the copy kinds, copies it to the
// destination and optionally removes the renamed original. Steps are not
// rolled back: a failure leaves every earlier step applied.
func (s *Service) save(ctx context.Context, sourcePath string, decision media.Decision, outcome media.Outcome) (media.Outcome, error) {
	name, err := media.CleanName(decision.NewName, s.asciify())
	if err != nil {
		return outcome, err
	}
	if abs, err := filepath.Abs(sourcePath); err == nil {
		sourcePath = abs
	}
	target := media.TargetName(sourcePath, name)
	renamedPath := filepath.Join(filepath.Dir(sourcePath), target)

	var destPath string
	if decision.Kind != media.DecisionRename {
		dir, err := s.destinationDir(ctx, decision)
		if err != nil {
			return outcome, err
		}
		destPath = filepath.Join(dir, target)
	}

	s.suppressed.Mark(renamedPath)
	if destPath != "" {
		s.suppressed.Mark(destPath)
	}

	if err := s.files.Rename(sourcePath, renamedPath); err != nil {
		return outcome, fmt.Errorf("%w: %s to %s: %w", media.ErrRename, sourcePath, renamedPath, err)
	}
	outcome.RenamedPath = renamedPath

	if destPath == "" {
		outcome.Message = "File renamed to " + target
		return outcome, nil
	}

	// A destination equal to the renamed file means the file is already where it belongs.
	if destPath != renamedPath {
		if err := s.files.Copy(renamedPath, destPath); err != nil {
			return outcome, fmt.Errorf("%w: %s to %s: %w", media.ErrCopy, renamedPath, destPath, err)
		}
		outcome.DestPath = destPath

		if !decision.KeepOriginal() {
			if err := s.files.Delete(renamedPath); err != nil {
				return outcome, fmt.Errorf("%w: %s: %w", media.ErrDelete, renamedPath, err)
			}
		}
	}
	outcome.DestPath = destPath

	switch {
	case destPath == renamedPath && renamedPath == sourcePath:
		outcome.Message = "File already saved as " + target
	case decision.KeepOriginal():
		outcome.Message = "File copied to " + target
	default:
		outcome.Message = "File moved to " + target
	}
	return outcome, nil
}

// destinationDir picks the explicit destination, falling back to the copy
// folder for copy_keep and the save folder for copy_move. The result is an
// absolute path to an existing directory.
func (s *Service) destinationDir(ctx context.Context, decision media.Decision) (string, error) {
	if decision.DestinationDir != "" {
		return existingDir(decision.DestinationDir)
	}
	cfg, err := s.config.Snapshot(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read folders: %w", media.ErrConfiguration, err)
	}
	dir := cfg.CopyPath
	label := "copy"
	if decision.Kind == media.DecisionCopyMove {
		dir = cfg.SavePath
		label = "save"
	}
	if dir == "" {
		return "", fmt.Errorf("%w: no destination given and no %s folder configured", media.ErrConfiguration, label)
	}
	return existingDir(dir)
}

func existingDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("%w: invalid destination %s: %w", media.ErrConfiguration, dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: destination %s: %w", media.ErrConfiguration, abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: destination %s is not a directory", media.ErrConfiguration, abs)
	}
	return abs, nil
}

func (s *Service) record(ctx context.Context, outcome media.Outcome, err error) {
	if s.history == nil {
		return
	}
	record := media.Record{
		Decision:   outcome.Decision,
		SourcePath: outcome.SourcePath,
		ResultPath: resultPath(outcome),
		Failed:     err != nil,
		Message:    outcome.Message,
		CreatedAt:  time.Now(),
	}
	if err != nil {
		record.Message = err.Error()
	}
	if herr := s.history.AddRecord(ctx, record); herr != nil {
		slog.Warn("Service.Resolve: failed to record history", "error", herr)
	}
}

func resultPath(outcome media.Outcome) string {
	if outcome.DestPath != "" {
		return outcome.DestPath
	}
	return outcome.RenamedPath
}

func failureMessage(kind media.DecisionKind) string {
	if kind == media.DecisionDelete {
		return "Failed to delete file"
	}
	return "Failed to save file"
}

// statusFor maps a pipeline error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, media.ErrNoPendingFile), errors.Is(err, media.ErrStaleDecision):
		return 409
	case errors.Is(err, media.ErrConfiguration):
		return 400
	default:
		return 500
	}
}
