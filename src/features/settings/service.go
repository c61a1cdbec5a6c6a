package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/contre95/snapsaver/src/media"
)

// Keys persisted in the settings store.
const (
	KeyWatchPath = "watchPath"
	KeySavePath  = "savePath"
	KeyCopyPath  = "copyPath"
)

// Store is a persistent key-value store. Absent keys read as not found.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// FolderPicker asks the user for a directory. ok is false when the user cancelled.
type FolderPicker interface {
	PickFolder(ctx context.Context, title string) (path string, ok bool, err error)
}

// PathPicker is a FolderPicker whose answer is already known, as when a
// client sends the chosen path along with the request. An empty path cancels.
type PathPicker string

func (p PathPicker) PickFolder(ctx context.Context, title string) (string, bool, error) {
	if p == "" {
		return "", false, nil
	}
	return string(p), true, nil
}

// ChangeFunc is called after the directory settings changed.
type ChangeFunc func(old, updated media.WatchConfiguration)

// Service reads and writes the three user directories.
type Service struct {
	store Store

	mu        sync.Mutex
	observers []ChangeFunc
}

// NewService creates a new settings service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// OnChange registers fn to run after every successful change.
func (s *Service) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Snapshot returns the current directory configuration.
func (s *Service) Snapshot(ctx context.Context) (media.WatchConfiguration, error) {
	var cfg media.WatchConfiguration
	var err error
	if cfg.WatchPath, err = s.get(ctx, KeyWatchPath); err != nil {
		return cfg, err
	}
	if cfg.SavePath, err = s.get(ctx, KeySavePath); err != nil {
		return cfg, err
	}
	if cfg.CopyPath, err = s.get(ctx, KeyCopyPath); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// GetWatchPath returns the watch path or an empty string.
func (s *Service) GetWatchPath(ctx context.Context) (string, error) {
	return s.get(ctx, KeyWatchPath)
}

// GetSavePath returns the save path or an empty string.
func (s *Service) GetSavePath(ctx context.Context) (string, error) {
	return s.get(ctx, KeySavePath)
}

// GetCopyPath returns the copy path or an empty string.
func (s *Service) GetCopyPath(ctx context.Context) (string, error) {
	return s.get(ctx, KeyCopyPath)
}

// SelectWatchFolder asks picker for the watch folder and stores it.
// The returned path is empty when the user cancelled.
func (s *Service) SelectWatchFolder(ctx context.Context, picker FolderPicker) (string, error) {
	return s.selectFolder(ctx, picker, KeyWatchPath, "Select folder to watch")
}

// SelectSaveFolder asks picker for the save folder and stores it.
func (s *Service) SelectSaveFolder(ctx context.Context, picker FolderPicker) (string, error) {
	return s.selectFolder(ctx, picker, KeySavePath, "Select save folder")
}

// SelectCopyFolder asks picker for the copy folder and stores it.
func (s *Service) SelectCopyFolder(ctx context.Context, picker FolderPicker) (string, error) {
	return s.selectFolder(ctx, picker, KeyCopyPath, "Select copy folder")
}

// SetCopyPath stores path as the copy folder. An empty path clears it.
func (s *Service) SetCopyPath(ctx context.Context, path string) error {
	if path == "" {
		return s.set(ctx, KeyCopyPath, "")
	}
	dir, err := validateDir(path)
	if err != nil {
		return err
	}
	return s.set(ctx, KeyCopyPath, dir)
}

// SetPath stores a directory under one of the known keys. Used by the CLI.
func (s *Service) SetPath(ctx context.Context, key, path string) error {
	if !isKnownKey(key) {
		return fmt.Errorf("%w: unknown setting %q, should be one of %s,%s,%s", media.ErrConfiguration, key, KeyWatchPath, KeySavePath, KeyCopyPath)
	}
	if path == "" {
		return s.set(ctx, key, "")
	}
	dir, err := validateDir(path)
	if err != nil {
		return err
	}
	return s.set(ctx, key, dir)
}

func (s *Service) selectFolder(ctx context.Context, picker FolderPicker, key, title string) (string, error) {
	path, ok, err := picker.PickFolder(ctx, title)
	if err != nil {
		return "", fmt.Errorf("failed to pick folder: %w", err)
	}
	if !ok {
		slog.Debug("Folder selection cancelled", "key", key)
		return "", nil
	}
	dir, err := validateDir(path)
	if err != nil {
		return "", err
	}
	if err := s.set(ctx, key, dir); err != nil {
		return "", err
	}
	return dir, nil
}

func (s *Service) get(ctx context.Context, key string) (string, error) {
	value, _, err := s.store.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return value, nil
}

// set writes key and notifies observers with the before and after snapshots.
func (s *Service) set(ctx context.Context, key, value string) error {
	old, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}
	if value == "" {
		err = s.store.Delete(ctx, key)
	} else {
		err = s.store.Set(ctx, key, value)
	}
	if err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	updated, err := s.Snapshot(ctx)
	if err != nil {
		return err
	}
	slog.Info("Setting updated", "key", key, "value", value)

	s.mu.Lock()
	observers := append([]ChangeFunc(nil), s.observers...)
	s.mu.Unlock()
	for _, fn := range observers {
		fn(old, updated)
	}
	return nil
}

func isKnownKey(key string) bool {
	return key == KeyWatchPath || key == KeySavePath || key == KeyCopyPath
}

// validateDir returns the absolute form of path if it is an existing directory.
func validateDir(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: invalid path %q: %w", media.ErrConfiguration, path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: folder %s does not exist", media.ErrConfiguration, abs)
		}
		return "", fmt.Errorf("%w: %s: %w", media.ErrConfiguration, abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a folder", media.ErrConfiguration, abs)
	}
	return abs, nil
}
