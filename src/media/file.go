package media

import (
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// DetectedFile is a new media file waiting for the user to decide what to do with it.
type DetectedFile struct {
	ID         string    `json:"id"`
	Path       string    `json:"path"`
	Filename   string    `json:"filename"`
	DetectedAt time.Time `json:"detectedAt"`
}

// NewDetectedFile creates a DetectedFile for the given absolute path.
func NewDetectedFile(path string) DetectedFile {
	return DetectedFile{
		ID:         uuid.New().String(),
		Path:       path,
		Filename:   filepath.Base(path),
		DetectedAt: time.Now(),
	}
}

// WatchConfiguration holds the three user configured directories.
// An empty string means the directory is not set.
type WatchConfiguration struct {
	WatchPath string `json:"watchPath"`
	SavePath  string `json:"savePath"`
	CopyPath  string `json:"copyPath"`
}

// WatchRoot returns the directory the watcher should observe.
// The watch path wins; the save path is used when no watch path was picked.
func (c WatchConfiguration) WatchRoot() string {
	if c.WatchPath != "" {
		return c.WatchPath
	}
	return c.SavePath
}
