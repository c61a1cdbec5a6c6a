package watcher

import (
	"time"
)

// FileEventType represents the type of file system event
type FileEventType string

const (
	FileCreated FileEventType = "created"
)

// FileEvent is emitted once a new file has stopped changing.
type FileEvent struct {
	Path      string
	Filename  string
	EventType FileEventType
	Timestamp time.Time
}
