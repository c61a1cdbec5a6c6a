package notifying

import (
	"time"

	"github.com/contre95/snapsaver/src/media"
)

// Kind names the event carried by a Notification. The value is also the SSE event name.
type Kind string

const (
	KindFileDetected  Kind = "file_detected"
	KindSuccess       Kind = "success"
	KindError         Kind = "error"
	KindConfigChanged Kind = "config_changed"
)

// Notification is pushed to every presentation surface.
type Notification struct {
	ID       string                    `json:"id"`
	Kind     Kind                      `json:"kind"`
	Message  string                    `json:"message,omitempty"`
	File     *media.DetectedFile       `json:"file,omitempty"`
	Outcome  *media.Outcome            `json:"outcome,omitempty"`
	Settings *media.WatchConfiguration `json:"settings,omitempty"`
	Time     time.Time                 `json:"time"`
}

// FileDetected announces a file waiting for a decision.
func FileDetected(file media.DetectedFile) Notification {
	return Notification{Kind: KindFileDetected, File: &file, Message: "New file detected: " + file.Filename}
}

// Success reports a completed decision.
func Success(outcome media.Outcome) Notification {
	return Notification{Kind: KindSuccess, Outcome: &outcome, Message: outcome.Message}
}

// Failure reports an error. The message is what the user sees.
func Failure(message string, err error) Notification {
	if err != nil {
		message += ": " + err.Error()
	}
	return Notification{Kind: KindError, Message: message}
}

// ConfigChanged reports new directory settings.
func ConfigChanged(cfg media.WatchConfiguration) Notification {
	return Notification{Kind: KindConfigChanged, Settings: &cfg, Message: "Settings updated"}
}
