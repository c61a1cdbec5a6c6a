package media

import "errors"

var (
	// ErrWatchSetup is returned when the watch root cannot be observed.
	ErrWatchSetup = errors.New("watch setup failed")
	// ErrRename is returned when the source file cannot be renamed.
	ErrRename = errors.New("rename failed")
	// ErrCopy is returned when the renamed file cannot be copied to its destination.
	ErrCopy = errors.New("copy failed")
	// ErrDelete is returned when a file cannot be removed.
	ErrDelete = errors.New("delete failed")
	// ErrConfiguration is returned when a decision is rejected before touching the filesystem.
	ErrConfiguration = errors.New("configuration error")
	// ErrNoPendingFile is returned when a decision arrives and nothing is waiting for one.
	ErrNoPendingFile = errors.New("no pending file")
	// ErrStaleDecision is returned when a decision targets a file that is no longer pending.
	ErrStaleDecision = errors.New("decision targets a file that is no longer pending")
)

// IsUserError reports whether err was rejected before any filesystem mutation.
func IsUserError(err error) bool {
	return errors.Is(err, ErrConfiguration) || errors.Is(err, ErrNoPendingFile) || errors.Is(err, ErrStaleDecision)
}
