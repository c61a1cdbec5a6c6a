package media

// FileManager performs the filesystem steps of a decision.
type FileManager interface {
	// Rename moves src to dst and fails if dst already exists.
	Rename(src, dst string) error
	// Copy copies the regular file src to dst.
	Copy(src, dst string) error
	// Delete removes path. Removing a missing file is an error.
	Delete(path string) error
}
