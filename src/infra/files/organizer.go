package files

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Organizer is the local filesystem implementation of media.FileManager.
type Organizer struct{}

// NewOrganizer creates a new file organizer.
func NewOrganizer() *Organizer {
	return &Organizer{}
}

// Rename moves src to dst. It refuses to replace an existing dst.
func (o *Organizer) Rename(src, dst string) error {
	srcInfo, err := os.Lstat(src)
	if err != nil {
		return err
	}
	if src == dst {
		return nil
	}
	dstInfo, err := os.Lstat(dst)
	switch {
	case err == nil:
		// On case-insensitive filesystems a case-only rename finds src itself.
		if !strings.EqualFold(src, dst) || !os.SameFile(srcInfo, dstInfo) {
			return &fs.PathError{Op: "rename", Path: dst, Err: fs.ErrExist}
		}
	case !errors.Is(err, fs.ErrNotExist):
		return err
	}
	return os.Rename(src, dst)
}

// Copy copies src to dst through a hidden temporary file in dst's directory,
// so a failed copy never leaves a partial dst behind. An existing dst is replaced.
func (o *Organizer) Copy(src, dst string) error {
	sourceFileStat, err := os.Stat(src)
	if err != nil {
		return err
	}
	if !sourceFileStat.Mode().IsRegular() {
		return fmt.Errorf("%s is not a regular file", src)
	}

	source, err := os.Open(src)
	if err != nil {
		return err
	}
	defer source.Close()

	dir := filepath.Dir(dst)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			if err := os.Remove(tmpName); err != nil && !errors.Is(err, fs.ErrNotExist) {
				slog.Warn("Organizer.Copy: failed to remove temporary file", "path", tmpName, "error", err)
			}
		}
	}()

	if _, err := io.Copy(tmp, source); err != nil {
		return err
	}
	if err := tmp.Chmod(sourceFileStat.Mode().Perm()); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return err
	}
	committed = true
	return nil
}

// Delete removes path. A missing file is reported, not ignored.
func (o *Organizer) Delete(path string) error {
	return os.Remove(path)
}
