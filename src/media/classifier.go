package media

import (
	"path/filepath"
	"strings"
)

var supportedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".mov":  true,
}

// IsSupported reports whether path has one of the media extensions we prompt for.
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return supportedExtensions[ext]
}

// SupportedExtensions returns the allow-list, without the leading dot.
func SupportedExtensions() []string {
	return []string{"jpg", "jpeg", "png", "gif", "mov"}
}

// IsHidden reports whether any element of path below root is a dotfile or dot-directory.
func IsHidden(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = path
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if len(part) > 1 && strings.HasPrefix(part, ".") && part != ".." {
			return true
		}
	}
	return false
}
