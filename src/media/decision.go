package media

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gosimple/unidecode"
)

// DecisionKind is the outcome the user picked for a detected file.
type DecisionKind string

const (
	DecisionRename   DecisionKind = "rename"
	DecisionCopyKeep DecisionKind = "copy_keep"
	DecisionCopyMove DecisionKind = "copy_move"
	DecisionDelete   DecisionKind = "delete"
	DecisionDismiss  DecisionKind = "dismiss"
)

// Decision is a tagged variant; NewName and DestinationDir are only read for
// the kinds that use them.
type Decision struct {
	Kind           DecisionKind `json:"kind"`
	NewName        string       `json:"newName,omitempty"`
	DestinationDir string       `json:"destinationDir,omitempty"`
}

// Rename renames the file in place.
func Rename(newName string) Decision {
	return Decision{Kind: DecisionRename, NewName: newName}
}

// CopyKeep renames the file and copies it to dir, keeping the renamed original.
func CopyKeep(newName, dir string) Decision {
	return Decision{Kind: DecisionCopyKeep, NewName: newName, DestinationDir: dir}
}

// CopyMove renames the file, copies it to dir and removes the renamed original.
func CopyMove(newName, dir string) Decision {
	return Decision{Kind: DecisionCopyMove, NewName: newName, DestinationDir: dir}
}

// Delete removes the file.
func Delete() Decision {
	return Decision{Kind: DecisionDelete}
}

// Dismiss forgets the pending file without touching it.
func Dismiss() Decision {
	return Decision{Kind: DecisionDismiss}
}

// ParseDecisionKind validates a kind coming from a transport.
func ParseDecisionKind(s string) (DecisionKind, error) {
	switch k := DecisionKind(strings.ToLower(strings.TrimSpace(s))); k {
	case DecisionRename, DecisionCopyKeep, DecisionCopyMove, DecisionDelete, DecisionDismiss:
		return k, nil
	default:
		return "", fmt.Errorf("%w: unknown decision %q, should be one of rename,copy_keep,copy_move,delete,dismiss", ErrConfiguration, s)
	}
}

// NeedsName reports whether the decision renames the file.
func (d Decision) NeedsName() bool {
	return d.Kind == DecisionRename || d.Kind == DecisionCopyKeep || d.Kind == DecisionCopyMove
}

// KeepOriginal reports whether the renamed source survives the decision.
func (d Decision) KeepOriginal() bool {
	return d.Kind != DecisionCopyMove
}

// Outcome describes what a decision did to the filesystem.
type Outcome struct {
	Decision    DecisionKind `json:"decision"`
	SourcePath  string       `json:"sourcePath"`
	RenamedPath string       `json:"renamedPath,omitempty"`
	DestPath    string       `json:"destPath,omitempty"`
	Message     string       `json:"message"`
}

var trailingExt = regexp.MustCompile(`\.[^/.]+$`)

// CleanName strips whatever extension the user typed. When asciify is set the
// name is transliterated to ASCII.
func CleanName(newName string, asciify bool) (string, error) {
	name := strings.TrimSpace(newName)
	name = trailingExt.ReplaceAllString(name, "")
	if asciify {
		name = unidecode.Unidecode(name)
	}
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return "", fmt.Errorf("%w: new name %q is empty", ErrConfiguration, newName)
	}
	if strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: new name %q must not contain path separators", ErrConfiguration, newName)
	}
	return name, nil
}

// TargetName joins a cleaned name with the extension of the source file.
func TargetName(sourcePath, cleanName string) string {
	return cleanName + filepath.Ext(sourcePath)
}
