// Package security validates user-supplied output paths.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ContainedPath joins name onto dir and rejects the result if it would land
// outside dir. The check is lexical, so it holds for in-memory file systems
// too; symlinks inside dir are not followed.
func ContainedPath(dir, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty file name")
	}
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("path traversal detected: %s is absolute", name)
	}
	rel := filepath.Clean(name)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected: %s attempts to escape %s", name, dir)
	}
	return filepath.Join(dir, rel), nil
}
