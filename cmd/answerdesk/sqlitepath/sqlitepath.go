// Package sqlitepath places relative SQLite database paths for answerdesk
// commands.
package sqlitepath

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/papercomputeco/answerdesk/pkg/dotdir"
)

// DefaultName is used when no path is configured.
const DefaultName = "answerdesk.sqlite"

// Resolve returns the database file to open for path. Absolute paths, SQLite
// URIs and relative paths that already exist are returned unchanged. Any
// other bare file name is placed in the resolved .answerdesk/ directory so
// "serve" and "ask" share one database regardless of where they run.
func Resolve(path, configDir string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = DefaultName
	}

	if filepath.IsAbs(path) || strings.HasPrefix(path, ":memory:") || strings.HasPrefix(path, "file:") {
		return path, nil
	}
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if filepath.Base(path) != path {
		return path, nil
	}

	target, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return "", err
	}
	if target == "" {
		return path, nil
	}
	return filepath.Join(target, path), nil
}
