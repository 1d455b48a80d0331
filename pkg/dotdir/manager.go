// Package dotdir manages the .answerdesk/ and ~/.answerdesk directories.
//
// The directory holds config.toml and the saved chat session used to resume
// "answerdesk chat" against a running server.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DirName is the name of the answerdesk directory.
	DirName = ".answerdesk"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .answerdesk/ directory.
// Order of precedence is as follows:
//  1. Provided override (created if missing)
//  2. Local ./.answerdesk/ dir
//  3. Home ~/.answerdesk/ dir
//
// When none of these exist an empty path is returned and callers fall back
// to defaults.
func (m *Manager) Target(overrideDir string) (string, error) {
	if overrideDir != "" {
		if err := os.MkdirAll(overrideDir, 0o755); err != nil {
			return "", fmt.Errorf("creating answerdesk directory %s: %w", overrideDir, err)
		}
		return filepath.Abs(overrideDir)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	if local := filepath.Join(cwd, DirName); isDir(local) {
		return local, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	if global := filepath.Join(home, DirName); isDir(global) {
		return global, nil
	}

	return "", nil
}

// Init creates a .answerdesk/ directory under parent (the working directory
// when empty) and returns its absolute path.
func (m *Manager) Init(parent string) (string, error) {
	if parent == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		parent = cwd
	}

	dir := filepath.Join(parent, DirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating answerdesk directory %s: %w", dir, err)
	}
	return filepath.Abs(dir)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
