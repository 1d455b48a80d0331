package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	sessionFile = "session.json"
)

// ChatSession is the identity "answerdesk chat" resumes between runs.
type ChatSession struct {
	// UserID keys the server-side conversation memory.
	UserID string `json:"user_id"`

	// SessionID groups chat logs. Empty until the server assigns one.
	SessionID string `json:"session_id,omitempty"`
}

// LoadChatSession loads the saved chat session from the target directory.
// Returns nil, nil if no session has been saved.
func (m *Manager) LoadChatSession(overrideDir string) (*ChatSession, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		return nil, nil
	}

	data, err := os.ReadFile(filepath.Join(dir, sessionFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading chat session: %w", err)
	}

	session := &ChatSession{}
	if err := json.Unmarshal(data, session); err != nil {
		return nil, fmt.Errorf("parsing chat session: %w", err)
	}

	return session, nil
}

// SaveChatSession persists the chat session to the target directory.
func (m *Manager) SaveChatSession(session *ChatSession, overrideDir string) error {
	if session == nil {
		return errors.New("cannot save nil chat session")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}
	if dir == "" {
		return errors.New("no .answerdesk directory found, run \"answerdesk init\" first")
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling chat session: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, sessionFile), data, 0o600); err != nil {
		return fmt.Errorf("writing chat session: %w", err)
	}

	return nil
}

// ClearChatSession removes the saved chat session so the next chat starts
// fresh. Returns nil if nothing was saved.
func (m *Manager) ClearChatSession(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}
	if dir == "" {
		return nil
	}

	if err := os.Remove(filepath.Join(dir, sessionFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing chat session: %w", err)
	}

	return nil
}
