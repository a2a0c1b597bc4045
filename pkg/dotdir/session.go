package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/Josn-deng/lux-xiaokai/pkg/llm"
)

const (
	sessionFile = "session.json"
)

// Session is the persisted state of an interactive chat: the conversation
// so far, oldest first, without the system prompt.
type Session struct {
	ID        string        `json:"id"`
	Model     string        `json:"model"`
	Messages  []llm.Message `json:"messages"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// NewSession starts an empty session for model.
func NewSession(model string) *Session {
	return &Session{
		ID:    uuid.NewString(),
		Model: model,
	}
}

// Append adds a turn to the session.
func (s *Session) Append(role, content string) {
	s.Messages = append(s.Messages, llm.NewMessage(role, content))
	s.UpdatedAt = time.Now().UTC()
}

// Trim keeps only the last n messages. n <= 0 keeps everything.
func (s *Session) Trim(n int) {
	if n <= 0 || len(s.Messages) <= n {
		return
	}
	s.Messages = append([]llm.Message(nil), s.Messages[len(s.Messages)-n:]...)
}

// LoadSession loads the chat session from a target .xiaokai/session.json.
// Returns nil, nil if no session exists.
func (m *Manager) LoadSession(overrideDir string) (*Session, error) {
	path, err := m.Path(overrideDir, sessionFile)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading chat session: %w", err)
	}

	session := &Session{}
	if err := json.Unmarshal(data, session); err != nil {
		return nil, fmt.Errorf("parsing chat session: %w", err)
	}

	return session, nil
}

// SaveSession persists the chat session to a target .xiaokai/session.json.
func (m *Manager) SaveSession(session *Session, overrideDir string) error {
	if session == nil {
		return errors.New("cannot save nil chat session")
	}

	path, err := m.Path(overrideDir, sessionFile)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling chat session: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing chat session: %w", err)
	}

	return nil
}

// ClearSession removes the chat session file. Returns nil if it doesn't
// exist.
func (m *Manager) ClearSession(overrideDir string) error {
	path, err := m.Path(overrideDir, sessionFile)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing chat session: %w", err)
	}

	return nil
}
