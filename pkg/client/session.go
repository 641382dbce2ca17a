package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Session is the persisted login of one CLI user. It is passed explicitly
// to the Client; nothing about it is global.
type Session struct {
	path string

	mu       sync.RWMutex
	token    string
	role     string
	fullName string
}

type sessionFile struct {
	Token    string `json:"token"`
	Role     string `json:"role"`
	FullName string `json:"full_name,omitempty"`
}

// NewSession binds a session to its token file. Call Load to read it.
func NewSession(path string) *Session {
	return &Session{path: path}
}

// DefaultSessionPath is ~/.config/portalctl/session.json.
func DefaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "portalctl", "session.json"), nil
}

// Load reads the token file. A missing file leaves the session signed out.
func (s *Session) Load() error {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	var f sessionFile
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("read session %s: %w", s.path, err)
	}
	s.mu.Lock()
	s.token, s.role, s.fullName = f.Token, f.Role, f.FullName
	s.mu.Unlock()
	return nil
}

func (s *Session) Save(token, role, fullName string) error {
	s.mu.Lock()
	s.token, s.role, s.fullName = token, role, fullName
	s.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	b, err := json.Marshal(sessionFile{Token: token, Role: role, FullName: fullName})
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, b, 0o600)
}

// Clear forgets the token in memory and on disk.
func (s *Session) Clear() error {
	s.mu.Lock()
	s.token, s.role, s.fullName = "", "", ""
	s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) Role() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

func (s *Session) FullName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fullName
}

func (s *Session) SignedIn() bool { return s.Token() != "" }
