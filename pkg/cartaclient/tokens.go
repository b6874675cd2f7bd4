package cartaclient

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// TokenStore keeps the bearer token between calls.
type TokenStore interface {
	Token() string
	SetToken(token string) error
	Clear() error
}

// MemoryTokenStore holds the token for the lifetime of the process.
type MemoryTokenStore struct {
	mu    sync.RWMutex
	token string
}

func NewMemoryTokenStore(token string) *MemoryTokenStore {
	return &MemoryTokenStore{token: token}
}

func (s *MemoryTokenStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *MemoryTokenStore) SetToken(token string) error {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

func (s *MemoryTokenStore) Clear() error {
	return s.SetToken("")
}

// FileTokenStore persists the token in a user-only readable file so CLI invocations
// share a login.
type FileTokenStore struct {
	mu   sync.Mutex
	path string
}

func NewFileTokenStore(path string) (*FileTokenStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("token file path is required")
	}
	return &FileTokenStore{path: path}, nil
}

func (s *FileTokenStore) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, err := os.ReadFile(s.path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (s *FileTokenStore) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if token == "" {
		return s.removeLocked()
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	return nil
}

func (s *FileTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked()
}

func (s *FileTokenStore) removeLocked() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}
