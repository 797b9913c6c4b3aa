// Package session persists the identity provider session between runs.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/brizzai/cogauth/internal/auth/models"
	"github.com/brizzai/cogauth/internal/config"
	"go.uber.org/fx"
	"gopkg.in/yaml.v3"
)

// Store keeps the tokens of the signed-in user
type Store interface {
	// Load returns models.ErrNoSession when nothing is stored
	Load() (*models.Tokens, error)
	Save(tokens *models.Tokens) error
	Clear() error
}

// FileStore keeps the session in a YAML file readable only by the owner
type FileStore struct {
	path string
}

func NewFileStore(cfg *config.SessionConfig) *FileStore {
	return &FileStore{path: cfg.Path}
}

func (s *FileStore) Load() (*models.Tokens, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, models.ErrNoSession
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var tokens models.Tokens
	if err := yaml.Unmarshal(data, &tokens); err != nil {
		return nil, fmt.Errorf("failed to parse session file %s: %w", s.path, err)
	}
	if tokens.IDToken == "" && tokens.RefreshToken == "" {
		return nil, models.ErrNoSession
	}
	return &tokens, nil
}

func (s *FileStore) Save(tokens *models.Tokens) error {
	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("failed to create session directory %s: %w", dir, err)
		}
	}

	data, err := yaml.Marshal(tokens)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	// Write next to the target and rename so a crash never leaves half a file
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// MemoryStore keeps the session for the lifetime of the process
type MemoryStore struct {
	mu     sync.Mutex
	tokens *models.Tokens
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load() (*models.Tokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokens == nil {
		return nil, models.ErrNoSession
	}
	copied := *s.tokens
	return &copied, nil
}

func (s *MemoryStore) Save(tokens *models.Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *tokens
	s.tokens = &copied
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = nil
	return nil
}

// Module provides the file backed session store
var Module = fx.Module("session",
	fx.Provide(
		fx.Annotate(
			NewFileStore,
			fx.As(new(Store)),
		),
	),
)
