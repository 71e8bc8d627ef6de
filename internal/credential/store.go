// Package credential holds the single API credential for the remote image
// service. Resolution precedence on startup: externally configured value
// (unless it's the known placeholder) > previously saved value > none.
// When none resolves, every API-issuing action must be blocked until the
// user saves one.
package credential

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/omerdahan/angle-studio/internal/storage"
)

// Placeholder is the sentinel an unconfigured deployment ships with; it is
// treated as if no environment credential were set at all.
const Placeholder = "PLACEHOLDER_API_KEY"

// Credential sources, reported to the UI so it can say where the active key
// came from without ever revealing it.
const (
	SourceEnv   = "env"
	SourceSaved = "saved"
	SourceNone  = ""
)

// ErrEmptyCredential is returned when Save is called with blank input.
var ErrEmptyCredential = errors.New("credential is empty")

// Store is the single holder of the API credential.
type Store struct {
	mu     sync.RWMutex
	repo   storage.CredentialRepository
	value  string
	source string
	logger *zap.Logger
}

// NewStore resolves the active credential once. envValue is the externally
// configured key (possibly empty or the placeholder); the persisted value is
// consulted only when the environment doesn't supply a usable one. A
// persistence read failure is treated as absence and logged.
func NewStore(ctx context.Context, envValue string, repo storage.CredentialRepository, logger *zap.Logger) *Store {
	s := &Store{repo: repo, logger: logger}

	if envValue != "" && envValue != Placeholder {
		s.value = envValue
		s.source = SourceEnv
		return s
	}

	saved, err := repo.Get(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			logger.Warn("reading saved credential", zap.Error(err))
		}
		return s
	}

	s.value = saved
	s.source = SourceSaved
	return s
}

// Resolve returns the active credential and whether one is present.
func (s *Store) Resolve() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value, s.value != ""
}

// Source reports where the active credential came from ("env", "saved", or
// "" when none is set).
func (s *Store) Source() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// Save trims surrounding whitespace, rejects empty input, persists the value
// and makes it active immediately.
func (s *Store) Save(ctx context.Context, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return ErrEmptyCredential
	}

	if err := s.repo.Put(ctx, value); err != nil {
		return err
	}

	s.mu.Lock()
	s.value = value
	s.source = SourceSaved
	s.mu.Unlock()
	return nil
}
