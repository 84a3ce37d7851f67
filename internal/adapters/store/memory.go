package store

import (
	"context"
	"sync"

	"github.com/jsamuelsen/session-relay/internal/domain"
)

// MemoryStore keeps credentials for the lifetime of the process.
type MemoryStore struct {
	mu    sync.RWMutex
	creds domain.Credentials
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// AccessToken returns the stored access token, or "" without a session.
func (s *MemoryStore) AccessToken(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.creds.AccessToken, nil
}

// RefreshToken returns the stored refresh token, or "" without a session.
func (s *MemoryStore) RefreshToken(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.creds.RefreshToken, nil
}

// SetCredentials merges update into the session held in memory.
func (s *MemoryStore) SetCredentials(_ context.Context, update domain.CredentialUpdate) error {
	if err := update.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.creds = s.creds.Apply(update)

	return nil
}

// Clear forgets the session.
func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.creds = domain.Credentials{}

	return nil
}

// Snapshot returns a copy of the session.
func (s *MemoryStore) Snapshot(context.Context) (domain.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.creds, nil
}

// Name implements ports.HealthChecker.
func (s *MemoryStore) Name() string { return checkName }

// Check implements ports.HealthChecker. Memory is always available.
func (s *MemoryStore) Check(context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }
