package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jsamuelsen/session-relay/internal/domain"
)

// filePerm keeps the session readable by the relay's user only.
const filePerm fs.FileMode = 0o600

// fileRecord is the on-disk layout.
type fileRecord struct {
	AccessToken  string          `json:"accessToken,omitempty"`
	RefreshToken string          `json:"refreshToken,omitempty"`
	UserID       string          `json:"userId,omitempty"`
	User         json.RawMessage `json:"user,omitempty"`
	IssuedAt     time.Time       `json:"issuedAt,omitzero"`
}

// FileStore persists credentials as a JSON file. Writes go to a temp file in
// the same directory and are renamed into place, so a crash never leaves a
// half-written session.
type FileStore struct {
	mu   sync.Mutex
	path string
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a store at path, creating the parent directory.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("file store path is required")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating session directory: %w", err)
	}

	return &FileStore{path: path}, nil
}

// AccessToken reads the access token from the session file. A missing
// file means no session.
func (s *FileStore) AccessToken(ctx context.Context) (string, error) {
	creds, err := s.Snapshot(ctx)
	return creds.AccessToken, err
}

// RefreshToken reads the refresh token from the session file.
func (s *FileStore) RefreshToken(ctx context.Context) (string, error) {
	creds, err := s.Snapshot(ctx)
	return creds.RefreshToken, err
}

// SetCredentials merges update into the session file and rewrites it
// atomically.
func (s *FileStore) SetCredentials(_ context.Context, update domain.CredentialUpdate) error {
	if err := update.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.load()
	if err != nil {
		return err
	}

	return s.save(creds.Apply(update))
}

// Clear removes the session file. Clearing an absent session is not an
// error.
func (s *FileStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return unavailable("removing session file", err)
	}

	return nil
}

// Snapshot reads the whole session file.
func (s *FileStore) Snapshot(context.Context) (domain.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load()
}

// Name implements ports.HealthChecker.
func (s *FileStore) Name() string { return checkName }

// Check verifies the session directory is writable.
func (s *FileStore) Check(context.Context) error {
	f, err := os.CreateTemp(filepath.Dir(s.path), ".health-*")
	if err != nil {
		return unavailable("probing session directory", err)
	}

	name := f.Name()
	_ = f.Close()

	return os.Remove(name)
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }

// load reads the file. A missing file is an empty session. Caller holds mu.
func (s *FileStore) load() (domain.Credentials, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Credentials{}, nil
	}

	if err != nil {
		return domain.Credentials{}, unavailable("reading session file", err)
	}

	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.Credentials{}, unavailable("decoding session file", err)
	}

	return domain.Credentials{
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		UserID:       rec.UserID,
		UserData:     rec.User,
		IssuedAt:     rec.IssuedAt,
	}, nil
}

// save atomically replaces the file. Caller holds mu.
func (s *FileStore) save(creds domain.Credentials) error {
	data, err := json.Marshal(fileRecord{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		UserID:       creds.UserID,
		User:         creds.UserData,
		IssuedAt:     creds.IssuedAt,
	})
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return unavailable("creating temp file", err)
	}

	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := tmp.Chmod(filePerm); err != nil {
		_ = tmp.Close()
		return unavailable("securing temp file", err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return unavailable("writing temp file", err)
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return unavailable("syncing temp file", err)
	}

	if err := tmp.Close(); err != nil {
		return unavailable("closing temp file", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return unavailable("replacing session file", err)
	}

	return nil
}
