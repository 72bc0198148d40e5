package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// CredentialStore keeps the credential blob in a single file inside dir.
type CredentialStore struct {
	path string
}

func NewCredentialStore(dir, sessionID string) *CredentialStore {
	return &CredentialStore{path: filepath.Join(dir, sessionID+".creds")}
}

func (s *CredentialStore) Load(_ context.Context) ([]byte, error) {
	blob, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	if len(blob) == 0 {
		return nil, nil
	}
	return blob, nil
}

func (s *CredentialStore) Save(_ context.Context, blob []byte) error {
	if err := writeFileAtomic(s.path, blob, 0o600); err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

func (s *CredentialStore) Wipe(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("wipe credentials: %w", err)
	}
	return nil
}
