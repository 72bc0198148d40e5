package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "wa-bridge:credentials:"

// CredentialStore keeps the session credential blob under one key per session identity.
type CredentialStore struct {
	client redis.Cmdable
	key    string
}

func NewCredentialStore(client redis.Cmdable, sessionID string) *CredentialStore {
	return &CredentialStore{client: client, key: keyPrefix + sessionID}
}

func (s *CredentialStore) Load(ctx context.Context) ([]byte, error) {
	blob, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get credentials: %w", err)
	}
	if len(blob) == 0 {
		return nil, nil
	}
	return blob, nil
}

// Save writes the blob without expiry.
func (s *CredentialStore) Save(ctx context.Context, blob []byte) error {
	if err := s.client.Set(ctx, s.key, blob, 0).Err(); err != nil {
		return fmt.Errorf("redis save credentials: %w", err)
	}
	return nil
}

func (s *CredentialStore) Wipe(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("redis wipe credentials: %w", err)
	}
	return nil
}
