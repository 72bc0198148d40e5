package redisstore

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*CredentialStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return NewCredentialStore(client, "default"), mr
}

func TestCredentialStore_LoadEmpty(t *testing.T) {
	store, _ := setupStore(t)

	blob, err := store.Load(context.Background())

	require.NoError(t, err)
	assert.Nil(t, blob)
}

func TestCredentialStore_SaveLoadWipe(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, []byte{0x00, 0x01, 0xff}))
	assert.True(t, mr.Exists(keyPrefix+"default"))

	blob, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x01, 0xff}, blob)

	require.NoError(t, store.Wipe(ctx))
	assert.False(t, mr.Exists(keyPrefix+"default"))

	blob, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, blob)
}

func TestCredentialStore_WipeMissingIsNoop(t *testing.T) {
	store, _ := setupStore(t)
	assert.NoError(t, store.Wipe(context.Background()))
}

func TestCredentialStore_ServerDown(t *testing.T) {
	store, mr := setupStore(t)
	mr.Close()

	_, err := store.Load(context.Background())
	assert.ErrorContains(t, err, "redis get credentials")
}

func TestNewClient(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client, err := NewClient(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	assert.NoError(t, client.Close())

	_, err = NewClient(context.Background(), "")
	assert.ErrorContains(t, err, "redis url is required")
}
