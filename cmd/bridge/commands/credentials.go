package commands

import (
	"context"
	"fmt"

	"github.com/nexus-wa-bridge/internal/application/session"
	"github.com/nexus-wa-bridge/internal/config"
	"github.com/nexus-wa-bridge/internal/infrastructure/dynamo"
	"github.com/nexus-wa-bridge/internal/infrastructure/filestore"
	"github.com/nexus-wa-bridge/internal/infrastructure/redisstore"
)

// openCredentialStore returns the store selected by CREDENTIAL_BACKEND. The
// returned func releases any connection the store holds.
func openCredentialStore(ctx context.Context, cfg *config.Config) (session.CredentialStore, func(), error) {
	noop := func() {}

	switch cfg.CredentialBackend {
	case config.CredentialBackendFile:
		return filestore.NewCredentialStore(cfg.CredentialDir, cfg.SessionIdentity), noop, nil

	case config.CredentialBackendDynamo:
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		// Creates the table if it doesn't exist.
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables)
		return dynamo.NewCredentialRepo(client, cfg.DynamoTables.Credentials, cfg.SessionIdentity), noop, nil

	case config.CredentialBackendRedis:
		client, err := redisstore.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() { _ = client.Close() }
		return redisstore.NewCredentialStore(client, cfg.SessionIdentity), closeFn, nil
	}
	return nil, nil, fmt.Errorf("unknown credential backend %q", cfg.CredentialBackend)
}
