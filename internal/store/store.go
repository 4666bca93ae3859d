// Package store provides ConfigStore backends for key records: in-memory,
// SQL (SQLite/Postgres), Redis, MongoDB, Vault KV v2 and DynamoDB, plus an
// instrumented wrapper that records metrics and trace spans.
package store

import (
	"context"
	"fmt"
	"os"

	"github.com/ferro-labs/keyguard"
)

// Store is a ConfigStore that owns a connection and must be closed.
type Store interface {
	keyguard.ConfigStore
	Close() error
}

// Lister is implemented by backends that can enumerate stored keys.
// Soft-deleted slots are still listed.
type Lister interface {
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Open creates the backend selected by cfg.
func Open(ctx context.Context, cfg keyguard.StoreConfig) (Store, error) {
	switch cfg.Backend {
	case "", keyguard.BackendMemory:
		return NewMemory(), nil
	case keyguard.BackendSQLite:
		return NewSQLiteStore(ctx, cfg.DSN, cfg.Table)
	case keyguard.BackendPostgres:
		return NewPostgresStore(ctx, cfg.DSN, cfg.Table)
	case keyguard.BackendRedis:
		return NewRedisStore(ctx, RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: firstNonEmpty(cfg.Redis.Password, os.Getenv("REDIS_PASSWORD")),
			DB:       cfg.Redis.DB,
			TLS:      cfg.Redis.TLS,
		})
	case keyguard.BackendMongo:
		return NewMongoStore(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
	case keyguard.BackendVault:
		return NewVaultStore(cfg.Vault.Address, firstNonEmpty(cfg.Vault.Token, os.Getenv("VAULT_TOKEN")), cfg.Vault.Mount)
	case keyguard.BackendDynamoDB:
		return NewDynamoDBStore(ctx, DynamoDBOptions{
			Table:    cfg.Table,
			Region:   cfg.DynamoDB.Region,
			Endpoint: cfg.DynamoDB.Endpoint,

			AccessKeyID:     cfg.DynamoDB.AccessKeyID,
			SecretAccessKey: cfg.DynamoDB.SecretAccessKey,
		})
	default:
		return nil, fmt.Errorf("unknown store backend: %q", cfg.Backend)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
