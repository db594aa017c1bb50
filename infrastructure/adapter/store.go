// Package adapter selects the credential store named by configuration.
package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/authgreet/authgreet/application/port/outbound"
	"github.com/authgreet/authgreet/infrastructure/adapter/memory"
	"github.com/authgreet/authgreet/infrastructure/adapter/postgres"
	"github.com/authgreet/authgreet/infrastructure/adapter/redis"
	"github.com/authgreet/authgreet/infrastructure/config"
	"github.com/authgreet/authgreet/infrastructure/service/logger"
	"github.com/authgreet/authgreet/migrations"
)

// OpenUserRepository connects the configured store. The returned close func
// releases its connection and is never nil. With migrate set, a postgres
// store has pending migrations applied before it is returned.
func OpenUserRepository(ctx context.Context, cfg *config.Config, log logger.Logger, migrate bool) (outbound.UserRepository, func() error, error) {
	noop := func() error { return nil }

	switch cfg.CredentialStore {
	case config.StoreMemory, "":
		log.Warn(ctx, "Using in-memory credential store; accounts are lost on restart", nil)
		return memory.NewUserRepository(), noop, nil

	case config.StorePostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to open database: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			db.Close()
			return nil, noop, fmt.Errorf("failed to ping database: %w", err)
		}
		if migrate {
			if err := migrations.Up(ctx, db); err != nil {
				db.Close()
				return nil, noop, err
			}
		}
		log.Info(ctx, "Database connection established", map[string]interface{}{"store": config.StorePostgres})
		return postgres.NewUserRepositoryAdapter(db), db.Close, nil

	case config.StoreRedis:
		client, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, noop, err
		}
		log.Info(ctx, "Redis connection established", map[string]interface{}{"store": config.StoreRedis})
		return redis.NewUserRepository(client, ""), client.Close, nil
	}

	return nil, noop, fmt.Errorf("%w: %q", config.ErrUnknownStore, cfg.CredentialStore)
}
