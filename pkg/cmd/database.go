package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/appforge/flowcore/pkg/security"
	"github.com/appforge/flowcore/pkg/tables"
)

// NewDatabase opens the postgres pool both the table service and the
// access checker share.
func NewDatabase(ctx context.Context, databaseURL string) *sql.DB {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		panic(fmt.Errorf("failed to open database: %w", err))
	}

	if err := db.PingContext(ctx); err != nil {
		panic(fmt.Errorf("failed to reach database: %w", err))
	}

	return db
}

// NewTables builds the user-table service and applies its migrations.
func NewTables(ctx context.Context, logger *slog.Logger, db *sql.DB) *tables.Service {
	service, err := tables.NewService(ctx, logger, db)
	if err != nil {
		panic(err)
	}

	return service
}

// NewRedisClient connects to redis when a URL is configured. Returns
// nil otherwise, callers fall back to in-memory equivalents.
func NewRedisClient(redisURL string) *redis.Client {
	if redisURL == "" {
		return nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		panic(fmt.Errorf("failed to parse redis URL: %w", err))
	}

	return redis.NewClient(opts)
}

// NewRateLimiter picks the redis-backed limiter when redis is
// available so limits hold across instances.
func NewRateLimiter(client *redis.Client) security.RateLimiter {
	if client == nil {
		return security.NewMemoryRateLimiter(security.DefaultPolicies())
	}

	limiter, err := security.NewRedisRateLimiter(client, security.DefaultPolicies())
	if err != nil {
		panic(err)
	}

	return limiter
}
