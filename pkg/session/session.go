// Package session backs the auth checks the verify block performs:
// revoked-token lookups in redis and user verification against the
// accounts database.
package session

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "flowcore:revoked:"

// RedisBlacklist checks tokens against the revocation set the auth
// service maintains. Tokens are stored hashed, never raw.
type RedisBlacklist struct {
	client *redis.Client
}

func NewRedisBlacklist(client *redis.Client) *RedisBlacklist {
	return &RedisBlacklist{client: client}
}

func (b *RedisBlacklist) IsRevoked(ctx context.Context, token string) (bool, error) {
	sum := sha256.Sum256([]byte(token))

	n, err := b.client.Exists(ctx, revokedKeyPrefix+hex.EncodeToString(sum[:])).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}

	return n > 0, nil
}

// PostgresUserStore reads user state from the accounts schema the auth
// service owns.
type PostgresUserStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPostgresUserStore(db *sql.DB, logger *slog.Logger) *PostgresUserStore {
	return &PostgresUserStore{
		db:     db,
		logger: logger.With("module", "session"),
	}
}

func (s *PostgresUserStore) UserVerified(ctx context.Context, userID string) (bool, error) {
	var verified bool

	err := s.db.QueryRowContext(ctx,
		"SELECT verified FROM users WHERE id = $1 AND deleted_at IS NULL", userID,
	).Scan(&verified)

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("failed to load user %s: %w", userID, err)
	}

	return verified, nil
}
