package permissions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// MatrixCache keeps firm permission matrices in Redis so that every mutating
// request does not hit Postgres for its authorization check. It is a pure
// read-through cache: misses and Redis failures fall back to the repository,
// and a cache problem can never widen what a role is allowed to do.
type MatrixCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewMatrixCache instantiates the cache helper. A nil client disables caching.
func NewMatrixCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *MatrixCache {
	return &MatrixCache{client: client, ttl: ttl, logger: logger}
}

func matrixKey(firmID uuid.UUID) string {
	return fmt.Sprintf("permissions:matrix:%s", firmID)
}

// Get returns the cached matrix for the firm, if present.
func (c *MatrixCache) Get(ctx context.Context, firmID uuid.UUID) ([]RolePermission, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	payload, err := c.client.Get(ctx, matrixKey(firmID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) && c.logger != nil {
			c.logger.Warn("matrix cache get", slog.Any("error", err))
		}
		return nil, false
	}
	var matrix []RolePermission
	if err := json.Unmarshal(payload, &matrix); err != nil {
		if c.logger != nil {
			c.logger.Warn("matrix cache decode", slog.Any("error", err))
		}
		return nil, false
	}
	return matrix, true
}

// Set stores the matrix with the configured TTL. Failures are logged only;
// the caller already has the authoritative rows.
func (c *MatrixCache) Set(ctx context.Context, firmID uuid.UUID, matrix []RolePermission) {
	if c == nil || c.client == nil {
		return
	}
	payload, err := json.Marshal(matrix)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("matrix cache encode", slog.Any("error", err))
		}
		return
	}
	if err := c.client.Set(ctx, matrixKey(firmID), payload, c.ttl).Err(); err != nil && c.logger != nil {
		c.logger.Warn("matrix cache set", slog.Any("error", err))
	}
}

// Invalidate drops the firm's cached matrix. Permission updates must not be
// served from a stale snapshot, so an invalidation failure is an error.
func (c *MatrixCache) Invalidate(ctx context.Context, firmID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Del(ctx, matrixKey(firmID)).Err(); err != nil {
		return fmt.Errorf("permissions: invalidate cache: %w", err)
	}
	return nil
}
