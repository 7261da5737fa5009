package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bizdocs/backend/internal/domain/shared"
	"github.com/bizdocs/backend/internal/infrastructure/config"
)

// NewIdempotencyStore builds the store selected by cfg.Backend. A redis backend
// that cannot be reached falls back to memory unless the service runs in
// production, where sharing state across instances is required.
func NewIdempotencyStore(ctx context.Context, cfg config.IdempotencyConfig, redisCfg config.RedisConfig, production bool, logger *zap.Logger) (shared.IdempotencyStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Backend != "redis" {
		logger.Info("Using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(0), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     redisCfg.Addr(),
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		if production {
			return nil, fmt.Errorf("redis required for idempotency but unavailable: %w", err)
		}
		logger.Warn("Redis unavailable, falling back to in-memory idempotency store",
			zap.String("addr", redisCfg.Addr()),
			zap.Error(err),
		)
		return NewInMemoryIdempotencyStore(0), nil
	}

	logger.Info("Using Redis idempotency store", zap.String("addr", redisCfg.Addr()))
	return NewRedisIdempotencyStore(client, cfg.KeyPrefix), nil
}
