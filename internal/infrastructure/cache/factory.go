package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Backends are the coordination services the ledger shares across processes
type Backends struct {
	Locker      appledger.DocumentLocker
	Idempotency shared.IdempotencyStore
	Distributed bool // false when running on the in-memory fallbacks
}

// Close releases the Redis connection or the in-memory sweeper. The Redis
// idempotency store owns the shared client.
func (b *Backends) Close() error {
	return b.Idempotency.Close()
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-process backends
// when Redis is unavailable. Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowFallback = allow
	}
}

// Factory builds the locker and idempotency store from configuration
type Factory struct {
	redis         config.RedisConfig
	lock          config.LockConfig
	logger        *zap.Logger
	allowFallback bool
}

// NewFactory creates a new factory
func NewFactory(redisCfg config.RedisConfig, lockCfg config.LockConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redis:         redisCfg,
		lock:          lockCfg,
		logger:        zap.NewNop(),
		allowFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create connects to Redis when configured, falling back to in-memory
// backends if allowed
func (f *Factory) Create(ctx context.Context) (*Backends, error) {
	client, err := NewRedisClient(ctx, f.redis)
	if err == nil {
		f.logger.Info("using Redis document locks", zap.String("addr", f.redis.Addr()))
		return &Backends{
			Locker: NewRedisDocumentLocker(client, LockOptions{
				TTL:           f.lock.TTL,
				RetryInterval: f.lock.RetryInterval,
				WaitTimeout:   f.lock.WaitTimeout,
			}),
			Idempotency: NewRedisIdempotencyStore(client, ""),
			Distributed: true,
		}, nil
	}

	if !f.allowFallback {
		return nil, fmt.Errorf("redis required for document locks but unavailable: %w", err)
	}
	if !errors.Is(err, ErrRedisDisabled) {
		f.logger.Warn("Redis unavailable, falling back to in-process locks. "+
			"Concurrent ledgerctl processes are then only guarded by version checks.",
			zap.Error(err),
		)
	}
	return &Backends{
		Locker:      NewInMemoryDocumentLocker(f.lock.WaitTimeout),
		Idempotency: NewInMemoryIdempotencyStore(5 * time.Minute),
	}, nil
}
