package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotAcquired is returned when a document stays locked past the wait timeout
var ErrLockNotAcquired = shared.NewKindedError(shared.KindStateConflict, "LOCK_NOT_ACQUIRED", "Document is locked by another operation")

// LockOptions tunes how long a lock lives and how a waiter polls for it
type LockOptions struct {
	TTL           time.Duration
	RetryInterval time.Duration
	WaitTimeout   time.Duration
}

// releaseScript deletes the key only if it still holds our token, so a lock
// that expired and was taken over is never released by its former owner
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisDocumentLocker serializes operations on a document across processes
// with SET NX PX
type RedisDocumentLocker struct {
	client *redis.Client
	opts   LockOptions
}

// NewRedisDocumentLocker creates a Redis-backed locker
func NewRedisDocumentLocker(client *redis.Client, opts LockOptions) *RedisDocumentLocker {
	return &RedisDocumentLocker{client: client, opts: opts}
}

// Acquire polls SET NX until the lock is taken, the wait timeout passes or
// ctx is done
func (l *RedisDocumentLocker) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	ctx, cancel := context.WithTimeout(ctx, l.opts.WaitTimeout)
	defer cancel()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.opts.TTL).Result()
		if err != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			var once sync.Once
			return func() {
				once.Do(func() {
					// the caller's context may already be done
					releaseCtx, done := context.WithTimeout(context.Background(), time.Second)
					defer done()
					_ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
				})
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, ErrLockNotAcquired.WithMessage(fmt.Sprintf("Timed out waiting for lock %s", key))
		case <-time.After(l.opts.RetryInterval):
		}
	}
}

// InMemoryDocumentLocker is a keyed mutex for single-process deployments
type InMemoryDocumentLocker struct {
	mu      sync.Mutex
	held    map[string]chan struct{}
	timeout time.Duration
}

// NewInMemoryDocumentLocker creates an in-process locker. Waiters give up
// after waitTimeout.
func NewInMemoryDocumentLocker(waitTimeout time.Duration) *InMemoryDocumentLocker {
	return &InMemoryDocumentLocker{
		held:    make(map[string]chan struct{}),
		timeout: waitTimeout,
	}
}

// Acquire blocks until key is free, the wait timeout passes or ctx is done
func (l *InMemoryDocumentLocker) Acquire(ctx context.Context, key string) (func(), error) {
	var timeout <-chan time.Time
	if l.timeout > 0 {
		timer := time.NewTimer(l.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	for {
		l.mu.Lock()
		wait, busy := l.held[key]
		if !busy {
			released := make(chan struct{})
			l.held[key] = released
			l.mu.Unlock()

			var once sync.Once
			return func() {
				once.Do(func() {
					l.mu.Lock()
					delete(l.held, key)
					l.mu.Unlock()
					close(released)
				})
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timeout:
			return nil, ErrLockNotAcquired.WithMessage(fmt.Sprintf("Timed out waiting for lock %s", key))
		}
	}
}

var (
	_ appledger.DocumentLocker = (*RedisDocumentLocker)(nil)
	_ appledger.DocumentLocker = (*InMemoryDocumentLocker)(nil)
)
