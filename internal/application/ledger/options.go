package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// serviceConfig holds the collaborators every ledger service shares
type serviceConfig struct {
	locker  DocumentLocker
	logger  *zap.Logger
	metrics *telemetry.LedgerMetrics
	clock   Clock
}

// ServiceOption is a functional option for configuring ledger services
type ServiceOption func(*serviceConfig)

// WithLocker sets the per-document locker
func WithLocker(locker DocumentLocker) ServiceOption {
	return func(c *serviceConfig) {
		if locker != nil {
			c.locker = locker
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) ServiceOption {
	return func(c *serviceConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics sets the ledger metrics recorder
func WithMetrics(metrics *telemetry.LedgerMetrics) ServiceOption {
	return func(c *serviceConfig) {
		c.metrics = metrics
	}
}

// WithClock overrides the time source used for journal and settlement dates
func WithClock(clock Clock) ServiceOption {
	return func(c *serviceConfig) {
		if clock != nil {
			c.clock = clock
		}
	}
}

func newServiceConfig(opts []ServiceOption) serviceConfig {
	c := serviceConfig{
		locker: NoopLocker(),
		logger: zap.NewNop(),
		clock:  systemClock,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// actingAs tags ctx with the user performing the operation; entries logged
// through logger.L(ctx) carry the actor and the span ids.
func (c *serviceConfig) actingAs(ctx context.Context, userID uuid.UUID) context.Context {
	return logger.WithActor(ctx, c.logger, userID.String())
}

// withDocumentLock runs fn while holding the lock of documentID
func (c *serviceConfig) withDocumentLock(ctx context.Context, documentID uuid.UUID, fn func() error) error {
	release, err := c.locker.Acquire(ctx, LockKey(documentID.String()))
	if err != nil {
		return fmt.Errorf("failed to lock document %s: %w", documentID, err)
	}
	defer release()
	return fn()
}

// finish records the outcome of an operation on its span and in metrics
func (c *serviceConfig) finish(ctx context.Context, span trace.Span, operation string, started time.Time, err error) {
	c.metrics.ObserveDuration(ctx, operation, time.Since(started))
	if err != nil {
		c.metrics.RecordFailure(ctx, operation, string(ledger.ErrorKind(err)))
		telemetry.RecordError(span, err)
		return
	}
	telemetry.SetOK(span)
}
