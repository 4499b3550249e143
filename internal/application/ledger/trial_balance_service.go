package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TrialBalanceService checks that the ledger balances and that document
// due amounts agree with their status
type TrialBalanceService struct {
	scope     TransactionScope
	tolerance decimal.Decimal
	serviceConfig
}

// NewTrialBalanceService creates a new TrialBalanceService. Differences up
// to tolerance are reported as warnings, anything larger as critical.
func NewTrialBalanceService(scope TransactionScope, tolerance decimal.Decimal, opts ...ServiceOption) *TrialBalanceService {
	return &TrialBalanceService{
		scope:         scope,
		tolerance:     tolerance,
		serviceConfig: newServiceConfig(opts),
	}
}

// Execute reads the category, journal and document aggregates in one
// transaction and builds the trial balance
func (s *TrialBalanceService) Execute(ctx context.Context, query TrialBalanceQuery) (result *ledger.TrialBalanceResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "trial_balance", "execute")
	defer span.End()
	started := time.Now()
	defer func() { s.finish(ctx, span, "trial_balance", started, err) }()

	if query.From != nil && query.To != nil && query.To.Before(*query.From) {
		return nil, shared.ErrInvalidInput.WithMessage(
			fmt.Sprintf("Period end %s is before period start %s",
				query.To.Format(time.RFC3339), query.From.Format(time.RFC3339)))
	}
	filter := ledger.TrialBalanceFilter{From: query.From, To: query.To}

	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		categories, err := repos.Journals().SumByCategory(ctx, filter)
		if err != nil {
			return fmt.Errorf("failed to sum categories: %w", err)
		}
		journals, err := repos.Journals().SumByJournal(ctx, filter)
		if err != nil {
			return fmt.Errorf("failed to sum journals: %w", err)
		}
		dues, err := repos.Documents().ListDues(ctx)
		if err != nil {
			return fmt.Errorf("failed to list document dues: %w", err)
		}
		result = ledger.BuildTrialBalance(filter, categories, journals, dues, s.tolerance)
		return nil
	})
	if err != nil {
		return nil, err
	}

	result.CheckedAt = s.clock()
	result.ExecutionDurationMs = time.Since(started).Milliseconds()
	s.metrics.RecordDiscrepancies(ctx, "CRITICAL", result.CriticalCount)
	s.metrics.RecordDiscrepancies(ctx, "WARNING", result.WarningCount)
	telemetry.SetAttributes(span,
		"status", string(result.Status),
		"discrepancy_count", result.DiscrepancyCount,
	)

	fields := []zap.Field{
		zap.String("status", string(result.Status)),
		zap.String("total_debits", result.TotalDebits.String()),
		zap.String("total_credits", result.TotalCredits.String()),
		zap.Int("critical", result.CriticalCount),
		zap.Int("warning", result.WarningCount),
	}
	if result.IsBalanced() {
		s.logger.Info("trial balance checked", fields...)
	} else {
		s.logger.Warn("trial balance has discrepancies", fields...)
	}
	return result, nil
}
