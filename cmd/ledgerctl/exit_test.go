package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitOK},
		{"usage", usageError(errors.New("bad flag")), exitInvalidInput},
		{"invalid input", shared.ErrInvalidInput, exitInvalidInput},
		{"missing reference", fmt.Errorf("failed to post: %w", ledger.ErrDocumentNotFound), exitMissingReference},
		{"state conflict", fmt.Errorf("wrapped: %w", ledger.ErrSettlementExceedsDue), exitStateConflict},
		{"concurrency", shared.ErrConcurrencyConflict, exitStateConflict},
		{"invariant", &ledger.UnbalancedJournalError{}, exitInvariantViolation},
		{"shortfall", shared.NewKindedError(shared.KindInventoryShortfall, "SHORT", "short"), exitInventoryShortfall},
		{"interrupted", fmt.Errorf("relay: %w", context.Canceled), exitInterrupted},
		{"plain", errors.New("boom"), exitInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
