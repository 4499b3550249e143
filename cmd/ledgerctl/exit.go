package main

import (
	"context"
	"errors"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
)

// Exit codes by error kind
const (
	exitOK                 = 0
	exitInternal           = 1
	exitInvalidInput       = 2
	exitMissingReference   = 3
	exitStateConflict      = 4
	exitInvariantViolation = 5
	exitInventoryShortfall = 6
	exitInterrupted        = 130
)

// usageErr marks configuration and flag problems, reported as invalid input
type usageErr struct {
	err error
}

func (e *usageErr) Error() string { return e.err.Error() }
func (e *usageErr) Unwrap() error { return e.err }

func usageError(err error) error {
	return &usageErr{err: err}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	if errors.Is(err, context.Canceled) {
		return exitInterrupted
	}
	var usage *usageErr
	if errors.As(err, &usage) {
		return exitInvalidInput
	}

	switch ledger.ErrorKind(err) {
	case shared.KindInvalidInput:
		return exitInvalidInput
	case shared.KindMissingReference:
		return exitMissingReference
	case shared.KindStateConflict:
		return exitStateConflict
	case shared.KindInvariantViolation:
		return exitInvariantViolation
	case shared.KindInventoryShortfall:
		return exitInventoryShortfall
	default:
		return exitInternal
	}
}
