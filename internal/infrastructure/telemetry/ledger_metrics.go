package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// LedgerMetrics records posting, settlement and reconciliation activity.
// A nil *LedgerMetrics is valid and records nothing.
type LedgerMetrics struct {
	journalsPosted   *counter
	journalLines     *counter
	reversals        *counter
	settlements      *counter
	failures         *counter
	stockShortfalls  *counter
	operationLatency *histogram
	discrepancies    *gauge
}

// NewLedgerMetrics registers the ledger instruments on meter.
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &LedgerMetrics{}
	var err error

	if m.journalsPosted, err = newCounter(meter,
		"ledger_journals_posted_total", "Journals written by posting or reversal", "{journals}"); err != nil {
		return nil, err
	}
	if m.journalLines, err = newCounter(meter,
		"ledger_journal_lines_total", "Journal line items written", "{lines}"); err != nil {
		return nil, err
	}
	if m.reversals, err = newCounter(meter,
		"ledger_reversals_total", "Documents reverted to pending", "{documents}"); err != nil {
		return nil, err
	}
	if m.settlements, err = newCounter(meter,
		"ledger_settlements_total", "Settlements applied to posted documents", "{settlements}"); err != nil {
		return nil, err
	}
	if m.failures, err = newCounter(meter,
		"ledger_operation_failures_total", "Ledger operations rejected or failed", "{operations}"); err != nil {
		return nil, err
	}
	if m.stockShortfalls, err = newCounter(meter,
		"ledger_stock_shortfalls_total", "Inventory movements that could not be fully applied", "{movements}"); err != nil {
		return nil, err
	}
	if m.operationLatency, err = newDurationHistogram(meter,
		"ledger_operation_duration_seconds", "Duration of ledger operations", LatencyBuckets); err != nil {
		return nil, err
	}
	if m.discrepancies, err = newGauge(meter,
		"ledger_trial_balance_discrepancies", "Discrepancies found by the last trial balance", "{discrepancies}"); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordJournal counts a written journal and its lines.
func (m *LedgerMetrics) RecordJournal(ctx context.Context, referenceType string, lines int) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{AttrReferenceType.String(referenceType)}
	m.journalsPosted.inc(ctx, attrs...)
	m.journalLines.add(ctx, int64(lines), attrs...)
}

// RecordReversal counts a document reverted to pending.
func (m *LedgerMetrics) RecordReversal(ctx context.Context, documentKind string) {
	if m == nil {
		return
	}
	m.reversals.inc(ctx, AttrDocumentKind.String(documentKind))
}

// RecordSettlement counts an applied settlement.
func (m *LedgerMetrics) RecordSettlement(ctx context.Context, documentKind string) {
	if m == nil {
		return
	}
	m.settlements.inc(ctx, AttrDocumentKind.String(documentKind))
}

// RecordFailure counts a failed operation labelled by its error kind.
func (m *LedgerMetrics) RecordFailure(ctx context.Context, operation, errorKind string) {
	if m == nil {
		return
	}
	m.failures.inc(ctx, AttrOperation.String(operation), AttrErrorKind.String(errorKind))
}

// RecordShortfall counts an inventory movement that ran out of stock.
func (m *LedgerMetrics) RecordShortfall(ctx context.Context, referenceType string) {
	if m == nil {
		return
	}
	m.stockShortfalls.inc(ctx, AttrReferenceType.String(referenceType))
}

// ObserveDuration records how long an operation took.
func (m *LedgerMetrics) ObserveDuration(ctx context.Context, operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.operationLatency.observe(ctx, d, AttrOperation.String(operation))
}

// RecordDiscrepancies records the discrepancy count of a trial balance run.
func (m *LedgerMetrics) RecordDiscrepancies(ctx context.Context, severity string, count int) {
	if m == nil {
		return
	}
	m.discrepancies.record(ctx, int64(count), AttrSeverity.String(severity))
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewLedgerMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
