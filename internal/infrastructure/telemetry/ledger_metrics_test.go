package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestNewLedgerMetrics_NilMeter(t *testing.T) {
	m, err := telemetry.NewLedgerMetrics(nil)

	require.Error(t, err)
	assert.Nil(t, m)
	assert.Equal(t, "NewLedgerMetrics: meter cannot be nil", err.Error())
}

func TestLedgerMetrics_Records(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := telemetry.NewLedgerMetrics(provider.Meter("ledger-test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordJournal(ctx, "CREDIT_NOTE", 5)
	m.RecordJournal(ctx, "REVERSE_CREDIT_NOTE", 5)
	m.RecordReversal(ctx, "CREDIT_NOTE")
	m.RecordSettlement(ctx, "EXPENSE")
	m.RecordSettlement(ctx, "EXPENSE")
	m.RecordFailure(ctx, "post", "invariant_violation")
	m.RecordShortfall(ctx, "DEBIT_NOTE")
	m.ObserveDuration(ctx, "post", 15*time.Millisecond)
	m.RecordDiscrepancies(ctx, "CRITICAL", 2)

	metrics := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, metrics["ledger_journals_posted_total"]))
	assert.Equal(t, int64(10), sumOf(t, metrics["ledger_journal_lines_total"]))
	assert.Equal(t, int64(1), sumOf(t, metrics["ledger_reversals_total"]))
	assert.Equal(t, int64(2), sumOf(t, metrics["ledger_settlements_total"]))
	assert.Equal(t, int64(1), sumOf(t, metrics["ledger_operation_failures_total"]))
	assert.Equal(t, int64(1), sumOf(t, metrics["ledger_stock_shortfalls_total"]))

	hist, ok := metrics["ledger_operation_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)

	gauge, ok := metrics["ledger_trial_balance_discrepancies"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(2), gauge.DataPoints[0].Value)
}

func TestLedgerMetrics_NilReceiver(t *testing.T) {
	var m *telemetry.LedgerMetrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.RecordJournal(ctx, "EXPENSE", 3)
		m.RecordReversal(ctx, "EXPENSE")
		m.RecordSettlement(ctx, "EXPENSE")
		m.RecordFailure(ctx, "settle", "state_conflict")
		m.RecordShortfall(ctx, "EXPENSE")
		m.ObserveDuration(ctx, "settle", time.Second)
		m.RecordDiscrepancies(ctx, "WARNING", 0)
	})
}

func TestLedgerMetrics_NoopMeter(t *testing.T) {
	m, err := telemetry.NewLedgerMetrics(noop.NewMeterProvider().Meter("noop"))
	require.NoError(t, err)
	assert.NotPanics(t, func() { m.RecordJournal(context.Background(), "DEBIT_NOTE", 4) })
}
