package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Attribute keys shared by the ledger instruments.
var (
	AttrDocumentKind  = attribute.Key("document_kind")
	AttrReferenceType = attribute.Key("reference_type")
	AttrOperation     = attribute.Key("operation")
	AttrErrorKind     = attribute.Key("error_kind")
	AttrSeverity      = attribute.Key("severity")
)

// LatencyBuckets are histogram boundaries for ledger operations, in seconds.
var LatencyBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

type counter struct{ c metric.Int64Counter }

func newCounter(meter metric.Meter, name, description, unit string) (*counter, error) {
	c, err := meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %s: %w", name, err)
	}
	return &counter{c: c}, nil
}

func (c *counter) add(ctx context.Context, n int64, attrs ...attribute.KeyValue) {
	c.c.Add(ctx, n, metric.WithAttributes(attrs...))
}

func (c *counter) inc(ctx context.Context, attrs ...attribute.KeyValue) {
	c.add(ctx, 1, attrs...)
}

type histogram struct{ h metric.Float64Histogram }

func newDurationHistogram(meter metric.Meter, name, description string, buckets []float64) (*histogram, error) {
	h, err := meter.Float64Histogram(name,
		metric.WithDescription(description),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(buckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram %s: %w", name, err)
	}
	return &histogram{h: h}, nil
}

func (h *histogram) observe(ctx context.Context, d time.Duration, attrs ...attribute.KeyValue) {
	h.h.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
}

type gauge struct{ g metric.Int64Gauge }

func newGauge(meter metric.Meter, name, description, unit string) (*gauge, error) {
	g, err := meter.Int64Gauge(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		return nil, fmt.Errorf("failed to create gauge %s: %w", name, err)
	}
	return &gauge{g: g}, nil
}

func (g *gauge) record(ctx context.Context, v int64, attrs ...attribute.KeyValue) {
	g.g.Record(ctx, v, metric.WithAttributes(attrs...))
}
