package observability

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records strand metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordRun records one full execution run.
	RecordRun(ctx context.Context, success bool, duration time.Duration)

	// RecordStreamEvent records one wire event by kind.
	RecordStreamEvent(ctx context.Context, kind string)

	// RecordMessageAppend records a message-log append attempt.
	RecordMessageAppend(ctx context.Context, success bool)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	runs           metric.Int64Counter
	runLatency     metric.Float64Histogram
	streamEvents   metric.Int64Counter
	messageAppends metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// NewMetricsRecorder returns a MetricsRecorder backed by the global OTel
// meter provider. The underlying instruments are created once per process.
func NewMetricsRecorder() (MetricsRecorder, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	if defaultMetricsErr != nil {
		return nil, defaultMetricsErr
	}
	return defaultMetrics, nil
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("strand")

	runs, err := meter.Int64Counter("strand.runs",
		metric.WithDescription("Number of execution runs"),
	)
	if err != nil {
		return nil, err
	}

	runLatency, err := meter.Float64Histogram("strand.run.latency_ms",
		metric.WithDescription("Run latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	streamEvents, err := meter.Int64Counter("strand.stream.events",
		metric.WithDescription("Number of wire events emitted"),
	)
	if err != nil {
		return nil, err
	}

	messageAppends, err := meter.Int64Counter("strand.message.appends",
		metric.WithDescription("Number of message-log append attempts"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		runs:           runs,
		runLatency:     runLatency,
		streamEvents:   streamEvents,
		messageAppends: messageAppends,
	}, nil
}

// RecordRun implements MetricsRecorder.
func (m *otelMetrics) RecordRun(ctx context.Context, success bool, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.Bool("success", success))
	m.runs.Add(ctx, 1, attrs)
	m.runLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// RecordStreamEvent implements MetricsRecorder.
func (m *otelMetrics) RecordStreamEvent(ctx context.Context, kind string) {
	m.streamEvents.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordMessageAppend implements MetricsRecorder.
func (m *otelMetrics) RecordMessageAppend(ctx context.Context, success bool) {
	m.messageAppends.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}
