package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer is the strand tracer instance, using the global provider.
var tracer = otel.Tracer("strand")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartRunSpan starts a span covering one full execution run.
	StartRunSpan(ctx context.Context, threadID, namespace string) (context.Context, trace.Span)

	// StartStoreSpan starts a span for one checkpoint-store or message-log
	// call, child of the run span.
	StartStoreSpan(ctx context.Context, op string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the
// provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartRunSpan starts a span covering one full execution run.
func (m *otelSpanManager) StartRunSpan(ctx context.Context, threadID, namespace string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "strand.run",
		trace.WithAttributes(
			attribute.String("thread.id", threadID),
			attribute.String("thread.namespace", namespace),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartStoreSpan starts a span for one storage call.
func (m *otelSpanManager) StartStoreSpan(ctx context.Context, op string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "strand.store."+op,
		trace.WithAttributes(
			attribute.String("store.op", op),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span in context.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
