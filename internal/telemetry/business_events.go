package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// BusinessEvents provides helper methods for tracing domain operations,
// one level above the HTTP/DB spans the instrumentation libraries emit.
type BusinessEvents struct {
	tracer trace.Tracer
}

// NewBusinessEvents creates a new business events tracer
func NewBusinessEvents() *BusinessEvents {
	return &BusinessEvents{
		tracer: otel.Tracer("business-events"),
	}
}

// TraceRecordEvent creates a span for one telemetry event append
func (be *BusinessEvents) TraceRecordEvent(ctx context.Context, eventType string, authenticated bool) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "events.record",
		trace.WithAttributes(
			attribute.String("event.type", eventType),
			attribute.Bool("event.authenticated", authenticated),
		),
	)
}

// TraceViewBatch creates a span for applying one flushed view batch
func (be *BusinessEvents) TraceViewBatch(ctx context.Context, batchSize int) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "events.view_batch",
		trace.WithAttributes(
			attribute.Int("batch.size", batchSize),
		),
	)
}

// TraceRecommend creates a span for one recommendation resolution
func (be *BusinessEvents) TraceRecommend(ctx context.Context, tag string, limit int) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "recommend.resolve",
		trace.WithAttributes(
			attribute.String("recommend.tag", tag),
			attribute.Int("recommend.limit", limit),
		),
	)
}

// TraceReviewSubmit creates a span for a review write, including whether
// the idempotency cache answered it
func (be *BusinessEvents) TraceReviewSubmit(ctx context.Context, placeID string) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "reviews.submit",
		trace.WithAttributes(
			attribute.String("place.id", placeID),
		),
	)
}

// MarkReplayed tags a span as answered from the idempotency cache
func MarkReplayed(span trace.Span) {
	span.SetAttributes(attribute.Bool("idempotency.replayed", true))
}

// RecordSpanError marks the span failed and records the error
func RecordSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
