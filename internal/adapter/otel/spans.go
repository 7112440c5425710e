package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "levelboard"

// StartTriageSpan starts a span for a bulk triage run.
func StartTriageSpan(ctx context.Context, runID, batchID, kind string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "triage",
		trace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("batch.id", batchID),
			attribute.String("triage.kind", kind),
		),
	)
}

// StartDecisionSpan starts a span for a single level decision.
func StartDecisionSpan(ctx context.Context, batchID string, number int, action string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "decision",
		trace.WithAttributes(
			attribute.String("batch.id", batchID),
			attribute.Int("level.number", number),
			attribute.String("decision.action", action),
		),
	)
}

// StartStatsSpan starts a span for a work-scope stats computation.
func StartStatsSpan(ctx context.Context, batchID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "stats",
		trace.WithAttributes(
			attribute.String("batch.id", batchID),
		),
	)
}
