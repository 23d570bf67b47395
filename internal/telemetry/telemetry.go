// Package telemetry wraps the reconciliation entry points in otel spans: one
// per recon.Run/stream.Run call, plus one per streaming chunk, so a
// batch or request can be traced end to end regardless of which engine
// handled it.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/gmhafiz/reconcile"

var tracer = otel.Tracer(instrumentationName)

// StartReconcile opens the span wrapping one in-memory recon.Run call.
func StartReconcile(ctx context.Context, sourceCount, targetCount int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "recon.Run",
		trace.WithAttributes(
			attribute.Int("reconcile.source_count", sourceCount),
			attribute.Int("reconcile.target_count", targetCount),
		))
}

// StartStream opens the span wrapping one stream.Run call.
func StartStream(ctx context.Context, strategy string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "stream.Run",
		trace.WithAttributes(attribute.String("reconcile.strategy", strategy)))
}

// StartChunk opens a child span for one streaming chunk, identified by its
// starting offset.
func StartChunk(ctx context.Context, offset int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "stream.chunk",
		trace.WithAttributes(attribute.Int("reconcile.chunk_offset", offset)))
}

// RecordOutcome annotates span with the verdict counts once a call
// completes. Callers record it even when the call returned an error; the
// counts are then the zero Stats the engine returns with the error.
func RecordOutcome(span trace.Span, matched, unmatchedSource, unmatchedTarget, discrepancy int) {
	span.SetAttributes(
		attribute.Int("reconcile.matched", matched),
		attribute.Int("reconcile.unmatched_source", unmatchedSource),
		attribute.Int("reconcile.unmatched_target", unmatchedTarget),
		attribute.Int("reconcile.discrepancy", discrepancy),
	)
}
