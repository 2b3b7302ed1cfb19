package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// BusinessEvents traces domain operations that span several stores,
// e.g. a catalog write that also touches search and the response cache.
type BusinessEvents struct {
	tracer trace.Tracer
}

func NewBusinessEvents() *BusinessEvents {
	return &BusinessEvents{tracer: otel.Tracer("business-events")}
}

// TraceContentMutation covers create/update/delete of a catalog or forum entity
func (be *BusinessEvents) TraceContentMutation(ctx context.Context, kind, op, id string) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "content."+op,
		trace.WithAttributes(
			attribute.String("content.kind", kind),
			attribute.String("content.id", id),
		),
	)
}

// TracePointsAward covers one gamification award including badge evaluation
func (be *BusinessEvents) TracePointsAward(ctx context.Context, userID, action string) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "gamification.award",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("points.action", action),
		),
	)
}

// TraceImport covers one bulk import run
func (be *BusinessEvents) TraceImport(ctx context.Context, entity, format string, dryRun bool) (context.Context, trace.Span) {
	return be.tracer.Start(ctx, "import.run",
		trace.WithAttributes(
			attribute.String("import.entity", entity),
			attribute.String("import.format", format),
			attribute.Bool("import.dry_run", dryRun),
		),
	)
}

// RecordImportResult adds row counts to an import span
func RecordImportResult(span trace.Span, inserted, updated, skipped int) {
	span.SetAttributes(
		attribute.Int("import.inserted", inserted),
		attribute.Int("import.updated", updated),
		attribute.Int("import.skipped", skipped),
	)
}
