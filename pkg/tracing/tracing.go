// Package tracing wraps the OpenTelemetry tracer used around child-process
// spawns, the one gateway operation latent enough to be worth a span.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "webgate"

func tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpawnSpan opens a span covering one child-process spawn attempt,
// tagged with the path that requested it and the command being run. The
// caller uses the returned context for any further instrumented calls and
// must End() the span when the spawn attempt concludes.
func StartSpawnSpan(ctx context.Context, path, command string) (context.Context, trace.Span) {
	return tracer().Start(ctx, "webgate.spawn",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("webgate.path", path),
			attribute.String("webgate.command", command),
		),
	)
}

// RecordError marks span as failed and attaches err to it.
func RecordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
