package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("go.miloapis.com/jitgroups")

// StartSpan opens a span under whatever TracerProvider the process has
// registered globally. Callers must End() the returned span.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// ConfigureTracing installs a TracerProvider that batches spans to exporter
// and registers it as the process-wide default, mirroring
// internal/tracing.Configure in the teacher repo. The core itself never
// calls this — only an embedding application (e.g. cmd/jitgroups, if it
// chooses to export spans) decides whether and where spans go, passing
// whatever extra options (a resource via sdktrace.WithResource, a sampler)
// it needs.
func ConfigureTracing(exporter sdktrace.SpanExporter, opts ...sdktrace.TracerProviderOption) {
	allOpts := append([]sdktrace.TracerProviderOption{sdktrace.WithBatcher(exporter)}, opts...)
	otel.SetTracerProvider(sdktrace.NewTracerProvider(allOpts...))
}

// EndWithError records err on span (if non-nil) before ending it, mirroring
// the status convention the teacher's gRPC interceptors apply to spans.
func EndWithError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
