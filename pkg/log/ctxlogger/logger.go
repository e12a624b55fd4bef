package ctxlogger

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/smallbiznis/academy/pkg/telemetry/correlation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var serviceName atomic.Pointer[string]

// SetServiceName configures the service name added to every log entry.
func SetServiceName(name string) {
	serviceName.Store(&name)
}

// FromContext returns a logger enriched with tracing and correlation metadata from context.
func FromContext(ctx context.Context) *zap.Logger {
	return WithContext(ctx, zap.L())
}

// WithContext enriches the provided logger using metadata in the context.
func WithContext(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		base = zap.L()
	}
	if ctx == nil {
		return base
	}

	fields := make([]zap.Field, 0, 8)
	fields = append(fields, ExtractCorrelation(ctx))
	fields = append(fields, ExtractHeaders(ctx)...)
	fields = append(fields, ExtractTrace(ctx)...)

	if namePtr := serviceName.Load(); namePtr != nil {
		fields = append(fields, zap.String("service", *namePtr))
	}

	return base.With(fields...)
}

// ExtractCorrelation pulls the correlation ID from the context.
func ExtractCorrelation(ctx context.Context) zap.Field {
	return zap.String("correlation_id", correlation.ExtractCorrelationID(ctx))
}

// ExtractHeaders returns one field per header of the active correlation scope.
func ExtractHeaders(ctx context.Context) []zap.Field {
	c, ok := correlation.FromContext(ctx)
	if !ok || len(c.Headers) == 0 {
		return nil
	}
	keys := make([]string, 0, len(c.Headers))
	for k := range c.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, zap.String(k, c.Headers[k]))
	}
	return fields
}

// ExtractTrace pulls tracing identifiers from the context span.
func ExtractTrace(ctx context.Context) []zap.Field {
	span := trace.SpanFromContext(ctx)
	sc := span.SpanContext()
	if !sc.IsValid() {
		return nil
	}

	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}
