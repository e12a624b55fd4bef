package correlation

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"
)

// correlationKey is an unexported type for context keys within this package.
type correlationKey struct{}

type scopeKey struct{}

// Context is the diagnostic context carried alongside a single message:
// the correlation id plus the string headers attached to it.
type Context struct {
	ID      string
	Headers map[string]string
}

// New returns a context with a freshly generated correlation id. The
// headers map is copied so callers may reuse their input.
func New(headers map[string]string) Context {
	return Context{
		ID:      uuid.NewString(),
		Headers: copyHeaders(headers),
	}
}

// FromInbound rebuilds the context received with a message. A missing id
// stays empty; consumers never invent one on behalf of the producer.
func FromInbound(id string, headers map[string]string) Context {
	return Context{
		ID:      strings.TrimSpace(id),
		Headers: copyHeaders(headers),
	}
}

// Header returns the named header value.
func (c Context) Header(name string) string {
	if c.Headers == nil {
		return ""
	}
	return c.Headers[name]
}

// FromContext returns the diagnostic context held by an active scope.
func FromContext(ctx context.Context) (Context, bool) {
	if ctx == nil {
		return Context{}, false
	}
	s, ok := ctx.Value(scopeKey{}).(*scope)
	if !ok || s == nil || s.released.Load() {
		return Context{}, false
	}
	return s.value, true
}

// ExtractCorrelationID fetches a correlation ID from the context if present.
func ExtractCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if c, ok := FromContext(ctx); ok && c.ID != "" {
		return c.ID
	}
	if val, ok := ctx.Value(correlationKey{}).(string); ok {
		return val
	}
	return ""
}

// ContextWithCorrelationID sets the correlation ID onto the context.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, correlationKey{}, id)
}

// EnsureCorrelationID guarantees a correlation ID on the context, generating one when missing.
func EnsureCorrelationID(ctx context.Context) (context.Context, string) {
	cid := ExtractCorrelationID(ctx)
	if cid == "" {
		cid = ulid.Make().String()
	}
	return ContextWithCorrelationID(ctx, cid), cid
}

// ContextWithRemoteSpan seeds the context with a remote span if valid identifiers are provided.
func ContextWithRemoteSpan(ctx context.Context, traceIDHex, spanIDHex string) context.Context {
	if traceIDHex == "" || spanIDHex == "" {
		return ctx
	}

	traceID, err := trace.TraceIDFromHex(traceIDHex)
	if err != nil {
		return ctx
	}
	spanID, err := trace.SpanIDFromHex(spanIDHex)
	if err != nil {
		return ctx
	}

	parent := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled, Remote: true})
	return trace.ContextWithSpanContext(ctx, parent)
}

func copyHeaders(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
