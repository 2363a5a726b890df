package oteltrace

import (
	"context"

	"github.com/Zhima-Mochi/sportsphere/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type tracer struct{ t trace.Tracer }

// New returns a Tracer backed by the global OTel tracer provider.
// Until an SDK provider is installed with otel.SetTracerProvider the spans are no-ops
// that still carry any propagated parent context.
func New(name string) observability.Tracer {
	if name == "" {
		name = "sportsphere"
	}
	return &tracer{t: otel.Tracer(name)}
}

func (t *tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.t.Start(ctx, name, trace.WithAttributes(attrs...))
}
