package application

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/sportsphere/internal/observability"
	"github.com/Zhima-Mochi/sportsphere/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const spanPrefix = "UC."

// IDGenerator hands out identifiers for new entities.
type IDGenerator interface {
	NewID() string
}

// Run tracks one use case invocation: a span, the RED metrics and a closing
// use_case_done log line.
type Run struct {
	ctx     context.Context
	span    trace.Span
	log     observability.Logger
	useCase string
	start   time.Time
	outcome string
	status  string
	fields  []observability.Field
	req     observability.Counter
	dur     observability.Histogram
}

// Start opens a Run. A request-scoped logger stored in ctx wins over base.
func Start(ctx context.Context, tel observability.Observability, base observability.Logger, useCase, spanName string, attrs ...attribute.KeyValue) (context.Context, *Run) {
	tel = observability.OrNop(tel)
	logger := logctx.FromOr(ctx, base).With(observability.F("use_case", useCase))

	attrs = append(attrs, attribute.String("use_case", useCase))
	ctx, span := tel.Tracer().Start(ctx, spanPrefix+spanName, attrs...)

	return ctx, &Run{
		ctx:     ctx,
		span:    span,
		log:     logger,
		useCase: useCase,
		start:   time.Now(),
		outcome: "success",
		status:  "OK",
		req:     tel.Metrics().Counter(observability.MUsecaseRequests),
		dur:     tel.Metrics().Histogram(observability.MUsecaseDuration),
	}
}

// Fail marks the run as failed with a machine readable status text.
func (r *Run) Fail(status string) {
	r.outcome, r.status = "error", status
}

// Status sets the status text and leaves the outcome alone.
func (r *Run) Status(status string) {
	r.status = status
}

// Add appends fields to the closing log line.
func (r *Run) Add(fields ...observability.Field) {
	r.fields = append(r.fields, fields...)
}

func (r *Run) Logger() observability.Logger { return r.log }

func (r *Run) Span() trace.Span { return r.span }

// End closes the span, records metrics and writes use_case_done.
func (r *Run) End(err error) {
	if err != nil && r.outcome == "success" {
		r.Fail("ERROR")
	}
	lat := time.Since(r.start).Seconds()

	if r.span != nil {
		if err != nil {
			r.span.RecordError(err)
			r.span.SetStatus(codes.Error, r.status)
		} else {
			r.span.SetStatus(codes.Ok, r.status)
		}
		r.span.End()
	}

	r.req.Add(1,
		observability.L("use_case", r.useCase),
		observability.L("outcome", r.outcome),
	)
	r.dur.Observe(lat, observability.L("use_case", r.useCase))

	fields := append([]observability.Field{
		observability.F("outcome", r.outcome),
		observability.F("status", r.status),
		observability.F("latency_seconds", lat),
	}, r.fields...)
	if sc := trace.SpanContextFromContext(r.ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	if err != nil {
		fields = append(fields, observability.F("error", err.Error()))
	}
	r.log.Info("use_case_done", fields...)
}

// External records one call to an outside system on the external_* instruments.
func External(tel observability.Observability, peer, endpoint string, start time.Time, err error) {
	tel = observability.OrNop(tel)
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	tel.Metrics().Counter(observability.MExternalRequests).Add(1,
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
		observability.L("outcome", outcome),
	)
	tel.Metrics().Histogram(observability.MExternalRequestDuration).Observe(time.Since(start).Seconds(),
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
	)
}
