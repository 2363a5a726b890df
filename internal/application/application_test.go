package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Zhima-Mochi/sportsphere/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	observability.Logger
	lines *[]map[string]any
	bound []observability.Field
}

func newRecordingLogger() (*recordingLogger, *[]map[string]any) {
	lines := &[]map[string]any{}
	return &recordingLogger{Logger: observability.NopLogger(), lines: lines}, lines
}

func (l *recordingLogger) With(fields ...observability.Field) observability.Logger {
	bound := append(append([]observability.Field{}, l.bound...), fields...)
	return &recordingLogger{Logger: l.Logger, lines: l.lines, bound: bound}
}

func (l *recordingLogger) Info(msg string, fields ...observability.Field) {
	line := map[string]any{"msg": msg}
	for _, f := range append(append([]observability.Field{}, l.bound...), fields...) {
		line[f.Key] = f.Value
	}
	*l.lines = append(*l.lines, line)
}

type countingCounter struct{ calls [][]observability.Label }

func (c *countingCounter) Add(_ float64, labels ...observability.Label) {
	c.calls = append(c.calls, labels)
}

type fakeMetrics struct{ counters map[observability.MetricKey]*countingCounter }

func (m fakeMetrics) Counter(k observability.MetricKey) observability.Counter {
	if c, ok := m.counters[k]; ok {
		return c
	}
	c := &countingCounter{}
	m.counters[k] = c
	return c
}

func (m fakeMetrics) Histogram(observability.MetricKey) observability.Histogram {
	return observability.NopHistogram()
}

type fakeTel struct {
	log     observability.Logger
	metrics fakeMetrics
}

func (f fakeTel) Tracer() observability.Tracer   { return observability.NopTracer() }
func (f fakeTel) Logger() observability.Logger   { return f.log }
func (f fakeTel) Metrics() observability.Metrics { return f.metrics }

func newFakeTel(log observability.Logger) fakeTel {
	return fakeTel{log: log, metrics: fakeMetrics{counters: map[observability.MetricKey]*countingCounter{}}}
}

func TestRunRecordsOutcome(t *testing.T) {
	log, lines := newRecordingLogger()
	tel := newFakeTel(log)

	_, run := Start(context.Background(), tel, log, "order.create", "CreateOrder")
	run.Add(observability.F("order_id", "o-1"))
	run.End(nil)

	_, run = Start(context.Background(), tel, log, "order.create", "CreateOrder")
	run.Fail("NO_ITEMS")
	run.End(errors.New("no order items"))

	require.Len(t, *lines, 2)
	assert.Equal(t, "use_case_done", (*lines)[0]["msg"])
	assert.Equal(t, "success", (*lines)[0]["outcome"])
	assert.Equal(t, "o-1", (*lines)[0]["order_id"])
	assert.Equal(t, "order.create", (*lines)[0]["use_case"])
	assert.Equal(t, "error", (*lines)[1]["outcome"])
	assert.Equal(t, "NO_ITEMS", (*lines)[1]["status"])
	assert.Equal(t, "no order items", (*lines)[1]["error"])

	calls := tel.metrics.counters[observability.MUsecaseRequests].calls
	require.Len(t, calls, 2)
	assert.Contains(t, calls[1], observability.L("outcome", "error"))
}

func TestRunDefaultsFailureStatus(t *testing.T) {
	log, lines := newRecordingLogger()
	_, run := Start(context.Background(), nil, log, "catalog.get", "GetProduct")
	run.End(errors.New("boom"))

	require.Len(t, *lines, 1)
	assert.Equal(t, "ERROR", (*lines)[0]["status"])
	assert.Equal(t, "error", (*lines)[0]["outcome"])
}

func TestExternalLabelsOutcome(t *testing.T) {
	tel := newFakeTel(observability.NopLogger())

	External(tel, "esewa", "status", time.Now(), nil)
	External(tel, "esewa", "status", time.Now(), errors.New("timeout"))

	calls := tel.metrics.counters[observability.MExternalRequests].calls
	require.Len(t, calls, 2)
	assert.Contains(t, calls[0], observability.L("outcome", "success"))
	assert.Contains(t, calls[1], observability.L("outcome", "error"))
	assert.Contains(t, calls[1], observability.L("peer", "esewa"))
}
