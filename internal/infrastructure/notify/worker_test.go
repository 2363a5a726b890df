package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	domorder "github.com/Zhima-Mochi/sportsphere/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/sportsphere/internal/domain/outbox"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/payment"
	infraobs "github.com/Zhima-Mochi/sportsphere/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/sportsphere/internal/infrastructure/observability/zaplogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type directBus struct {
	handlers map[string][]domoutbox.Handler
}

func (b *directBus) Subscribe(name string, h domoutbox.Handler) {
	if b.handlers == nil {
		b.handlers = map[string][]domoutbox.Handler{}
	}
	b.handlers[name] = append(b.handlers[name], h)
}

func (b *directBus) deliver(t *testing.T, e domoutbox.Event) error {
	t.Helper()
	hs := b.handlers[e.EventName()]
	require.Len(t, hs, 1, e.EventName())
	return hs[0](context.Background(), e)
}

type captureForwarder struct {
	mu   sync.Mutex
	got  []string
	fail error
}

func (f *captureForwarder) Publish(_ context.Context, e domoutbox.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.got = append(f.got, e.EventName())
	return nil
}

func TestWorkerLogsAndForwardsEveryLifecycleEvent(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	tel := infraobs.New(nil, zaplogger.Wrap(zap.New(core)), nil, nil)
	bus := &directBus{}
	fwd := &captureForwarder{}
	New(bus, fwd, "rabbitmq", tel).Start()

	events := []domoutbox.Event{
		domorder.OrderCreatedEvent{OrderID: "o-1", PaymentMethod: payment.MethodEsewa},
		domorder.OrderPaidEvent{OrderID: "o-1", PaymentID: "ref"},
		domorder.OrderPaymentFailedEvent{OrderID: "o-1", Reason: "user cancelled"},
		domorder.OrderStatusChangedEvent{OrderID: "o-1", From: domorder.StatusProcessing, To: domorder.StatusShipped},
		domorder.OrderCancelledEvent{OrderID: "o-1", CancelledBy: "acc-1"},
		domorder.OrderPaidAfterCancelEvent{OrderID: "o-1", Provider: payment.MethodKhalti, PaymentID: "pidx-9"},
	}
	for _, e := range events {
		require.NoError(t, bus.deliver(t, e))
	}

	assert.Equal(t, Events, fwd.got)
	lines := logs.FilterMessage("order_event").All()
	require.Len(t, lines, len(events))
	for i, l := range lines {
		ctx := l.ContextMap()
		assert.Equal(t, "o-1", ctx["order_id"])
		assert.Equal(t, Events[i], ctx["event"])
		assert.NotEmpty(t, ctx["event_id"])
	}
	assert.Equal(t, "shipped", lines[3].ContextMap()["to"])
	assert.Equal(t, "pidx-9", lines[5].ContextMap()["payment_id"])
}

func TestWorkerWithoutForwarderOnlyLogs(t *testing.T) {
	bus := &directBus{}
	New(bus, nil, "", nil).Start()
	assert.NoError(t, bus.deliver(t, domorder.OrderPaidEvent{OrderID: "o-2"}))
}

func TestWorkerReportsForwardFailure(t *testing.T) {
	bus := &directBus{}
	New(bus, &captureForwarder{fail: errors.New("channel closed")}, "rabbitmq", nil).Start()

	err := bus.deliver(t, domorder.OrderCancelledEvent{OrderID: "o-3"})
	assert.EqualError(t, err, "notify: forward order.cancelled: channel closed")
}
