// Package notify turns order lifecycle events into log lines and, when a
// broker is configured, forwards them downstream.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/sportsphere/internal/application"
	domorder "github.com/Zhima-Mochi/sportsphere/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/sportsphere/internal/domain/outbox"
	"github.com/Zhima-Mochi/sportsphere/internal/observability"
	"github.com/Zhima-Mochi/sportsphere/internal/observability/logctx"
	workerpresentation "github.com/Zhima-Mochi/sportsphere/internal/presentation/worker"
)

const componentNotify = "notify-worker"

// Events lists the order lifecycle events the worker listens to.
var Events = []string{
	domorder.OrderCreatedEvent{}.EventName(),
	domorder.OrderPaidEvent{}.EventName(),
	domorder.OrderPaymentFailedEvent{}.EventName(),
	domorder.OrderStatusChangedEvent{}.EventName(),
	domorder.OrderCancelledEvent{}.EventName(),
	domorder.OrderPaidAfterCancelEvent{}.EventName(),
}

type Worker struct {
	subscriber domoutbox.Subscriber
	forwarder  domoutbox.Publisher
	peer       string
	tel        observability.Observability
	log        observability.Logger
}

// New builds a worker. forwarder may be nil, in which case events are only logged.
func New(subscriber domoutbox.Subscriber, forwarder domoutbox.Publisher, peer string, tel observability.Observability) *Worker {
	tel = observability.OrNop(tel)
	if peer == "" {
		peer = "broker"
	}
	return &Worker{
		subscriber: subscriber,
		forwarder:  forwarder,
		peer:       peer,
		tel:        tel,
		log:        tel.Logger().With(observability.F("component", componentNotify)),
	}
}

func (w *Worker) Start() {
	if w.subscriber == nil {
		return
	}
	for _, name := range Events {
		w.subscriber.Subscribe(name, w.handle)
	}
}

func (w *Worker) handle(ctx context.Context, e domoutbox.Event) (err error) {
	name := e.EventName()
	ctx = workerpresentation.WithEventContext(ctx, w.log, map[string]string{
		"event":    name,
		"order_id": orderID(e),
	})
	logger := logctx.FromOr(ctx, w.log)
	logger.Info("order_event", eventFields(e)...)

	if w.forwarder == nil {
		return nil
	}
	start := time.Now()
	err = w.forwarder.Publish(ctx, e)
	application.External(w.tel, w.peer, name, start, err)
	if err != nil {
		logger.Warn("order_event_forward_failed", observability.F("error", err))
		return fmt.Errorf("notify: forward %s: %w", name, err)
	}
	return nil
}

func orderID(e domoutbox.Event) string {
	switch evt := e.(type) {
	case domorder.OrderCreatedEvent:
		return evt.OrderID
	case domorder.OrderPaidEvent:
		return evt.OrderID
	case domorder.OrderPaymentFailedEvent:
		return evt.OrderID
	case domorder.OrderStatusChangedEvent:
		return evt.OrderID
	case domorder.OrderCancelledEvent:
		return evt.OrderID
	case domorder.OrderPaidAfterCancelEvent:
		return evt.OrderID
	}
	return ""
}

func eventFields(e domoutbox.Event) []observability.Field {
	switch evt := e.(type) {
	case domorder.OrderCreatedEvent:
		return []observability.Field{
			observability.F("account_id", evt.AccountID),
			observability.F("payment_method", string(evt.PaymentMethod)),
			observability.F("total_price", evt.TotalPrice.String()),
		}
	case domorder.OrderPaidEvent:
		return []observability.Field{
			observability.F("provider", string(evt.Provider)),
			observability.F("payment_id", evt.PaymentID),
		}
	case domorder.OrderPaymentFailedEvent:
		return []observability.Field{observability.F("reason", evt.Reason)}
	case domorder.OrderStatusChangedEvent:
		return []observability.Field{
			observability.F("from", string(evt.From)),
			observability.F("to", string(evt.To)),
		}
	case domorder.OrderCancelledEvent:
		return []observability.Field{observability.F("cancelled_by", evt.CancelledBy)}
	case domorder.OrderPaidAfterCancelEvent:
		return []observability.Field{
			observability.F("provider", string(evt.Provider)),
			observability.F("payment_id", evt.PaymentID),
			observability.F("total_price", evt.TotalPrice.String()),
		}
	}
	return nil
}
