package order

import (
	"time"

	"github.com/Zhima-Mochi/sportsphere/internal/domain/money"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/payment"
)

// OrderCreatedEvent is emitted once an order and its stock adjustment are committed.
type OrderCreatedEvent struct {
	OrderID       string         `json:"orderId"`
	AccountID     string         `json:"accountId"`
	PaymentMethod payment.Method `json:"paymentMethod"`
	TotalPrice    money.Money    `json:"totalPrice"`
	Items         int            `json:"items"`
	OccurredAt    time.Time      `json:"occurredAt"`
}

func (OrderCreatedEvent) EventName() string { return "order.created" }

func NewOrderCreatedEvent(o *Order) OrderCreatedEvent {
	return OrderCreatedEvent{
		OrderID:       o.ID,
		AccountID:     o.AccountID,
		PaymentMethod: o.PaymentMethod,
		TotalPrice:    o.TotalPrice,
		Items:         len(o.Items),
		OccurredAt:    time.Now().UTC(),
	}
}

type OrderPaidEvent struct {
	OrderID    string         `json:"orderId"`
	Provider   payment.Method `json:"provider"`
	PaymentID  string         `json:"paymentId"`
	OccurredAt time.Time      `json:"occurredAt"`
}

func (OrderPaidEvent) EventName() string { return "order.paid" }

func NewOrderPaidEvent(o *Order) OrderPaidEvent {
	e := OrderPaidEvent{OrderID: o.ID, Provider: o.PaymentMethod, OccurredAt: time.Now().UTC()}
	if o.PaymentResult != nil {
		e.PaymentID = o.PaymentResult.ID
	}
	return e
}

type OrderPaymentFailedEvent struct {
	OrderID    string    `json:"orderId"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (OrderPaymentFailedEvent) EventName() string { return "order.payment_failed" }

func NewOrderPaymentFailedEvent(o *Order, reason string) OrderPaymentFailedEvent {
	return OrderPaymentFailedEvent{OrderID: o.ID, Reason: reason, OccurredAt: time.Now().UTC()}
}

type OrderStatusChangedEvent struct {
	OrderID    string    `json:"orderId"`
	From       Status    `json:"from"`
	To         Status    `json:"to"`
	OccurredAt time.Time `json:"occurredAt"`
}

func (OrderStatusChangedEvent) EventName() string { return "order.status_changed" }

func NewOrderStatusChangedEvent(o *Order, from Status) OrderStatusChangedEvent {
	return OrderStatusChangedEvent{OrderID: o.ID, From: from, To: o.Status, OccurredAt: time.Now().UTC()}
}

type OrderCancelledEvent struct {
	OrderID     string    `json:"orderId"`
	CancelledBy string    `json:"cancelledBy"`
	OccurredAt  time.Time `json:"occurredAt"`
}

func (OrderCancelledEvent) EventName() string { return "order.cancelled" }

func NewOrderCancelledEvent(o *Order, by string) OrderCancelledEvent {
	return OrderCancelledEvent{OrderID: o.ID, CancelledBy: by, OccurredAt: time.Now().UTC()}
}

// OrderPaidAfterCancelEvent reports money captured for an order that was
// already cancelled. The payment needs a manual refund.
type OrderPaidAfterCancelEvent struct {
	OrderID    string         `json:"orderId"`
	Provider   payment.Method `json:"provider"`
	PaymentID  string         `json:"paymentId"`
	TotalPrice money.Money    `json:"totalPrice"`
	OccurredAt time.Time      `json:"occurredAt"`
}

func (OrderPaidAfterCancelEvent) EventName() string { return "order.paid_after_cancel" }

func NewOrderPaidAfterCancelEvent(o *Order) OrderPaidAfterCancelEvent {
	e := OrderPaidAfterCancelEvent{
		OrderID:    o.ID,
		Provider:   o.PaymentMethod,
		TotalPrice: o.TotalPrice,
		OccurredAt: time.Now().UTC(),
	}
	if o.PaymentResult != nil {
		e.PaymentID = o.PaymentResult.ID
	}
	return e
}
