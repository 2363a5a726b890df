package order

import (
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/sportsphere/internal/domain/account"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/apperr"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/money"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/payment"
)

var (
	ErrNotFound       = fmt.Errorf("order: %w", apperr.ErrNotFound)
	ErrNoItems        = apperr.Validation("no order items")
	ErrInvalidQty     = apperr.Validation("order item quantity must be greater than zero")
	ErrForbidden      = apperr.New(apperr.ErrForbidden, "not authorized to access this order")
	ErrNotCancellable = apperr.New(apperr.ErrInvalidState, "cannot cancel shipped/delivered order")
)

// Item is an immutable snapshot of a product at purchase time.
type Item struct {
	ProductID string      `json:"product"`
	Name      string      `json:"name"`
	Image     string      `json:"image"`
	Price     money.Money `json:"price"`
	Qty       int         `json:"qty"`
}

func (i Item) Subtotal() money.Money { return i.Price.Mul(i.Qty) }

type ShippingAddress struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	District   string `json:"district"`
	Country    string `json:"country"`
	PostalCode string `json:"postalCode,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

func (s ShippingAddress) Validate() error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"address", s.Address},
		{"city", s.City},
		{"district", s.District},
		{"country", s.Country},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return apperr.Validationf("shipping address is missing: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Owner is the display data attached to admin order listings.
type Owner struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type Order struct {
	ID              string          `json:"id"`
	AccountID       string          `json:"user"`
	Owner           *Owner          `json:"owner,omitempty"`
	Items           []Item          `json:"orderItems"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   payment.Method  `json:"paymentMethod"`
	Pricing
	IsPaid        bool            `json:"isPaid"`
	PaidAt        *time.Time      `json:"paidAt,omitempty"`
	PaymentResult *payment.Result `json:"paymentResult,omitempty"`
	IsDelivered   bool            `json:"isDelivered"`
	DeliveredAt   *time.Time      `json:"deliveredAt,omitempty"`
	Status        Status          `json:"orderStatus"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// New builds a pending, unpaid order. Pricing must already be computed by a Policy.
func New(id, accountID string, items []Item, ship ShippingAddress, method payment.Method, pricing Pricing, notes string) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	for _, it := range items {
		if it.Qty <= 0 {
			return nil, ErrInvalidQty
		}
	}
	if err := ship.Validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return &Order{
		ID:              id,
		AccountID:       accountID,
		Items:           append([]Item(nil), items...),
		ShippingAddress: ship,
		PaymentMethod:   method,
		Pricing:         pricing,
		Status:          StatusPending,
		Notes:           notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// CanBeViewedBy reports whether id is the owner or an admin.
func (o *Order) CanBeViewedBy(id account.Identity) bool {
	return id.Owns(o.AccountID)
}

// MarkPaid records a successful payment. It returns false without touching the
// order when it is already paid, so duplicate provider callbacks are harmless.
func (o *Order) MarkPaid(result payment.Result, at time.Time) bool {
	if o.IsPaid {
		return false
	}
	at = at.UTC()
	o.IsPaid = true
	o.PaidAt = &at
	o.PaymentResult = &result
	if o.PaymentMethod.Online() && o.Status == StatusPending {
		o.Status = StatusProcessing
	}
	o.touch()
	return true
}

// RecordPaymentFailure stores a failed attempt. Paid orders are left as they are.
func (o *Order) RecordPaymentFailure(result payment.Result) bool {
	if o.IsPaid {
		return false
	}
	o.PaymentResult = &result
	o.touch()
	return true
}

// TransitionTo moves the order to next following the transition table.
// Moving to the current status is a no-op and reports false.
func (o *Order) TransitionTo(next Status, at time.Time) (bool, error) {
	if !next.Valid() {
		return false, apperr.Validationf("unknown order status %q", next)
	}
	if o.Status == next {
		return false, nil
	}
	if o.Status.Terminal() {
		return false, fmt.Errorf("order: %s is final: %w", o.Status, apperr.ErrInvalidState)
	}
	if !CanTransition(o.Status, next) {
		return false, fmt.Errorf("order: %s -> %s: %w", o.Status, next, apperr.ErrInvalidState)
	}
	o.Status = next
	if next == StatusDelivered {
		at = at.UTC()
		o.IsDelivered = true
		o.DeliveredAt = &at
	}
	o.touch()
	return true, nil
}

// Cancel moves a pending or processing order to cancelled. Cancelling an
// already cancelled order is a no-op and reports false.
func (o *Order) Cancel() (bool, error) {
	switch o.Status {
	case StatusCancelled:
		return false, nil
	case StatusShipped, StatusDelivered:
		return false, ErrNotCancellable
	}
	o.Status = StatusCancelled
	o.touch()
	return true, nil
}

func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = append([]Item(nil), o.Items...)
	if o.PaidAt != nil {
		t := *o.PaidAt
		c.PaidAt = &t
	}
	if o.DeliveredAt != nil {
		t := *o.DeliveredAt
		c.DeliveredAt = &t
	}
	if o.PaymentResult != nil {
		r := *o.PaymentResult
		c.PaymentResult = &r
	}
	if o.Owner != nil {
		ow := *o.Owner
		c.Owner = &ow
	}
	return &c
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}
