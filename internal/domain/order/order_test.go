package order

import (
	"testing"
	"time"

	"github.com/Zhima-Mochi/sportsphere/internal/domain/apperr"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/money"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testShipping = ShippingAddress{
	Address:  "Jhamsikhel-3",
	City:     "Lalitpur",
	District: "Lalitpur",
	Country:  "Nepal",
}

func newTestOrder(t *testing.T, method payment.Method) *Order {
	t.Helper()
	items := []Item{{ProductID: "p1", Name: "Bat", Price: money.Rupees(1000), Qty: 2}}
	pr, err := DefaultPolicy().Price(items, method)
	require.NoError(t, err)
	o, err := New("o-1", "a-1", items, testShipping, method, pr, "")
	require.NoError(t, err)
	return o
}

func TestNewRejectsInvalidInput(t *testing.T) {
	_, err := New("o-1", "a-1", nil, testShipping, payment.MethodCOD, Pricing{}, "")
	assert.ErrorIs(t, err, ErrNoItems)

	_, err = New("o-1", "a-1", []Item{{ProductID: "p1", Qty: 0}}, testShipping, payment.MethodCOD, Pricing{}, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	ship := testShipping
	ship.City = ""
	_, err = New("o-1", "a-1", []Item{{ProductID: "p1", Qty: 1}}, ship, payment.MethodCOD, Pricing{}, "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Contains(t, err.Error(), "city")
}

func TestNewStartsPendingAndUnpaid(t *testing.T) {
	o := newTestOrder(t, payment.MethodEsewa)

	assert.Equal(t, StatusPending, o.Status)
	assert.False(t, o.IsPaid)
	assert.Nil(t, o.PaidAt)
	assert.Equal(t, o.ItemsPrice+o.TaxPrice+o.ShippingPrice, o.TotalPrice)
}

func TestMarkPaidIsIdempotent(t *testing.T) {
	o := newTestOrder(t, payment.MethodEsewa)
	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	assert.True(t, o.MarkPaid(payment.Completed(payment.MethodEsewa, "txn-1", first), first))
	assert.False(t, o.MarkPaid(payment.Completed(payment.MethodEsewa, "txn-2", first.Add(time.Hour)), first.Add(time.Hour)))

	require.NotNil(t, o.PaidAt)
	assert.Equal(t, first, *o.PaidAt)
	assert.Equal(t, "txn-1", o.PaymentResult.ID)
	assert.Equal(t, StatusProcessing, o.Status)
}

func TestMarkPaidKeepsOfflineOrdersPending(t *testing.T) {
	o := newTestOrder(t, payment.MethodBankTransfer)
	o.MarkPaid(payment.Completed(payment.MethodBankTransfer, "ref", time.Now()), time.Now())
	assert.Equal(t, StatusPending, o.Status)
	assert.True(t, o.IsPaid)
}

func TestRecordPaymentFailureNeverUnpays(t *testing.T) {
	o := newTestOrder(t, payment.MethodEsewa)
	assert.True(t, o.RecordPaymentFailure(payment.Failed(payment.MethodEsewa, "o-1", "", time.Now())))
	assert.False(t, o.IsPaid)

	o.MarkPaid(payment.Completed(payment.MethodEsewa, "txn", time.Now()), time.Now())
	assert.False(t, o.RecordPaymentFailure(payment.Failed(payment.MethodEsewa, "o-1", "late", time.Now())))
	assert.True(t, o.IsPaid)
	assert.Equal(t, payment.StatusCompleted, o.PaymentResult.Status)
}

func TestCancel(t *testing.T) {
	tests := []struct {
		from    Status
		changed bool
		wantErr error
	}{
		{StatusPending, true, nil},
		{StatusProcessing, true, nil},
		{StatusCancelled, false, nil},
		{StatusShipped, false, ErrNotCancellable},
		{StatusDelivered, false, ErrNotCancellable},
	}
	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			o := newTestOrder(t, payment.MethodCOD)
			o.Status = tt.from
			changed, err := o.Cancel()
			assert.Equal(t, tt.changed, changed)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, apperr.ErrInvalidState)
				assert.Equal(t, tt.from, o.Status)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, StatusCancelled, o.Status)
		})
	}
}

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		from, to Status
		ok       bool
	}{
		{StatusPending, StatusProcessing, true},
		{StatusPending, StatusShipped, true},
		{StatusProcessing, StatusShipped, true},
		{StatusShipped, StatusDelivered, true},
		{StatusShipped, StatusProcessing, false},
		{StatusShipped, StatusCancelled, false},
		{StatusDelivered, StatusPending, false},
		{StatusCancelled, StatusProcessing, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			o := newTestOrder(t, payment.MethodCOD)
			o.Status = tt.from
			_, err := o.TransitionTo(tt.to, time.Now())
			if tt.ok {
				assert.NoError(t, err)
				assert.Equal(t, tt.to, o.Status)
			} else {
				assert.ErrorIs(t, err, apperr.ErrInvalidState)
				assert.Equal(t, tt.from, o.Status)
			}
		})
	}
}

func TestTerminalStatusesAreFinal(t *testing.T) {
	assert.True(t, StatusDelivered.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusShipped.Terminal())
	assert.False(t, Status("lost").Terminal())

	for _, final := range []Status{StatusDelivered, StatusCancelled} {
		for _, next := range []Status{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled} {
			if next == final {
				continue
			}
			o := newTestOrder(t, payment.MethodCOD)
			o.Status = final
			changed, err := o.TransitionTo(next, time.Now())
			assert.ErrorIs(t, err, apperr.ErrInvalidState, "%s -> %s", final, next)
			assert.ErrorContains(t, err, "is final")
			assert.False(t, changed)
			assert.Equal(t, final, o.Status)
		}
	}
}

func TestTransitionToDeliveredStampsDelivery(t *testing.T) {
	o := newTestOrder(t, payment.MethodCOD)
	changed, err := o.TransitionTo(StatusDelivered, time.Now())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, o.IsDelivered)
	assert.NotNil(t, o.DeliveredAt)

	changed, err = o.TransitionTo(StatusDelivered, time.Now())
	assert.NoError(t, err)
	assert.False(t, changed)
}

func TestTransitionRejectsUnknownStatus(t *testing.T) {
	o := newTestOrder(t, payment.MethodCOD)
	_, err := o.TransitionTo("lost", time.Now())
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
