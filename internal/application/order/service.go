package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Zhima-Mochi/sportsphere/internal/application"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/account"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/apperr"
	domain "github.com/Zhima-Mochi/sportsphere/internal/domain/order"
	domoutbox "github.com/Zhima-Mochi/sportsphere/internal/domain/outbox"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/payment"
	"github.com/Zhima-Mochi/sportsphere/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	orderService = "order-service"

	useCaseCreate        = "order.create"
	useCaseMarkPaid      = "order.mark_paid"
	useCasePaymentFailed = "order.payment_failed"
	useCaseDeliver       = "order.deliver"
	useCaseSetStatus     = "order.set_status"
	useCaseCancel        = "order.cancel"
	useCaseGet           = "order.get"
	useCaseListMine      = "order.list_mine"
	useCaseListAll       = "order.list_all"

	publishPeer    = "outbox"
	publishTimeout = 300 * time.Millisecond
)

var ErrAdminOnly = apperr.New(apperr.ErrForbidden, "not authorized as an admin")

// Service drives the order lifecycle. Every mutation runs inside a unit of
// work so stock and order state commit together.
type Service struct {
	uow       domain.UnitOfWork
	orders    domain.Repository
	accounts  account.Repository
	policy    domain.Policy
	ids       application.IDGenerator
	publisher domoutbox.Publisher
	tel       observability.Observability
	log       observability.Logger
	now       func() time.Time
}

func NewService(
	uow domain.UnitOfWork,
	orders domain.Repository,
	accounts account.Repository,
	policy domain.Policy,
	ids application.IDGenerator,
	publisher domoutbox.Publisher,
	tel observability.Observability,
) *Service {
	tel = observability.OrNop(tel)
	return &Service{
		uow:       uow,
		orders:    orders,
		accounts:  accounts,
		policy:    policy,
		ids:       ids,
		publisher: publisher,
		tel:       tel,
		log:       tel.Logger().With(observability.F("service", orderService)),
		now:       time.Now,
	}
}

// Policy exposes the pricing policy, e.g. for the payment config endpoint.
func (s *Service) Policy() domain.Policy { return s.policy }

type ItemInput struct {
	ProductID string
	Qty       int
}

type CreateInput struct {
	AccountID       string
	Items           []ItemInput
	ShippingAddress domain.ShippingAddress
	PaymentMethod   string
	Notes           string
	// ClientPricing is what the client believes the totals are. It is only
	// compared against the server computation and never stored.
	ClientPricing *domain.Pricing
}

func (s *Service) Create(ctx context.Context, in CreateInput) (_ *domain.Order, err error) {
	ctx, run := application.Start(ctx, s.tel, s.log, useCaseCreate, "CreateOrder",
		attribute.String("order.account_id", in.AccountID),
		attribute.String("order.payment_method", in.PaymentMethod),
		attribute.Int("order.items", len(in.Items)),
	)
	defer func() { run.End(err) }()

	if len(in.Items) == 0 {
		run.Fail("NO_ITEMS")
		return nil, domain.ErrNoItems
	}
	for _, it := range in.Items {
		if it.Qty <= 0 {
			run.Fail("QUANTITY_INVALID")
			return nil, domain.ErrInvalidQty
		}
	}
	if err := in.ShippingAddress.Validate(); err != nil {
		run.Fail("SHIPPING_ADDRESS_INVALID")
		return nil, err
	}
	method, err := payment.ParseMethod(in.PaymentMethod)
	if err != nil {
		run.Fail("PAYMENT_METHOD_INVALID")
		return nil, err
	}

	var created *domain.Order
	err = s.uow.Do(ctx, func(ctx context.Context, tx domain.Tx) error {
		items := make([]domain.Item, 0, len(in.Items))
		for _, it := range in.Items {
			p, err := tx.Products().Get(ctx, it.ProductID)
			if err != nil {
				return fmt.Errorf("order: product %s: %w", it.ProductID, err)
			}
			items = append(items, domain.Item{
				ProductID: p.ID,
				Name:      p.Name,
				Image:     p.Image,
				Price:     p.Price,
				Qty:       it.Qty,
			})
		}

		pricing, err := s.policy.Price(items, method)
		if err != nil {
			return err
		}
		o, err := domain.New(s.ids.NewID(), in.AccountID, items, in.ShippingAddress, method, pricing, in.Notes)
		if err != nil {
			return err
		}

		for _, it := range items {
			if err := tx.Stock().DecrementStock(ctx, it.ProductID, it.Qty); err != nil {
				return fmt.Errorf("order: product %s: %w", it.ProductID, err)
			}
		}
		if err := tx.Orders().Insert(ctx, o); err != nil {
			return fmt.Errorf("order: insert: %w", err)
		}
		created = o
		return nil
	})
	if err != nil {
		run.Fail(failStatus(err))
		return nil, err
	}

	run.Span().SetAttributes(attribute.String("order.id", created.ID))
	run.Add(
		observability.F("order_id", created.ID),
		observability.F("total_price", created.TotalPrice.String()),
	)
	if cp := in.ClientPricing; cp != nil && *cp != created.Pricing {
		run.Logger().Warn("client_total_mismatch",
			observability.F("order_id", created.ID),
			observability.F("client_total", cp.TotalPrice.String()),
			observability.F("server_total", created.TotalPrice.String()),
		)
	}

	s.publish(ctx, run, domain.NewOrderCreatedEvent(created))
	return created, nil
}

// MarkPaid records a successful payment. A second call for an already paid
// order returns it unchanged.
func (s *Service) MarkPaid(ctx context.Context, orderID string, result payment.Result) (_ *domain.Order, err error) {
	ctx, run := application.Start(ctx, s.tel, s.log, useCaseMarkPaid, "MarkPaid",
		attribute.String("order.id", orderID),
		attribute.String("payment.provider", result.Provider),
	)
	defer func() { run.End(err) }()

	var changed bool
	o, err := s.mutate(ctx, orderID, func(o *domain.Order) (bool, error) {
		changed = o.MarkPaid(result, s.now())
		return changed, nil
	})
	if err != nil {
		run.Fail(failStatus(err))
		return nil, err
	}
	run.Add(observability.F("order_id", o.ID))
	if !changed {
		run.Status("ALREADY_PAID")
		run.Span().AddEvent("order.paid_replay", trace.WithAttributes(attribute.String("order.id", o.ID)))
		return o, nil
	}
	if o.Status == domain.StatusCancelled {
		// stock is already back on the shelf; someone has to refund
		run.Status("PAID_AFTER_CANCEL")
		run.Logger().Warn("paid_after_cancel",
			observability.F("order_id", o.ID),
			observability.F("provider", result.Provider),
			observability.F("payment_id", result.ID),
			observability.F("total_price", o.TotalPrice.String()),
		)
		s.publish(ctx, run, domain.NewOrderPaidAfterCancelEvent(o))
		return o, nil
	}
	s.publish(ctx, run, domain.NewOrderPaidEvent(o))
	return o, nil
}

// RecordPaymentFailure stores a failed attempt unless the order is already paid.
func (s *Service) RecordPaymentFailure(ctx context.Context, orderID string, result payment.Result) (_ *domain.Order, err error) {
	ctx, run := application.Start(ctx, s.tel, s.log, useCasePaymentFailed, "RecordPaymentFailure",
		attribute.String("order.id", orderID),
		attribute.String("payment.provider", result.Provider),
	)
	defer func() { run.End(err) }()

	var changed bool
	o, err := s.mutate(ctx, orderID, func(o *domain.Order) (bool, error) {
		changed = o.RecordPaymentFailure(result)
		return changed, nil
	})
	if err != nil {
		run.Fail(failStatus(err))
		return nil, err
	}
	run.Add(
		observability.F("order_id", o.ID),
		observability.F("reason", result.FailureReason),
	)
	if !changed {
		run.Status("ALREADY_PAID")
		return o, nil
	}
	s.publish(ctx, run, domain.NewOrderPaymentFailedEvent(o, result.FailureReason))
	return o, nil
}

func (s *Service) MarkDelivered(ctx context.Context, orderID string) (_ *domain.Order, err error) {
	ctx, run := application.Start(ctx, s.tel, s.log, useCaseDeliver, "MarkDelivered",
		attribute.String("order.id", orderID),
	)
	defer func() { run.End(err) }()

	return s.transition(ctx, run, orderID, domain.StatusDelivered)
}

// SetStatus is the admin override. It still follows the transition table.
func (s *Service) SetStatus(ctx context.Context, orderID, status string) (_ *domain.Order, err error) {
	ctx, run := application.Start(ctx, s.tel, s.log, useCaseSetStatus, "SetStatus",
		attribute.String("order.id", orderID),
		attribute.String("order.status", status),
	)
	defer func() { run.End(err) }()

	next := domain.Status(status)
	if !next.Valid() {
		run.Fail("STATUS_UNKNOWN")
		return nil, apperr.Validationf("unknown order status %q", status)
	}
	if next == domain.StatusCancelled {
		// cancelling must give the stock back
		return s.cancel(ctx, run, orderID, account.Identity{IsAdmin: true})
	}
	return s.transition(ctx, run, orderID, next)
}

func (s *Service) transition(ctx context.Context, run *application.Run, orderID string, next domain.Status) (*domain.Order, error) {
	var from domain.Status
	var changed bool
	o, err := s.mutate(ctx, orderID, func(o *domain.Order) (bool, error) {
		from = o.Status
		var err error
		changed, err = o.TransitionTo(next, s.now())
		return changed, err
	})
	if err != nil {
		run.Fail(failStatus(err))
		return nil, err
	}
	run.Add(
		observability.F("order_id", o.ID),
		observability.F("from", string(from)),
		observability.F("to", string(next)),
	)
	if !changed {
		run.Status("UNCHANGED")
		return o, nil
	}
	s.publish(ctx, run, domain.NewOrderStatusChangedEvent(o, from))
	return o, nil
}

// Cancel is allowed for the owner or an admin while the order has not shipped.
// Stock for every line is restored in the same unit of work.
func (s *Service) Cancel(ctx context.Context, orderID string, requester account.Identity) (_ *domain.Order, err error) {
	ctx, run := application.Start(ctx, s.tel, s.log, useCaseCancel, "CancelOrder",
		attribute.String("order.id", orderID),
	)
	defer func() { run.End(err) }()

	return s.cancel(ctx, run, orderID, requester)
}

func (s *Service) cancel(ctx context.Context, run *application.Run, orderID string, requester account.Identity) (*domain.Order, error) {
	var cancelled *domain.Order
	var changed bool
	err := s.uow.Do(ctx, func(ctx context.Context, tx domain.Tx) error {
		o, err := tx.Orders().Get(ctx, orderID)
		if err != nil {
			return err
		}
		if !o.CanBeViewedBy(requester) {
			return domain.ErrForbidden
		}
		changed, err = o.Cancel()
		if err != nil {
			return err
		}
		cancelled = o
		if !changed {
			return nil
		}
		for _, it := range o.Items {
			err := tx.Stock().IncrementStock(ctx, it.ProductID, it.Qty)
			if errors.Is(err, apperr.ErrNotFound) {
				run.Logger().Warn("stock_restore_skipped",
					observability.F("order_id", o.ID),
					observability.F("product_id", it.ProductID),
				)
				continue
			}
			if err != nil {
				return fmt.Errorf("order: restore stock %s: %w", it.ProductID, err)
			}
		}
		return tx.Orders().Update(ctx, o)
	})
	if err != nil {
		run.Fail(failStatus(err))
		return nil, err
	}
	run.Add(observability.F("order_id", cancelled.ID))
	if !changed {
		run.Status("ALREADY_CANCELLED")
		return cancelled, nil
	}
	by := requester.AccountID
	if by == "" {
		by = "admin"
	}
	s.publish(ctx, run, domain.NewOrderCancelledEvent(cancelled, by))
	return cancelled, nil
}

// Get returns the order to its owner or an admin, with owner details attached.
func (s *Service) Get(ctx context.Context, orderID string, requester account.Identity) (_ *domain.Order, err error) {
	ctx, run := application.Start(ctx, s.tel, s.log, useCaseGet, "GetOrder",
		attribute.String("order.id", orderID),
	)
	defer func() { run.End(err) }()

	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		run.Fail(failStatus(err))
		return nil, err
	}
	if !o.CanBeViewedBy(requester) {
		run.Fail("FORBIDDEN")
		return nil, domain.ErrForbidden
	}
	s.attachOwners(ctx, run, []*domain.Order{o})
	return o, nil
}

// Lookup loads an order without an ownership check, for provider callbacks.
func (s *Service) Lookup(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.orders.Get(ctx, orderID)
}

func (s *Service) ListMine(ctx context.Context, accountID string) (_ []*domain.Order, err error) {
	ctx, run := application.Start(ctx, s.tel, s.log, useCaseListMine, "ListMyOrders",
		attribute.String("order.account_id", accountID),
	)
	defer func() { run.End(err) }()

	out, err := s.orders.ListByAccount(ctx, accountID)
	if err != nil {
		run.Fail("REPOSITORY_ERROR")
		return nil, fmt.Errorf("order: list: %w", err)
	}
	run.Add(observability.F("count", len(out)))
	return out, nil
}

func (s *Service) ListAll(ctx context.Context, requester account.Identity) (_ []*domain.Order, err error) {
	ctx, run := application.Start(ctx, s.tel, s.log, useCaseListAll, "ListAllOrders")
	defer func() { run.End(err) }()

	if !requester.IsAdmin {
		run.Fail("FORBIDDEN")
		return nil, ErrAdminOnly
	}
	out, err := s.orders.List(ctx)
	if err != nil {
		run.Fail("REPOSITORY_ERROR")
		return nil, fmt.Errorf("order: list: %w", err)
	}
	s.attachOwners(ctx, run, out)
	run.Add(observability.F("count", len(out)))
	return out, nil
}

// mutate loads the order inside a unit of work, applies fn and saves the
// order when fn reports a change.
func (s *Service) mutate(ctx context.Context, orderID string, fn func(o *domain.Order) (bool, error)) (*domain.Order, error) {
	var out *domain.Order
	err := s.uow.Do(ctx, func(ctx context.Context, tx domain.Tx) error {
		o, err := tx.Orders().Get(ctx, orderID)
		if err != nil {
			return err
		}
		changed, err := fn(o)
		if err != nil {
			return err
		}
		out = o
		if !changed {
			return nil
		}
		return tx.Orders().Update(ctx, o)
	})
	return out, err
}

func (s *Service) attachOwners(ctx context.Context, run *application.Run, orders []*domain.Order) {
	if s.accounts == nil {
		return
	}
	seen := make(map[string]*domain.Owner)
	for _, o := range orders {
		owner, ok := seen[o.AccountID]
		if !ok {
			acc, err := s.accounts.Get(ctx, o.AccountID)
			if err != nil {
				if !errors.Is(err, account.ErrNotFound) {
					run.Logger().Warn("order_owner_lookup_failed",
						observability.F("order_id", o.ID),
						observability.F("error", err),
					)
				}
			} else {
				owner = &domain.Owner{ID: acc.ID, Name: acc.Name, Email: acc.Email}
			}
			seen[o.AccountID] = owner
		}
		if owner != nil {
			ow := *owner
			o.Owner = &ow
		}
	}
}

func (s *Service) publish(ctx context.Context, run *application.Run, e domoutbox.Event) {
	if s.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	start := time.Now()
	err := s.publisher.Publish(pubCtx, e)
	application.External(s.tel, publishPeer, e.EventName(), start, err)
	if err != nil {
		run.Add(observability.F("event_publish_error", err.Error()))
	}
}

func failStatus(err error) string {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, apperr.ErrForbidden):
		return "FORBIDDEN"
	case errors.Is(err, apperr.ErrInvalidState):
		return "INVALID_STATE"
	case errors.Is(err, apperr.ErrValidation):
		return "VALIDATION"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "CONTEXT_CANCELED"
	}
	return "REPOSITORY_ERROR"
}
