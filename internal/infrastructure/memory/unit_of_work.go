package memory

import (
	"context"
	"sync"

	"github.com/Zhima-Mochi/sportsphere/internal/domain/catalog"
	domain "github.com/Zhima-Mochi/sportsphere/internal/domain/order"
)

// UnitOfWork serialises units of work and undoes the journalled writes of a
// failed one, newest first.
type UnitOfWork struct {
	mu       sync.Mutex
	orders   *OrderRepository
	products *ProductRepository
}

func NewUnitOfWork(orders *OrderRepository, products *ProductRepository) *UnitOfWork {
	return &UnitOfWork{orders: orders, products: products}
}

func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	tx := &memTx{orders: u.orders, products: u.products}
	if err := fn(ctx, tx); err != nil {
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		return err
	}
	return nil
}

type memTx struct {
	orders   *OrderRepository
	products *ProductRepository
	undo     []func()
}

func (t *memTx) Orders() domain.Repository    { return txOrders{t} }
func (t *memTx) Products() catalog.Repository { return t.products }
func (t *memTx) Stock() catalog.StockAdjuster { return txStock{t} }
func (t *memTx) journal(f func())             { t.undo = append(t.undo, f) }

type txOrders struct{ tx *memTx }

func (o txOrders) Insert(ctx context.Context, order *domain.Order) error {
	if err := o.tx.orders.Insert(ctx, order); err != nil {
		return err
	}
	id := order.ID
	o.tx.journal(func() { o.tx.orders.restore(id, nil) })
	return nil
}

func (o txOrders) Get(ctx context.Context, id string) (*domain.Order, error) {
	return o.tx.orders.Get(ctx, id)
}

func (o txOrders) Update(ctx context.Context, order *domain.Order) error {
	prev, err := o.tx.orders.Get(ctx, order.ID)
	if err != nil {
		return err
	}
	if err := o.tx.orders.Update(ctx, order); err != nil {
		return err
	}
	o.tx.journal(func() { o.tx.orders.restore(prev.ID, prev) })
	return nil
}

func (o txOrders) ListByAccount(ctx context.Context, accountID string) ([]*domain.Order, error) {
	return o.tx.orders.ListByAccount(ctx, accountID)
}

func (o txOrders) List(ctx context.Context) ([]*domain.Order, error) {
	return o.tx.orders.List(ctx)
}

type txStock struct{ tx *memTx }

func (s txStock) DecrementStock(ctx context.Context, productID string, qty int) error {
	if err := s.tx.products.DecrementStock(ctx, productID, qty); err != nil {
		return err
	}
	s.tx.journal(func() { _ = s.tx.products.IncrementStock(context.Background(), productID, qty) })
	return nil
}

func (s txStock) IncrementStock(ctx context.Context, productID string, qty int) error {
	if err := s.tx.products.IncrementStock(ctx, productID, qty); err != nil {
		return err
	}
	s.tx.journal(func() { _ = s.tx.products.DecrementStock(context.Background(), productID, qty) })
	return nil
}
