package order

import (
	"context"

	"github.com/Zhima-Mochi/sportsphere/internal/domain/catalog"
)

type Repository interface {
	Insert(ctx context.Context, o *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	Update(ctx context.Context, o *Order) error
	// ListByAccount returns the account's orders, newest first.
	ListByAccount(ctx context.Context, accountID string) ([]*Order, error)
	// List returns every order, newest first.
	List(ctx context.Context) ([]*Order, error)
}

// Tx exposes the repositories bound to one unit of work.
type Tx interface {
	Orders() Repository
	Products() catalog.Repository
	Stock() catalog.StockAdjuster
}

// UnitOfWork runs fn atomically: either every write made through tx is
// committed or none is.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
