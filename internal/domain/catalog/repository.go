package catalog

import "context"

type Filter struct {
	Category string
	Keyword  string
}

type Repository interface {
	Insert(ctx context.Context, p *Product) error
	Get(ctx context.Context, id string) (*Product, error)
	// List returns matching products, newest first.
	List(ctx context.Context, f Filter) ([]*Product, error)
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
}

// StockAdjuster changes stock atomically. Decrement must fail with
// ErrInsufficientStock instead of letting CountInStock go negative.
type StockAdjuster interface {
	DecrementStock(ctx context.Context, productID string, qty int) error
	IncrementStock(ctx context.Context, productID string, qty int) error
}
