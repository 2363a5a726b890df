package postgres

import (
	"context"

	"github.com/Zhima-Mochi/sportsphere/internal/domain/catalog"
	domain "github.com/Zhima-Mochi/sportsphere/internal/domain/order"
	"gorm.io/gorm"
)

// UnitOfWork maps one order use case onto one database transaction. Orders
// read inside it are locked with SELECT ... FOR UPDATE.
type UnitOfWork struct {
	db *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	return u.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(ctx, pgTx{db: db})
	})
}

type pgTx struct{ db *gorm.DB }

func (t pgTx) Orders() domain.Repository {
	return &OrderRepository{db: t.db, forUpdate: true}
}

func (t pgTx) Products() catalog.Repository { return NewProductRepository(t.db) }
func (t pgTx) Stock() catalog.StockAdjuster { return NewProductRepository(t.db) }
