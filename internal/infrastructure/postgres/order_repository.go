package postgres

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/Zhima-Mochi/sportsphere/internal/domain/order"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderRepository struct {
	db *gorm.DB
	// forUpdate locks fetched rows until the surrounding transaction ends.
	forUpdate bool
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Insert(ctx context.Context, o *domain.Order) error {
	if err := r.db.WithContext(ctx).Create(orderToRow(o)).Error; err != nil {
		return fmt.Errorf("postgres: insert order: %w", err)
	}
	return nil
}

func (r *OrderRepository) Get(ctx context.Context, id string) (*domain.Order, error) {
	q := r.db.WithContext(ctx)
	if r.forUpdate {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var row orderRow
	err := q.Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get order: %w", err)
	}
	return row.toDomain(), nil
}

func (r *OrderRepository) Update(ctx context.Context, o *domain.Order) error {
	row := orderToRow(o)
	res := r.db.WithContext(ctx).Model(row).Select("*").Omit("id", "account_id", "created_at").Updates(row)
	if res.Error != nil {
		return fmt.Errorf("postgres: update order: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) ListByAccount(ctx context.Context, accountID string) ([]*domain.Order, error) {
	return r.list(r.db.WithContext(ctx).Where("account_id = ?", accountID))
}

func (r *OrderRepository) List(ctx context.Context) ([]*domain.Order, error) {
	return r.list(r.db.WithContext(ctx))
}

func (r *OrderRepository) list(q *gorm.DB) ([]*domain.Order, error) {
	var rows []orderRow
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("postgres: list orders: %w", err)
	}
	out := make([]*domain.Order, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}
