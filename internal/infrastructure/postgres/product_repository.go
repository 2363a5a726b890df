package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/Zhima-Mochi/sportsphere/internal/domain/catalog"
	"gorm.io/gorm"
)

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Insert(ctx context.Context, p *domain.Product) error {
	if err := r.db.WithContext(ctx).Create(productToRow(p)).Error; err != nil {
		return fmt.Errorf("postgres: insert product: %w", err)
	}
	return nil
}

func (r *ProductRepository) Get(ctx context.Context, id string) (*domain.Product, error) {
	var row productRow
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get product: %w", err)
	}
	return row.toDomain(), nil
}

func (r *ProductRepository) List(ctx context.Context, f domain.Filter) ([]*domain.Product, error) {
	q := r.db.WithContext(ctx).Model(&productRow{})
	if f.Category != "" {
		q = q.Where("LOWER(category) = LOWER(?)", f.Category)
	}
	if f.Keyword != "" {
		q = q.Where("name ILIKE ?", "%"+escapeLike(f.Keyword)+"%")
	}
	var rows []productRow
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("postgres: list products: %w", err)
	}
	out := make([]*domain.Product, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	row := productToRow(p)
	res := r.db.WithContext(ctx).Model(row).Select("*").Omit("id", "created_at").Updates(row)
	if res.Error != nil {
		return fmt.Errorf("postgres: update product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&productRow{})
	if res.Error != nil {
		return fmt.Errorf("postgres: delete product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DecrementStock only succeeds while the row still has qty units. A miss is
// told apart (unknown product or not enough stock) by a follow-up count.
func (r *ProductRepository) DecrementStock(ctx context.Context, productID string, qty int) error {
	db := r.db.WithContext(ctx)
	res := db.Model(&productRow{}).
		Where("id = ? AND count_in_stock >= ?", productID, qty).
		UpdateColumn("count_in_stock", gorm.Expr("count_in_stock - ?", qty))
	if res.Error != nil {
		return fmt.Errorf("postgres: decrement stock: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var n int64
	if err := db.Model(&productRow{}).Where("id = ?", productID).Count(&n).Error; err != nil {
		return fmt.Errorf("postgres: decrement stock: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return domain.ErrInsufficientStock
}

func (r *ProductRepository) IncrementStock(ctx context.Context, productID string, qty int) error {
	res := r.db.WithContext(ctx).Model(&productRow{}).
		Where("id = ?", productID).
		UpdateColumn("count_in_stock", gorm.Expr("count_in_stock + ?", qty))
	if res.Error != nil {
		return fmt.Errorf("postgres: increment stock: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
