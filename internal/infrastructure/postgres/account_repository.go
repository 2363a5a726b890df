package postgres

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/Zhima-Mochi/sportsphere/internal/domain/account"
	"gorm.io/gorm"
)

// AccountRepository relies on the unique index on accounts.email.
type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Insert(ctx context.Context, a *domain.Account) error {
	row := accountToRow(a)
	row.Email = domain.NormalizeEmail(row.Email)
	err := r.db.WithContext(ctx).Create(row).Error
	if isUniqueViolation(err) {
		return domain.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("postgres: insert account: %w", err)
	}
	return nil
}

func (r *AccountRepository) Get(ctx context.Context, id string) (*domain.Account, error) {
	return r.take(ctx, "id = ?", id)
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.take(ctx, "email = ?", domain.NormalizeEmail(email))
}

func (r *AccountRepository) take(ctx context.Context, query string, arg any) (*domain.Account, error) {
	var row accountRow
	err := r.db.WithContext(ctx).Where(query, arg).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get account: %w", err)
	}
	return row.toDomain(), nil
}

func (r *AccountRepository) List(ctx context.Context) ([]*domain.Account, error) {
	var rows []accountRow
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("postgres: list accounts: %w", err)
	}
	out := make([]*domain.Account, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (r *AccountRepository) Update(ctx context.Context, a *domain.Account) error {
	row := accountToRow(a)
	row.Email = domain.NormalizeEmail(row.Email)
	res := r.db.WithContext(ctx).Model(row).Select("*").Omit("id", "created_at").Updates(row)
	if isUniqueViolation(res.Error) {
		return domain.ErrEmailTaken
	}
	if res.Error != nil {
		return fmt.Errorf("postgres: update account: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&accountRow{})
	if res.Error != nil {
		return fmt.Errorf("postgres: delete account: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
