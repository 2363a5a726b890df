package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	domain "github.com/Zhima-Mochi/sportsphere/internal/domain/account"
)

type AccountRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
	byEmail  map[string]string
}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		accounts: make(map[string]*domain.Account),
		byEmail:  make(map[string]string),
	}
}

func (r *AccountRepository) Insert(ctx context.Context, a *domain.Account) error {
	_ = ctx
	if a == nil || a.ID == "" {
		return fmt.Errorf("account repository: id is required")
	}
	email := domain.NormalizeEmail(a.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[email]; taken {
		return domain.ErrEmailTaken
	}
	if _, exists := r.accounts[a.ID]; exists {
		return fmt.Errorf("account repository: duplicate id %q", a.ID)
	}
	r.accounts[a.ID] = a.Clone()
	r.byEmail[email] = a.ID
	return nil
}

func (r *AccountRepository) Get(ctx context.Context, id string) (*domain.Account, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return a.Clone(), nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.accounts[id].Clone(), nil
}

func (r *AccountRepository) List(ctx context.Context) ([]*domain.Account, error) {
	_ = ctx

	r.mu.RLock()
	out := make([]*domain.Account, 0, len(r.accounts))
	for _, a := range r.accounts {
		out = append(out, a.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Update fails with ErrEmailTaken when the new email belongs to another account.
func (r *AccountRepository) Update(ctx context.Context, a *domain.Account) error {
	_ = ctx
	if a == nil || a.ID == "" {
		return fmt.Errorf("account repository: id is required")
	}
	email := domain.NormalizeEmail(a.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	prev, ok := r.accounts[a.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if owner, taken := r.byEmail[email]; taken && owner != a.ID {
		return domain.ErrEmailTaken
	}
	delete(r.byEmail, domain.NormalizeEmail(prev.Email))
	r.byEmail[email] = a.ID
	r.accounts[a.ID] = a.Clone()
	return nil
}

func (r *AccountRepository) Delete(ctx context.Context, id string) error {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(r.byEmail, domain.NormalizeEmail(a.Email))
	delete(r.accounts, id)
	return nil
}
