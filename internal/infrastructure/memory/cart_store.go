package memory

import (
	"context"
	"sync"

	domain "github.com/Zhima-Mochi/sportsphere/internal/domain/cart"
)

type CartStore struct {
	mu    sync.RWMutex
	carts map[string]*domain.Cart
}

func NewCartStore() *CartStore {
	return &CartStore{carts: make(map[string]*domain.Cart)}
}

func (s *CartStore) Load(ctx context.Context, id string) (*domain.Cart, error) {
	_ = ctx
	if id == "" {
		return nil, domain.ErrMissingID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.carts[id]
	if !ok {
		return domain.New(id), nil
	}
	return cloneCart(c), nil
}

func (s *CartStore) Save(ctx context.Context, c *domain.Cart) error {
	_ = ctx
	if c == nil || c.ID == "" {
		return domain.ErrMissingID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.carts[c.ID] = cloneCart(c)
	return nil
}

func (s *CartStore) Delete(ctx context.Context, id string) error {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, id)
	return nil
}

func cloneCart(c *domain.Cart) *domain.Cart {
	out := *c
	out.Items = append([]domain.Item(nil), c.Items...)
	return &out
}
