// Package redis keeps device carts in Redis as JSON documents.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domain "github.com/Zhima-Mochi/sportsphere/internal/domain/cart"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "cart:"

// CartStore refreshes the expiry on every save, so an idle cart disappears
// ttl after its last change. A zero ttl keeps carts forever.
type CartStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewCartStore(client redis.Cmdable, ttl time.Duration) *CartStore {
	return &CartStore{client: client, ttl: ttl}
}

func key(id string) string { return keyPrefix + id }

func (s *CartStore) Load(ctx context.Context, id string) (*domain.Cart, error) {
	if id == "" {
		return nil, domain.ErrMissingID
	}
	raw, err := s.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.New(id), nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis: load cart: %w", err)
	}

	var c domain.Cart
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("redis: decode cart %s: %w", id, err)
	}
	c.ID = id
	if c.Items == nil {
		c.Items = []domain.Item{}
	}
	return &c, nil
}

func (s *CartStore) Save(ctx context.Context, c *domain.Cart) error {
	if c == nil || c.ID == "" {
		return domain.ErrMissingID
	}
	body, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("redis: encode cart: %w", err)
	}
	if err := s.client.Set(ctx, key(c.ID), body, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis: save cart: %w", err)
	}
	return nil
}

func (s *CartStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("redis: delete cart: %w", err)
	}
	return nil
}

// Ping reports whether the server answers, for the health endpoint.
func (s *CartStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
