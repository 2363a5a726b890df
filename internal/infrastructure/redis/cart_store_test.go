package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	domain "github.com/Zhima-Mochi/sportsphere/internal/domain/cart"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/money"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ttl = 24 * time.Hour

func sampleCart() *domain.Cart {
	return &domain.Cart{
		ID: "device-1",
		Items: []domain.Item{
			{ProductID: "P1", Name: "SS Ton", Image: "/img/p1.jpg", Price: money.Rupees(1000), Qty: 2},
		},
		UpdatedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestSaveWritesJSONWithTTL(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewCartStore(db, ttl)
	c := sampleCart()
	body, err := json.Marshal(c)
	require.NoError(t, err)

	mock.ExpectSet("cart:device-1", body, ttl).SetVal("OK")

	require.NoError(t, store.Save(context.Background(), c))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadDecodesStoredCart(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewCartStore(db, ttl)
	body, err := json.Marshal(sampleCart())
	require.NoError(t, err)

	mock.ExpectGet("cart:device-1").SetVal(string(body))

	c, err := store.Load(context.Background(), "device-1")
	require.NoError(t, err)
	assert.Equal(t, sampleCart(), c)
	assert.Equal(t, money.Rupees(2000), c.ItemsPrice())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadMissingCartIsEmpty(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewCartStore(db, ttl)

	mock.ExpectGet("cart:device-2").RedisNil()

	c, err := store.Load(context.Background(), "device-2")
	require.NoError(t, err)
	assert.Equal(t, "device-2", c.ID)
	assert.Empty(t, c.Items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreErrors(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewCartStore(db, ttl)

	_, err := store.Load(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrMissingID)

	mock.ExpectGet("cart:device-3").SetErr(errors.New("connection refused"))
	_, err = store.Load(context.Background(), "device-3")
	assert.EqualError(t, err, "redis: load cart: connection refused")

	mock.ExpectGet("cart:device-4").SetVal("{not json")
	_, err = store.Load(context.Background(), "device-4")
	assert.ErrorContains(t, err, "redis: decode cart device-4")

	mock.ExpectDel("cart:device-1").SetVal(1)
	assert.NoError(t, store.Delete(context.Background(), "device-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
