package catalog

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Zhima-Mochi/sportsphere/internal/domain/apperr"
	domain "github.com/Zhima-Mochi/sportsphere/internal/domain/catalog"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/money"
	"github.com/Zhima-Mochi/sportsphere/internal/infrastructure/id"
	"github.com/Zhima-Mochi/sportsphere/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bat(name string) domain.Product {
	return domain.Product{
		Name: name, Brand: "SG", Price: money.Rupees(8500), Category: "bats",
		Description: "english willow", Image: "/img/bat.jpg", CountInStock: 4,
	}
}

func TestCreateGetUpdateDelete(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.NewProductRepository(), id.NewUUIDGenerator(), nil)

	p, err := svc.Create(ctx, bat("Sunny Tonny"))
	require.NoError(t, err)
	assert.Equal(t, domain.WillowEnglish, p.WillowType)
	assert.Equal(t, domain.DefaultWeight, p.Weight)

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sunny Tonny", got.Name)

	stock := 10
	updated, err := svc.Update(ctx, p.ID, domain.Patch{CountInStock: &stock})
	require.NoError(t, err)
	assert.Equal(t, 10, updated.CountInStock)

	got, err = svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.CountInStock)

	negative := -1
	_, err = svc.Update(ctx, p.ID, domain.Patch{CountInStock: &negative})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	require.NoError(t, svc.Delete(ctx, p.ID))
	_, err = svc.Get(ctx, p.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, p.ID), apperr.ErrNotFound)
}

func TestCreateRejectsInvalidProduct(t *testing.T) {
	svc := NewService(memory.NewProductRepository(), id.NewUUIDGenerator(), nil)
	in := bat("Broken")
	in.Price = 0

	_, err := svc.Create(context.Background(), in)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestListNewestFirstAndFiltered(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memory.NewProductRepository(), id.NewUUIDGenerator(), nil)
	first, err := svc.Create(ctx, bat("Kookaburra Ghost"))
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	second, err := svc.Create(ctx, bat("MRF Genius"))
	require.NoError(t, err)

	all, err := svc.List(ctx, domain.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)

	found, err := svc.List(ctx, domain.Filter{Keyword: "ghost"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, first.ID, found[0].ID)
}

type slowRepo struct {
	domain.Repository
	calls atomic.Int32
	gate  chan struct{}
}

func (r *slowRepo) Get(ctx context.Context, id string) (*domain.Product, error) {
	r.calls.Add(1)
	<-r.gate
	return r.Repository.Get(ctx, id)
}

func TestGetCoalescesConcurrentReads(t *testing.T) {
	ctx := context.Background()
	inner := memory.NewProductRepository()
	p, err := domain.New("p1", bat("Shared"))
	require.NoError(t, err)
	require.NoError(t, inner.Insert(ctx, p))

	repo := &slowRepo{Repository: inner, gate: make(chan struct{})}
	svc := NewService(repo, id.NewUUIDGenerator(), nil)

	var wg sync.WaitGroup
	results := make([]*domain.Product, 5)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := svc.Get(ctx, "p1")
			assert.NoError(t, err)
			results[i] = got
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(repo.gate)
	wg.Wait()

	assert.Less(t, repo.calls.Load(), int32(5))
	results[0].Name = "mutated"
	assert.Equal(t, "Shared", results[1].Name)
}
