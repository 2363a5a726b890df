package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Zhima-Mochi/sportsphere/internal/application"
	domain "github.com/Zhima-Mochi/sportsphere/internal/domain/catalog"
	"github.com/Zhima-Mochi/sportsphere/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
)

const (
	catalogService = "catalog-service"

	useCaseList   = "catalog.list"
	useCaseGet    = "catalog.get"
	useCaseCreate = "catalog.create"
	useCaseUpdate = "catalog.update"
	useCaseDelete = "catalog.delete"
)

// Service owns product reads and admin writes. Concurrent identical reads
// share one repository call.
type Service struct {
	repo  domain.Repository
	ids   application.IDGenerator
	tel   observability.Observability
	log   observability.Logger
	group singleflight.Group
}

func NewService(repo domain.Repository, ids application.IDGenerator, tel observability.Observability) *Service {
	tel = observability.OrNop(tel)
	return &Service{
		repo: repo,
		ids:  ids,
		tel:  tel,
		log:  tel.Logger().With(observability.F("service", catalogService)),
	}
}

func (s *Service) List(ctx context.Context, f domain.Filter) (_ []*domain.Product, err error) {
	f.Category = strings.TrimSpace(f.Category)
	f.Keyword = strings.TrimSpace(f.Keyword)

	ctx, run := application.Start(ctx, s.tel, s.log, useCaseList, "ListProducts",
		attribute.String("catalog.category", f.Category),
	)
	defer func() { run.End(err) }()

	v, err, shared := s.group.Do("list|"+f.Category+"|"+f.Keyword, func() (any, error) {
		return s.repo.List(ctx, f)
	})
	if err != nil {
		run.Fail("REPOSITORY_ERROR")
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	if shared {
		run.Status("SHARED")
	}

	found := v.([]*domain.Product)
	out := make([]*domain.Product, len(found))
	for i, p := range found {
		out[i] = p.Clone()
	}
	run.Add(observability.F("count", len(out)))
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (_ *domain.Product, err error) {
	ctx, run := application.Start(ctx, s.tel, s.log, useCaseGet, "GetProduct",
		attribute.String("product.id", id),
	)
	defer func() { run.End(err) }()

	if strings.TrimSpace(id) == "" {
		run.Fail("PRODUCT_ID_REQUIRED")
		return nil, domain.ErrNotFound
	}

	v, err, _ := s.group.Do("get|"+id, func() (any, error) {
		return s.repo.Get(ctx, id)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			run.Fail("NOT_FOUND")
			return nil, err
		}
		run.Fail("REPOSITORY_ERROR")
		return nil, fmt.Errorf("catalog: get: %w", err)
	}
	return v.(*domain.Product).Clone(), nil
}

func (s *Service) Create(ctx context.Context, in domain.Product) (_ *domain.Product, err error) {
	ctx, run := application.Start(ctx, s.tel, s.log, useCaseCreate, "CreateProduct")
	defer func() { run.End(err) }()

	p, err := domain.New(s.ids.NewID(), in)
	if err != nil {
		run.Fail("VALIDATION")
		return nil, err
	}
	if err := s.repo.Insert(ctx, p); err != nil {
		run.Fail("REPOSITORY_ERROR")
		return nil, fmt.Errorf("catalog: insert: %w", err)
	}
	run.Add(observability.F("product_id", p.ID))
	return p, nil
}

func (s *Service) Update(ctx context.Context, id string, patch domain.Patch) (_ *domain.Product, err error) {
	ctx, run := application.Start(ctx, s.tel, s.log, useCaseUpdate, "UpdateProduct",
		attribute.String("product.id", id),
	)
	defer func() { run.End(err) }()

	p, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			run.Fail("NOT_FOUND")
			return nil, err
		}
		run.Fail("REPOSITORY_ERROR")
		return nil, fmt.Errorf("catalog: get: %w", err)
	}
	if err := p.Apply(patch); err != nil {
		run.Fail("VALIDATION")
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			run.Fail("NOT_FOUND")
			return nil, err
		}
		run.Fail("REPOSITORY_ERROR")
		return nil, fmt.Errorf("catalog: update: %w", err)
	}
	s.group.Forget("get|" + id)
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id string) (err error) {
	ctx, run := application.Start(ctx, s.tel, s.log, useCaseDelete, "DeleteProduct",
		attribute.String("product.id", id),
	)
	defer func() { run.End(err) }()

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			run.Fail("NOT_FOUND")
			return err
		}
		run.Fail("REPOSITORY_ERROR")
		return fmt.Errorf("catalog: delete: %w", err)
	}
	s.group.Forget("get|" + id)
	return nil
}
