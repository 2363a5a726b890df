package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Zhima-Mochi/sportsphere/internal/application"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/apperr"
	domain "github.com/Zhima-Mochi/sportsphere/internal/domain/cart"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/catalog"
	"github.com/Zhima-Mochi/sportsphere/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	cartService = "cart-service"

	useCaseLoad        = "cart.load"
	useCaseAdd         = "cart.add"
	useCaseRemove      = "cart.remove"
	useCaseSetQuantity = "cart.set_quantity"
	useCaseClear       = "cart.clear"
)

var ErrOutOfStock = apperr.New(apperr.ErrInvalidState, "not enough stock for this product")

// Products is the catalog lookup used to snapshot a product into the cart.
type Products interface {
	Get(ctx context.Context, id string) (*catalog.Product, error)
}

// Service keeps the device cart in the store. Every mutation is saved
// before it returns.
type Service struct {
	store    domain.Store
	products Products
	tel      observability.Observability
	log      observability.Logger
}

func NewService(store domain.Store, products Products, tel observability.Observability) *Service {
	tel = observability.OrNop(tel)
	return &Service{
		store:    store,
		products: products,
		tel:      tel,
		log:      tel.Logger().With(observability.F("service", cartService)),
	}
}

func (s *Service) Load(ctx context.Context, cartID string) (_ *domain.Cart, err error) {
	ctx, run := application.Start(ctx, s.tel, s.log, useCaseLoad, "LoadCart",
		attribute.String("cart.id", cartID),
	)
	defer func() { run.End(err) }()

	c, err := s.load(ctx, cartID)
	if err != nil {
		run.Fail(failStatus(err))
		return nil, err
	}
	run.Add(observability.F("items", c.Count()))
	return c, nil
}

// Add puts one unit of productID in the cart. Name, image and price are
// copied from the catalog at this moment.
func (s *Service) Add(ctx context.Context, cartID, productID string) (_ *domain.Cart, err error) {
	ctx, run := application.Start(ctx, s.tel, s.log, useCaseAdd, "AddToCart",
		attribute.String("cart.id", cartID),
		attribute.String("product.id", productID),
	)
	defer func() { run.End(err) }()

	c, err := s.load(ctx, cartID)
	if err != nil {
		run.Fail(failStatus(err))
		return nil, err
	}
	p, err := s.products.Get(ctx, strings.TrimSpace(productID))
	if err != nil {
		run.Fail(failStatus(err))
		return nil, err
	}
	if quantityOf(c, p.ID)+1 > p.CountInStock {
		run.Fail("OUT_OF_STOCK")
		return nil, ErrOutOfStock
	}
	c.Add(domain.Item{ProductID: p.ID, Name: p.Name, Image: p.Image, Price: p.Price})
	if err := s.save(ctx, c); err != nil {
		run.Fail("STORE_ERROR")
		return nil, err
	}
	run.Add(observability.F("items", c.Count()))
	return c, nil
}

func (s *Service) Remove(ctx context.Context, cartID, productID string) (_ *domain.Cart, err error) {
	ctx, run := application.Start(ctx, s.tel, s.log, useCaseRemove, "RemoveFromCart",
		attribute.String("cart.id", cartID),
		attribute.String("product.id", productID),
	)
	defer func() { run.End(err) }()

	c, err := s.load(ctx, cartID)
	if err != nil {
		run.Fail(failStatus(err))
		return nil, err
	}
	c.Remove(productID)
	if err := s.save(ctx, c); err != nil {
		run.Fail("STORE_ERROR")
		return nil, err
	}
	return c, nil
}

// SetQuantity overwrites a line's quantity. Zero or less removes the line.
func (s *Service) SetQuantity(ctx context.Context, cartID, productID string, qty int) (_ *domain.Cart, err error) {
	ctx, run := application.Start(ctx, s.tel, s.log, useCaseSetQuantity, "SetCartQuantity",
		attribute.String("cart.id", cartID),
		attribute.String("product.id", productID),
		attribute.Int("cart.qty", qty),
	)
	defer func() { run.End(err) }()

	c, err := s.load(ctx, cartID)
	if err != nil {
		run.Fail(failStatus(err))
		return nil, err
	}
	if qty > 0 {
		if quantityOf(c, productID) == 0 {
			run.Fail("NOT_IN_CART")
			return nil, apperr.New(apperr.ErrNotFound, "product is not in the cart")
		}
		p, err := s.products.Get(ctx, productID)
		if err != nil {
			run.Fail(failStatus(err))
			return nil, err
		}
		if qty > p.CountInStock {
			run.Fail("OUT_OF_STOCK")
			return nil, ErrOutOfStock
		}
	}
	c.SetQuantity(productID, qty)
	if err := s.save(ctx, c); err != nil {
		run.Fail("STORE_ERROR")
		return nil, err
	}
	return c, nil
}

func (s *Service) Clear(ctx context.Context, cartID string) (err error) {
	ctx, run := application.Start(ctx, s.tel, s.log, useCaseClear, "ClearCart",
		attribute.String("cart.id", cartID),
	)
	defer func() { run.End(err) }()

	if strings.TrimSpace(cartID) == "" {
		run.Fail("VALIDATION")
		return domain.ErrMissingID
	}
	if err := s.store.Delete(ctx, cartID); err != nil {
		run.Fail("STORE_ERROR")
		return fmt.Errorf("cart: clear: %w", err)
	}
	return nil
}

func (s *Service) load(ctx context.Context, cartID string) (*domain.Cart, error) {
	if strings.TrimSpace(cartID) == "" {
		return nil, domain.ErrMissingID
	}
	c, err := s.store.Load(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("cart: load: %w", err)
	}
	return c, nil
}

func (s *Service) save(ctx context.Context, c *domain.Cart) error {
	if err := s.store.Save(ctx, c); err != nil {
		return fmt.Errorf("cart: save: %w", err)
	}
	return nil
}

func quantityOf(c *domain.Cart, productID string) int {
	for _, it := range c.Items {
		if it.ProductID == productID {
			return it.Qty
		}
	}
	return 0
}

func failStatus(err error) string {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return "VALIDATION"
	case errors.Is(err, apperr.ErrNotFound):
		return "NOT_FOUND"
	}
	return "STORE_ERROR"
}
