// Package cart models the device-scoped shopping cart. A cart has no owner;
// it is identified by the id the client device presents.
package cart

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/sportsphere/internal/domain/apperr"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/money"
)

var ErrMissingID = apperr.Validation("cart id is required")

type Item struct {
	ProductID string      `json:"product"`
	Name      string      `json:"name"`
	Image     string      `json:"image"`
	Price     money.Money `json:"price"`
	Qty       int         `json:"qty"`
}

type Cart struct {
	ID        string    `json:"id"`
	Items     []Item    `json:"cartItems"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func New(id string) *Cart {
	return &Cart{ID: id, Items: []Item{}}
}

// Add puts one unit of item in the cart, bumping the quantity when the product is already present.
func (c *Cart) Add(item Item) {
	if i := c.index(item.ProductID); i >= 0 {
		c.Items[i].Qty++
		c.touch()
		return
	}
	item.Qty = 1
	c.Items = append(c.Items, item)
	c.touch()
}

// Remove drops a product. Unknown ids are ignored.
func (c *Cart) Remove(productID string) {
	i := c.index(productID)
	if i < 0 {
		return
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	c.touch()
}

// SetQuantity overwrites a product's quantity; qty <= 0 removes it.
func (c *Cart) SetQuantity(productID string, qty int) {
	if qty <= 0 {
		c.Remove(productID)
		return
	}
	if i := c.index(productID); i >= 0 {
		c.Items[i].Qty = qty
		c.touch()
	}
}

func (c *Cart) Clear() {
	c.Items = []Item{}
	c.touch()
}

func (c *Cart) ItemsPrice() money.Money {
	var total money.Money
	for _, it := range c.Items {
		total += it.Price.Mul(it.Qty)
	}
	return total
}

// Count is the number of units across all lines.
func (c *Cart) Count() int {
	n := 0
	for _, it := range c.Items {
		n += it.Qty
	}
	return n
}

func (c *Cart) index(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) touch() { c.UpdatedAt = time.Now().UTC() }

// Store is the persistence boundary: load once per session, save after every mutation.
type Store interface {
	// Load returns an empty cart when none is stored under id.
	Load(ctx context.Context, id string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Delete(ctx context.Context, id string) error
}
