package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/sportsphere/internal/domain/apperr"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/money"
)

var (
	ErrNotFound          = fmt.Errorf("product: %w", apperr.ErrNotFound)
	ErrInsufficientStock = apperr.New(apperr.ErrInvalidState, "product: insufficient stock")
)

type WillowType string

const (
	WillowEnglish   WillowType = "english"
	WillowKashmir   WillowType = "kashmir"
	WillowComposite WillowType = "composite"
)

const DefaultWeight = 2.7

func (w WillowType) Valid() bool {
	switch w {
	case WillowEnglish, WillowKashmir, WillowComposite:
		return true
	}
	return false
}

type Product struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Brand        string      `json:"brand"`
	Price        money.Money `json:"price"`
	Category     string      `json:"category"`
	Description  string      `json:"description"`
	CountInStock int         `json:"countInStock"`
	Image        string      `json:"image"`
	WillowType   WillowType  `json:"willowType"`
	Weight       float64     `json:"weight"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// New validates the fields and stamps creation times. Willow type and weight
// fall back to their defaults when left empty.
func New(id string, p Product) (*Product, error) {
	p.ID = id
	if p.WillowType == "" {
		p.WillowType = WillowEnglish
	}
	if p.Weight == 0 {
		p.Weight = DefaultWeight
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	return &p, nil
}

// Validate enforces the required catalog fields.
func (p *Product) Validate() error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"name", p.Name},
		{"brand", p.Brand},
		{"category", p.Category},
		{"description", p.Description},
		{"image", p.Image},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return apperr.Validationf("please fill all required fields: %s", strings.Join(missing, ", "))
	}
	if p.Price <= 0 {
		return apperr.Validation("price must be greater than zero")
	}
	if p.CountInStock < 0 {
		return apperr.Validation("countInStock must be zero or greater")
	}
	if !p.WillowType.Valid() {
		return apperr.Validationf("unknown willowType %q", p.WillowType)
	}
	if p.Weight <= 0 {
		return apperr.Validation("weight must be greater than zero")
	}
	return nil
}

// Patch carries a partial update; nil fields are left untouched.
type Patch struct {
	Name         *string      `json:"name,omitempty"`
	Brand        *string      `json:"brand,omitempty"`
	Price        *money.Money `json:"price,omitempty"`
	Category     *string      `json:"category,omitempty"`
	Description  *string      `json:"description,omitempty"`
	CountInStock *int         `json:"countInStock,omitempty"`
	Image        *string      `json:"image,omitempty"`
	WillowType   *WillowType  `json:"willowType,omitempty"`
	Weight       *float64     `json:"weight,omitempty"`
}

// Apply copies the set fields onto p and re-validates the result.
func (p *Product) Apply(patch Patch) error {
	next := *p
	if patch.Name != nil {
		next.Name = *patch.Name
	}
	if patch.Brand != nil {
		next.Brand = *patch.Brand
	}
	if patch.Price != nil {
		next.Price = *patch.Price
	}
	if patch.Category != nil {
		next.Category = *patch.Category
	}
	if patch.Description != nil {
		next.Description = *patch.Description
	}
	if patch.CountInStock != nil {
		next.CountInStock = *patch.CountInStock
	}
	if patch.Image != nil {
		next.Image = *patch.Image
	}
	if patch.WillowType != nil {
		next.WillowType = *patch.WillowType
	}
	if patch.Weight != nil {
		next.Weight = *patch.Weight
	}
	if err := next.Validate(); err != nil {
		return err
	}
	next.UpdatedAt = time.Now().UTC()
	*p = next
	return nil
}

func (p *Product) Clone() *Product {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
