package catalog

import (
	"testing"

	"github.com/Zhima-Mochi/sportsphere/internal/domain/apperr"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProduct() Product {
	return Product{
		Name:         "SS Ton Player Edition",
		Brand:        "SS",
		Price:        money.Rupees(45000),
		Category:     "bats",
		Description:  "Grade 1 English willow",
		CountInStock: 4,
		Image:        "/images/ss-ton.jpg",
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	p, err := New("p-1", validProduct())
	require.NoError(t, err)

	assert.Equal(t, "p-1", p.ID)
	assert.Equal(t, WillowEnglish, p.WillowType)
	assert.Equal(t, DefaultWeight, p.Weight)
	assert.False(t, p.CreatedAt.IsZero())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Product)
	}{
		{"missing name", func(p *Product) { p.Name = " " }},
		{"missing image", func(p *Product) { p.Image = "" }},
		{"zero price", func(p *Product) { p.Price = 0 }},
		{"negative stock", func(p *Product) { p.CountInStock = -1 }},
		{"unknown willow", func(p *Product) { p.WillowType = "bamboo" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validProduct()
			tt.mutate(&p)
			_, err := New("p-1", p)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestApplyIsAllOrNothing(t *testing.T) {
	p, err := New("p-1", validProduct())
	require.NoError(t, err)

	name := "Renamed"
	negative := -3
	err = p.Apply(Patch{Name: &name, CountInStock: &negative})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "SS Ton Player Edition", p.Name)

	stock := 10
	require.NoError(t, p.Apply(Patch{Name: &name, CountInStock: &stock}))
	assert.Equal(t, "Renamed", p.Name)
	assert.Equal(t, 10, p.CountInStock)
}
