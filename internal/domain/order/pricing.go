package order

import (
	"github.com/Zhima-Mochi/sportsphere/internal/domain/apperr"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/money"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/payment"
)

// Pricing is derived once at creation and never recomputed.
type Pricing struct {
	ItemsPrice    money.Money `json:"itemsPrice"`
	TaxPrice      money.Money `json:"taxPrice"`
	ShippingPrice money.Money `json:"shippingPrice"`
	TotalPrice    money.Money `json:"totalPrice"`
}

// Policy computes order totals on the server from the line-item snapshot.
type Policy struct {
	TaxRate      float64
	FlatShipping money.Money
	// FreeShippingThreshold waives shipping when itemsPrice reaches it. Zero disables.
	FreeShippingThreshold money.Money
	CODSurcharge          money.Money
	// CODMaxAmount caps cash-on-delivery totals. Zero disables.
	CODMaxAmount money.Money
}

func DefaultPolicy() Policy {
	return Policy{
		TaxRate:               0.13,
		FlatShipping:          money.Rupees(200),
		FreeShippingThreshold: money.Rupees(5000),
		CODSurcharge:          money.Rupees(100),
		CODMaxAmount:          money.Rupees(20000),
	}
}

func (p Policy) Price(items []Item, method payment.Method) (Pricing, error) {
	var itemsPrice money.Money
	for _, it := range items {
		itemsPrice += it.Subtotal()
	}

	shipping := p.FlatShipping
	if p.FreeShippingThreshold > 0 && itemsPrice >= p.FreeShippingThreshold {
		shipping = 0
	}
	if method == payment.MethodCOD {
		shipping += p.CODSurcharge
	}

	pr := Pricing{
		ItemsPrice:    itemsPrice,
		TaxPrice:      itemsPrice.Rate(p.TaxRate),
		ShippingPrice: shipping,
	}
	pr.TotalPrice = pr.ItemsPrice + pr.TaxPrice + pr.ShippingPrice

	if method == payment.MethodCOD && p.CODMaxAmount > 0 && pr.TotalPrice > p.CODMaxAmount {
		return Pricing{}, apperr.Validationf("cash on delivery is not available above NPR %s", p.CODMaxAmount)
	}
	return pr, nil
}
