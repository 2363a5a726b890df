package postgres

import (
	"time"

	"github.com/Zhima-Mochi/sportsphere/internal/domain/account"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/catalog"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/money"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/order"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/payment"
)

// Money columns hold paisa.

type productRow struct {
	ID           string    `gorm:"primaryKey;size:36"`
	Name         string    `gorm:"not null"`
	Brand        string    `gorm:"not null"`
	Price        int64     `gorm:"not null"`
	Category     string    `gorm:"index;not null"`
	Description  string    `gorm:"not null"`
	CountInStock int       `gorm:"not null;check:count_in_stock >= 0"`
	Image        string    `gorm:"not null"`
	WillowType   string    `gorm:"size:16;not null"`
	Weight       float64   `gorm:"not null"`
	CreatedAt    time.Time `gorm:"index"`
	UpdatedAt    time.Time
}

func (productRow) TableName() string { return "products" }

func productToRow(p *catalog.Product) *productRow {
	return &productRow{
		ID:           p.ID,
		Name:         p.Name,
		Brand:        p.Brand,
		Price:        int64(p.Price),
		Category:     p.Category,
		Description:  p.Description,
		CountInStock: p.CountInStock,
		Image:        p.Image,
		WillowType:   string(p.WillowType),
		Weight:       p.Weight,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func (r *productRow) toDomain() *catalog.Product {
	return &catalog.Product{
		ID:           r.ID,
		Name:         r.Name,
		Brand:        r.Brand,
		Price:        money.Money(r.Price),
		Category:     r.Category,
		Description:  r.Description,
		CountInStock: r.CountInStock,
		Image:        r.Image,
		WillowType:   catalog.WillowType(r.WillowType),
		Weight:       r.Weight,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type accountRow struct {
	ID           string    `gorm:"primaryKey;size:36"`
	Name         string    `gorm:"not null"`
	Email        string    `gorm:"uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	IsAdmin      bool      `gorm:"not null"`
	CreatedAt    time.Time `gorm:"index"`
	UpdatedAt    time.Time
}

func (accountRow) TableName() string { return "accounts" }

func accountToRow(a *account.Account) *accountRow {
	return &accountRow{
		ID:           a.ID,
		Name:         a.Name,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		IsAdmin:      a.IsAdmin,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

func (r *accountRow) toDomain() *account.Account {
	return &account.Account{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		IsAdmin:      r.IsAdmin,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// orderRow keeps the item snapshot and payment result as JSON documents and
// flattens the shipping address into shipping_* columns.
type orderRow struct {
	ID            string                `gorm:"primaryKey;size:36"`
	AccountID     string                `gorm:"index;size:36;not null"`
	Items         []order.Item          `gorm:"serializer:json;not null"`
	Shipping      order.ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_"`
	PaymentMethod string                `gorm:"size:32;not null"`
	ItemsPrice    int64                 `gorm:"not null"`
	TaxPrice      int64                 `gorm:"not null"`
	ShippingPrice int64                 `gorm:"not null"`
	TotalPrice    int64                 `gorm:"not null"`
	IsPaid        bool                  `gorm:"not null"`
	PaidAt        *time.Time
	PaymentResult *payment.Result `gorm:"serializer:json"`
	IsDelivered   bool            `gorm:"not null"`
	DeliveredAt   *time.Time
	Status        string `gorm:"size:16;index;not null"`
	Notes         string
	CreatedAt     time.Time `gorm:"index"`
	UpdatedAt     time.Time
}

func (orderRow) TableName() string { return "orders" }

func orderToRow(o *order.Order) *orderRow {
	return &orderRow{
		ID:            o.ID,
		AccountID:     o.AccountID,
		Items:         o.Items,
		Shipping:      o.ShippingAddress,
		PaymentMethod: string(o.PaymentMethod),
		ItemsPrice:    int64(o.ItemsPrice),
		TaxPrice:      int64(o.TaxPrice),
		ShippingPrice: int64(o.ShippingPrice),
		TotalPrice:    int64(o.TotalPrice),
		IsPaid:        o.IsPaid,
		PaidAt:        o.PaidAt,
		PaymentResult: o.PaymentResult,
		IsDelivered:   o.IsDelivered,
		DeliveredAt:   o.DeliveredAt,
		Status:        string(o.Status),
		Notes:         o.Notes,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

func (r *orderRow) toDomain() *order.Order {
	return &order.Order{
		ID:              r.ID,
		AccountID:       r.AccountID,
		Items:           r.Items,
		ShippingAddress: r.Shipping,
		PaymentMethod:   payment.Method(r.PaymentMethod),
		Pricing: order.Pricing{
			ItemsPrice:    money.Money(r.ItemsPrice),
			TaxPrice:      money.Money(r.TaxPrice),
			ShippingPrice: money.Money(r.ShippingPrice),
			TotalPrice:    money.Money(r.TotalPrice),
		},
		IsPaid:        r.IsPaid,
		PaidAt:        r.PaidAt,
		PaymentResult: r.PaymentResult,
		IsDelivered:   r.IsDelivered,
		DeliveredAt:   r.DeliveredAt,
		Status:        order.Status(r.Status),
		Notes:         r.Notes,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}
