package model

import (
	"strings"

	"github.com/fekuna/omnipos-storefront-service/internal/apperror"
	"github.com/shopspring/decimal"
)

type ProductCategory string

const (
	CategoryLiquids            ProductCategory = "liquids"
	CategoryCleaningDetergents ProductCategory = "cleaning-detergents"
	CategoryPowder             ProductCategory = "powder"
)

func (c ProductCategory) Valid() bool {
	switch c {
	case CategoryLiquids, CategoryCleaningDetergents, CategoryPowder:
		return true
	}
	return false
}

type Product struct {
	BaseModel
	Name              string          `db:"name" json:"name"`
	Description       string          `db:"description" json:"description"`
	Price             decimal.Decimal `db:"price" json:"price"`
	StockQuantity     int             `db:"stock_quantity" json:"stock_quantity"`
	Category          ProductCategory `db:"category" json:"category"`
	PromotionID       *string         `db:"promotion_id" json:"promotion_id"`               // Nullable, weak reference
	LowStockThreshold *int            `db:"low_stock_threshold" json:"low_stock_threshold"` // Nullable
	ImageURL          string          `db:"image_url" json:"image_url"`
}

// Validate checks a product read from or about to be written to the store.
func (p *Product) Validate() error {
	fail := func(reason string) error {
		return &apperror.DataIntegrityError{Entity: "product", ID: p.ID, Reason: reason}
	}

	if p.ID == "" {
		return fail("missing id")
	}
	if strings.TrimSpace(p.Name) == "" {
		return fail("missing name")
	}
	if p.Price.IsNegative() {
		return fail("negative price")
	}
	if p.StockQuantity < 0 {
		return fail("negative stock quantity")
	}
	if p.Category != "" && !p.Category.Valid() {
		return fail("unknown category " + string(p.Category))
	}
	if p.LowStockThreshold != nil && *p.LowStockThreshold < 1 {
		return fail("low stock threshold must be at least 1")
	}
	return nil
}

// ProductView is a product as shown to shoppers and admins, with the
// promotion and stock policy resolved.
type ProductView struct {
	Product
	EffectivePrice     decimal.Decimal `json:"effective_price"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	EffectiveThreshold int             `json:"effective_threshold"`
	StockStatus        string          `json:"stock_status"`
}
