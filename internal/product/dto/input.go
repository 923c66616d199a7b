package dto

import "github.com/shopspring/decimal"

type CreateProductInput struct {
	Name              string          `json:"name" binding:"required"`
	Description       string          `json:"description"`
	Price             decimal.Decimal `json:"price"`
	StockQuantity     int             `json:"stock_quantity"`
	Category          string          `json:"category"`
	PromotionID       *string         `json:"promotion_id"`
	LowStockThreshold *int            `json:"low_stock_threshold"`
	ImageURL          string          `json:"image_url"`
}

// UpdateProductInput does not carry stock. Stock only moves through checkout
// and inventory adjustments so every change is audited.
type UpdateProductInput struct {
	ID                string          `json:"-"`
	Name              string          `json:"name" binding:"required"`
	Description       string          `json:"description"`
	Price             decimal.Decimal `json:"price"`
	Category          string          `json:"category"`
	PromotionID       *string         `json:"promotion_id"`
	LowStockThreshold *int            `json:"low_stock_threshold"`
	ImageURL          string          `json:"image_url"`
}
