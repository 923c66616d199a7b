package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type PromotionFilters struct {
	ActiveAt *time.Time // nil lists every promotion
	Page     int
	PageSize int
}

type PromotionInput struct {
	Name               string          `json:"name" binding:"required"`
	Description        string          `json:"description"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	StartDate          time.Time       `json:"start_date" binding:"required"`
	EndDate            time.Time       `json:"end_date" binding:"required"`
}
