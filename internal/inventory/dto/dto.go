package dto

import (
	"time"

	"github.com/fekuna/omnipos-storefront-service/internal/inventory/history"
	"github.com/fekuna/omnipos-storefront-service/internal/model"
)

type TransactionFilters struct {
	ProductID string // matches records whose deltas touch the product
	Type      model.TransactionType
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	PageSize  int
}

// AdjustInventoryInput moves stock outside checkout: receipts, counts, returns.
type AdjustInventoryInput struct {
	ProductID      string                `json:"-"`
	QuantityChange int                   `json:"quantity_change"`
	Type           model.TransactionType `json:"type"`
	Reason         string                `json:"reason"`
	Reference      string                `json:"reference"`
	UserID         string                `json:"-"`
}

type StockLevel struct {
	ProductID     string `json:"product_id"`
	Name          string `json:"name"`
	StockQuantity int    `json:"stock_quantity"`
	Threshold     int    `json:"threshold"`
	Status        string `json:"status"`
}

type StockHistory struct {
	ProductID    string             `json:"product_id"`
	Name         string             `json:"name"`
	CurrentStock int                `json:"current_stock"`
	Threshold    int                `json:"threshold"`
	Status       string             `json:"status"`
	Source       string             `json:"source"` // embedded or audit
	Years        []history.YearNode `json:"years"`
	Warnings     []string           `json:"warnings,omitempty"`
}

type ThresholdSuggestion struct {
	ProductID        string `json:"product_id"`
	CurrentStock     int    `json:"current_stock"`
	CurrentThreshold int    `json:"current_threshold"`
	Suggested        int    `json:"suggested"`
}

type BackfillResult struct {
	Products int `json:"products"`
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
}
