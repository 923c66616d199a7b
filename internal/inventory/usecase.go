package inventory

import (
	"context"

	"github.com/fekuna/omnipos-storefront-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-storefront-service/internal/model"
)

type UseCase interface {
	ListTransactions(ctx context.Context, filters *dto.TransactionFilters) ([]model.InventoryTransaction, int, error)
	AdjustInventory(ctx context.Context, input *dto.AdjustInventoryInput) (*model.Product, error)
	ListLowStock(ctx context.Context, page, pageSize int) ([]dto.StockLevel, int, error)
	GetStockHistory(ctx context.Context, productID string) (*dto.StockHistory, error)
	SuggestThreshold(ctx context.Context, productID string) (*dto.ThresholdSuggestion, error)
	BackfillHistory(ctx context.Context) (*dto.BackfillResult, error)
}

// ProductCache is told when stock changes make listings stale.
type ProductCache interface {
	InvalidateListCache(ctx context.Context)
}
