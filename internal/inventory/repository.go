package inventory

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-storefront-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-storefront-service/internal/model"
)

type Repository interface {
	GetProduct(ctx context.Context, productID string) (*model.Product, error)
	ListLowStock(ctx context.Context, globalDefault, page, pageSize int) ([]model.Product, int, error)

	// Legacy embedded history
	GetProductHistory(ctx context.Context, productID string) (*model.ProductHistory, error)
	// ListProductHistories returns the rows not yet migrated.
	ListProductHistories(ctx context.Context) ([]model.ProductHistory, error)
	// MigrateProductHistory inserts records into the audit log, ignoring ids
	// that already exist, and marks the product's legacy row migrated in the
	// same transaction. It reports how many records were written.
	MigrateProductHistory(ctx context.Context, productID string, records []model.InventoryTransaction) (int, error)

	// Audit log
	ListTransactions(ctx context.Context, filters *dto.TransactionFilters) ([]model.InventoryTransaction, int, error)

	// AdjustStockWithAudit applies change to the locked product row and
	// appends audit with the resulting delta, atomically.
	AdjustStockWithAudit(ctx context.Context, productID string, change int, audit *model.InventoryTransaction) (*model.Product, error)
}

type Locker interface {
	AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, value string) error
}
