package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/fekuna/omnipos-storefront-service/internal/apperror"
	"github.com/fekuna/omnipos-storefront-service/internal/inventory"
	"github.com/fekuna/omnipos-storefront-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-storefront-service/internal/inventory/history"
	"github.com/fekuna/omnipos-storefront-service/internal/inventory/threshold"
	"github.com/fekuna/omnipos-storefront-service/internal/model"
	"github.com/fekuna/omnipos-storefront-service/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	lockTTL      = 5 * time.Second
	backfillTTL  = 5 * time.Minute
	lockAttempts = 3
	lockBackoff  = 100 * time.Millisecond

	backfillLockKey = "lock:inventory:backfill"
)

type inventoryUseCase struct {
	repo          inventory.Repository
	locker        inventory.Locker
	products      inventory.ProductCache
	reconstructor *history.Reconstructor
	policy        threshold.Policy
	logger        logger.ZapLogger
	now           func() time.Time
}

func NewInventoryUseCase(
	repo inventory.Repository,
	locker inventory.Locker,
	products inventory.ProductCache,
	reconstructor *history.Reconstructor,
	policy threshold.Policy,
	log logger.ZapLogger,
) inventory.UseCase {
	return &inventoryUseCase{
		repo:          repo,
		locker:        locker,
		products:      products,
		reconstructor: reconstructor,
		policy:        policy,
		logger:        log,
		now:           time.Now,
	}
}

func (uc *inventoryUseCase) ListTransactions(ctx context.Context, filters *dto.TransactionFilters) ([]model.InventoryTransaction, int, error) {
	return uc.repo.ListTransactions(ctx, filters)
}

// withLock retries a few times before giving up with ErrBusy.
func (uc *inventoryUseCase) withLock(ctx context.Context, key string, ttl time.Duration, fn func() error) error {
	value := uuid.New().String()

	acquired := false
	for i := 0; i < lockAttempts; i++ {
		ok, err := uc.locker.AcquireLock(ctx, key, value, ttl)
		if err != nil {
			uc.logger.Error("failed to acquire lock redis error", zap.String("key", key), zap.Error(err))
		}
		if ok {
			acquired = true
			break
		}
		time.Sleep(lockBackoff)
	}
	if !acquired {
		return apperror.ErrBusy
	}
	defer uc.locker.ReleaseLock(context.Background(), key, value)

	return fn()
}

func (uc *inventoryUseCase) AdjustInventory(ctx context.Context, input *dto.AdjustInventoryInput) (*model.Product, error) {
	if input.ProductID == "" {
		return nil, fmt.Errorf("%w: product_id is required", apperror.ErrInvalidInput)
	}
	if input.QuantityChange == 0 {
		return nil, fmt.Errorf("%w: quantity_change must not be zero", apperror.ErrInvalidInput)
	}

	txType := input.Type
	switch txType {
	case "":
		txType = model.TransactionAdjustment
	case model.TransactionPurchase, model.TransactionReturn:
		if input.QuantityChange < 0 {
			return nil, fmt.Errorf("%w: %s must increase stock", apperror.ErrInvalidInput, txType)
		}
	case model.TransactionAdjustment:
	default:
		return nil, fmt.Errorf("%w: unsupported transaction type %q", apperror.ErrInvalidInput, txType)
	}

	updatedBy := input.UserID
	if updatedBy == "" {
		updatedBy = "system"
	}

	audit := &model.InventoryTransaction{
		ID:               uuid.New().String(),
		PaymentReference: input.Reference,
		TransactionType:  txType,
		Reason:           input.Reason,
		UpdatedBy:        updatedBy,
		CreatedAt:        uc.now().UTC(),
	}

	var product *model.Product
	err := uc.withLock(ctx, fmt.Sprintf("lock:inventory:%s", input.ProductID), lockTTL, func() error {
		var err error
		product, err = uc.repo.AdjustStockWithAudit(ctx, input.ProductID, input.QuantityChange, audit)
		return err
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("inventory adjusted",
		zap.String("product_id", input.ProductID),
		zap.Int("change", input.QuantityChange),
		zap.String("type", string(txType)),
		zap.Int("stock", product.StockQuantity),
	)

	if uc.products != nil {
		go uc.products.InvalidateListCache(context.Background())
	}
	return product, nil
}

func (uc *inventoryUseCase) ListLowStock(ctx context.Context, page, pageSize int) ([]dto.StockLevel, int, error) {
	products, total, err := uc.repo.ListLowStock(ctx, uc.policy.GlobalDefault, page, pageSize)
	if err != nil {
		return nil, 0, err
	}

	items := make([]dto.StockLevel, len(products))
	for i, p := range products {
		status, t := uc.policy.StatusOf(p.StockQuantity, p.LowStockThreshold)
		items[i] = dto.StockLevel{
			ProductID:     p.ID,
			Name:          p.Name,
			StockQuantity: p.StockQuantity,
			Threshold:     t,
			Status:        string(status),
		}
	}
	return items, total, nil
}

func (uc *inventoryUseCase) getProduct(ctx context.Context, productID string) (*model.Product, error) {
	p, err := uc.repo.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &apperror.ProductNotFoundError{ProductID: productID}
	}
	return p, nil
}

func (uc *inventoryUseCase) GetStockHistory(ctx context.Context, productID string) (*dto.StockHistory, error) {
	p, err := uc.getProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	var embedded []model.RawHistoryEntry
	h, err := uc.repo.GetProductHistory(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to load product history: %w", err)
	}
	// A migrated row is frozen; sales after the backfill only reach the audit log.
	if h != nil && h.MigratedAt == nil {
		embedded = h.StockHistory
	}

	source := "embedded"
	var audit []model.InventoryTransaction
	if len(embedded) == 0 {
		source = "audit"
		audit, _, err = uc.repo.ListTransactions(ctx, &dto.TransactionFilters{ProductID: productID})
		if err != nil {
			return nil, err
		}
	}

	years, errs := uc.reconstructor.Reconstruct(productID, embedded, audit, p.CreatedAt, p.StockQuantity)

	status, t := uc.policy.StatusOf(p.StockQuantity, p.LowStockThreshold)
	result := &dto.StockHistory{
		ProductID:    p.ID,
		Name:         p.Name,
		CurrentStock: p.StockQuantity,
		Threshold:    t,
		Status:       string(status),
		Source:       source,
		Years:        years,
	}
	for _, e := range errs {
		result.Warnings = append(result.Warnings, e.Error())
	}
	return result, nil
}

func (uc *inventoryUseCase) SuggestThreshold(ctx context.Context, productID string) (*dto.ThresholdSuggestion, error) {
	p, err := uc.getProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return &dto.ThresholdSuggestion{
		ProductID:        p.ID,
		CurrentStock:     p.StockQuantity,
		CurrentThreshold: threshold.EffectiveThreshold(p.LowStockThreshold, uc.policy.GlobalDefault),
		Suggested:        threshold.AutoThreshold(p.StockQuantity),
	}, nil
}

// BackfillHistory copies every unmigrated legacy entry into the audit log
// and marks the legacy row migrated. Record ids are derived from product id
// and array position, so a rerun after a partial failure inserts nothing twice.
func (uc *inventoryUseCase) BackfillHistory(ctx context.Context) (*dto.BackfillResult, error) {
	result := &dto.BackfillResult{}

	err := uc.withLock(ctx, backfillLockKey, backfillTTL, func() error {
		histories, err := uc.repo.ListProductHistories(ctx)
		if err != nil {
			return err
		}

		for _, h := range histories {
			records := make([]model.InventoryTransaction, 0, len(h.StockHistory))
			for i, e := range h.StockHistory {
				date, err := history.NormalizeTimestamp(e.Date)
				if err != nil {
					uc.logger.Warn("backfill skipping entry",
						zap.String("product_id", h.ProductID),
						zap.Int("index", i),
						zap.Error(err),
					)
					result.Skipped++
					continue
				}
				records = append(records, model.InventoryTransaction{
					ID:              backfillID(h.ProductID, i),
					TransactionType: model.TransactionBackfill,
					Deltas:          model.StockDeltas{model.NewStockDelta(h.ProductID, e.PreviousStock, e.Quantity())},
					Reason:          "backfilled from products_history",
					UpdatedBy:       e.UpdatedBy,
					CreatedAt:       date.UTC(),
				})
			}

			n, err := uc.repo.MigrateProductHistory(ctx, h.ProductID, records)
			if err != nil {
				return fmt.Errorf("backfill %s: %w", h.ProductID, err)
			}
			result.Products++
			result.Inserted += n
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, apperror.ErrBusy) {
			uc.logger.Warn("backfill already running")
		}
		return nil, err
	}

	uc.logger.Info("stock history backfill finished",
		zap.Int("products", result.Products),
		zap.Int("inserted", result.Inserted),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

func backfillID(productID string, index int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(productID+":"+strconv.Itoa(index))).String()
}
