package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/omnipos-storefront-service/internal/apperror"
	"github.com/fekuna/omnipos-storefront-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-storefront-service/internal/model"
	"github.com/jmoiron/sqlx"
)

const productColumns = `id, name, description, price, stock_quantity, category, promotion_id,
        low_stock_threshold, image_url, created_at, updated_at`

const transactionColumns = `id, sale_id, payment_reference, transaction_type, deltas, reason, updated_by, created_at`

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) GetProduct(ctx context.Context, productID string) (*model.Product, error) {
	var p model.Product
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	if err := r.DB.GetContext(ctx, &p, query, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PGRepository) ListLowStock(ctx context.Context, globalDefault, page, pageSize int) ([]model.Product, int, error) {
	var count int
	where := ` WHERE stock_quantity <= COALESCE(low_stock_threshold, $1)`

	if err := r.DB.GetContext(ctx, &count, `SELECT count(*) FROM products`+where, globalDefault); err != nil {
		return nil, 0, fmt.Errorf("failed to count low stock products: %w", err)
	}

	query := `SELECT ` + productColumns + ` FROM products` + where + ` ORDER BY stock_quantity ASC, id`
	if pageSize > 0 {
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", pageSize, (page-1)*pageSize)
	}

	var items []model.Product
	if err := r.DB.SelectContext(ctx, &items, query, globalDefault); err != nil {
		return nil, 0, fmt.Errorf("failed to list low stock products: %w", err)
	}
	return items, count, nil
}

func (r *PGRepository) GetProductHistory(ctx context.Context, productID string) (*model.ProductHistory, error) {
	var h model.ProductHistory
	query := `SELECT product_id, stock_history, updated_at, migrated_at FROM products_history WHERE product_id = $1`
	if err := r.DB.GetContext(ctx, &h, query, productID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &h, nil
}

func (r *PGRepository) ListProductHistories(ctx context.Context) ([]model.ProductHistory, error) {
	var items []model.ProductHistory
	query := `
        SELECT product_id, stock_history, updated_at, migrated_at
        FROM products_history
        WHERE migrated_at IS NULL
        ORDER BY product_id
    `
	if err := r.DB.SelectContext(ctx, &items, query); err != nil {
		return nil, fmt.Errorf("failed to list product histories: %w", err)
	}
	return items, nil
}

func (r *PGRepository) ListTransactions(ctx context.Context, f *dto.TransactionFilters) ([]model.InventoryTransaction, int, error) {
	var items []model.InventoryTransaction
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.ProductID != "" {
		filter, err := json.Marshal([]map[string]string{{"product_id": f.ProductID}})
		if err != nil {
			return nil, 0, err
		}
		conditions = append(conditions, "deltas @> CAST(:product_filter AS jsonb)")
		args["product_filter"] = string(filter)
	}
	if f.Type != "" {
		conditions = append(conditions, "transaction_type = :transaction_type")
		args["transaction_type"] = f.Type
	}
	if f.StartDate != nil {
		conditions = append(conditions, "created_at >= :start_date")
		args["start_date"] = *f.StartDate
	}
	if f.EndDate != nil {
		conditions = append(conditions, "created_at <= :end_date")
		args["end_date"] = *f.EndDate
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	cstmt, err := r.DB.PrepareNamedContext(ctx, "SELECT count(*) FROM inventory_transactions"+whereClause)
	if err != nil {
		return nil, 0, err
	}
	defer cstmt.Close()
	if err := cstmt.GetContext(ctx, &count, args); err != nil {
		return nil, 0, fmt.Errorf("failed to count inventory transactions: %w", err)
	}

	query := "SELECT " + transactionColumns + " FROM inventory_transactions" + whereClause + " ORDER BY created_at ASC, id"
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (page-1)*f.PageSize)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	if err := nstmt.SelectContext(ctx, &items, args); err != nil {
		return nil, 0, fmt.Errorf("failed to list inventory transactions: %w", err)
	}
	return items, count, nil
}

func (r *PGRepository) MigrateProductHistory(ctx context.Context, productID string, records []model.InventoryTransaction) (int, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	query := `
        INSERT INTO inventory_transactions (` + transactionColumns + `)
        VALUES (
            :id, :sale_id, :payment_reference, :transaction_type, :deltas, :reason, :updated_by, :created_at
        )
        ON CONFLICT (id) DO NOTHING
    `
	inserted := 0
	for i := range records {
		res, err := tx.NamedExecContext(ctx, query, &records[i])
		if err != nil {
			return 0, fmt.Errorf("failed to insert inventory transaction: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		inserted += int(n)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE products_history SET migrated_at = now() WHERE product_id = $1 AND migrated_at IS NULL`,
		productID,
	); err != nil {
		return 0, fmt.Errorf("failed to mark product history migrated: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

func (r *PGRepository) AdjustStockWithAudit(ctx context.Context, productID string, change int, audit *model.InventoryTransaction) (*model.Product, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// 1. Lock the row
	var p model.Product
	err = tx.GetContext(ctx, &p, `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &apperror.ProductNotFoundError{ProductID: productID}
		}
		return nil, fmt.Errorf("failed to lock product: %w", err)
	}

	before := p.StockQuantity
	after := before + change
	if after < 0 {
		return nil, &apperror.InsufficientStockError{
			ProductID: p.ID,
			Name:      p.Name,
			Requested: -change,
			Available: before,
		}
	}

	// 2. Update stock
	_, err = tx.ExecContext(ctx, `UPDATE products SET stock_quantity = $1, updated_at = $2 WHERE id = $3`,
		after, audit.CreatedAt, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to update stock: %w", err)
	}

	// 3. Audit
	audit.Deltas = model.StockDeltas{model.NewStockDelta(productID, before, after)}
	_, err = tx.NamedExecContext(ctx, `
        INSERT INTO inventory_transactions (`+transactionColumns+`)
        VALUES (
            :id, :sale_id, :payment_reference, :transaction_type, :deltas, :reason, :updated_by, :created_at
        )
    `, audit)
	if err != nil {
		return nil, fmt.Errorf("failed to log inventory transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	p.StockQuantity = after
	p.UpdatedAt = audit.CreatedAt
	return &p, nil
}
