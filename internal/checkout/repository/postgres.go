package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fekuna/omnipos-storefront-service/internal/apperror"
	"github.com/fekuna/omnipos-storefront-service/internal/checkout"
	"github.com/fekuna/omnipos-storefront-service/internal/model"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

const uniqueViolation = "23505"

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) RunInTx(ctx context.Context, fn func(ctx context.Context, tx checkout.Tx) error) error {
	tx, err := r.DB.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin checkout transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit checkout: %w", err)
	}
	return nil
}

type pgTx struct {
	tx *sqlx.Tx
}

func (t *pgTx) GetProductsForUpdate(ctx context.Context, ids []string) (map[string]*model.Product, error) {
	query, args, err := sqlx.In(`
        SELECT id, name, description, price, stock_quantity, category, promotion_id,
               low_stock_threshold, image_url, created_at, updated_at
        FROM products
        WHERE id IN (?)
        ORDER BY id
        FOR UPDATE
    `, ids)
	if err != nil {
		return nil, err
	}
	query = t.tx.Rebind(query)

	var rows []model.Product
	if err := t.tx.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to lock products: %w", err)
	}

	out := make(map[string]*model.Product, len(rows))
	for i := range rows {
		p := &rows[i]
		if err := p.Validate(); err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, nil
}

func (t *pgTx) ApplyBatch(ctx context.Context, b *model.CheckoutBatch) error {
	// 1. Order
	_, err := t.tx.NamedExecContext(ctx, `
        INSERT INTO orders (
            id, sale_id, order_reference, user_id, user_email, items,
            subtotal, tax, delivery_fee, amount, status, payment_status,
            payment_reference, delivery_method, delivery_address, created_at, updated_at
        ) VALUES (
            :id, :sale_id, :order_reference, :user_id, :user_email, :items,
            :subtotal, :tax, :delivery_fee, :amount, :status, :payment_status,
            :payment_reference, :delivery_method, :delivery_address, :created_at, :updated_at
        )
    `, b.Order)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	// 2. Payment, keyed by gateway reference
	_, err = t.tx.NamedExecContext(ctx, `
        INSERT INTO payments (reference, order_id, user_id, amount, currency, status, created_at)
        VALUES (:reference, :order_id, :user_id, :amount, :currency, :status, :created_at)
    `, b.Payment)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return apperror.ErrPaymentAlreadyRecorded
		}
		return fmt.Errorf("failed to insert payment: %w", err)
	}

	// 3. Conditional decrements
	for _, d := range b.Decrements {
		res, err := t.tx.ExecContext(ctx, `
            UPDATE products
            SET stock_quantity = stock_quantity - $1, updated_at = $2
            WHERE id = $3 AND stock_quantity >= $1
        `, d.Quantity, b.Order.CreatedAt, d.ProductID)
		if err != nil {
			return fmt.Errorf("failed to decrement stock: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return &apperror.InsufficientStockError{ProductID: d.ProductID, Requested: d.Quantity}
		}
	}

	// 4. Audit record
	_, err = t.tx.NamedExecContext(ctx, `
        INSERT INTO inventory_transactions (
            id, sale_id, payment_reference, transaction_type, deltas, reason, updated_by, created_at
        ) VALUES (
            :id, :sale_id, :payment_reference, :transaction_type, :deltas, :reason, :updated_by, :created_at
        )
    `, b.Audit)
	if err != nil {
		return fmt.Errorf("failed to insert inventory transaction: %w", err)
	}

	return nil
}
