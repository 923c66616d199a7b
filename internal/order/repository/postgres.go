package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-storefront-service/internal/model"
	"github.com/fekuna/omnipos-storefront-service/internal/order/dto"
	"github.com/jmoiron/sqlx"
)

const orderColumns = `id, sale_id, order_reference, user_id, user_email, items, subtotal, tax,
            delivery_fee, amount, status, payment_status, payment_reference, delivery_method,
            delivery_address, created_at, updated_at`

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.Order, error) {
	var order model.Order
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 LIMIT 1`
	err := r.DB.GetContext(ctx, &order, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.OrderFilters) ([]model.Order, int, error) {
	var orders []model.Order
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.UserID != "" {
		conditions = append(conditions, "user_id = :user_id")
		args["user_id"] = f.UserID
	}
	if f.Status != "" {
		conditions = append(conditions, "status = :status")
		args["status"] = string(f.Status)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	cstmt, err := r.DB.PrepareNamedContext(ctx, "SELECT count(*) FROM orders"+whereClause)
	if err != nil {
		return nil, 0, err
	}
	defer cstmt.Close()
	if err := cstmt.GetContext(ctx, &count, args); err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM orders%s ORDER BY created_at DESC, id", orderColumns, whereClause)
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

	if err := nstmt.SelectContext(ctx, &orders, args); err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, count, nil
}

func (r *PGRepository) UpdateStatus(ctx context.Context, id string, status model.OrderStatus) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *PGRepository) ListAddresses(ctx context.Context, userID string) ([]model.CustomerAddress, error) {
	var addresses []model.CustomerAddress
	query := `
        SELECT id, user_id, address_line1, address_line2, city, state, postal_code, country,
               is_default, created_at, updated_at
        FROM customer_addresses
        WHERE user_id = $1
        ORDER BY is_default DESC, created_at DESC
    `
	if err := r.DB.SelectContext(ctx, &addresses, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list addresses: %w", err)
	}
	return addresses, nil
}

// CreateAddress keeps at most one default address per user.
func (r *PGRepository) CreateAddress(ctx context.Context, a *model.CustomerAddress) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if a.IsDefault {
		if _, err := tx.ExecContext(ctx,
			`UPDATE customer_addresses SET is_default = FALSE WHERE user_id = $1 AND is_default`, a.UserID); err != nil {
			return fmt.Errorf("failed to clear default address: %w", err)
		}
	}

	_, err = tx.NamedExecContext(ctx, `
        INSERT INTO customer_addresses (
            id, user_id, address_line1, address_line2, city, state, postal_code, country,
            is_default, created_at, updated_at
        ) VALUES (
            :id, :user_id, :address_line1, :address_line2, :city, :state, :postal_code, :country,
            :is_default, :created_at, :updated_at
        )
    `, a)
	if err != nil {
		return fmt.Errorf("failed to create address: %w", err)
	}

	return tx.Commit()
}
