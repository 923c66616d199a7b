package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS promotions (
		id                  VARCHAR(64) PRIMARY KEY,
		name                VARCHAR(255) NOT NULL,
		description         TEXT NOT NULL DEFAULT '',
		discount_percentage NUMERIC(5, 2) NOT NULL,
		start_date          TIMESTAMPTZ NOT NULL,
		end_date            TIMESTAMPTZ NOT NULL,
		created_at          TIMESTAMPTZ NOT NULL,
		updated_at          TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id                  VARCHAR(64) PRIMARY KEY,
		name                VARCHAR(255) NOT NULL,
		description         TEXT NOT NULL DEFAULT '',
		price               NUMERIC(12, 2) NOT NULL CHECK (price >= 0),
		stock_quantity      INT NOT NULL CHECK (stock_quantity >= 0),
		category            VARCHAR(64) NOT NULL,
		promotion_id        VARCHAR(64),
		low_stock_threshold INT,
		image_url           TEXT NOT NULL DEFAULT '',
		created_at          TIMESTAMPTZ NOT NULL,
		updated_at          TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS products_history (
		product_id    VARCHAR(64) PRIMARY KEY,
		stock_history JSONB NOT NULL DEFAULT '[]',
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		migrated_at   TIMESTAMPTZ
	)`,
	`ALTER TABLE products_history ADD COLUMN IF NOT EXISTS migrated_at TIMESTAMPTZ`,
	`CREATE TABLE IF NOT EXISTS orders (
		id                VARCHAR(64) PRIMARY KEY,
		sale_id           VARCHAR(64) NOT NULL UNIQUE,
		order_reference   VARCHAR(64) NOT NULL,
		user_id           VARCHAR(64) NOT NULL,
		user_email        VARCHAR(255) NOT NULL DEFAULT '',
		items             JSONB NOT NULL,
		subtotal          NUMERIC(12, 2) NOT NULL,
		tax               NUMERIC(12, 2) NOT NULL,
		delivery_fee      NUMERIC(12, 2) NOT NULL,
		amount            NUMERIC(12, 2) NOT NULL,
		status            VARCHAR(32) NOT NULL,
		payment_status    VARCHAR(32) NOT NULL,
		payment_reference VARCHAR(128) NOT NULL,
		delivery_method   VARCHAR(32) NOT NULL,
		delivery_address  TEXT,
		created_at        TIMESTAMPTZ NOT NULL,
		updated_at        TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders (user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS payments (
		reference  VARCHAR(128) PRIMARY KEY,
		order_id   VARCHAR(64) NOT NULL REFERENCES orders (id),
		user_id    VARCHAR(64) NOT NULL,
		amount     NUMERIC(12, 2) NOT NULL,
		currency   VARCHAR(8) NOT NULL,
		status     VARCHAR(32) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS inventory_transactions (
		id                VARCHAR(64) PRIMARY KEY,
		sale_id           VARCHAR(64),
		payment_reference VARCHAR(128) NOT NULL DEFAULT '',
		transaction_type  VARCHAR(32) NOT NULL,
		deltas            JSONB NOT NULL,
		reason            TEXT NOT NULL DEFAULT '',
		updated_by        VARCHAR(255) NOT NULL DEFAULT '',
		created_at        TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_transactions_deltas ON inventory_transactions USING GIN (deltas jsonb_path_ops)`,
	`CREATE INDEX IF NOT EXISTS idx_inventory_transactions_created ON inventory_transactions (created_at)`,
	`CREATE TABLE IF NOT EXISTS customer_addresses (
		id            VARCHAR(64) PRIMARY KEY,
		user_id       VARCHAR(64) NOT NULL,
		address_line1 VARCHAR(255) NOT NULL,
		address_line2 VARCHAR(255) NOT NULL DEFAULT '',
		city          VARCHAR(128) NOT NULL,
		state         VARCHAR(128) NOT NULL DEFAULT '',
		postal_code   VARCHAR(32) NOT NULL,
		country       VARCHAR(64) NOT NULL,
		is_default    BOOLEAN NOT NULL DEFAULT false,
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_customer_addresses_user ON customer_addresses (user_id)`,
}

// EnsureSchema creates any missing tables and indexes. Existing ones are left alone.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
