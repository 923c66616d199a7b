package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

type TransactionType string

const (
	TransactionSale       TransactionType = "SALE"
	TransactionPurchase   TransactionType = "PURCHASE"
	TransactionAdjustment TransactionType = "ADJUSTMENT"
	TransactionReturn     TransactionType = "RETURN"
	TransactionBackfill   TransactionType = "BACKFILL"
)

// StockDelta is one product's before/after quantity inside an audit record.
// QuantityDecreased is OldQuantity minus NewQuantity, negative for restocks.
type StockDelta struct {
	ProductID         string `json:"product_id"`
	OldQuantity       int    `json:"old_quantity"`
	NewQuantity       int    `json:"new_quantity"`
	QuantityDecreased int    `json:"quantity_decreased"`
}

func NewStockDelta(productID string, oldQty, newQty int) StockDelta {
	return StockDelta{
		ProductID:         productID,
		OldQuantity:       oldQty,
		NewQuantity:       newQty,
		QuantityDecreased: oldQty - newQty,
	}
}

type StockDeltas []StockDelta

func (d StockDeltas) Value() (driver.Value, error) { return jsonValue(d) }
func (d *StockDeltas) Scan(src interface{}) error  { return jsonScan(src, d) }

// InventoryTransaction is an append-only audit record in inventory_transactions.
type InventoryTransaction struct {
	ID               string          `db:"id" json:"id"`
	SaleID           *string         `db:"sale_id" json:"sale_id"`
	PaymentReference string          `db:"payment_reference" json:"payment_reference"`
	TransactionType  TransactionType `db:"transaction_type" json:"transaction_type"`
	Deltas           StockDeltas     `db:"deltas" json:"deltas"`
	Reason           string          `db:"reason" json:"reason"`
	UpdatedBy        string          `db:"updated_by" json:"updated_by"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
}

// DeltaFor returns the delta touching productID, if any.
func (t *InventoryTransaction) DeltaFor(productID string) (StockDelta, bool) {
	for _, d := range t.Deltas {
		if d.ProductID == productID {
			return d, true
		}
	}
	return StockDelta{}, false
}

// RawHistoryEntry is one element of the legacy products_history.stock_history
// array. Date is kept raw because old writers stored several timestamp shapes.
type RawHistoryEntry struct {
	Date          json.RawMessage `json:"date"`
	CurrentStock  *int            `json:"current_stock,omitempty"`
	NewStock      int             `json:"new_stock"`
	PreviousStock int             `json:"previous_stock"`
	UpdatedBy     string          `json:"updated_by"`
}

// Quantity is the stock level after the change.
func (e RawHistoryEntry) Quantity() int {
	if e.CurrentStock != nil {
		return *e.CurrentStock
	}
	return e.NewStock
}

type RawHistoryEntries []RawHistoryEntry

func (h RawHistoryEntries) Value() (driver.Value, error) { return jsonValue(h) }
func (h *RawHistoryEntries) Scan(src interface{}) error  { return jsonScan(src, h) }

// ProductHistory is the legacy shadow row kept per product. MigratedAt is
// set once its entries have been copied into the audit log; from then on
// the audit log is the only history that grows.
type ProductHistory struct {
	ProductID    string            `db:"product_id" json:"product_id"`
	StockHistory RawHistoryEntries `db:"stock_history" json:"stock_history"`
	UpdatedAt    time.Time         `db:"updated_at" json:"updated_at"`
	MigratedAt   *time.Time        `db:"migrated_at" json:"migrated_at,omitempty"`
}
