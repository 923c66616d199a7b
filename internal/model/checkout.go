package model

// StockDecrement removes Quantity units from a product, only if at least that many remain.
type StockDecrement struct {
	ProductID string
	Quantity  int
}

// CheckoutBatch is every write a successful checkout makes. It is applied
// inside a single transaction.
type CheckoutBatch struct {
	Order      *Order
	Payment    *Payment
	Decrements []StockDecrement
	Audit      *InventoryTransaction
}
