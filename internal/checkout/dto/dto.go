package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

type CheckoutResult struct {
	OrderID string          `json:"orderId"`
	SaleID  string          `json:"saleId"`
	Amount  decimal.Decimal `json:"amount"`
}

// PaymentInit carries what the hosted payment window needs.
type PaymentInit struct {
	PublicKey string `json:"public_key"`
	Email     string `json:"email"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Reference string `json:"reference"`
}

type OrderCreatedEvent struct {
	EventID   string       `json:"event_id"`
	EventType string       `json:"event_type"`
	Payload   OrderPayload `json:"payload"`
	Timestamp time.Time    `json:"timestamp"`
}

type OrderPayload struct {
	ID               string             `json:"id"`
	SaleID           string             `json:"sale_id"`
	UserID           string             `json:"user_id"`
	PaymentReference string             `json:"payment_reference"`
	Amount           decimal.Decimal    `json:"amount"`
	Items            []OrderItemPayload `json:"items"`
}

type OrderItemPayload struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}
