package model

import (
	"database/sql/driver"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCanceled   OrderStatus = "canceled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCanceled:
		return true
	}
	return false
}

const (
	PaymentStatusSuccess    = "success"
	PaymentStatusUnverified = "unverified"

	DeliveryMethodDelivery   = "delivery"
	DeliveryMethodCollection = "collection"
)

// OrderItem is the frozen line snapshot taken when the order is placed.
type OrderItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

type OrderItems []OrderItem

func (o OrderItems) Value() (driver.Value, error) { return jsonValue(o) }
func (o *OrderItems) Scan(src interface{}) error  { return jsonScan(src, o) }

type Order struct {
	BaseModel
	SaleID           string          `db:"sale_id" json:"sale_id"`
	OrderReference   string          `db:"order_reference" json:"order_reference"`
	UserID           string          `db:"user_id" json:"user_id"`
	UserEmail        string          `db:"user_email" json:"user_email"`
	Items            OrderItems      `db:"items" json:"items"`
	Subtotal         decimal.Decimal `db:"subtotal" json:"subtotal"`
	Tax              decimal.Decimal `db:"tax" json:"tax"`
	DeliveryFee      decimal.Decimal `db:"delivery_fee" json:"delivery_fee"`
	Amount           decimal.Decimal `db:"amount" json:"amount"`
	Status           OrderStatus     `db:"status" json:"status"`
	PaymentStatus    string          `db:"payment_status" json:"payment_status"`
	PaymentReference string          `db:"payment_reference" json:"payment_reference"`
	DeliveryMethod   string          `db:"delivery_method" json:"delivery_method"`
	DeliveryAddress  *string         `db:"delivery_address" json:"delivery_address"`
}

type Payment struct {
	Reference string          `db:"reference" json:"reference"`
	OrderID   string          `db:"order_id" json:"order_id"`
	UserID    string          `db:"user_id" json:"user_id"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	Currency  string          `db:"currency" json:"currency"`
	Status    string          `db:"status" json:"status"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
