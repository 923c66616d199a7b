package dto

import "github.com/shopspring/decimal"

// Line is a cart line with the name and price captured at add-to-cart time.
type Line struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

type CheckoutInput struct {
	UserID           string
	UserEmail        string
	Lines            []Line
	PaymentReference string
	DeliveryMethod   string
	DeliveryAddress  *string
}

type PaymentInitInput struct {
	UserID          string
	UserEmail       string
	Lines           []Line
	DeliveryMethod  string
	DeliveryAddress *string
}

type CheckoutRequest struct {
	Lines            []Line  `json:"lines"`
	PaymentReference string  `json:"payment_reference" binding:"required"`
	DeliveryMethod   string  `json:"delivery_method"`
	DeliveryAddress  *string `json:"delivery_address"`
}

type PaymentInitRequest struct {
	Lines           []Line  `json:"lines"`
	DeliveryMethod  string  `json:"delivery_method"`
	DeliveryAddress *string `json:"delivery_address"`
}
