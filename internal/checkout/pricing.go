package checkout

import (
	"github.com/fekuna/omnipos-storefront-service/internal/checkout/dto"
	"github.com/fekuna/omnipos-storefront-service/internal/model"
	"github.com/shopspring/decimal"
)

var TaxRate = decimal.RequireFromString("0.15")

type Quote struct {
	Subtotal    decimal.Decimal
	Tax         decimal.Decimal
	DeliveryFee decimal.Decimal
	Total       decimal.Decimal
}

// QuoteLines prices lines at their snapshot prices. The delivery fee only
// applies to home delivery.
func QuoteLines(lines []dto.Line, deliveryMethod string, deliveryFee decimal.Decimal) Quote {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	fee := decimal.Zero
	if deliveryMethod == model.DeliveryMethodDelivery {
		fee = deliveryFee
	}

	tax := subtotal.Mul(TaxRate)
	return Quote{
		Subtotal:    subtotal.Round(2),
		Tax:         tax.Round(2),
		DeliveryFee: fee.Round(2),
		Total:       subtotal.Add(tax).Add(fee).Round(2),
	}
}
