package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Promotion struct {
	BaseModel
	Name               string          `db:"name" json:"name"`
	Description        string          `db:"description" json:"description"`
	DiscountPercentage decimal.Decimal `db:"discount_percentage" json:"discount_percentage"`
	StartDate          time.Time       `db:"start_date" json:"start_date"`
	EndDate            time.Time       `db:"end_date" json:"end_date"`
}

// ActiveAt reports whether t falls inside [StartDate, EndDate].
func (p *Promotion) ActiveAt(t time.Time) bool {
	return !t.Before(p.StartDate) && !t.After(p.EndDate)
}

var hundred = decimal.NewFromInt(100)

// DiscountedPrice applies the percentage and rounds to cents.
func (p *Promotion) DiscountedPrice(price decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(p.DiscountPercentage.Div(hundred))
	return price.Mul(factor).Round(2)
}
