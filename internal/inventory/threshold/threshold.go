// Package threshold holds the low-stock policy shared by the catalog,
// inventory and history views.
package threshold

import "math"

type Status string

const (
	OutOfStock Status = "out-of-stock"
	LowStock   Status = "low-stock"
	InStock    Status = "in-stock"
)

// EffectiveThreshold prefers the product's own threshold over the global default.
func EffectiveThreshold(explicit *int, globalDefault int) int {
	if explicit != nil {
		return *explicit
	}
	return globalDefault
}

// Classify never rejects input. Negative stock is reported as out of stock.
func Classify(stock, threshold int) Status {
	switch {
	case stock <= 0:
		return OutOfStock
	case stock <= threshold:
		return LowStock
	default:
		return InStock
	}
}

// AutoThreshold suggests half the current stock, rounded up, and never less than one.
func AutoThreshold(stock int) int {
	suggested := int(math.Ceil(float64(stock) * 0.5))
	if suggested < 1 {
		return 1
	}
	return suggested
}

type Policy struct {
	GlobalDefault int
}

func (p Policy) StatusOf(stock int, explicit *int) (Status, int) {
	t := EffectiveThreshold(explicit, p.GlobalDefault)
	return Classify(stock, t), t
}
