package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const StatusSuccess = "success"

type Verification struct {
	Reference   string
	Status      string
	AmountMinor int64
	Currency    string
}

// Verifier confirms with the gateway that a reference was actually paid.
type Verifier interface {
	Verify(ctx context.Context, reference string) (*Verification, error)
}

// GatewayError is the error object the hosted checkout reports on failure.
type GatewayError struct {
	Message string `json:"message"`
}

// GatewayEvent is the callback from the hosted checkout. Exactly one of
// Reference, Error or Closed is expected to be set.
type GatewayEvent struct {
	Reference string        `json:"reference,omitempty"`
	Error     *GatewayError `json:"error,omitempty"`
	Closed    bool          `json:"closed,omitempty"`
}

func (e GatewayEvent) Kind() string {
	switch {
	case e.Closed:
		return "closed"
	case e.Error != nil:
		return "failure"
	case e.Reference != "":
		return "success"
	default:
		return "unknown"
	}
}

var hundred = decimal.NewFromInt(100)

// ToMinorUnits converts an amount to integer cents, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// NewReference returns a unique reference to hand to the hosted checkout.
func NewReference() string {
	return fmt.Sprintf("ORD-%s", strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:16]))
}
