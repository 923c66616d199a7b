package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound               = errors.New("resource not found")
	ErrEmptyCart              = errors.New("cart is empty")
	ErrInvalidQuantity        = errors.New("quantity must be greater than zero")
	ErrQuantityExceedsStock   = errors.New("requested quantity exceeds available stock")
	ErrPaymentAlreadyRecorded = errors.New("payment reference already recorded")
	ErrInvalidStatus          = errors.New("invalid order status")
	ErrForbidden              = errors.New("forbidden")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrInvalidInput           = errors.New("invalid input")
	ErrBusy                   = errors.New("system busy, please try again later")
)

type InsufficientStockError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s (%s): requested %d, available %d",
		e.Name, e.ProductID, e.Requested, e.Available)
}

type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

func (e *ProductNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// CheckoutFailedError is a transient commit or transport failure. The cart
// is left untouched and the same input may be retried.
type CheckoutFailedError struct {
	Err error
}

func (e *CheckoutFailedError) Error() string {
	return fmt.Sprintf("checkout failed: %v", e.Err)
}

func (e *CheckoutFailedError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is a failure the caller may retry with
// the same input.
func IsTransient(err error) bool {
	var failed *CheckoutFailedError
	return errors.As(err, &failed)
}

// DataIntegrityError reports a stored record whose shape does not match
// what the service expects.
type DataIntegrityError struct {
	Entity string
	ID     string
	Reason string
}

func (e *DataIntegrityError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("data integrity: %s: %s", e.Entity, e.Reason)
	}
	return fmt.Sprintf("data integrity: %s %s: %s", e.Entity, e.ID, e.Reason)
}

type PaymentVerificationError struct {
	Reference string
	Reason    string
}

func (e *PaymentVerificationError) Error() string {
	return fmt.Sprintf("payment %s could not be verified: %s", e.Reference, e.Reason)
}

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}
