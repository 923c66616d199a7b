package apperror

import (
	"errors"
	"net/http"
)

// HTTPStatus maps an error from the use case layer to a response status.
func HTTPStatus(err error) int {
	var (
		stockErr     *InsufficientStockError
		notFoundErr  *ProductNotFoundError
		checkoutErr  *CheckoutFailedError
		integrityErr *DataIntegrityError
		paymentErr   *PaymentVerificationError
		validErr     *ValidationError
	)

	switch {
	case errors.As(err, &stockErr), errors.Is(err, ErrQuantityExceedsStock):
		return http.StatusConflict
	case errors.As(err, &notFoundErr), errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &paymentErr):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrPaymentAlreadyRecorded):
		return http.StatusConflict
	case errors.As(err, &checkoutErr), errors.Is(err, ErrBusy):
		return http.StatusServiceUnavailable
	case errors.As(err, &integrityErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &validErr),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrEmptyCart),
		errors.Is(err, ErrInvalidStatus):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Code is a stable machine-readable name for the error kind.
func Code(err error) string {
	var (
		stockErr     *InsufficientStockError
		notFoundErr  *ProductNotFoundError
		checkoutErr  *CheckoutFailedError
		integrityErr *DataIntegrityError
		paymentErr   *PaymentVerificationError
	)

	switch {
	case errors.As(err, &stockErr):
		return "INSUFFICIENT_STOCK"
	case errors.As(err, &notFoundErr):
		return "PRODUCT_NOT_FOUND"
	case errors.As(err, &paymentErr):
		return "PAYMENT_VERIFICATION_FAILED"
	case errors.Is(err, ErrPaymentAlreadyRecorded):
		return "PAYMENT_ALREADY_RECORDED"
	case errors.As(err, &checkoutErr):
		return "CHECKOUT_FAILED"
	case errors.As(err, &integrityErr):
		return "DATA_INTEGRITY"
	case errors.Is(err, ErrQuantityExceedsStock):
		return "QUANTITY_EXCEEDS_STOCK"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	}

	switch HTTPStatus(err) {
	case http.StatusBadRequest:
		return "INVALID_INPUT"
	case http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusServiceUnavailable:
		return "UNAVAILABLE"
	}
	return "INTERNAL"
}
