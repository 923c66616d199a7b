package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fekuna/omnipos-storefront-service/internal/apperror"
	"github.com/fekuna/omnipos-storefront-service/internal/auth"
	"github.com/fekuna/omnipos-storefront-service/internal/checkout"
	"github.com/fekuna/omnipos-storefront-service/internal/checkout/dto"
	"github.com/fekuna/omnipos-storefront-service/internal/payment"
	"github.com/fekuna/omnipos-storefront-service/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockUseCase struct{ mock.Mock }

func (m *mockUseCase) Checkout(ctx context.Context, in *dto.CheckoutInput) (*dto.CheckoutResult, error) {
	args := m.Called(ctx, in)
	if r := args.Get(0); r != nil {
		return r.(*dto.CheckoutResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUseCase) InitPayment(ctx context.Context, in *dto.PaymentInitInput) (*dto.PaymentInit, error) {
	args := m.Called(ctx, in)
	if r := args.Get(0); r != nil {
		return r.(*dto.PaymentInit), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUseCase) HandleGatewayEvent(ctx context.Context, userID string, ev payment.GatewayEvent) (*checkout.Session, error) {
	args := m.Called(ctx, userID, ev)
	if r := args.Get(0); r != nil {
		return r.(*checkout.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUseCase) GetSession(ctx context.Context, userID, ref string) (*checkout.Session, error) {
	args := m.Called(ctx, userID, ref)
	if r := args.Get(0); r != nil {
		return r.(*checkout.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func newRouter(uc checkout.UseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(auth.WithUser(c.Request.Context(), auth.UserContext{UserID: "u1", Email: "u1@example.com"}))
		c.Next()
	})
	NewCheckoutHandler(uc, logger.NewNop()).Register(r)
	return r
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCheckoutReturnsIDs(t *testing.T) {
	uc := new(mockUseCase)
	uc.On("Checkout", mock.Anything, mock.MatchedBy(func(in *dto.CheckoutInput) bool {
		return in.UserID == "u1" && in.PaymentReference == "ref-1" && len(in.Lines) == 1 && in.Lines[0].Quantity == 2
	})).Return(&dto.CheckoutResult{OrderID: "o1", SaleID: "s1", Amount: decimal.RequireFromString("115")}, nil)

	w := post(newRouter(uc), "/checkout", `{"payment_reference":"ref-1","lines":[{"product_id":"A","price":"50","quantity":2}]}`)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.JSONEq(t, `{"orderId":"o1","saleId":"s1","amount":"115"}`, w.Body.String())
	uc.AssertExpectations(t)
}

func TestCheckoutMapsDomainErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"stock", &apperror.InsufficientStockError{ProductID: "A", Requested: 2, Available: 1}, http.StatusConflict, "INSUFFICIENT_STOCK"},
		{"payment", &apperror.PaymentVerificationError{Reference: "ref-1", Reason: "amount"}, http.StatusPaymentRequired, "PAYMENT_VERIFICATION_FAILED"},
		{"transient", &apperror.CheckoutFailedError{Err: context.DeadlineExceeded}, http.StatusServiceUnavailable, "CHECKOUT_FAILED"},
		{"empty", apperror.ErrEmptyCart, http.StatusBadRequest, "INVALID_INPUT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := new(mockUseCase)
			uc.On("Checkout", mock.Anything, mock.Anything).Return(nil, tt.err)

			w := post(newRouter(uc), "/checkout", `{"payment_reference":"ref-1"}`)
			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.code)
		})
	}
}

func TestCheckoutRequiresReference(t *testing.T) {
	uc := new(mockUseCase)
	w := post(newRouter(uc), "/checkout", `{"lines":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	uc.AssertNotCalled(t, "Checkout", mock.Anything, mock.Anything)
}

func TestGatewayEventRejectedWhenNotAwaiting(t *testing.T) {
	uc := new(mockUseCase)
	uc.On("HandleGatewayEvent", mock.Anything, "u1", payment.GatewayEvent{Reference: "ORD-1"}).
		Return(nil, checkout.ErrSessionNotAwaiting)

	w := post(newRouter(uc), "/checkout/events", `{"reference":"ORD-1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentInit(t *testing.T) {
	uc := new(mockUseCase)
	uc.On("InitPayment", mock.Anything, mock.Anything).
		Return(&dto.PaymentInit{PublicKey: "pk", Email: "u1@example.com", Amount: 11500, Currency: "ZAR", Reference: "ORD-1"}, nil)

	w := post(newRouter(uc), "/checkout/payment-init", `{"lines":[{"product_id":"A","price":"50","quantity":2}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"amount":11500`)
}
