package checkout

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-storefront-service/internal/cart"
	"github.com/fekuna/omnipos-storefront-service/internal/checkout/dto"
	"github.com/fekuna/omnipos-storefront-service/internal/payment"
)

type UseCase interface {
	Checkout(ctx context.Context, input *dto.CheckoutInput) (*dto.CheckoutResult, error)
	InitPayment(ctx context.Context, input *dto.PaymentInitInput) (*dto.PaymentInit, error)
	HandleGatewayEvent(ctx context.Context, userID string, ev payment.GatewayEvent) (*Session, error)
	GetSession(ctx context.Context, userID, reference string) (*Session, error)
}

// CartSource is the part of the cart the checkout reads and clears.
type CartSource interface {
	GetCart(ctx context.Context, userID string) (*cart.View, error)
	Clear(ctx context.Context, userID string) error
}

type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v interface{}) error
}

type ProductCache interface {
	InvalidateListCache(ctx context.Context)
}

type Locker interface {
	AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, value string) error
}
