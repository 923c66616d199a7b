package order

import (
	"context"

	"github.com/fekuna/omnipos-storefront-service/internal/model"
	"github.com/fekuna/omnipos-storefront-service/internal/order/dto"
)

type UseCase interface {
	ListUserOrders(ctx context.Context, userID string) ([]model.Order, error)
	GetOrder(ctx context.Context, userID string, isAdmin bool, id string) (*model.Order, error)
	ListOrders(ctx context.Context, filters *dto.OrderFilters) ([]model.Order, int, error)
	UpdateStatus(ctx context.Context, actorID, id string, status model.OrderStatus) (*model.Order, error)

	ListAddresses(ctx context.Context, userID string) ([]model.CustomerAddress, error)
	AddAddress(ctx context.Context, userID string, input *dto.AddressInput) (*model.CustomerAddress, error)
}

type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v interface{}) error
}
