package order

import (
	"context"

	"github.com/fekuna/omnipos-storefront-service/internal/model"
	"github.com/fekuna/omnipos-storefront-service/internal/order/dto"
)

type Repository interface {
	FindByID(ctx context.Context, id string) (*model.Order, error)
	FindAll(ctx context.Context, filters *dto.OrderFilters) ([]model.Order, int, error)
	UpdateStatus(ctx context.Context, id string, status model.OrderStatus) error

	ListAddresses(ctx context.Context, userID string) ([]model.CustomerAddress, error)
	CreateAddress(ctx context.Context, address *model.CustomerAddress) error
}
