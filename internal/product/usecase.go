package product

import (
	"context"

	"github.com/fekuna/omnipos-storefront-service/internal/model"
	"github.com/fekuna/omnipos-storefront-service/internal/product/dto"
)

type UseCase interface {
	CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*model.ProductView, error)
	GetProductView(ctx context.Context, id string) (*model.ProductView, error)
	ListProducts(ctx context.Context, filters *dto.ProductFilters) ([]model.ProductView, int, error)
	UpdateProduct(ctx context.Context, input *dto.UpdateProductInput) (*model.ProductView, error)
	DeleteProduct(ctx context.Context, id string) error

	InvalidateListCache(ctx context.Context)
}
