package product

import (
	"context"

	"github.com/fekuna/omnipos-storefront-service/internal/model"
	"github.com/fekuna/omnipos-storefront-service/internal/product/dto"
	"github.com/fekuna/omnipos-storefront-service/pkg/search"
)

type Repository interface {
	Create(ctx context.Context, product *model.Product) error
	FindByID(ctx context.Context, id string) (*model.Product, error)
	FindAll(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error)
	FindByIDs(ctx context.Context, ids []string) ([]model.Product, error)
	Update(ctx context.Context, product *model.Product) error
	// Delete also removes the legacy products_history row.
	Delete(ctx context.Context, id string) error
}

// PromotionSource resolves the weak promotion references on products.
type PromotionSource interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]*model.Promotion, error)
}

// Searcher is the product search index. *search.Client implements it.
type Searcher interface {
	CreateIndex(ctx context.Context, index, mapping string) error
	Index(ctx context.Context, index, id string, doc interface{}) error
	Delete(ctx context.Context, index, id string) error
	Search(ctx context.Context, index string, query map[string]interface{}) (*search.SearchResponse, error)
}
