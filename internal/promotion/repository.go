package promotion

import (
	"context"

	"github.com/fekuna/omnipos-storefront-service/internal/model"
	"github.com/fekuna/omnipos-storefront-service/internal/promotion/dto"
)

type Repository interface {
	Create(ctx context.Context, promotion *model.Promotion) error
	FindByID(ctx context.Context, id string) (*model.Promotion, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]*model.Promotion, error)
	FindAll(ctx context.Context, filters *dto.PromotionFilters) ([]model.Promotion, int, error)
	Update(ctx context.Context, promotion *model.Promotion) error
	Delete(ctx context.Context, id string) error
}
