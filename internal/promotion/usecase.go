package promotion

import (
	"context"

	"github.com/fekuna/omnipos-storefront-service/internal/model"
	"github.com/fekuna/omnipos-storefront-service/internal/promotion/dto"
)

type UseCase interface {
	CreatePromotion(ctx context.Context, input *dto.PromotionInput) (*model.Promotion, error)
	GetPromotion(ctx context.Context, id string) (*model.Promotion, error)
	ListPromotions(ctx context.Context, filters *dto.PromotionFilters) ([]model.Promotion, int, error)
	UpdatePromotion(ctx context.Context, id string, input *dto.PromotionInput) (*model.Promotion, error)
	DeletePromotion(ctx context.Context, id string) error
}
