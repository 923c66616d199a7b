package usecase

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-storefront-service/internal/apperror"
	"github.com/fekuna/omnipos-storefront-service/internal/model"
	"github.com/fekuna/omnipos-storefront-service/internal/promotion"
	"github.com/fekuna/omnipos-storefront-service/internal/promotion/dto"
	"github.com/fekuna/omnipos-storefront-service/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var maxDiscount = decimal.NewFromInt(100)

type promotionUseCase struct {
	repo   promotion.Repository
	logger logger.ZapLogger
	now    func() time.Time
}

func NewPromotionUseCase(repo promotion.Repository, log logger.ZapLogger) promotion.UseCase {
	return &promotionUseCase{
		repo:   repo,
		logger: log,
		now:    time.Now,
	}
}

func validate(input *dto.PromotionInput) error {
	if input.Name == "" {
		return &apperror.ValidationError{Field: "name", Reason: "is required"}
	}
	if input.DiscountPercentage.IsNegative() || input.DiscountPercentage.GreaterThan(maxDiscount) {
		return &apperror.ValidationError{Field: "discount_percentage", Reason: "must be between 0 and 100"}
	}
	if input.EndDate.Before(input.StartDate) {
		return &apperror.ValidationError{Field: "end_date", Reason: "must not be before start_date"}
	}
	return nil
}

func (uc *promotionUseCase) CreatePromotion(ctx context.Context, input *dto.PromotionInput) (*model.Promotion, error) {
	if err := validate(input); err != nil {
		return nil, err
	}

	now := uc.now()
	p := &model.Promotion{
		BaseModel:          model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		Name:               input.Name,
		Description:        input.Description,
		DiscountPercentage: input.DiscountPercentage,
		StartDate:          input.StartDate,
		EndDate:            input.EndDate,
	}

	if err := uc.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	uc.logger.Info("promotion created", zap.String("promotion_id", p.ID), zap.String("discount", p.DiscountPercentage.String()))
	return p, nil
}

func (uc *promotionUseCase) GetPromotion(ctx context.Context, id string) (*model.Promotion, error) {
	p, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperror.ErrNotFound
	}
	return p, nil
}

func (uc *promotionUseCase) ListPromotions(ctx context.Context, filters *dto.PromotionFilters) ([]model.Promotion, int, error) {
	return uc.repo.FindAll(ctx, filters)
}

func (uc *promotionUseCase) UpdatePromotion(ctx context.Context, id string, input *dto.PromotionInput) (*model.Promotion, error) {
	if err := validate(input); err != nil {
		return nil, err
	}

	p, err := uc.GetPromotion(ctx, id)
	if err != nil {
		return nil, err
	}

	p.Name = input.Name
	p.Description = input.Description
	p.DiscountPercentage = input.DiscountPercentage
	p.StartDate = input.StartDate
	p.EndDate = input.EndDate
	p.UpdatedAt = uc.now()

	if err := uc.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (uc *promotionUseCase) DeletePromotion(ctx context.Context, id string) error {
	if _, err := uc.GetPromotion(ctx, id); err != nil {
		return err
	}
	return uc.repo.Delete(ctx, id)
}
