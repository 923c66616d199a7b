package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fekuna/omnipos-storefront-service/internal/apperror"
	"github.com/fekuna/omnipos-storefront-service/internal/model"
	"github.com/fekuna/omnipos-storefront-service/internal/promotion/dto"
	"github.com/fekuna/omnipos-storefront-service/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRepo struct{ mock.Mock }

func (m *mockRepo) Create(ctx context.Context, p *model.Promotion) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockRepo) FindByID(ctx context.Context, id string) (*model.Promotion, error) {
	args := m.Called(ctx, id)
	if p := args.Get(0); p != nil {
		return p.(*model.Promotion), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepo) FindByIDs(ctx context.Context, ids []string) (map[string]*model.Promotion, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).(map[string]*model.Promotion), args.Error(1)
}

func (m *mockRepo) FindAll(ctx context.Context, f *dto.PromotionFilters) ([]model.Promotion, int, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]model.Promotion), args.Int(1), args.Error(2)
}

func (m *mockRepo) Update(ctx context.Context, p *model.Promotion) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockRepo) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

var start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func input(pct string, end time.Time) *dto.PromotionInput {
	return &dto.PromotionInput{
		Name:               "Winter sale",
		DiscountPercentage: decimal.RequireFromString(pct),
		StartDate:          start,
		EndDate:            end,
	}
}

func TestCreatePromotionValidation(t *testing.T) {
	uc := NewPromotionUseCase(new(mockRepo), logger.NewNop())

	tests := []struct {
		name  string
		in    *dto.PromotionInput
		field string
	}{
		{"negative", input("-1", start.AddDate(0, 1, 0)), "discount_percentage"},
		{"over 100", input("100.01", start.AddDate(0, 1, 0)), "discount_percentage"},
		{"end before start", input("10", start.Add(-time.Second)), "end_date"},
		{"no name", &dto.PromotionInput{StartDate: start, EndDate: start}, "name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.CreatePromotion(context.Background(), tt.in)
			var verr *apperror.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestCreatePromotionBoundaries(t *testing.T) {
	repo := new(mockRepo)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	uc := NewPromotionUseCase(repo, logger.NewNop())

	for _, pct := range []string{"0", "100"} {
		p, err := uc.CreatePromotion(context.Background(), input(pct, start))
		require.NoError(t, err, pct)
		assert.NotEmpty(t, p.ID)
	}
}

func TestUpdatePromotion(t *testing.T) {
	repo := new(mockRepo)
	repo.On("FindByID", mock.Anything, "missing").Return(nil, nil)
	repo.On("FindByID", mock.Anything, "p1").Return(&model.Promotion{BaseModel: model.BaseModel{ID: "p1"}, Name: "Old"}, nil)
	repo.On("Update", mock.Anything, mock.MatchedBy(func(p *model.Promotion) bool {
		return p.ID == "p1" && p.Name == "Winter sale" && p.DiscountPercentage.Equal(decimal.NewFromInt(25))
	})).Return(nil)
	uc := NewPromotionUseCase(repo, logger.NewNop())

	_, err := uc.UpdatePromotion(context.Background(), "missing", input("25", start.AddDate(0, 0, 7)))
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	p, err := uc.UpdatePromotion(context.Background(), "p1", input("25", start.AddDate(0, 0, 7)))
	require.NoError(t, err)
	assert.Equal(t, "Winter sale", p.Name)
	repo.AssertExpectations(t)
}

func TestDeletePromotion(t *testing.T) {
	repo := new(mockRepo)
	repo.On("FindByID", mock.Anything, "p1").Return(&model.Promotion{BaseModel: model.BaseModel{ID: "p1"}}, nil)
	repo.On("Delete", mock.Anything, "p1").Return(nil)

	require.NoError(t, NewPromotionUseCase(repo, logger.NewNop()).DeletePromotion(context.Background(), "p1"))
	repo.AssertCalled(t, "Delete", mock.Anything, "p1")
}
