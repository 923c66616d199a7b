package usecase

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fekuna/omnipos-storefront-service/internal/apperror"
	"github.com/fekuna/omnipos-storefront-service/internal/model"
	"github.com/fekuna/omnipos-storefront-service/internal/order"
	"github.com/fekuna/omnipos-storefront-service/internal/order/dto"
	"github.com/fekuna/omnipos-storefront-service/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxPageSize = 100

type orderUseCase struct {
	repo      order.Repository
	publisher order.EventPublisher
	logger    logger.ZapLogger
	now       func() time.Time
}

// NewOrderUseCase builds the order use case. publisher may be nil.
func NewOrderUseCase(repo order.Repository, publisher order.EventPublisher, log logger.ZapLogger) order.UseCase {
	return &orderUseCase{
		repo:      repo,
		publisher: publisher,
		logger:    log,
		now:       time.Now,
	}
}

func (uc *orderUseCase) ListUserOrders(ctx context.Context, userID string) ([]model.Order, error) {
	if userID == "" {
		return nil, apperror.ErrUnauthorized
	}
	orders, _, err := uc.repo.FindAll(ctx, &dto.OrderFilters{UserID: userID})
	return orders, err
}

// GetOrder hides other users' orders as not found.
func (uc *orderUseCase) GetOrder(ctx context.Context, userID string, isAdmin bool, id string) (*model.Order, error) {
	o, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil || (!isAdmin && o.UserID != userID) {
		return nil, apperror.ErrNotFound
	}
	return o, nil
}

func (uc *orderUseCase) ListOrders(ctx context.Context, filters *dto.OrderFilters) ([]model.Order, int, error) {
	if filters.Status != "" && !filters.Status.Valid() {
		return nil, 0, &apperror.ValidationError{Field: "status", Reason: "unknown status " + string(filters.Status)}
	}
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.PageSize <= 0 || filters.PageSize > maxPageSize {
		filters.PageSize = 20
	}
	return uc.repo.FindAll(ctx, filters)
}

func (uc *orderUseCase) UpdateStatus(ctx context.Context, actorID, id string, status model.OrderStatus) (*model.Order, error) {
	if !status.Valid() {
		return nil, apperror.ErrInvalidStatus
	}

	o, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, apperror.ErrNotFound
	}

	from := o.Status
	if err := uc.repo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	o.Status = status
	o.UpdatedAt = uc.now()

	uc.logger.Info("order status updated",
		zap.String("order_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(status)),
		zap.String("actor", actorID),
	)

	if uc.publisher != nil && from != status {
		event := dto.OrderStatusChangedEvent{
			EventID:   uuid.New().String(),
			EventType: "OrderStatusChanged",
			OrderID:   id,
			UserID:    o.UserID,
			From:      from,
			To:        status,
			ChangedBy: actorID,
		}
		if err := uc.publisher.PublishJSON(ctx, id, event); err != nil {
			uc.logger.Error("failed to publish OrderStatusChanged", zap.String("order_id", id), zap.Error(err))
		}
	}

	return o, nil
}

func (uc *orderUseCase) ListAddresses(ctx context.Context, userID string) ([]model.CustomerAddress, error) {
	if userID == "" {
		return nil, apperror.ErrUnauthorized
	}
	return uc.repo.ListAddresses(ctx, userID)
}

func (uc *orderUseCase) AddAddress(ctx context.Context, userID string, input *dto.AddressInput) (*model.CustomerAddress, error) {
	if userID == "" {
		return nil, apperror.ErrUnauthorized
	}
	if input.AddressLine1 == "" || input.City == "" {
		return nil, &apperror.ValidationError{Field: "address", Reason: "address_line1 and city are required"}
	}

	now := uc.now()
	a := &model.CustomerAddress{
		BaseModel:    model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		UserID:       userID,
		AddressLine1: input.AddressLine1,
		AddressLine2: input.AddressLine2,
		City:         input.City,
		State:        input.State,
		PostalCode:   input.PostalCode,
		Country:      input.Country,
		IsDefault:    input.IsDefault,
	}
	if err := uc.repo.CreateAddress(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}
