package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/fekuna/omnipos-storefront-service/internal/apperror"
	"github.com/fekuna/omnipos-storefront-service/internal/cart"
	"github.com/fekuna/omnipos-storefront-service/internal/cart/dto"
	"github.com/fekuna/omnipos-storefront-service/internal/model"
	"github.com/fekuna/omnipos-storefront-service/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu      sync.Mutex
	carts   map[string]cart.Snapshot
	saveErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{carts: map[string]cart.Snapshot{}}
}

func (s *memoryStore) Load(_ context.Context, userID string) (*cart.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.carts[userID]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (s *memoryStore) Save(_ context.Context, userID string, snap cart.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.carts[userID] = snap
	return nil
}

func (s *memoryStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, userID)
	return nil
}

type mockProducts struct {
	mock.Mock
}

func (m *mockProducts) GetProductView(ctx context.Context, id string) (*model.ProductView, error) {
	args := m.Called(ctx, id)
	if v := args.Get(0); v != nil {
		return v.(*model.ProductView), args.Error(1)
	}
	return nil, args.Error(1)
}

func productView(id string, stock int, effective string) *model.ProductView {
	return &model.ProductView{
		Product: model.Product{
			BaseModel:     model.BaseModel{ID: id},
			Name:          "Product " + id,
			Price:         decimal.NewFromInt(100),
			StockQuantity: stock,
		},
		EffectivePrice: decimal.RequireFromString(effective),
	}
}

func TestAddItemSnapshotsEffectivePriceAndPersists(t *testing.T) {
	store := newMemoryStore()
	products := new(mockProducts)
	products.On("GetProductView", mock.Anything, "p1").Return(productView("p1", 10, "80.00"), nil)

	uc := NewCartUseCase(store, products, logger.NewNop())
	view, err := uc.AddItem(context.Background(), &dto.AddItemInput{UserID: "u1", ProductID: "p1", Quantity: 4})
	require.NoError(t, err)

	require.Len(t, view.Lines, 1)
	assert.Equal(t, "80", view.Lines[0].UnitPrice.String())
	assert.Equal(t, "320", view.Subtotal.String())
	assert.Equal(t, 4, store.carts["u1"].Lines["p1"].Quantity)
	products.AssertExpectations(t)
}

func TestAddItemStockScenario(t *testing.T) {
	products := new(mockProducts)
	products.On("GetProductView", mock.Anything, "p1").Return(productView("p1", 10, "50"), nil)
	uc := NewCartUseCase(newMemoryStore(), products, logger.NewNop())
	ctx := context.Background()

	_, err := uc.AddItem(ctx, &dto.AddItemInput{UserID: "u1", ProductID: "p1", Quantity: 4})
	require.NoError(t, err)
	_, err = uc.AddItem(ctx, &dto.AddItemInput{UserID: "u1", ProductID: "p1", Quantity: 4})
	require.NoError(t, err)
	_, err = uc.AddItem(ctx, &dto.AddItemInput{UserID: "u1", ProductID: "p1", Quantity: 3})
	assert.ErrorIs(t, err, apperror.ErrQuantityExceedsStock)

	view, err := uc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 8, view.TotalItems)
}

func TestCartSurvivesRestart(t *testing.T) {
	store := newMemoryStore()
	products := new(mockProducts)
	products.On("GetProductView", mock.Anything, "p1").Return(productView("p1", 10, "50"), nil)

	first := NewCartUseCase(store, products, logger.NewNop())
	_, err := first.AddItem(context.Background(), &dto.AddItemInput{UserID: "u1", ProductID: "p1", Quantity: 2})
	require.NoError(t, err)

	second := NewCartUseCase(store, products, logger.NewNop())
	view, err := second.GetCart(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, view.TotalItems)
}

func TestUpdateToZeroRemovesWithoutLookup(t *testing.T) {
	products := new(mockProducts)
	products.On("GetProductView", mock.Anything, "p1").Return(productView("p1", 10, "50"), nil).Once()
	uc := NewCartUseCase(newMemoryStore(), products, logger.NewNop())
	ctx := context.Background()

	_, err := uc.AddItem(ctx, &dto.AddItemInput{UserID: "u1", ProductID: "p1", Quantity: 2})
	require.NoError(t, err)

	view, err := uc.UpdateItem(ctx, &dto.UpdateItemInput{UserID: "u1", ProductID: "p1", Quantity: 0})
	require.NoError(t, err)
	assert.Empty(t, view.Lines)
	products.AssertNumberOfCalls(t, "GetProductView", 1)
}

func TestAddItemUnknownProduct(t *testing.T) {
	products := new(mockProducts)
	products.On("GetProductView", mock.Anything, "nope").Return(nil, &apperror.ProductNotFoundError{ProductID: "nope"})
	uc := NewCartUseCase(newMemoryStore(), products, logger.NewNop())

	_, err := uc.AddItem(context.Background(), &dto.AddItemInput{UserID: "u1", ProductID: "nope", Quantity: 1})
	var notFound *apperror.ProductNotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestSaveFailureKeepsInMemoryCart(t *testing.T) {
	store := newMemoryStore()
	store.saveErr = errors.New("redis down")
	products := new(mockProducts)
	products.On("GetProductView", mock.Anything, "p1").Return(productView("p1", 10, "50"), nil)
	uc := NewCartUseCase(store, products, logger.NewNop())

	view, err := uc.AddItem(context.Background(), &dto.AddItemInput{UserID: "u1", ProductID: "p1", Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, view.TotalItems)
}

func TestClearEmptiesCartAndStore(t *testing.T) {
	store := newMemoryStore()
	products := new(mockProducts)
	products.On("GetProductView", mock.Anything, "p1").Return(productView("p1", 10, "50"), nil)
	uc := NewCartUseCase(store, products, logger.NewNop())
	ctx := context.Background()

	_, err := uc.AddItem(ctx, &dto.AddItemInput{UserID: "u1", ProductID: "p1", Quantity: 1})
	require.NoError(t, err)

	ch, cancel, err := uc.Subscribe(ctx, "u1")
	require.NoError(t, err)
	defer cancel()
	<-ch

	require.NoError(t, uc.Clear(ctx, "u1"))
	assert.NotContains(t, store.carts, "u1")

	snap := <-ch
	assert.Empty(t, snap.Lines)
}

func TestAnonymousUserRejected(t *testing.T) {
	uc := NewCartUseCase(newMemoryStore(), new(mockProducts), logger.NewNop())
	_, err := uc.GetCart(context.Background(), "")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func cachedCarts(uc cart.UseCase) int {
	c := uc.(*cartUseCase)
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.carts)
}

func TestIdleCartsAreDropped(t *testing.T) {
	products := new(mockProducts)
	products.On("GetProductView", mock.Anything, mock.Anything).Return(productView("p1", 10, "50"), nil)
	uc := NewCartUseCase(newMemoryStore(), products, logger.NewNop())
	ctx := context.Background()

	for _, user := range []string{"u1", "u2", "u3"} {
		_, err := uc.AddItem(ctx, &dto.AddItemInput{UserID: user, ProductID: "p1", Quantity: 1})
		require.NoError(t, err)
	}
	assert.Zero(t, cachedCarts(uc))

	_, cancel, err := uc.Subscribe(ctx, "u1")
	require.NoError(t, err)
	_, err = uc.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, cachedCarts(uc))

	cancel()
	cancel()
	assert.Zero(t, cachedCarts(uc))
}

func TestCartSeesClearFromAnotherInstance(t *testing.T) {
	store := newMemoryStore()
	products := new(mockProducts)
	products.On("GetProductView", mock.Anything, "p1").Return(productView("p1", 10, "50"), nil)
	ctx := context.Background()

	first := NewCartUseCase(store, products, logger.NewNop())
	second := NewCartUseCase(store, products, logger.NewNop())

	_, err := first.AddItem(ctx, &dto.AddItemInput{UserID: "u1", ProductID: "p1", Quantity: 2})
	require.NoError(t, err)
	view, err := second.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, view.TotalItems)

	require.NoError(t, second.Clear(ctx, "u1"))

	view, err = first.GetCart(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, view.TotalItems)

	view, err = first.AddItem(ctx, &dto.AddItemInput{UserID: "u1", ProductID: "p1", Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, view.TotalItems)
}
