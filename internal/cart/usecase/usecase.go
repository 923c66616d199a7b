package usecase

import (
	"context"
	"sync"

	"github.com/fekuna/omnipos-storefront-service/internal/apperror"
	"github.com/fekuna/omnipos-storefront-service/internal/cart"
	"github.com/fekuna/omnipos-storefront-service/internal/cart/dto"
	"github.com/fekuna/omnipos-storefront-service/pkg/logger"
	"go.uber.org/zap"
)

// userCart is shared by the requests and subscribers currently using it.
// refs is guarded by cartUseCase.mu.
type userCart struct {
	holder *cart.Holder
	saveMu sync.Mutex
	refs   int
}

type cartUseCase struct {
	store    cart.Store
	products cart.ProductLookup
	logger   logger.ZapLogger

	mu    sync.Mutex
	carts map[string]*userCart
}

func NewCartUseCase(store cart.Store, products cart.ProductLookup, log logger.ZapLogger) cart.UseCase {
	return &cartUseCase{
		store:    store,
		products: products,
		logger:   log,
		carts:    map[string]*userCart{},
	}
}

// acquire returns the in-memory cart for a user. A cart nobody is using is
// dropped on release, so the next request reads the store again and sees
// writes made by other instances.
func (uc *cartUseCase) acquire(ctx context.Context, userID string) (*userCart, func(), error) {
	if userID == "" {
		return nil, nil, apperror.ErrUnauthorized
	}

	uc.mu.Lock()
	defer uc.mu.Unlock()

	c, ok := uc.carts[userID]
	if !ok {
		snap, err := uc.store.Load(ctx, userID)
		if err != nil {
			return nil, nil, err
		}
		initial := cart.Snapshot{}
		if snap != nil {
			initial = *snap
		}
		c = &userCart{holder: cart.NewHolder(initial)}
		uc.carts[userID] = c
	}
	c.refs++

	var once sync.Once
	release := func() {
		once.Do(func() {
			uc.mu.Lock()
			defer uc.mu.Unlock()
			c.refs--
			if c.refs == 0 {
				delete(uc.carts, userID)
			}
		})
	}
	return c, release, nil
}

// persist writes the latest snapshot. Saves are serialized per user so an
// older snapshot never overwrites a newer one.
func (uc *cartUseCase) persist(ctx context.Context, userID string, c *userCart) {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	if err := uc.store.Save(ctx, userID, c.holder.Snapshot()); err != nil {
		uc.logger.Error("failed to persist cart", zap.String("user_id", userID), zap.Error(err))
	}
}

func (uc *cartUseCase) GetCart(ctx context.Context, userID string) (*cart.View, error) {
	c, release, err := uc.acquire(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()
	return cart.NewView(c.holder.Snapshot()), nil
}

func (uc *cartUseCase) AddItem(ctx context.Context, input *dto.AddItemInput) (*cart.View, error) {
	if input.Quantity <= 0 {
		return nil, apperror.ErrInvalidQuantity
	}

	c, release, err := uc.acquire(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	defer release()

	p, err := uc.products.GetProductView(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}

	snap, err := c.holder.Add(p.ID, p.Name, p.EffectivePrice, input.Quantity, p.StockQuantity)
	if err != nil {
		return nil, err
	}

	uc.persist(ctx, input.UserID, c)
	return cart.NewView(snap), nil
}

func (uc *cartUseCase) UpdateItem(ctx context.Context, input *dto.UpdateItemInput) (*cart.View, error) {
	c, release, err := uc.acquire(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	defer release()

	stock := 0
	if input.Quantity > 0 {
		p, err := uc.products.GetProductView(ctx, input.ProductID)
		if err != nil {
			return nil, err
		}
		stock = p.StockQuantity
	}

	snap, err := c.holder.UpdateQuantity(input.ProductID, input.Quantity, stock)
	if err != nil {
		return nil, err
	}

	uc.persist(ctx, input.UserID, c)
	return cart.NewView(snap), nil
}

func (uc *cartUseCase) RemoveItem(ctx context.Context, userID, productID string) (*cart.View, error) {
	c, release, err := uc.acquire(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	snap := c.holder.Remove(productID)
	uc.persist(ctx, userID, c)
	return cart.NewView(snap), nil
}

func (uc *cartUseCase) Clear(ctx context.Context, userID string) error {
	c, release, err := uc.acquire(ctx, userID)
	if err != nil {
		return err
	}
	defer release()

	c.saveMu.Lock()
	defer c.saveMu.Unlock()

	c.holder.Clear()
	return uc.store.Delete(ctx, userID)
}

func (uc *cartUseCase) Subscribe(ctx context.Context, userID string) (<-chan cart.Snapshot, func(), error) {
	c, release, err := uc.acquire(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := c.holder.Subscribe()
	return ch, func() {
		cancel()
		release()
	}, nil
}
