package cart

import (
	"context"

	"github.com/fekuna/omnipos-storefront-service/internal/cart/dto"
	"github.com/fekuna/omnipos-storefront-service/internal/model"
	"github.com/shopspring/decimal"
)

// ProductLookup resolves the live product with its promotion applied.
type ProductLookup interface {
	GetProductView(ctx context.Context, id string) (*model.ProductView, error)
}

type View struct {
	Version    uint64          `json:"version"`
	Lines      []Line          `json:"lines"`
	TotalItems int             `json:"total_items"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

func NewView(s Snapshot) *View {
	return &View{
		Version:    s.Version,
		Lines:      s.Sorted(),
		TotalItems: s.TotalItems(),
		Subtotal:   s.Subtotal().Round(2),
	}
}

type UseCase interface {
	GetCart(ctx context.Context, userID string) (*View, error)
	AddItem(ctx context.Context, input *dto.AddItemInput) (*View, error)
	UpdateItem(ctx context.Context, input *dto.UpdateItemInput) (*View, error)
	RemoveItem(ctx context.Context, userID, productID string) (*View, error)
	Clear(ctx context.Context, userID string) error
	Subscribe(ctx context.Context, userID string) (<-chan Snapshot, func(), error)
}
