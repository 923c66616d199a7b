package checkout

import (
	"context"

	"github.com/fekuna/omnipos-storefront-service/internal/model"
)

// Tx is the view of the store inside one checkout transaction.
type Tx interface {
	// GetProductsForUpdate locks and returns the rows for ids. Missing ids are absent from the map.
	GetProductsForUpdate(ctx context.Context, ids []string) (map[string]*model.Product, error)
	ApplyBatch(ctx context.Context, batch *model.CheckoutBatch) error
}

type Repository interface {
	// RunInTx commits when fn returns nil and rolls back otherwise.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type SessionStore interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, reference string) (*Session, error)
}
