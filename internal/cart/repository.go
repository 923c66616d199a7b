package cart

import (
	"context"
)

// Store persists carts so they survive restarts.
type Store interface {
	Load(ctx context.Context, userID string) (*Snapshot, error)
	Save(ctx context.Context, userID string, snap Snapshot) error
	Delete(ctx context.Context, userID string) error
}
