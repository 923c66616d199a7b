package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-storefront-service/internal/cart"
	"github.com/redis/go-redis/v9"
)

type RedisRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisRepository(client *redis.Client, ttl time.Duration) *RedisRepository {
	return &RedisRepository{client: client, ttl: ttl}
}

func cartKey(userID string) string {
	return fmt.Sprintf("cart:%s", userID)
}

func (r *RedisRepository) Load(ctx context.Context, userID string) (*cart.Snapshot, error) {
	val, err := r.client.Get(ctx, cartKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}

	var snap cart.Snapshot
	if err := json.Unmarshal(val, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	return &snap, nil
}

func (r *RedisRepository) Save(ctx context.Context, userID string, snap cart.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, cartKey(userID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (r *RedisRepository) Delete(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}
