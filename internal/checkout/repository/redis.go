package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-storefront-service/internal/checkout"
	"github.com/redis/go-redis/v9"
)

type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

func sessionKey(reference string) string {
	return fmt.Sprintf("checkout:session:%s", reference)
}

func (s *RedisSessionStore) Save(ctx context.Context, sess *checkout.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, sessionKey(sess.Reference), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save checkout session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Get(ctx context.Context, reference string) (*checkout.Session, error) {
	val, err := s.client.Get(ctx, sessionKey(reference)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load checkout session: %w", err)
	}

	var sess checkout.Session
	if err := json.Unmarshal(val, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode checkout session: %w", err)
	}
	return &sess, nil
}
