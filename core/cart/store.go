package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces cart snapshots in the shared keyspace.
const keyPrefix = "plantstore:cart:"

// Store persists the full cart snapshot under a fixed key per cart. Each cart
// has exactly one owner session, so no locking is layered on top.
type Store interface {
	Load(ctx context.Context, cartID string) (Cart, error)
	Save(ctx context.Context, cartID string, c Cart) error
	Drop(ctx context.Context, cartID string) error
}

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context, cartID string) (Cart, error) {
	val, err := s.client.Get(ctx, keyPrefix+cartID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Cart{Items: []Item{}}, nil
		}
		return Cart{}, fmt.Errorf("loading cart[%s]: %w", cartID, err)
	}

	var c Cart
	if err := json.Unmarshal([]byte(val), &c); err != nil {
		return Cart{}, fmt.Errorf("decoding cart[%s]: %w", cartID, err)
	}

	if c.Items == nil {
		c.Items = []Item{}
	}
	return c, nil
}

func (s *RedisStore) Save(ctx context.Context, cartID string, c Cart) error {
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding cart[%s]: %w", cartID, err)
	}

	if err := s.client.Set(ctx, keyPrefix+cartID, b, s.ttl).Err(); err != nil {
		return fmt.Errorf("saving cart[%s]: %w", cartID, err)
	}

	return nil
}

func (s *RedisStore) Drop(ctx context.Context, cartID string) error {
	if err := s.client.Del(ctx, keyPrefix+cartID).Err(); err != nil {
		return fmt.Errorf("dropping cart[%s]: %w", cartID, err)
	}
	return nil
}
