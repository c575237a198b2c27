package loyalty

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisCardStore keeps loyalty cards in redis, with the key expiring
// alongside the card itself.
type RedisCardStore struct {
	redis *redis.Client
}

// NewRedisCardStore creates a redis-backed card store.
func NewRedisCardStore(redisClient *redis.Client) *RedisCardStore {
	return &RedisCardStore{redis: redisClient}
}

func (s *RedisCardStore) key(ownerID uuid.UUID) string {
	return fmt.Sprintf("loyalty:card:%s", ownerID)
}

// Get returns the owner's card, or (nil, nil) when none exists.
func (s *RedisCardStore) Get(ctx context.Context, ownerID uuid.UUID) (*Card, error) {
	data, err := s.redis.Get(ctx, s.key(ownerID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loyalty: get card: %w", err)
	}
	var card Card
	if err := json.Unmarshal(data, &card); err != nil {
		return nil, fmt.Errorf("loyalty: unmarshal card: %w", err)
	}
	return &card, nil
}

// Put stores the card until it expires.
func (s *RedisCardStore) Put(ctx context.Context, card *Card) error {
	data, err := json.Marshal(card)
	if err != nil {
		return fmt.Errorf("loyalty: marshal card: %w", err)
	}
	ttl := time.Until(card.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("loyalty: card already expired")
	}
	if err := s.redis.Set(ctx, s.key(card.OwnerID), data, ttl).Err(); err != nil {
		return fmt.Errorf("loyalty: set card: %w", err)
	}
	return nil
}

var _ CardStore = (*RedisCardStore)(nil)
