package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/vetcare/vetclinic-platform/pkg/logging"
)

// Cache is a redis read-through layer over a Resolver. Lookups during
// booking and record derivation are read-heavy, so hits skip postgres.
type Cache struct {
	redis  *redis.Client
	source Resolver
	ttl    time.Duration
	logger *logging.Logger
}

// NewCache creates a catalog cache with the given entry TTL.
func NewCache(redisClient *redis.Client, source Resolver, ttl time.Duration, logger *logging.Logger) *Cache {
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{redis: redisClient, source: source, ttl: ttl, logger: logger}
}

func (c *Cache) key(serviceID uuid.UUID) string {
	return fmt.Sprintf("catalog:service:%s", serviceID)
}

// Lookup returns the cached service, falling back to the source resolver.
// Cache failures degrade to direct lookups.
func (c *Cache) Lookup(ctx context.Context, serviceID uuid.UUID) (*Service, error) {
	data, err := c.redis.Get(ctx, c.key(serviceID)).Bytes()
	if err == nil {
		var svc Service
		if err := json.Unmarshal(data, &svc); err == nil {
			return &svc, nil
		}
		c.logger.Warn("catalog cache: corrupt entry, refetching", "service_id", serviceID)
	} else if err != redis.Nil {
		c.logger.Warn("catalog cache: redis get failed", "error", err)
	}

	svc, err := c.source.Lookup(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(svc); err == nil {
		if err := c.redis.Set(ctx, c.key(serviceID), data, c.ttl).Err(); err != nil {
			c.logger.Warn("catalog cache: redis set failed", "error", err)
		}
	}
	return svc, nil
}

// Invalidate drops the cached entry after a catalog edit.
func (c *Cache) Invalidate(ctx context.Context, serviceID uuid.UUID) {
	if err := c.redis.Del(ctx, c.key(serviceID)).Err(); err != nil {
		c.logger.Warn("catalog cache: invalidate failed", "service_id", serviceID, "error", err)
	}
}
