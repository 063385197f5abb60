package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hotelbook/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisCache keeps calendars in Redis. Keys embed a per-room-type generation
// number, so invalidation is a single INCR and stale keys expire by TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisCache{client: client, ttl: ttl}
}

func genKey(roomTypeID int64) string {
	return fmt.Sprintf("availability:gen:%d", roomTypeID)
}

func (c *RedisCache) key(ctx context.Context, roomTypeID int64, from, to time.Time) (string, error) {
	gen, err := c.client.Get(ctx, genKey(roomTypeID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return fmt.Sprintf("availability:%d:%d:%s:%s", roomTypeID, gen,
		models.FormatDate(from), models.FormatDate(to)), nil
}

func (c *RedisCache) Lookup(ctx context.Context, roomTypeID int64, from, to time.Time) ([]DayAvailability, string, bool) {
	key, err := c.key(ctx, roomTypeID, from, to)
	if err != nil {
		return nil, "", false
	}
	val, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return nil, key, false
	}
	var days []DayAvailability
	if err := json.Unmarshal([]byte(val), &days); err != nil {
		return nil, key, false
	}
	return days, key, true
}

func (c *RedisCache) Store(ctx context.Context, key string, days []DayAvailability) {
	data, err := json.Marshal(days)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, key, data, c.ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, roomTypeID int64) error {
	return c.client.Incr(ctx, genKey(roomTypeID)).Err()
}
