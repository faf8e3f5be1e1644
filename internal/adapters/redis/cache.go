package redisad

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"villa_dnft/internal/adapters/observability"
)

const metricName = "redis"

// Cache stores JSON-encoded owner snapshots.
type Cache struct{ c *redis.Client }

func New(addr, pass string, db int) *Cache {
	return &Cache{c: redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})}
}

// Get decodes key into dst. An entry that no longer decodes is dropped and
// reported as a miss.
func (r *Cache) Get(ctx context.Context, key string, dst any) (bool, error) {
	v, err := r.c.Get(ctx, key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		observability.ObserveCache(metricName, "miss")
		return false, nil
	case err != nil:
		observability.ObserveCache(metricName, "error")
		return false, err
	}
	if err := json.Unmarshal(v, dst); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("dropping undecodable cache entry")
		_ = r.c.Del(ctx, key).Err()
		observability.ObserveCache(metricName, "miss")
		return false, nil
	}
	observability.ObserveCache(metricName, "hit")
	return true, nil
}

// Set stores v under key; ttlSec <= 0 keeps it until overwritten.
func (r *Cache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var ttl time.Duration
	if ttlSec > 0 {
		ttl = time.Duration(ttlSec) * time.Second
	}
	if err := r.c.Set(ctx, key, b, ttl).Err(); err != nil {
		observability.ObserveCache(metricName, "error")
		return err
	}
	observability.ObserveCache(metricName, "set")
	return nil
}

func (r *Cache) Del(ctx context.Context, key string) error {
	observability.ObserveCache(metricName, "del")
	return r.c.Del(ctx, key).Err()
}

func (r *Cache) Ping(ctx context.Context) error { return r.c.Ping(ctx).Err() }

func (r *Cache) Close() error { return r.c.Close() }
