// Package cache stores public tracking views in Redis as JSON.
//
// Keys are "tracking:view:<trackingId>". A miss is reported as (false, nil);
// only transport and decoding failures surface as errors, which callers treat
// as a miss.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/tbourn/go-shipment-tracker/internal/config"
)

const keyPrefix = "tracking:view:"

// Redis is a view cache backed by a Redis server.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedis connects using cfg. It returns (nil, nil) when no address is
// configured so callers can run without a cache.
func NewRedis(ctx context.Context, cfg config.CacheConfig) (*Redis, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return NewWithClient(client, cfg.TTL), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client redis.UniversalClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Redis{client: client, ttl: ttl}
}

func redisKey(k string) string { return keyPrefix + k }

// Get decodes the cached view stored under k into dst.
func (r *Redis) Get(ctx context.Context, k string, dst any) (bool, error) {
	b, err := r.client.Get(ctx, redisKey(k)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores v for the configured TTL.
func (r *Redis) Set(ctx context.Context, k string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisKey(k), b, r.ttl).Err()
}

// Delete drops the cached view.
func (r *Redis) Delete(ctx context.Context, k string) error {
	return r.client.Del(ctx, redisKey(k)).Err()
}

// Close releases the connection pool.
func (r *Redis) Close() error { return r.client.Close() }
