package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const keyPrefix = "clinic:cache:"

// Redis is a Store backed by Redis. It fails safe: connectivity errors are
// logged and behave like a miss.
type Redis struct {
	client     *redis.Client
	defaultTTL time.Duration
	logger     zerolog.Logger
}

var _ Store = (*Redis)(nil)

// NewRedis creates a new Redis-backed store.
func NewRedis(addr, password string, db int, ttl time.Duration, logger zerolog.Logger) *Redis {
	opts := &redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{
		client:     redis.NewClient(opts),
		defaultTTL: ttl,
		logger:     logger.With().Str("component", "cache").Logger(),
	}
}

// Get returns the raw JSON stored under key. Memoize decodes it.
func (r *Redis) Get(ctx context.Context, key string) (interface{}, bool) {
	if r == nil || r.client == nil {
		return nil, false
	}
	res, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		// fail safe: behave like cache miss
		r.logger.Warn().Err(err).Str("key", key).Msg("cache get failed")
		return nil, false
	}
	return res, true
}

// Set stores value with the store's default TTL.
func (r *Redis) Set(ctx context.Context, key string, value interface{}) {
	r.SetWithTTL(ctx, key, value, 0)
}

// SetWithTTL stores the JSON encoding of value, ignoring redis errors.
func (r *Redis) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if r == nil || r.client == nil {
		return
	}
	if ttl <= 0 {
		ttl = r.defaultTTL
	}
	payload, err := json.Marshal(value)
	if err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("cache value not encodable")
		return
	}
	if err := r.client.Set(ctx, keyPrefix+key, payload, ttl).Err(); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}

// Delete removes a key, ignoring redis errors.
func (r *Redis) Delete(ctx context.Context, key string) {
	if r == nil || r.client == nil {
		return
	}
	if err := r.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		r.logger.Warn().Err(err).Str("key", key).Msg("cache delete failed")
	}
}

// DeletePrefix removes every key starting with prefix.
func (r *Redis) DeletePrefix(ctx context.Context, prefix string) {
	if r == nil || r.client == nil {
		return
	}
	iter := r.client.Scan(ctx, 0, keyPrefix+prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		r.logger.Warn().Err(err).Str("prefix", prefix).Msg("cache scan failed")
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.logger.Warn().Err(err).Str("prefix", prefix).Msg("cache delete failed")
	}
}

// Clear removes every key this store owns. Other keys in the database are left alone.
func (r *Redis) Clear(ctx context.Context) {
	r.DeletePrefix(ctx, "")
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}
