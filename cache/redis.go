package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/xraph/keeper"
)

// Compile-time interface check.
var _ keeper.Cache = (*Redis)(nil)

// Redis is a query result cache backed by a Redis server, for sharing
// cached result sets across processes. Each collection keeps an index
// set of its member keys so invalidation can drop them in one pass.
//
// Redis failures degrade to cache misses; they never fail the query.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// RedisOption configures the Redis cache.
type RedisOption func(*Redis)

// WithRedisTTL sets the cache entry time-to-live.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) { r.ttl = ttl }
}

// WithRedisLogger sets the logger used for degraded-path warnings.
func WithRedisLogger(logger *slog.Logger) RedisOption {
	return func(r *Redis) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRedis creates a Redis-backed cache on an existing client.
func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{
		client: client,
		ttl:    5 * time.Minute,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// envelope is the stored shape of one cache entry: the page of records
// plus the total match count of the scoped filter.
type envelope struct {
	Records []keeper.Record `json:"records"`
	Count   int             `json:"count"`
}

// Get returns a cached result set and its total match count.
func (r *Redis) Get(ctx context.Context, fp keeper.Fingerprint) ([]keeper.Record, int, bool) {
	raw, err := r.client.Get(ctx, Key(fp)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			r.logger.Warn("keeper: redis cache read failed", "collection", fp.Collection, "error", err)
		}
		return nil, 0, false
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		r.logger.Warn("keeper: redis cache entry corrupt", "collection", fp.Collection, "error", err)
		return nil, 0, false
	}
	return env.Records, env.Count, true
}

// Set stores a result set and its total match count, registering the
// key in the collection's index set.
func (r *Redis) Set(ctx context.Context, fp keeper.Fingerprint, records []keeper.Record, count int) {
	raw, err := json.Marshal(envelope{Records: records, Count: count})
	if err != nil {
		r.logger.Warn("keeper: redis cache encode failed", "collection", fp.Collection, "error", err)
		return
	}
	key := Key(fp)
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, key, raw, r.ttl)
	pipe.SAdd(ctx, indexKey(fp.Collection), key)
	pipe.Expire(ctx, indexKey(fp.Collection), r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn("keeper: redis cache write failed", "collection", fp.Collection, "error", err)
	}
}

// Invalidate removes all cached results for a collection.
func (r *Redis) Invalidate(ctx context.Context, coll string) {
	idx := indexKey(coll)
	keys, err := r.client.SMembers(ctx, idx).Result()
	if err != nil {
		r.logger.Warn("keeper: redis cache invalidate failed", "collection", coll, "error", err)
		return
	}
	keys = append(keys, idx)
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		r.logger.Warn("keeper: redis cache invalidate failed", "collection", coll, "error", err)
	}
}

func indexKey(coll string) string {
	return "keeper:idx:" + coll
}
