package identity

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const resolvedHandleKeyPrefix = "identity:handle:"

// Resolver is the lookup the cache decorates.
type Resolver interface {
	Resolve(ctx context.Context, handle string) (int64, error)
}

// CachedResolver keeps successful resolutions in Redis with a TTL so repeated
// creates for the same assignees skip the upstream lookup. Cache failures
// degrade to the inner resolver; they are never surfaced to the caller.
type CachedResolver struct {
	inner  Resolver
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCached wraps inner with a Redis lookaside cache.
func NewCached(inner Resolver, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedResolver {
	return &CachedResolver{inner: inner, client: client, ttl: ttl, logger: logger}
}

// Resolve checks the cache first and falls back to the inner resolver,
// storing the result on a hit. Only misses from the cache itself are logged;
// an unknown handle is a normal outcome and is not cached.
func (r *CachedResolver) Resolve(ctx context.Context, handle string) (int64, error) {
	key := resolvedHandleKeyPrefix + handle

	cached, err := r.client.Get(ctx, key).Result()
	if err == nil {
		if id, parseErr := strconv.ParseInt(cached, 10, 64); parseErr == nil {
			return id, nil
		}
		// Unparseable entries get evicted and re-resolved.
		_ = r.client.Del(ctx, key).Err()
	} else if !errors.Is(err, redis.Nil) {
		r.logger.WarnContext(ctx, "identity cache read failed", "handle", handle, "error", err)
	}

	id, err := r.inner.Resolve(ctx, handle)
	if err != nil {
		return 0, err
	}

	if setErr := r.client.Set(ctx, key, strconv.FormatInt(id, 10), r.ttl).Err(); setErr != nil {
		r.logger.WarnContext(ctx, "identity cache write failed", "handle", handle, "error", setErr)
	}
	return id, nil
}
