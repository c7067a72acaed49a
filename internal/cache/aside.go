package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"commune/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Aside implements the cache-aside pattern: try the cache, on miss call fetch
// (which must fill dest), then write dest back with the given TTL. A nil or
// unreachable Redis degrades to calling fetch directly; cache failures never
// fail the request.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	prefix := keyPrefix(key)

	if client != nil {
		raw, err := client.Get(ctx, key).Result()
		if err == nil {
			if jsonErr := json.Unmarshal([]byte(raw), dest); jsonErr == nil {
				observability.CacheHits.WithLabelValues(prefix).Inc()
				return nil
			}
			// Corrupt entry: drop it and fall through to fetch
			client.Del(ctx, key)
		} else if !errors.Is(err, redis.Nil) && !errors.Is(err, context.Canceled) {
			observability.RedisErrorRate.WithLabelValues("get").Inc()
		}
	}

	observability.CacheMisses.WithLabelValues(prefix).Inc()

	if err := fetch(); err != nil {
		return err
	}

	if client != nil {
		if raw, err := json.Marshal(dest); err == nil {
			client.Set(ctx, key, raw, ttl)
		}
	}
	return nil
}

func keyPrefix(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}
