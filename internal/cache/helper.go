package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"commentboard/internal/observability"

	"github.com/redis/go-redis/v9"
)

// GetJSON attempts to get the key from Redis and unmarshal into dest.
// Returns (true, nil) if found and unmarshaled, (false, nil) if not found.
func GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if client == nil {
		return false, nil
	}
	s, err := client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(s), dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v and sets the key with TTL.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, b, ttl).Err()
}

// generationKey is bumped by every invalidation. A read that fetched from the
// database only stores its result if the generation did not move meanwhile.
const generationKey = "comments:generation"

var errStaleRead = errors.New("cache: invalidated during fetch")

func generation(ctx context.Context) (int64, error) {
	n, err := client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// storeIfCurrent sets key unless an invalidation ran after gen was read.
func storeIfCurrent(ctx context.Context, key string, v any, ttl time.Duration, gen int64) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, generationKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStaleRead
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, b, ttl)
			return nil
		})
		return err
	}, generationKey)
}

// CacheAside tries Redis first, on miss it calls fetch (which should populate dest),
// then stores the result in Redis with ttl. fetch must write into dest.
// Redis failures fall through to fetch; only fetch errors are returned.
// A result fetched while a write invalidated the cache is returned but not stored.
func CacheAside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	family := keyFamily(key)
	found, err := GetJSON(ctx, key, dest)
	if err == nil && found {
		observability.CacheLookups.WithLabelValues(family, "hit").Inc()
		return nil
	}
	observability.CacheLookups.WithLabelValues(family, "miss").Inc()

	if client == nil {
		return fetch()
	}
	gen, genErr := generation(ctx)

	if err := fetch(); err != nil {
		return err
	}

	// best-effort
	if genErr == nil {
		_ = storeIfCurrent(ctx, key, dest, ttl, gen)
	}
	return nil
}
