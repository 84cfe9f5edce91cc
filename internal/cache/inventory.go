package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"chirp/internal/observability"

	"github.com/redis/go-redis/v9"
)

const TweetKeyPrefix = "tweet:%d"

// TweetTTL bounds how long a cached tweet row may be served.
var TweetTTL = 5 * time.Minute

// SetTweetTTL overrides TweetTTL. A non-positive ttl keeps the default.
func SetTweetTTL(ttl time.Duration) {
	if ttl > 0 {
		TweetTTL = ttl
	}
}

func TweetKey(tweetID uint) string {
	return fmt.Sprintf(TweetKeyPrefix, tweetID)
}

// Invalidate removes keys. Failures are counted and otherwise ignored.
func Invalidate(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	_ = client.Del(ctx, keys...).Err()
}

func InvalidateTweets(ctx context.Context, ids ...uint) {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, TweetKey(id))
	}
	Invalidate(ctx, keys...)
}

// GetJSON loads key into dest. It reports false on a miss or when caching is off.
func GetJSON(ctx context.Context, key string, dest interface{}) bool {
	if client == nil {
		return false
	}
	raw, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			observability.CacheLookups.WithLabelValues("miss").Inc()
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		Invalidate(ctx, key)
		return false
	}
	observability.CacheLookups.WithLabelValues("hit").Inc()
	return true
}

// SetJSON stores value under key for ttl.
func SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if client == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = client.Set(ctx, key, raw, ttl).Err()
}

// Aside serves key from Redis when present, otherwise runs load to fill dest
// and stores the result. load errors are returned and never cached.
func Aside(ctx context.Context, key string, dest interface{}, ttl time.Duration, load func() error) error {
	if GetJSON(ctx, key, dest) {
		return nil
	}
	if err := load(); err != nil {
		return err
	}
	SetJSON(ctx, key, dest, ttl)
	return nil
}
