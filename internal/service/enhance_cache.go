package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const enhanceCachePrefix = "speakup:enhance:"

// EnhancementCache stores speech-enhancement results.
type EnhancementCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// EnhancementCacheKey derives a stable key from the request and the backend that
// served it, so results from different models never collide.
func EnhancementCacheKey(text, voice, lang, provider, version string) string {
	if provider == "" {
		provider = "unknown"
	}
	if version == "" {
		version = "1"
	}
	payload := normalizeText(text) + "||" + voice + "||" + lang + "||" + provider + ":" + version
	sum := sha256.Sum256([]byte(payload))
	return enhanceCachePrefix + hex.EncodeToString(sum[:])
}

func normalizeText(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

type redisEnhancementCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisEnhancementCache returns a Redis-backed cache, or nil when client is nil.
func NewRedisEnhancementCache(client *redis.Client, ttl time.Duration) EnhancementCache {
	if client == nil {
		return nil
	}
	return &redisEnhancementCache{client: client, ttl: ttl}
}

func (c *redisEnhancementCache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (c *redisEnhancementCache) Set(ctx context.Context, key, value string) error {
	return c.client.Set(ctx, key, value, c.ttl).Err()
}
