package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/apnedoctors/minirag/pkg/utils"
	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
)

// EmbeddingKeyPrefix namespaces cached query vectors.
const EmbeddingKeyPrefix = "embedding:"

// VectorCache stores embedding vectors keyed by their source text.
// Cache failures are never fatal: Get reports a miss instead.
type VectorCache interface {
	Get(ctx context.Context, text string) ([]float32, bool)
	Set(ctx context.Context, text string, vec []float32) error
}

// EmbeddingKey derives the cache key from normalized text. The namespace
// identifies the model that produced the vector, so switching provider, model
// or dimension never serves stale vectors.
func EmbeddingKey(namespace, text string) string {
	if namespace == "" {
		return EmbeddingKeyPrefix + utils.NormalizedHash(text)
	}
	return EmbeddingKeyPrefix + namespace + ":" + utils.NormalizedHash(text)
}

// RedisCache keeps vectors as JSON with a TTL.
type RedisCache struct {
	client    *redis.Client
	namespace string
	ttl       time.Duration
	logger    *logrus.Logger
}

func NewRedisCache(client *redis.Client, namespace string, ttl time.Duration, logger *logrus.Logger) *RedisCache {
	return &RedisCache{client: client, namespace: namespace, ttl: ttl, logger: logger}
}

func (c *RedisCache) Get(ctx context.Context, text string) ([]float32, bool) {
	data, err := c.client.Get(ctx, EmbeddingKey(c.namespace, text)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.WithError(err).Warn("Embedding cache read failed")
		}
		return nil, false
	}

	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		c.logger.WithError(err).Warn("Discarding corrupt cached embedding")
		return nil, false
	}
	return vec, true
}

func (c *RedisCache) Set(ctx context.Context, text string, vec []float32) error {
	data, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding: %w", err)
	}
	return c.client.Set(ctx, EmbeddingKey(c.namespace, text), data, c.ttl).Err()
}

// LRUCache is the in-process cache used when Redis is not configured.
// Vectors are copied in and out so callers may modify what they get.
type LRUCache struct {
	cache     *lru.Cache[string, []float32]
	namespace string
}

func NewLRUCache(namespace string, size int) (*LRUCache, error) {
	if size <= 0 {
		size = 1024
	}
	c, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	return &LRUCache{cache: c, namespace: namespace}, nil
}

func (c *LRUCache) Get(_ context.Context, text string) ([]float32, bool) {
	vec, ok := c.cache.Get(EmbeddingKey(c.namespace, text))
	if !ok {
		return nil, false
	}
	return append([]float32(nil), vec...), true
}

func (c *LRUCache) Set(_ context.Context, text string, vec []float32) error {
	c.cache.Add(EmbeddingKey(c.namespace, text), append([]float32(nil), vec...))
	return nil
}

func (c *LRUCache) Len() int {
	return c.cache.Len()
}

// TieredCache checks the local LRU before Redis and backfills on a remote hit.
type TieredCache struct {
	local  *LRUCache
	remote VectorCache
}

func NewTieredCache(local *LRUCache, remote VectorCache) *TieredCache {
	return &TieredCache{local: local, remote: remote}
}

func (c *TieredCache) Get(ctx context.Context, text string) ([]float32, bool) {
	if vec, ok := c.local.Get(ctx, text); ok {
		return vec, true
	}
	vec, ok := c.remote.Get(ctx, text)
	if ok {
		_ = c.local.Set(ctx, text, vec)
	}
	return vec, ok
}

func (c *TieredCache) Set(ctx context.Context, text string, vec []float32) error {
	_ = c.local.Set(ctx, text, vec)
	return c.remote.Set(ctx, text, vec)
}

// NewVectorCache builds the tiered cache when Redis is available, else a bare LRU.
func NewVectorCache(client *redis.Client, namespace string, ttl time.Duration, lruSize int, logger *logrus.Logger) (VectorCache, error) {
	local, err := NewLRUCache(namespace, lruSize)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return local, nil
	}
	return NewTieredCache(local, NewRedisCache(client, namespace, ttl, logger)), nil
}
