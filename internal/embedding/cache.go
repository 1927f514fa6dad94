package embedding

import (
	"context"

	"github.com/apnedoctors/minirag/internal/database"
	"github.com/apnedoctors/minirag/internal/metrics"
	"github.com/sirupsen/logrus"
)

// CachedEncoder serves single-text lookups from a VectorCache.
// Batches go straight to the wrapped encoder.
type CachedEncoder struct {
	inner  Encoder
	cache  database.VectorCache
	logger *logrus.Logger
}

func NewCachedEncoder(inner Encoder, cache database.VectorCache, logger *logrus.Logger) *CachedEncoder {
	return &CachedEncoder{inner: inner, cache: cache, logger: logger}
}

func (e *CachedEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := e.cache.Get(ctx, text); ok {
		metrics.EmbeddingCache.WithLabelValues("hit").Inc()
		return vec, nil
	}
	metrics.EmbeddingCache.WithLabelValues("miss").Inc()

	vec, err := e.inner.Encode(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := e.cache.Set(ctx, text, vec); err != nil {
		e.logger.WithError(err).Warn("Failed to cache embedding")
	}
	return vec, nil
}

func (e *CachedEncoder) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return e.inner.EncodeBatch(ctx, texts)
}

// Unwrap returns the encoder behind the cache.
func (e *CachedEncoder) Unwrap() Encoder {
	return e.inner
}

// Uncached strips any cache layers so a call is guaranteed to reach the
// embedding backend.
func Uncached(enc Encoder) Encoder {
	for {
		w, ok := enc.(interface{ Unwrap() Encoder })
		if !ok {
			return enc
		}
		enc = w.Unwrap()
	}
}
