package embedding

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// maxBatch caps the inputs sent in one embeddings request.
const maxBatch = 100

// Encoder turns text into a dense vector.
type Encoder interface {
	Encode(ctx context.Context, text string) ([]float32, error)
	EncodeBatch(ctx context.Context, texts []string) ([][]float32, error)
}

const (
	ProviderOpenAI = "openai"
	ProviderHash   = "hash"
)

type Config struct {
	// Provider selects the backend. Empty means ProviderOpenAI.
	Provider  string
	Dimension int
	APIKey    string
	BaseURL   string
	Model     string
	Timeout   time.Duration
}

// CacheNamespace identifies the vector space cfg produces, for cache keys.
func (c Config) CacheNamespace() string {
	provider := c.Provider
	if provider == "" {
		provider = ProviderOpenAI
	}
	if provider == ProviderHash {
		return fmt.Sprintf("%s:%d", provider, NewHashEncoder(c.Dimension).Dim)
	}
	return fmt.Sprintf("%s:%s:%d", provider, c.Model, c.Dimension)
}

// NewEncoder builds the encoder named by cfg.Provider.
func NewEncoder(cfg Config, logger *logrus.Logger) (Encoder, error) {
	switch cfg.Provider {
	case ProviderOpenAI, "":
		if cfg.Model == "" {
			return nil, fmt.Errorf("embedding model is required")
		}
		return NewClient(cfg, logger), nil
	case ProviderHash:
		logger.WithField("dimension", cfg.Dimension).Warn("Using offline hash embeddings; retrieval quality is reduced")
		return NewHashEncoder(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// Client calls an OpenAI-compatible /embeddings endpoint.
type Client struct {
	client *openai.Client
	model  string
	logger *logrus.Logger
}

func NewClient(cfg Config, logger *logrus.Logger) *Client {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	oc.HTTPClient = &http.Client{Timeout: timeout}

	return &Client{
		client: openai.NewClientWithConfig(oc),
		model:  cfg.Model,
		logger: logger,
	}
}

func (c *Client) Encode(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EncodeBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EncodeBatch returns one vector per input, in input order.
func (c *Client) EncodeBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		end := start + maxBatch
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := c.request(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (c *Client) request(ctx context.Context, batch []string) ([][]float32, error) {
	started := time.Now()
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: batch,
		Model: openai.EmbeddingModel(c.model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) != len(batch) {
		return nil, fmt.Errorf("embedding response has %d vectors for %d inputs", len(resp.Data), len(batch))
	}

	sort.Slice(resp.Data, func(i, j int) bool { return resp.Data[i].Index < resp.Data[j].Index })

	vecs := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("embedding %d is empty", i)
		}
		vecs[i] = d.Embedding
	}

	c.logger.WithFields(logrus.Fields{
		"inputs":   len(batch),
		"model":    c.model,
		"duration": time.Since(started),
	}).Debug("Embeddings created")

	return vecs, nil
}
