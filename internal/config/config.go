package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port            string
		AllowedOrigins  []string
		RateLimit       int
		ShutdownTimeout time.Duration
	}
	Logging struct {
		Level  string
		Format string
	}
	Embedding struct {
		Provider  string
		Dimension int
		APIKey    string
		BaseURL   string
		Model     string
		Timeout   time.Duration
	}
	VectorStore struct {
		PersistPath string
		Collection  string
		Compress    bool
		TopK        int
	}
	Redis struct {
		URL          string
		EmbeddingTTL time.Duration
	}
	Cache struct {
		LRUSize int
	}
	Feedback struct {
		Driver     string
		SQLitePath string
	}
	Database struct {
		URL      string
		LogLevel string
	}
	Retry struct {
		MaxAttempts int
		Multiplier  float64
		MinDelay    time.Duration
		MaxDelay    time.Duration
	}
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// OPENAI_* are the conventional names for OpenAI-compatible endpoints
	_ = v.BindEnv("embedding.api_key", "EMBEDDING_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("embedding.base_url", "EMBEDDING_BASE_URL", "OPENAI_BASE_URL")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config

	config.Server.Port = v.GetString("server.port")
	config.Server.AllowedOrigins = v.GetStringSlice("server.allowed_origins")
	config.Server.RateLimit = v.GetInt("server.rate_limit")
	config.Server.ShutdownTimeout = v.GetDuration("server.shutdown_timeout")

	config.Logging.Level = v.GetString("logging.level")
	config.Logging.Format = v.GetString("logging.format")

	config.Embedding.Provider = strings.ToLower(v.GetString("embedding.provider"))
	config.Embedding.Dimension = v.GetInt("embedding.dimension")
	config.Embedding.APIKey = v.GetString("embedding.api_key")
	config.Embedding.BaseURL = v.GetString("embedding.base_url")
	config.Embedding.Model = v.GetString("embedding.model")
	config.Embedding.Timeout = v.GetDuration("embedding.timeout")

	config.VectorStore.PersistPath = v.GetString("vector_store.persist_path")
	config.VectorStore.Collection = v.GetString("vector_store.collection")
	config.VectorStore.Compress = v.GetBool("vector_store.compress")
	config.VectorStore.TopK = v.GetInt("vector_store.top_k")

	config.Redis.URL = v.GetString("redis.url")
	config.Redis.EmbeddingTTL = v.GetDuration("redis.embedding_ttl")
	config.Cache.LRUSize = v.GetInt("cache.lru_size")

	config.Feedback.Driver = strings.ToLower(v.GetString("feedback.driver"))
	config.Feedback.SQLitePath = v.GetString("feedback.sqlite_path")
	config.Database.URL = v.GetString("database.url")
	config.Database.LogLevel = v.GetString("database.log_level")

	config.Retry.MaxAttempts = v.GetInt("retry.max_attempts")
	config.Retry.Multiplier = v.GetFloat64("retry.multiplier")
	config.Retry.MinDelay = v.GetDuration("retry.min_delay")
	config.Retry.MaxDelay = v.GetDuration("retry.max_delay")

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://127.0.0.1:3000"})
	v.SetDefault("server.rate_limit", 60)
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.dimension", 256)
	v.SetDefault("embedding.base_url", "https://api.openai.com/v1")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.timeout", "30s")

	v.SetDefault("vector_store.persist_path", "./data/chroma_db")
	v.SetDefault("vector_store.collection", "medical_knowledge")
	v.SetDefault("vector_store.compress", false)
	v.SetDefault("vector_store.top_k", 5)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.embedding_ttl", "24h")
	v.SetDefault("cache.lru_size", 1024)

	v.SetDefault("feedback.driver", "sqlite")
	v.SetDefault("feedback.sqlite_path", "./data/feedback.db")
	v.SetDefault("database.url", "")
	v.SetDefault("database.log_level", "silent")

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.multiplier", 1.0)
	v.SetDefault("retry.min_delay", "4s")
	v.SetDefault("retry.max_delay", "10s")
}

func (c *Config) ValidateEmbedding() error {
	switch c.Embedding.Provider {
	case "hash":
		if c.Embedding.Dimension <= 0 {
			return fmt.Errorf("embedding.dimension must be positive for the hash provider")
		}
		return nil
	case "openai":
	default:
		return fmt.Errorf("unknown embedding provider: %s", c.Embedding.Provider)
	}
	if c.Embedding.BaseURL == "" {
		return fmt.Errorf("EMBEDDING_BASE_URL is required")
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("EMBEDDING_MODEL is required")
	}
	// local OpenAI-compatible servers usually run without a key
	if c.Embedding.APIKey == "" && strings.Contains(c.Embedding.BaseURL, "api.openai.com") {
		return fmt.Errorf("OPENAI_API_KEY is required for %s", c.Embedding.BaseURL)
	}
	return nil
}

func (c *Config) Validate() error {
	if err := c.ValidateEmbedding(); err != nil {
		return err
	}
	if c.VectorStore.Collection == "" {
		return fmt.Errorf("vector store collection name is required")
	}
	if c.VectorStore.TopK <= 0 {
		return fmt.Errorf("vector_store.top_k must be positive, got %d", c.VectorStore.TopK)
	}
	switch c.Feedback.Driver {
	case "sqlite":
		if c.Feedback.SQLitePath == "" {
			return fmt.Errorf("feedback.sqlite_path is required for the sqlite driver")
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres feedback driver")
		}
	case "none":
	default:
		return fmt.Errorf("unknown feedback driver: %s", c.Feedback.Driver)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if c.Retry.MinDelay > c.Retry.MaxDelay {
		return fmt.Errorf("retry.min_delay %s exceeds retry.max_delay %s", c.Retry.MinDelay, c.Retry.MaxDelay)
	}
	return nil
}
