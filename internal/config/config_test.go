package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "./data/chroma_db", cfg.VectorStore.PersistPath)
	assert.Equal(t, "medical_knowledge", cfg.VectorStore.Collection)
	assert.Equal(t, 5, cfg.VectorStore.TopK)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 1.0, cfg.Retry.Multiplier)
	assert.Equal(t, 4*time.Second, cfg.Retry.MinDelay)
	assert.Equal(t, 10*time.Second, cfg.Retry.MaxDelay)
	assert.Equal(t, "sqlite", cfg.Feedback.Driver)
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("FEEDBACK_DRIVER", "none")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
	assert.Equal(t, "none", cfg.Feedback.Driver)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := chdirTemp(t)
	content := []byte("vector_store:\n  collection: test_knowledge\n  top_k: 3\nretry:\n  min_delay: 1s\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), content, 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test_knowledge", cfg.VectorStore.Collection)
	assert.Equal(t, 3, cfg.VectorStore.TopK)
	assert.Equal(t, time.Second, cfg.Retry.MinDelay)
}

func TestValidate(t *testing.T) {
	chdirTemp(t)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("EMBEDDING_API_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)

	// default base url is OpenAI, which needs a key
	assert.Error(t, cfg.Validate())

	cfg.Embedding.BaseURL = "http://localhost:11434/v1"
	assert.NoError(t, cfg.Validate())

	cfg.Feedback.Driver = "postgres"
	assert.Error(t, cfg.Validate())
	cfg.Database.URL = "postgres://localhost/apnedoctors"
	assert.NoError(t, cfg.Validate())

	cfg.Feedback.Driver = "mongo"
	assert.Error(t, cfg.Validate())
	cfg.Feedback.Driver = "none"

	cfg.Retry.MinDelay = time.Minute
	assert.Error(t, cfg.Validate())
}

func TestValidate_HashProvider(t *testing.T) {
	chdirTemp(t)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("EMBEDDING_API_KEY", "")
	t.Setenv("EMBEDDING_PROVIDER", "HASH")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "hash", cfg.Embedding.Provider)
	assert.Equal(t, 256, cfg.Embedding.Dimension)
	// no key needed offline
	assert.NoError(t, cfg.Validate())

	cfg.Embedding.Dimension = 0
	assert.Error(t, cfg.Validate())

	cfg.Embedding.Provider = "cohere"
	assert.Error(t, cfg.Validate())
}
