package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/apnedoctors/minirag/internal/api"
	"github.com/apnedoctors/minirag/internal/api/handlers"
	"github.com/apnedoctors/minirag/internal/config"
	"github.com/apnedoctors/minirag/internal/database"
	"github.com/apnedoctors/minirag/internal/embedding"
	"github.com/apnedoctors/minirag/internal/health"
	"github.com/apnedoctors/minirag/internal/knowledge"
	"github.com/apnedoctors/minirag/internal/repository"
	"github.com/apnedoctors/minirag/internal/retry"
	"github.com/apnedoctors/minirag/internal/services"
	"github.com/apnedoctors/minirag/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	healthInterval = 30 * time.Second
	probeTimeout   = 2 * time.Second
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := utils.InitLogger(cfg.Logging.Level, cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Configuration validation failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.WithFields(logrus.Fields{
		"port":       cfg.Server.Port,
		"embedding":  cfg.Embedding.Provider,
		"collection": cfg.VectorStore.Collection,
		"feedback":   cfg.Feedback.Driver,
	}).Info("Starting " + handlers.ServiceName)

	// Redis is optional; without it embeddings are cached in-process only
	dbManager, err := database.NewManager(ctx, &database.Config{
		RedisURL: cfg.Redis.URL,
		LogLevel: cfg.Database.LogLevel,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database manager")
	}
	defer dbManager.Close()

	retriever, err := newRetriever(cfg, dbManager, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to build knowledge retriever")
	}

	initCtx, cancelInit := context.WithTimeout(ctx, 2*time.Minute)
	err = retriever.Initialize(initCtx)
	cancelInit()
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize knowledge retriever")
	}

	store, err := repository.NewStore(repository.Config{
		Driver:      cfg.Feedback.Driver,
		SQLitePath:  cfg.Feedback.SQLitePath,
		DatabaseURL: cfg.Database.URL,
		LogLevel:    cfg.Database.LogLevel,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open feedback store")
	}

	checker := health.NewChecker(probeTimeout, logger)
	checker.Register("vector_store", func(context.Context) error {
		if !retriever.Initialized() {
			return knowledge.ErrNotInitialized
		}
		return nil
	})
	if dbManager.Redis != nil {
		checker.Register("cache", dbManager.PingRedis)
	}
	if store != nil {
		checker.Register("feedback_store", store.Ping)
	}
	go checker.PeriodicHealthCheck(ctx, healthInterval)

	processor := services.NewSymptomProcessor(retriever, retry.Config{
		MaxAttempts: cfg.Retry.MaxAttempts,
		Multiplier:  cfg.Retry.Multiplier,
		MinDelay:    cfg.Retry.MinDelay,
		MaxDelay:    cfg.Retry.MaxDelay,
		Unit:        time.Second,
	}, cfg.VectorStore.TopK, logger)

	handler := handlers.NewSymptomHandler(processor, retriever, store, checker, logger)

	if !strings.EqualFold(cfg.Logging.Level, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(ctx, handler, api.RouterConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimit:      cfg.Server.RateLimit,
	}, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithField("addr", srv.Addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("HTTP server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutdown signal received, gracefully shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("HTTP server shutdown failed")
	}
	handler.Wait()

	if store != nil {
		if err := store.Close(); err != nil {
			logger.WithError(err).Error("Failed to close feedback store")
		}
	}

	logger.Info("Server stopped")
}

// newRetriever wires the encoder, its cache and the vector store.
func newRetriever(cfg *config.Config, dbManager *database.Manager, logger *logrus.Logger) (*knowledge.Retriever, error) {
	embeddingConfig := embedding.Config{
		Provider:  cfg.Embedding.Provider,
		Dimension: cfg.Embedding.Dimension,
		APIKey:    cfg.Embedding.APIKey,
		BaseURL:   cfg.Embedding.BaseURL,
		Model:     cfg.Embedding.Model,
		Timeout:   cfg.Embedding.Timeout,
	}
	encoder, err := embedding.NewEncoder(embeddingConfig, logger)
	if err != nil {
		return nil, err
	}

	cache, err := database.NewVectorCache(dbManager.Redis, embeddingConfig.CacheNamespace(), cfg.Redis.EmbeddingTTL, cfg.Cache.LRUSize, logger)
	if err != nil {
		return nil, err
	}

	seed, err := knowledge.SeedCorpus()
	if err != nil {
		return nil, err
	}

	return knowledge.NewRetriever(knowledge.Config{
		PersistPath: cfg.VectorStore.PersistPath,
		Collection:  cfg.VectorStore.Collection,
		Compress:    cfg.VectorStore.Compress,
		TopK:        cfg.VectorStore.TopK,
	}, embedding.NewCachedEncoder(encoder, cache, logger), seed, logger), nil
}
