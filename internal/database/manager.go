package database

import (
	"context"
	"fmt"
	"time"

	"github.com/apnedoctors/minirag/internal/models"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Manager holds the optional Postgres and Redis connections.
type Manager struct {
	DB     *gorm.DB
	Redis  *redis.Client
	logger *logrus.Logger
}

// Config selects which backends to connect. Empty URLs are skipped.
type Config struct {
	DatabaseURL string
	RedisURL    string
	LogLevel    string
}

// NewManager connects every configured backend.
func NewManager(ctx context.Context, config *Config, log *logrus.Logger) (*Manager, error) {
	m := &Manager{logger: log}

	if config.DatabaseURL != "" {
		db, err := OpenPostgres(config.DatabaseURL, config.LogLevel, log)
		if err != nil {
			return nil, err
		}
		m.DB = db
	}

	if config.RedisURL != "" {
		client, err := NewRedisClient(ctx, config.RedisURL)
		if err != nil {
			m.Close()
			return nil, err
		}
		m.Redis = client
	}

	log.WithFields(logrus.Fields{
		"postgres": m.DB != nil,
		"redis":    m.Redis != nil,
	}).Info("Database connections established")

	return m, nil
}

// GormLogger routes gorm output through logrus.
func GormLogger(level string, log *logrus.Logger) logger.Interface {
	switch level {
	case "debug", "info":
		return logger.New(log, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Info,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		})
	case "warn":
		return logger.New(log, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	default:
		return logger.Default.LogMode(logger.Silent)
	}
}

// OpenPostgres opens a pooled gorm connection and pings it.
func OpenPostgres(dsn, logLevel string, log *logrus.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                 GormLogger(logLevel, log),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// NewRedisClient parses a redis:// URL and verifies the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	opts.PoolSize = 10
	opts.MinIdleConns = 2
	opts.MaxConnAge = time.Hour
	opts.IdleTimeout = 30 * time.Minute

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// Migrate creates the feedback and query log tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.FeedbackRecord{}, &models.QueryRecord{})
}

func (m *Manager) Migrate() error {
	if m.DB == nil {
		return nil
	}
	m.logger.Info("Running database migrations...")
	return Migrate(m.DB)
}

func (m *Manager) Close() error {
	if m.Redis != nil {
		if err := m.Redis.Close(); err != nil {
			m.logger.WithError(err).Error("Failed to close Redis connection")
		}
	}

	if m.DB != nil {
		sqlDB, err := m.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}

	return nil
}

// Health check methods
func (m *Manager) PingDatabase(ctx context.Context) error {
	if m.DB == nil {
		return fmt.Errorf("database not configured")
	}
	sqlDB, err := m.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (m *Manager) PingRedis(ctx context.Context) error {
	if m.Redis == nil {
		return fmt.Errorf("redis not configured")
	}
	return m.Redis.Ping(ctx).Err()
}
