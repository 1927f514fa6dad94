package repository

import (
	"context"
	"fmt"

	"github.com/apnedoctors/minirag/internal/database"
	"github.com/apnedoctors/minirag/internal/models"
	"github.com/sirupsen/logrus"
)

// Store persists feedback and the anonymised query log.
type Store interface {
	SaveFeedback(ctx context.Context, rec *models.FeedbackRecord) error
	RecordQuery(ctx context.Context, rec *models.QueryRecord) error
	CountFeedback(ctx context.Context, queryID string) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

type Config struct {
	Driver      string
	SQLitePath  string
	DatabaseURL string
	LogLevel    string
}

// NewStore opens the configured backend. DriverNone returns a nil Store.
func NewStore(config Config, logger *logrus.Logger) (Store, error) {
	switch config.Driver {
	case DriverNone:
		logger.Info("Feedback persistence disabled")
		return nil, nil
	case DriverSQLite, "":
		store, err := NewSQLiteStore(config.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.WithField("path", config.SQLitePath).Info("Using SQLite feedback store")
		return store, nil
	case DriverPostgres:
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("database.url is required for the postgres feedback driver")
		}
		db, err := database.OpenPostgres(config.DatabaseURL, config.LogLevel, logger)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(db); err != nil {
			return nil, fmt.Errorf("failed to migrate feedback tables: %w", err)
		}
		logger.Info("Using PostgreSQL feedback store")
		return NewGormStore(db), nil
	default:
		return nil, fmt.Errorf("unknown feedback driver %q", config.Driver)
	}
}
