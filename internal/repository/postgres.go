package repository

import (
	"context"

	"github.com/apnedoctors/minirag/internal/models"
	"gorm.io/gorm"
)

// GormStore implements Store on gorm, used with the postgres driver.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (r *GormStore) SaveFeedback(ctx context.Context, rec *models.FeedbackRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *GormStore) RecordQuery(ctx context.Context, rec *models.QueryRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *GormStore) CountFeedback(ctx context.Context, queryID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.FeedbackRecord{}).
		Where("query_id = ?", queryID).
		Count(&count).Error
	return count, err
}

func (r *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *GormStore) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
