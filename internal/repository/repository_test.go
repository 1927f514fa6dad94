package repository

import (
	"context"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/apnedoctors/minirag/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "feedback.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newMockGormStore(t *testing.T) (*GormStore, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewGormStore(db), mock
}

func feedback(queryID string, rating int) *models.FeedbackRecord {
	return &models.FeedbackRecord{QueryID: queryID, Rating: rating, FeedbackText: "useful", WasHelpful: true}
}

func TestSQLiteStore_SaveAndCountFeedback(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	rec := feedback("query_abc", 5)
	require.NoError(t, store.SaveFeedback(ctx, rec))
	assert.NotZero(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())

	require.NoError(t, store.SaveFeedback(ctx, feedback("query_abc", 2)))
	require.NoError(t, store.SaveFeedback(ctx, feedback("query_other", 3)))

	n, err := store.CountFeedback(ctx, "query_abc")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = store.CountFeedback(ctx, "query_missing")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestSQLiteStore_RejectsInvalidFeedback(t *testing.T) {
	store := newSQLiteStore(t)
	assert.Error(t, store.SaveFeedback(context.Background(), feedback("query_abc", 9)))
	assert.Error(t, store.SaveFeedback(context.Background(), feedback("", 3)))
}

func TestSQLiteStore_RecordQuery(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	rec := &models.QueryRecord{
		QueryID:        "query_1",
		SymptomsHash:   "d41d8cd98f00b204e9800998ecf8427e",
		Urgency:        "moderate",
		ConditionCount: 3,
		TopCondition:   "Influenza",
		Confidence:     0.61,
		ResponseTimeMs: 42,
	}
	require.NoError(t, store.RecordQuery(ctx, rec))
	assert.NotZero(t, rec.ID)

	dup := *rec
	dup.ID = 0
	assert.Error(t, store.RecordQuery(ctx, &dup))

	bad := *rec
	bad.QueryID = "query_2"
	bad.Urgency = "critical"
	assert.Error(t, store.RecordQuery(ctx, &bad))
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.db")
	ctx := context.Background()

	first, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, first.SaveFeedback(ctx, feedback("query_keep", 4)))
	require.NoError(t, first.Close())

	second, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer second.Close()

	require.NoError(t, second.Ping(ctx))
	n, err := second.CountFeedback(ctx, "query_keep")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestGormStore_SaveFeedback(t *testing.T) {
	store, mock := newMockGormStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "symptom_feedback"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	rec := feedback("query_abc", 4)
	require.NoError(t, store.SaveFeedback(context.Background(), rec))
	assert.Equal(t, uint(7), rec.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_ValidationHookBlocksInsert(t *testing.T) {
	store, mock := newMockGormStore(t)

	err := store.SaveFeedback(context.Background(), feedback("query_abc", 0))
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_RecordQuery(t *testing.T) {
	store, mock := newMockGormStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "query_log"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	rec := &models.QueryRecord{QueryID: "query_1", SymptomsHash: "abc", Urgency: "high", Emergency: true, ConditionCount: 1}
	require.NoError(t, store.RecordQuery(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_CountFeedback(t *testing.T) {
	store, mock := newMockGormStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT count(*) FROM "symptom_feedback" WHERE query_id = $1`)).
		WithArgs("query_abc").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	n, err := store.CountFeedback(context.Background(), "query_abc")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewStore_Drivers(t *testing.T) {
	log := logrus.New()

	store, err := NewStore(Config{Driver: DriverNone}, log)
	require.NoError(t, err)
	assert.Nil(t, store)

	store, err = NewStore(Config{Driver: DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "f.db")}, log)
	require.NoError(t, err)
	require.NotNil(t, store)
	assert.NoError(t, store.Close())

	_, err = NewStore(Config{Driver: DriverPostgres}, log)
	assert.Error(t, err)

	_, err = NewStore(Config{Driver: "mongo"}, log)
	assert.Error(t, err)
}
