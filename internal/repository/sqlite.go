package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/apnedoctors/minirag/internal/models"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on an embedded SQLite file.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates the database file and schema if missing.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one writer keeps SQLite from returning SQLITE_BUSY under load
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS symptom_feedback (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query_id TEXT NOT NULL,
		rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
		feedback_text TEXT DEFAULT '',
		was_helpful INTEGER NOT NULL DEFAULT 0,
		user_session TEXT DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS query_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query_id TEXT NOT NULL UNIQUE,
		symptoms_hash TEXT NOT NULL,
		urgency TEXT NOT NULL CHECK (urgency IN ('low', 'moderate', 'high')),
		emergency INTEGER NOT NULL DEFAULT 0,
		condition_count INTEGER NOT NULL DEFAULT 0,
		top_condition TEXT DEFAULT '',
		confidence REAL NOT NULL DEFAULT 0,
		response_time_ms INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_feedback_query_id ON symptom_feedback(query_id);
	CREATE INDEX IF NOT EXISTS idx_query_log_hash ON query_log(symptoms_hash);
	`

	_, err := db.Exec(schema)
	return err
}

func (s *SQLiteStore) SaveFeedback(ctx context.Context, rec *models.FeedbackRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO symptom_feedback (query_id, rating, feedback_text, was_helpful, user_session, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.QueryID, rec.Rating, rec.FeedbackText, rec.WasHelpful, rec.UserSession, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get feedback id: %w", err)
	}
	rec.ID = uint(id)
	return nil
}

func (s *SQLiteStore) RecordQuery(ctx context.Context, rec *models.QueryRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO query_log (query_id, symptoms_hash, urgency, emergency, condition_count,
			top_condition, confidence, response_time_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.QueryID, rec.SymptomsHash, rec.Urgency, rec.Emergency, rec.ConditionCount,
		rec.TopCondition, rec.Confidence, rec.ResponseTimeMs, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert query record: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get query record id: %w", err)
	}
	rec.ID = uint(id)
	return nil
}

func (s *SQLiteStore) CountFeedback(ctx context.Context, queryID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM symptom_feedback WHERE query_id = ?", queryID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count feedback: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
