package models

// GORM models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// FeedbackRecord stores one FeedbackRequest.
type FeedbackRecord struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	QueryID      string    `json:"query_id" gorm:"not null;index"`
	Rating       int       `json:"rating" gorm:"not null;check:rating BETWEEN 1 AND 5"`
	FeedbackText string    `json:"feedback_text"`
	WasHelpful   bool      `json:"was_helpful" gorm:"not null"`
	UserSession  string    `json:"user_session"`
	CreatedAt    time.Time `json:"created_at"`
}

// QueryRecord logs a processed query. The symptom text itself is never stored.
type QueryRecord struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	QueryID        string    `json:"query_id" gorm:"uniqueIndex;not null"`
	SymptomsHash   string    `json:"symptoms_hash" gorm:"index"`
	Urgency        string    `json:"urgency" gorm:"not null;check:urgency IN ('low','moderate','high')"`
	Emergency      bool      `json:"emergency"`
	ConditionCount int       `json:"condition_count"`
	TopCondition   string    `json:"top_condition"`
	Confidence     float64   `json:"confidence"`
	ResponseTimeMs int       `json:"response_time_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

func (FeedbackRecord) TableName() string { return "symptom_feedback" }
func (QueryRecord) TableName() string    { return "query_log" }

// NewFeedbackRecord maps a validated request onto its storage row.
func NewFeedbackRecord(req *FeedbackRequest, session string) *FeedbackRecord {
	rec := &FeedbackRecord{
		QueryID:     req.QueryID,
		Rating:      req.Rating,
		UserSession: session,
	}
	if req.FeedbackText != nil {
		rec.FeedbackText = *req.FeedbackText
	}
	if req.WasHelpful != nil {
		rec.WasHelpful = *req.WasHelpful
	}
	return rec
}

func (fr *FeedbackRecord) Validate() error {
	if fr.QueryID == "" {
		return fmt.Errorf("query ID is required")
	}
	if fr.Rating < 1 || fr.Rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5, got %d", fr.Rating)
	}
	if len([]rune(fr.FeedbackText)) > 500 {
		return fmt.Errorf("feedback text exceeds 500 characters")
	}
	return nil
}

func (qr *QueryRecord) Validate() error {
	if qr.QueryID == "" {
		return fmt.Errorf("query ID is required")
	}
	if _, err := ParseUrgency(qr.Urgency); err != nil {
		return err
	}
	if qr.ResponseTimeMs < 0 {
		return fmt.Errorf("response time cannot be negative")
	}
	return nil
}

// GORM hooks
func (fr *FeedbackRecord) BeforeCreate(tx *gorm.DB) error {
	return fr.Validate()
}

func (qr *QueryRecord) BeforeCreate(tx *gorm.DB) error {
	return qr.Validate()
}
