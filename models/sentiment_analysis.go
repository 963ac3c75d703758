package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SentimentAnalysis is the cached AI analysis for a form. Exactly one row per
// form; re-analysis replaces the row wholesale. ResponseCount is the number of
// responses the analysis was computed over and acts as the staleness
// fingerprint: when the form's live response count differs, the cached row is
// stale but still served.
type SentimentAnalysis struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	FormID        uuid.UUID `json:"form_id" gorm:"type:uuid;not null;uniqueIndex"`
	Positive      float64   `json:"positive" gorm:"not null"`
	Neutral       float64   `json:"neutral" gorm:"not null"`
	Negative      float64   `json:"negative" gorm:"not null"`
	Summary       string    `json:"summary" gorm:"type:text;not null"`
	Highlights    string    `json:"highlights" gorm:"type:text"`
	Complaints    string    `json:"complaints" gorm:"type:text"`
	ResponseCount int       `json:"response_count" gorm:"not null"`
	ComputedAt    time.Time `json:"computed_at"`
}

func (SentimentAnalysis) TableName() string { return "sentiment_analyses" }

func (a *SentimentAnalysis) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// SentimentAnalysisResponse is the API payload for analysis reads. Stale is
// computed per request and never persisted.
type SentimentAnalysisResponse struct {
	ID            uuid.UUID `json:"id"`
	FormID        uuid.UUID `json:"form_id"`
	Positive      float64   `json:"positive"`
	Neutral       float64   `json:"neutral"`
	Negative      float64   `json:"negative"`
	Summary       string    `json:"summary"`
	Highlights    string    `json:"highlights,omitempty"`
	Complaints    string    `json:"complaints,omitempty"`
	ResponseCount int       `json:"response_count"`
	ComputedAt    time.Time `json:"computed_at"`
	Stale         bool      `json:"stale"`
}

// NewSentimentAnalysisResponse builds the API payload from a stored row
func NewSentimentAnalysisResponse(a *SentimentAnalysis, stale bool) SentimentAnalysisResponse {
	return SentimentAnalysisResponse{
		ID:            a.ID,
		FormID:        a.FormID,
		Positive:      a.Positive,
		Neutral:       a.Neutral,
		Negative:      a.Negative,
		Summary:       a.Summary,
		Highlights:    a.Highlights,
		Complaints:    a.Complaints,
		ResponseCount: a.ResponseCount,
		ComputedAt:    a.ComputedAt,
		Stale:         stale,
	}
}
