package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FeedbackResponse is a single attendee submission. Responses are immutable
// once created; there is no update path.
type FeedbackResponse struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	FormID       uuid.UUID `json:"form_id" gorm:"type:uuid;not null;index"`
	AttendeeName string    `json:"attendee_name" gorm:"type:varchar(255)"`
	Rating       int       `json:"rating" gorm:"type:int;not null;check:rating >= 1 AND rating <= 5"`
	Comment      string    `json:"comment" gorm:"type:text"`
	SubmittedAt  time.Time `json:"submitted_at"`
}

func (FeedbackResponse) TableName() string { return "feedback_responses" }

func (r *FeedbackResponse) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.SubmittedAt.IsZero() {
		r.SubmittedAt = time.Now().UTC()
	}
	return nil
}

// FeedbackResponseCreate represents the request structure for submitting feedback
type FeedbackResponseCreate struct {
	AttendeeName string `json:"attendee_name" binding:"max=255"`
	Rating       int    `json:"rating" binding:"required,min=1,max=5"`
	Comment      string `json:"comment" binding:"max=2000"`
}
