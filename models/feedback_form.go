package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Form status values. A closed form rejects new responses but can still be
// re-analyzed.
const (
	FormStatusOpen   = "open"
	FormStatusClosed = "closed"
)

// FeedbackForm is an event feedback form. One form owns many responses and at
// most one sentiment analysis.
type FeedbackForm struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Title       string     `json:"title" gorm:"type:varchar(255);not null"`
	Description string     `json:"description" gorm:"type:text"`
	EventDate   *time.Time `json:"event_date"`
	Status      string     `json:"status" gorm:"type:varchar(20);not null;default:open"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Responses []FeedbackResponse `json:"-" gorm:"foreignKey:FormID;constraint:OnDelete:CASCADE"`
	Analysis  *SentimentAnalysis `json:"-" gorm:"foreignKey:FormID;constraint:OnDelete:CASCADE"`
}

func (FeedbackForm) TableName() string { return "feedback_forms" }

func (f *FeedbackForm) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.Status == "" {
		f.Status = FormStatusOpen
	}
	return nil
}

// FeedbackFormCreate represents the request structure for creating a form
type FeedbackFormCreate struct {
	Title       string     `json:"title" binding:"required,min=1,max=255"`
	Description string     `json:"description" binding:"max=2000"`
	EventDate   *time.Time `json:"event_date"`
}

// FeedbackFormUpdate represents a partial update; only provided fields change
type FeedbackFormUpdate struct {
	Title       *string    `json:"title" binding:"omitempty,min=1,max=255"`
	Description *string    `json:"description" binding:"omitempty,max=2000"`
	EventDate   *time.Time `json:"event_date"`
	Status      *string    `json:"status" binding:"omitempty,oneof=open closed"`
}
