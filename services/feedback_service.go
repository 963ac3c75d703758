package services

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"event-feedback-server/models"
)

// FeedbackService owns all reads and writes for forms, responses and the
// analysis cache. The DB handle is injected; nothing in this package touches
// a global connection.
type FeedbackService struct {
	db *gorm.DB
}

func NewFeedbackService(db *gorm.DB) *FeedbackService {
	return &FeedbackService{db: db}
}

// CreateForm creates a new feedback form
func (s *FeedbackService) CreateForm(data models.FeedbackFormCreate) (*models.FeedbackForm, error) {
	form := models.FeedbackForm{
		Title:       data.Title,
		Description: data.Description,
		EventDate:   data.EventDate,
		Status:      models.FormStatusOpen,
	}
	if err := s.db.Create(&form).Error; err != nil {
		return nil, err
	}
	return &form, nil
}

// GetForm fetches a form by id
func (s *FeedbackService) GetForm(formID uuid.UUID) (*models.FeedbackForm, error) {
	var form models.FeedbackForm
	if err := s.db.First(&form, "id = ?", formID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrFormNotFound
		}
		return nil, err
	}
	return &form, nil
}

// ListForms returns all forms, newest first
func (s *FeedbackService) ListForms() ([]models.FeedbackForm, error) {
	var forms []models.FeedbackForm
	if err := s.db.Order("created_at DESC").Find(&forms).Error; err != nil {
		return nil, err
	}
	return forms, nil
}

// UpdateForm applies a partial update to form metadata
func (s *FeedbackService) UpdateForm(formID uuid.UUID, data models.FeedbackFormUpdate) (*models.FeedbackForm, error) {
	form, err := s.GetForm(formID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if data.Title != nil {
		updates["title"] = *data.Title
	}
	if data.Description != nil {
		updates["description"] = *data.Description
	}
	if data.EventDate != nil {
		updates["event_date"] = *data.EventDate
	}
	if data.Status != nil {
		updates["status"] = *data.Status
	}
	if len(updates) == 0 {
		return form, nil
	}
	updates["updated_at"] = time.Now().UTC()

	if err := s.db.Model(form).Updates(updates).Error; err != nil {
		return nil, err
	}
	return form, nil
}

// DeleteForm removes a form and cascades to its responses and analysis
func (s *FeedbackService) DeleteForm(formID uuid.UUID) error {
	if _, err := s.GetForm(formID); err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("form_id = ?", formID).Delete(&models.FeedbackResponse{}).Error; err != nil {
			return err
		}
		if err := tx.Where("form_id = ?", formID).Delete(&models.SentimentAnalysis{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.FeedbackForm{}, "id = ?", formID).Error
	})
}

// CreateResponse stores an attendee submission. Closed forms reject new
// responses but keep serving reads and re-analysis.
func (s *FeedbackService) CreateResponse(formID uuid.UUID, data models.FeedbackResponseCreate) (*models.FeedbackResponse, error) {
	form, err := s.GetForm(formID)
	if err != nil {
		return nil, err
	}
	if form.Status == models.FormStatusClosed {
		return nil, ErrFormClosed
	}

	response := models.FeedbackResponse{
		FormID:       formID,
		AttendeeName: data.AttendeeName,
		Rating:       data.Rating,
		Comment:      data.Comment,
	}
	if err := s.db.Create(&response).Error; err != nil {
		return nil, err
	}
	return &response, nil
}

// ListResponses returns a form's responses in submission order
func (s *FeedbackService) ListResponses(formID uuid.UUID) ([]models.FeedbackResponse, error) {
	var responses []models.FeedbackResponse
	err := s.db.
		Where("form_id = ?", formID).
		Order("submitted_at ASC, id ASC").
		Find(&responses).Error
	if err != nil {
		return nil, err
	}
	return responses, nil
}

// GetCachedAnalysis returns the stored analysis for a form, or nil when none
// has been computed yet
func (s *FeedbackService) GetCachedAnalysis(formID uuid.UUID) (*models.SentimentAnalysis, error) {
	var analysis models.SentimentAnalysis
	if err := s.db.First(&analysis, "form_id = ?", formID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &analysis, nil
}

// SaveAnalysis upserts the analysis row for a form. This is the only write
// path for sentiment_analyses; a re-analysis replaces the prior row wholesale.
func (s *FeedbackService) SaveAnalysis(formID uuid.UUID, analysis *models.SentimentAnalysis) error {
	analysis.FormID = formID
	return s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "form_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"positive", "neutral", "negative",
			"summary", "highlights", "complaints",
			"response_count", "computed_at",
		}),
	}).Create(analysis).Error
}

// DeleteAnalysis drops the cached analysis for a form, if any
func (s *FeedbackService) DeleteAnalysis(formID uuid.UUID) error {
	return s.db.Where("form_id = ?", formID).Delete(&models.SentimentAnalysis{}).Error
}
