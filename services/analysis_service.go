package services

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"event-feedback-server/models"
)

// FeedbackStore is the persistence surface the orchestrator depends on.
// *FeedbackService is the production implementation.
type FeedbackStore interface {
	GetForm(formID uuid.UUID) (*models.FeedbackForm, error)
	ListResponses(formID uuid.UUID) ([]models.FeedbackResponse, error)
	GetCachedAnalysis(formID uuid.UUID) (*models.SentimentAnalysis, error)
	SaveAnalysis(formID uuid.UUID, analysis *models.SentimentAnalysis) error
	DeleteAnalysis(formID uuid.UUID) error
}

// SentimentClassifier is the AI provider capability the orchestrator depends
// on. *AIService is the production implementation.
type SentimentClassifier interface {
	Classify(ctx context.Context, req ClassificationRequest) (*Classification, error)
}

// AnalysisService orchestrates sentiment analysis: it decides cache validity,
// invokes the classifier, validates and persists the result, and serves cached
// reads. Analyze is an explicit, caller-triggered refresh; GetAnalysis is a
// pure cache read. That split keeps the provider invoked at most once per
// explicit user action.
type AnalysisService struct {
	store      FeedbackStore
	classifier SentimentClassifier
	formLocks  sync.Map // uuid.UUID -> *sync.Mutex
}

func NewAnalysisService(store FeedbackStore, classifier SentimentClassifier) *AnalysisService {
	return &AnalysisService{
		store:      store,
		classifier: classifier,
	}
}

// lockForm serializes analysis runs per form so the stored row always reflects
// one complete classifier invocation. Different forms lock independently, and
// GetAnalysis never takes this lock, so cached reads are not blocked by an
// in-flight analysis.
func (s *AnalysisService) lockForm(formID uuid.UUID) func() {
	value, _ := s.formLocks.LoadOrStore(formID, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Analyze recomputes the sentiment analysis for a form and overwrites any
// cached result. It fails before calling the provider when the form is unknown
// or has no responses, and a provider failure leaves the existing cache
// untouched. There are no retries here; retrying is the caller's call.
func (s *AnalysisService) Analyze(ctx context.Context, formID uuid.UUID) (*models.SentimentAnalysis, error) {
	if _, err := s.store.GetForm(formID); err != nil {
		return nil, err
	}

	unlock := s.lockForm(formID)
	defer unlock()

	responses, err := s.store.ListResponses(formID)
	if err != nil {
		return nil, err
	}
	if len(responses) == 0 {
		return nil, ErrEmptyFeedback
	}

	comments := make([]string, len(responses))
	ratingSum := 0
	for i, r := range responses {
		comments[i] = r.Comment
		ratingSum += r.Rating
	}

	result, err := s.classifier.Classify(ctx, ClassificationRequest{
		Comments:      comments,
		ResponseCount: len(responses),
		AverageRating: float64(ratingSum) / float64(len(responses)),
	})
	if err != nil {
		if cerr, ok := AsClassifierError(err); ok && cerr.Kind == MalformedResponse {
			log.Printf("⚠️ Classifier returned malformed output for form %s: %v", formID, err)
		}
		return nil, err
	}

	analysis := &models.SentimentAnalysis{
		FormID:        formID,
		Positive:      result.Positive,
		Neutral:       result.Neutral,
		Negative:      result.Negative,
		Summary:       result.Summary,
		Highlights:    result.Highlights,
		Complaints:    result.Complaints,
		ResponseCount: len(responses),
		ComputedAt:    time.Now().UTC(),
	}
	if err := s.store.SaveAnalysis(formID, analysis); err != nil {
		return nil, err
	}

	return analysis, nil
}

// GetAnalysis returns the cached analysis for a form together with a staleness
// flag. It never calls the classifier: a stale result is returned as-is and
// tagged, leaving the decision to re-analyze to the caller.
func (s *AnalysisService) GetAnalysis(formID uuid.UUID) (*models.SentimentAnalysis, bool, error) {
	if _, err := s.store.GetForm(formID); err != nil {
		return nil, false, err
	}

	analysis, err := s.store.GetCachedAnalysis(formID)
	if err != nil {
		return nil, false, err
	}
	if analysis == nil {
		return nil, false, ErrNoAnalysisYet
	}

	responses, err := s.store.ListResponses(formID)
	if err != nil {
		return nil, false, err
	}
	stale := len(responses) != analysis.ResponseCount

	return analysis, stale, nil
}

// DeleteAnalysis drops the cached analysis for a form, forcing the next read
// to report NoAnalysisYet until an explicit Analyze runs again
func (s *AnalysisService) DeleteAnalysis(formID uuid.UUID) error {
	if _, err := s.store.GetForm(formID); err != nil {
		return err
	}
	return s.store.DeleteAnalysis(formID)
}
