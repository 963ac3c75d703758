package routes

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"event-feedback-server/models"
	"event-feedback-server/services"
)

// FormStore is the CRUD surface consumed by the handlers.
// *services.FeedbackService is the production implementation.
type FormStore interface {
	CreateForm(data models.FeedbackFormCreate) (*models.FeedbackForm, error)
	GetForm(formID uuid.UUID) (*models.FeedbackForm, error)
	ListForms() ([]models.FeedbackForm, error)
	UpdateForm(formID uuid.UUID, data models.FeedbackFormUpdate) (*models.FeedbackForm, error)
	DeleteForm(formID uuid.UUID) error
	CreateResponse(formID uuid.UUID, data models.FeedbackResponseCreate) (*models.FeedbackResponse, error)
	ListResponses(formID uuid.UUID) ([]models.FeedbackResponse, error)
}

// Analyzer is the analysis surface consumed by the handlers.
// *services.AnalysisService is the production implementation.
type Analyzer interface {
	Analyze(ctx context.Context, formID uuid.UUID) (*models.SentimentAnalysis, error)
	GetAnalysis(formID uuid.UUID) (*models.SentimentAnalysis, bool, error)
	DeleteAnalysis(formID uuid.UUID) error
}

// FeedbackHandler wires the feedback endpoints to the services
type FeedbackHandler struct {
	store    FormStore
	analyzer Analyzer
}

func NewFeedbackHandler(store FormStore, analyzer Analyzer) *FeedbackHandler {
	return &FeedbackHandler{store: store, analyzer: analyzer}
}

// RegisterFeedbackRoutes registers all form, response and analysis routes
func RegisterFeedbackRoutes(api *gin.RouterGroup, h *FeedbackHandler, analyzeLimiter gin.HandlerFunc) {
	forms := api.Group("/forms")
	{
		forms.POST("", h.createForm)
		forms.GET("", h.listForms)
		forms.GET("/:id", h.getForm)
		forms.PUT("/:id", h.updateForm)
		forms.DELETE("/:id", h.deleteForm)

		forms.POST("/:id/responses", h.submitResponse)
		forms.GET("/:id/responses", h.listResponses)

		forms.POST("/:id/analyze", analyzeLimiter, h.analyzeForm)
		forms.GET("/:id/analysis", h.getAnalysis)
		forms.DELETE("/:id/analysis", h.deleteAnalysis)
	}
}

func (h *FeedbackHandler) createForm(c *gin.Context) {
	var formData models.FeedbackFormCreate
	if err := c.ShouldBindJSON(&formData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid form data", "details": err.Error()})
		return
	}

	form, err := h.store.CreateForm(formData)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, form)
}

func (h *FeedbackHandler) listForms(c *gin.Context) {
	forms, err := h.store.ListForms()
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, forms)
}

func (h *FeedbackHandler) getForm(c *gin.Context) {
	formID, ok := parseFormID(c)
	if !ok {
		return
	}

	form, err := h.store.GetForm(formID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, form)
}

func (h *FeedbackHandler) updateForm(c *gin.Context) {
	formID, ok := parseFormID(c)
	if !ok {
		return
	}

	var formData models.FeedbackFormUpdate
	if err := c.ShouldBindJSON(&formData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid form data", "details": err.Error()})
		return
	}

	form, err := h.store.UpdateForm(formID, formData)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, form)
}

func (h *FeedbackHandler) deleteForm(c *gin.Context) {
	formID, ok := parseFormID(c)
	if !ok {
		return
	}

	if err := h.store.DeleteForm(formID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *FeedbackHandler) submitResponse(c *gin.Context) {
	formID, ok := parseFormID(c)
	if !ok {
		return
	}

	var responseData models.FeedbackResponseCreate
	if err := c.ShouldBindJSON(&responseData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid feedback data", "details": err.Error()})
		return
	}

	response, err := h.store.CreateResponse(formID, responseData)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

func (h *FeedbackHandler) listResponses(c *gin.Context) {
	formID, ok := parseFormID(c)
	if !ok {
		return
	}

	if _, err := h.store.GetForm(formID); err != nil {
		handleServiceError(c, err)
		return
	}

	responses, err := h.store.ListResponses(formID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, responses)
}

// analyzeForm triggers an explicit re-analysis. This is the only endpoint that
// calls the AI provider; a fresh result always overwrites the cache.
func (h *FeedbackHandler) analyzeForm(c *gin.Context) {
	formID, ok := parseFormID(c)
	if !ok {
		return
	}

	analysis, err := h.analyzer.Analyze(c.Request.Context(), formID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewSentimentAnalysisResponse(analysis, false))
}

// getAnalysis is a pure cache read; a stale result is returned tagged, never
// refreshed here.
func (h *FeedbackHandler) getAnalysis(c *gin.Context) {
	formID, ok := parseFormID(c)
	if !ok {
		return
	}

	analysis, stale, err := h.analyzer.GetAnalysis(formID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.NewSentimentAnalysisResponse(analysis, stale))
}

func (h *FeedbackHandler) deleteAnalysis(c *gin.Context) {
	formID, ok := parseFormID(c)
	if !ok {
		return
	}

	if err := h.analyzer.DeleteAnalysis(formID); err != nil {
		handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func parseFormID(c *gin.Context) (uuid.UUID, bool) {
	formID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid form id"})
		return uuid.Nil, false
	}
	return formID, true
}

// handleServiceError maps every service failure kind to a distinct, stable
// status code so callers can tell an invalid request from provider trouble.
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrFormNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Feedback form not found"})
	case errors.Is(err, services.ErrNoAnalysisYet):
		c.JSON(http.StatusNotFound, gin.H{"error": "No analysis found for this form. Please run analysis first."})
	case errors.Is(err, services.ErrEmptyFeedback):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Cannot analyze form: no feedback responses submitted yet"})
	case errors.Is(err, services.ErrFormClosed):
		c.JSON(http.StatusConflict, gin.H{"error": "Form is closed and no longer accepts responses"})
	default:
		if cerr, ok := services.AsClassifierError(err); ok {
			handleClassifierError(c, cerr)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func handleClassifierError(c *gin.Context, cerr *services.ClassifierError) {
	switch cerr.Kind {
	case services.RateLimited:
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "AI provider rate limit exceeded, try again later"})
	case services.ProviderTimeout:
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "AI provider timed out"})
	case services.MalformedResponse:
		c.JSON(http.StatusBadGateway, gin.H{"error": "AI provider returned an unusable response"})
	default:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "AI provider is unavailable"})
	}
}
