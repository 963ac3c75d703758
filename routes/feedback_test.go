package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"event-feedback-server/models"
	"event-feedback-server/services"
)

// fakeFormStore implements FormStore in memory
type fakeFormStore struct {
	forms     map[uuid.UUID]*models.FeedbackForm
	responses map[uuid.UUID][]models.FeedbackResponse
}

func newFakeFormStore() *fakeFormStore {
	return &fakeFormStore{
		forms:     make(map[uuid.UUID]*models.FeedbackForm),
		responses: make(map[uuid.UUID][]models.FeedbackResponse),
	}
}

func (s *fakeFormStore) addForm(status string) uuid.UUID {
	id := uuid.New()
	s.forms[id] = &models.FeedbackForm{ID: id, Title: "Launch Party", Status: status, CreatedAt: time.Now()}
	return id
}

func (s *fakeFormStore) CreateForm(data models.FeedbackFormCreate) (*models.FeedbackForm, error) {
	form := &models.FeedbackForm{
		ID:          uuid.New(),
		Title:       data.Title,
		Description: data.Description,
		EventDate:   data.EventDate,
		Status:      models.FormStatusOpen,
	}
	s.forms[form.ID] = form
	return form, nil
}

func (s *fakeFormStore) GetForm(formID uuid.UUID) (*models.FeedbackForm, error) {
	form, ok := s.forms[formID]
	if !ok {
		return nil, services.ErrFormNotFound
	}
	return form, nil
}

func (s *fakeFormStore) ListForms() ([]models.FeedbackForm, error) {
	var out []models.FeedbackForm
	for _, form := range s.forms {
		out = append(out, *form)
	}
	return out, nil
}

func (s *fakeFormStore) UpdateForm(formID uuid.UUID, data models.FeedbackFormUpdate) (*models.FeedbackForm, error) {
	form, err := s.GetForm(formID)
	if err != nil {
		return nil, err
	}
	if data.Title != nil {
		form.Title = *data.Title
	}
	if data.Status != nil {
		form.Status = *data.Status
	}
	return form, nil
}

func (s *fakeFormStore) DeleteForm(formID uuid.UUID) error {
	if _, err := s.GetForm(formID); err != nil {
		return err
	}
	delete(s.forms, formID)
	return nil
}

func (s *fakeFormStore) CreateResponse(formID uuid.UUID, data models.FeedbackResponseCreate) (*models.FeedbackResponse, error) {
	form, err := s.GetForm(formID)
	if err != nil {
		return nil, err
	}
	if form.Status == models.FormStatusClosed {
		return nil, services.ErrFormClosed
	}
	response := &models.FeedbackResponse{ID: uuid.New(), FormID: formID, Rating: data.Rating, Comment: data.Comment}
	s.responses[formID] = append(s.responses[formID], *response)
	return response, nil
}

func (s *fakeFormStore) ListResponses(formID uuid.UUID) ([]models.FeedbackResponse, error) {
	return s.responses[formID], nil
}

// fakeAnalyzer implements Analyzer with canned outcomes
type fakeAnalyzer struct {
	analysis   *models.SentimentAnalysis
	stale      bool
	analyzeErr error
	getErr     error
	deleteErr  error
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, formID uuid.UUID) (*models.SentimentAnalysis, error) {
	if a.analyzeErr != nil {
		return nil, a.analyzeErr
	}
	return a.analysis, nil
}

func (a *fakeAnalyzer) GetAnalysis(formID uuid.UUID) (*models.SentimentAnalysis, bool, error) {
	if a.getErr != nil {
		return nil, false, a.getErr
	}
	return a.analysis, a.stale, nil
}

func (a *fakeAnalyzer) DeleteAnalysis(formID uuid.UUID) error {
	return a.deleteErr
}

func setupRouter(store FormStore, analyzer Analyzer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1")
	noLimit := func(c *gin.Context) { c.Next() }
	RegisterFeedbackRoutes(api, NewFeedbackHandler(store, analyzer), noLimit)
	return router
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func classifierFailure(kind services.ClassifierErrorKind) error {
	return &services.ClassifierError{Kind: kind, Message: "provider trouble"}
}

func TestCreateForm(t *testing.T) {
	store := newFakeFormStore()
	router := setupRouter(store, &fakeAnalyzer{})

	w := doRequest(router, http.MethodPost, "/api/v1/forms", `{"title": "Tech Meetup", "description": "Quarterly meetup"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var form models.FeedbackForm
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &form))
	assert.Equal(t, "Tech Meetup", form.Title)
	assert.Equal(t, models.FormStatusOpen, form.Status)
	assert.NotEqual(t, uuid.Nil, form.ID)
}

func TestCreateForm_MissingTitle(t *testing.T) {
	router := setupRouter(newFakeFormStore(), &fakeAnalyzer{})

	w := doRequest(router, http.MethodPost, "/api/v1/forms", `{"description": "No title"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetForm_NotFound(t *testing.T) {
	router := setupRouter(newFakeFormStore(), &fakeAnalyzer{})

	w := doRequest(router, http.MethodGet, "/api/v1/forms/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetForm_InvalidID(t *testing.T) {
	router := setupRouter(newFakeFormStore(), &fakeAnalyzer{})

	w := doRequest(router, http.MethodGet, "/api/v1/forms/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteForm(t *testing.T) {
	store := newFakeFormStore()
	formID := store.addForm(models.FormStatusOpen)
	router := setupRouter(store, &fakeAnalyzer{})

	w := doRequest(router, http.MethodDelete, "/api/v1/forms/"+formID.String(), "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doRequest(router, http.MethodGet, "/api/v1/forms/"+formID.String(), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmitResponse(t *testing.T) {
	store := newFakeFormStore()
	formID := store.addForm(models.FormStatusOpen)
	router := setupRouter(store, &fakeAnalyzer{})

	w := doRequest(router, http.MethodPost, "/api/v1/forms/"+formID.String()+"/responses",
		`{"rating": 5, "comment": "Great event!"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var response models.FeedbackResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, 5, response.Rating)
	assert.Equal(t, formID, response.FormID)
}

func TestSubmitResponse_RatingOutOfRange(t *testing.T) {
	store := newFakeFormStore()
	formID := store.addForm(models.FormStatusOpen)
	router := setupRouter(store, &fakeAnalyzer{})

	for _, body := range []string{`{"rating": 0}`, `{"rating": 6}`, `{"comment": "no rating"}`} {
		w := doRequest(router, http.MethodPost, "/api/v1/forms/"+formID.String()+"/responses", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body: %s", body)
	}
}

func TestSubmitResponse_ClosedForm(t *testing.T) {
	store := newFakeFormStore()
	formID := store.addForm(models.FormStatusClosed)
	router := setupRouter(store, &fakeAnalyzer{})

	w := doRequest(router, http.MethodPost, "/api/v1/forms/"+formID.String()+"/responses",
		`{"rating": 4, "comment": "Door was locked"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestAnalyzeForm_ReturnsFreshResult(t *testing.T) {
	store := newFakeFormStore()
	formID := store.addForm(models.FormStatusOpen)
	analyzer := &fakeAnalyzer{
		analysis: &models.SentimentAnalysis{
			ID:            uuid.New(),
			FormID:        formID,
			Positive:      0.34,
			Neutral:       0.33,
			Negative:      0.33,
			Summary:       "Mixed feedback",
			ResponseCount: 3,
			ComputedAt:    time.Now().UTC(),
		},
	}
	router := setupRouter(store, analyzer)

	w := doRequest(router, http.MethodPost, "/api/v1/forms/"+formID.String()+"/analyze", "")
	require.Equal(t, http.StatusOK, w.Code)

	var payload models.SentimentAnalysisResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, 0.34, payload.Positive)
	assert.Equal(t, "Mixed feedback", payload.Summary)
	assert.Equal(t, 3, payload.ResponseCount)
	assert.False(t, payload.Stale)
}

func TestAnalyzeForm_ErrorMapping(t *testing.T) {
	store := newFakeFormStore()
	formID := store.addForm(models.FormStatusOpen)

	cases := []struct {
		name string
		err  error
		code int
	}{
		{"unknown form", services.ErrFormNotFound, http.StatusNotFound},
		{"no responses", services.ErrEmptyFeedback, http.StatusUnprocessableEntity},
		{"rate limited", classifierFailure(services.RateLimited), http.StatusTooManyRequests},
		{"provider timeout", classifierFailure(services.ProviderTimeout), http.StatusGatewayTimeout},
		{"provider unavailable", classifierFailure(services.ProviderUnavailable), http.StatusServiceUnavailable},
		{"malformed response", classifierFailure(services.MalformedResponse), http.StatusBadGateway},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := setupRouter(store, &fakeAnalyzer{analyzeErr: tc.err})
			w := doRequest(router, http.MethodPost, "/api/v1/forms/"+formID.String()+"/analyze", "")
			assert.Equal(t, tc.code, w.Code)
		})
	}
}

func TestGetAnalysis_NoAnalysisYet(t *testing.T) {
	store := newFakeFormStore()
	formID := store.addForm(models.FormStatusOpen)
	router := setupRouter(store, &fakeAnalyzer{getErr: services.ErrNoAnalysisYet})

	w := doRequest(router, http.MethodGet, "/api/v1/forms/"+formID.String()+"/analysis", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetAnalysis_FlagsStaleResult(t *testing.T) {
	store := newFakeFormStore()
	formID := store.addForm(models.FormStatusOpen)
	analyzer := &fakeAnalyzer{
		analysis: &models.SentimentAnalysis{
			ID:            uuid.New(),
			FormID:        formID,
			Positive:      1,
			Summary:       "All positive",
			ResponseCount: 2,
		},
		stale: true,
	}
	router := setupRouter(store, analyzer)

	w := doRequest(router, http.MethodGet, "/api/v1/forms/"+formID.String()+"/analysis", "")
	require.Equal(t, http.StatusOK, w.Code)

	var payload models.SentimentAnalysisResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.True(t, payload.Stale)
	assert.Equal(t, "All positive", payload.Summary)
}

func TestDeleteAnalysis(t *testing.T) {
	store := newFakeFormStore()
	formID := store.addForm(models.FormStatusOpen)
	router := setupRouter(store, &fakeAnalyzer{})

	w := doRequest(router, http.MethodDelete, "/api/v1/forms/"+formID.String()+"/analysis", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestUpdateForm_CloseForm(t *testing.T) {
	store := newFakeFormStore()
	formID := store.addForm(models.FormStatusOpen)
	router := setupRouter(store, &fakeAnalyzer{})

	w := doRequest(router, http.MethodPut, "/api/v1/forms/"+formID.String(), `{"status": "closed"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var form models.FeedbackForm
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &form))
	assert.Equal(t, models.FormStatusClosed, form.Status)
}

func TestUpdateForm_InvalidStatus(t *testing.T) {
	store := newFakeFormStore()
	formID := store.addForm(models.FormStatusOpen)
	router := setupRouter(store, &fakeAnalyzer{})

	w := doRequest(router, http.MethodPut, "/api/v1/forms/"+formID.String(), `{"status": "archived"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
