package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"event-feedback-server/config"
)

const (
	// Only the first maxPromptComments comments are embedded in the prompt to
	// keep it inside the provider's output token budget.
	maxPromptComments = 50

	// Returned proportions must sum to 1 within this tolerance; anything
	// further off is treated as a malformed response.
	proportionEpsilon = 0.01

	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

// ClassificationRequest carries the ordered feedback comments plus auxiliary
// rating signal folded into the prompt. Empty comments are passed through
// verbatim; the provider may treat them as neutral.
type ClassificationRequest struct {
	Comments      []string
	ResponseCount int
	AverageRating float64
}

// Classification is the validated sentiment breakdown returned by the
// provider. Positive, Neutral and Negative are proportions summing to ~1.
type Classification struct {
	Positive   float64 `json:"positive"`
	Neutral    float64 `json:"neutral"`
	Negative   float64 `json:"negative"`
	Summary    string  `json:"summary"`
	Highlights string  `json:"highlights"`
	Complaints string  `json:"complaints"`
}

type GeminiRequest struct {
	Contents         []Content        `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
}

type Content struct {
	Parts []Part `json:"parts"`
}

type Part struct {
	Text string `json:"text"`
}

type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type GeminiResponse struct {
	Candidates []Candidate `json:"candidates"`
}

type Candidate struct {
	Content Content `json:"content"`
}

// AIService calls the Gemini API to classify a batch of feedback comments into
// a sentiment distribution with a short summary.
type AIService struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func NewAIService(cfg config.GeminiConfig) *AIService {
	return &AIService{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: geminiBaseURL,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

// Classify sends the feedback batch to Gemini and returns the parsed sentiment
// breakdown. All failures come back as a *ClassifierError so the caller can
// tell transient provider trouble apart from garbage output.
func (ai *AIService) Classify(ctx context.Context, req ClassificationRequest) (*Classification, error) {
	if ai.apiKey == "" {
		return nil, newClassifierError(ProviderUnavailable, "GEMINI_API_KEY is not configured", nil)
	}

	prompt := ai.buildAnalysisPrompt(req)

	body, err := ai.callGeminiAPI(ctx, prompt)
	if err != nil {
		return nil, err
	}

	return parseClassification(body)
}

func (ai *AIService) buildAnalysisPrompt(req ClassificationRequest) string {
	var sb strings.Builder

	sb.WriteString("You are an expert event feedback analyzer. Analyze the following attendee feedback.\n\n")
	sb.WriteString("FEEDBACK DATA:\n")
	fmt.Fprintf(&sb, "- Total Responses: %d\n", req.ResponseCount)
	fmt.Fprintf(&sb, "- Average Rating: %.2f/5.0\n\n", req.AverageRating)

	sb.WriteString("ATTENDEE COMMENTS:\n")
	if len(req.Comments) == 0 {
		sb.WriteString("(No written comments provided)\n")
	}
	for i, comment := range req.Comments {
		if i == maxPromptComments {
			break
		}
		fmt.Fprintf(&sb, "%d. %s\n", i+1, comment)
	}

	sb.WriteString(`
Respond with a single JSON object and nothing else, in exactly this shape:
{"positive": 0.0, "neutral": 0.0, "negative": 0.0, "summary": "...", "highlights": "...", "complaints": "..."}

Rules:
- "positive", "neutral" and "negative" are the proportions of comments with that sentiment; they must be non-negative numbers summing to 1.
- "summary" is a concise 2-3 sentence executive summary of the overall feedback.
- "highlights" lists the main positive aspects mentioned; "" if none.
- "complaints" lists recurring issues; "" if none.
- Be specific and data-driven; extract actual themes from the comments.
`)

	return sb.String()
}

func (ai *AIService) callGeminiAPI(ctx context.Context, prompt string) (string, error) {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", ai.baseURL, ai.model, ai.apiKey)

	request := GeminiRequest{
		Contents: []Content{
			{Parts: []Part{{Text: prompt}}},
		},
		GenerationConfig: GenerationConfig{
			Temperature:     0.7,
			MaxOutputTokens: 1024,
		},
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return "", newClassifierError(ProviderUnavailable, "failed to encode request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", newClassifierError(ProviderUnavailable, "failed to build request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := ai.client.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return "", newClassifierError(ProviderTimeout, "gemini API call timed out", err)
		}
		return "", newClassifierError(ProviderUnavailable, "gemini API unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", newClassifierError(ProviderUnavailable, "failed to read gemini response", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", newClassifierError(RateLimited, "gemini API rate limit exceeded", nil)
	case resp.StatusCode != http.StatusOK:
		return "", newClassifierError(ProviderUnavailable,
			fmt.Sprintf("gemini API returned status %d", resp.StatusCode), nil)
	}

	var geminiResp GeminiResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", newClassifierError(MalformedResponse, "failed to decode gemini envelope", err)
	}

	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", newClassifierError(MalformedResponse, "no candidates in gemini response", nil)
	}

	return geminiResp.Candidates[0].Content.Parts[0].Text, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr) && urlErr.Timeout()
}

// parseClassification parses the model's reply text into a Classification and
// validates its shape. Any deviation is a MalformedResponse; fields are never
// extracted best-effort.
func parseClassification(text string) (*Classification, error) {
	cleaned := stripCodeFences(text)

	var result Classification
	decoder := json.NewDecoder(strings.NewReader(cleaned))
	if err := decoder.Decode(&result); err != nil {
		return nil, newClassifierError(MalformedResponse, "reply is not valid JSON", err)
	}

	if result.Positive < 0 || result.Neutral < 0 || result.Negative < 0 {
		return nil, newClassifierError(MalformedResponse, "negative sentiment proportion", nil)
	}
	sum := result.Positive + result.Neutral + result.Negative
	if math.IsNaN(sum) || math.Abs(sum-1) > proportionEpsilon {
		return nil, newClassifierError(MalformedResponse,
			fmt.Sprintf("sentiment proportions sum to %.4f, expected 1", sum), nil)
	}
	if strings.TrimSpace(result.Summary) == "" {
		return nil, newClassifierError(MalformedResponse, "missing summary", nil)
	}

	return &result, nil
}

// stripCodeFences removes a surrounding markdown code fence; models regularly
// wrap JSON replies in ```json fences despite instructions.
func stripCodeFences(text string) string {
	cleaned := strings.TrimSpace(text)
	if !strings.HasPrefix(cleaned, "```") {
		return cleaned
	}
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}
