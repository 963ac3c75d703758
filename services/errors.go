package services

import (
	"errors"
	"fmt"
)

// Domain errors detected before any external call is made.
var (
	ErrFormNotFound  = errors.New("feedback form not found")
	ErrFormClosed    = errors.New("feedback form is closed for new responses")
	ErrEmptyFeedback = errors.New("form has no feedback responses to analyze")
	ErrNoAnalysisYet = errors.New("no analysis has been computed for this form")
)

// ClassifierErrorKind distinguishes why a classifier call failed. Callers use
// it to decide whether a retry makes sense; the orchestrator never retries.
type ClassifierErrorKind string

const (
	ProviderUnavailable ClassifierErrorKind = "provider_unavailable"
	ProviderTimeout     ClassifierErrorKind = "provider_timeout"
	RateLimited         ClassifierErrorKind = "rate_limited"
	MalformedResponse   ClassifierErrorKind = "malformed_response"
)

// ClassifierError is the typed outcome of a failed classifier call. Provider
// failures never cross into the orchestrator as opaque errors.
type ClassifierError struct {
	Kind    ClassifierErrorKind
	Message string
	Err     error
}

func (e *ClassifierError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("classifier %s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("classifier %s: %s", e.Kind, e.Message)
}

func (e *ClassifierError) Unwrap() error { return e.Err }

func newClassifierError(kind ClassifierErrorKind, message string, err error) *ClassifierError {
	return &ClassifierError{Kind: kind, Message: message, Err: err}
}

// AsClassifierError unwraps err into a ClassifierError if it is one
func AsClassifierError(err error) (*ClassifierError, bool) {
	var cerr *ClassifierError
	if errors.As(err, &cerr) {
		return cerr, true
	}
	return nil, false
}
