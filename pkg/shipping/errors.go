package shipping

import (
	"errors"
	"fmt"
	"net/http"
)

// AggregatorError represents an HTTP-level error reported by the aggregator.
type AggregatorError struct {
	Aggregator string
	Code       string
	Message    string
	StatusCode int
	Cause      error
}

// Error implements the error interface.
func (e *AggregatorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error (%s): %s: %v", e.Aggregator, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error (%s): %s", e.Aggregator, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *AggregatorError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for AggregatorError.
func (e *AggregatorError) Is(target error) bool {
	t, ok := target.(*AggregatorError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NotFound reports whether the aggregator answered 404.
func (e *AggregatorError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// NewAggregatorError creates a new AggregatorError.
func NewAggregatorError(aggregator, code, message string) *AggregatorError {
	return &AggregatorError{
		Aggregator: aggregator,
		Code:       code,
		Message:    message,
	}
}

// WithCause adds a cause to the error.
func (e *AggregatorError) WithCause(err error) *AggregatorError {
	e.Cause = err
	return e
}

// WithStatusCode adds an HTTP status code to the error.
func (e *AggregatorError) WithStatusCode(code int) *AggregatorError {
	e.StatusCode = code
	return e
}

// ErrMalformedResponse indicates an aggregator payload could not be decoded.
var ErrMalformedResponse = errors.New("malformed aggregator response")

// Kind classifies the failures surfaced to callers of the coordinator.
type Kind string

const (
	KindValidation              Kind = "validation_error"
	KindUnauthorizedOrNotFound  Kind = "unauthorized_or_not_found"
	KindRateRetrievalFailed     Kind = "rate_retrieval_failed"
	KindNoValidRate             Kind = "no_valid_rate"
	KindLabelPurchaseFailed     Kind = "label_purchase_failed"
	KindLabelInProgress         Kind = "label_in_progress"
	KindTrackingNotFound        Kind = "tracking_not_found"
	KindTrackingRetrievalFailed Kind = "tracking_retrieval_failed"
)

// Error is a failure surfaced by the coordinator. Message is safe to show to
// the caller; Upstream is set when Message was forwarded from the aggregator.
type Error struct {
	Kind     Kind
	Message  string
	Upstream bool
	Cause    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewError creates a new Error.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// Sentinel errors for errors.Is checks against each kind.
var (
	ErrValidation              = NewError(KindValidation, "invalid request")
	ErrUnauthorizedOrNotFound  = NewError(KindUnauthorizedOrNotFound, "trade not found")
	ErrRateRetrievalFailed     = NewError(KindRateRetrievalFailed, "rate retrieval failed")
	ErrNoValidRate             = NewError(KindNoValidRate, "no valid rate")
	ErrLabelPurchaseFailed     = NewError(KindLabelPurchaseFailed, "label creation failed")
	ErrLabelInProgress         = NewError(KindLabelInProgress, "label purchase already in progress for this trade")
	ErrTrackingNotFound        = NewError(KindTrackingNotFound, "tracking not found")
	ErrTrackingRetrievalFailed = NewError(KindTrackingRetrievalFailed, "tracking retrieval failed")
)

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
