package clients

import (
	"errors"
	"fmt"
)

// Category is the normalized failure taxonomy for collaborator calls. The
// intake service translates categories to domain error codes without looking
// at transport details.
type Category string

const (
	// CategoryTimeout indicates the collaborator did not answer in time
	CategoryTimeout Category = "timeout"

	// CategoryUnreachable indicates the request never got a response
	CategoryUnreachable Category = "unreachable"

	// CategoryAuthentication indicates a missing, invalid or expired bearer token
	CategoryAuthentication Category = "authentication"

	// CategoryRejected indicates the collaborator refused the request (4xx)
	CategoryRejected Category = "rejected"

	// CategoryOutage indicates the collaborator failed on its side (5xx)
	CategoryOutage Category = "collaborator_outage"

	// CategoryContractMismatch indicates a 2xx response that could not be understood
	CategoryContractMismatch Category = "contract_mismatch"

	// CategoryInternal indicates a failure before the request was sent
	CategoryInternal Category = "internal"
)

// Collaborator names used in errors, logs and spans.
const (
	CollaboratorScan     = "scan"
	CollaboratorPredict  = "predict"
	CollaboratorFeedback = "feedback"
	CollaboratorAuth     = "auth"
)

// CollaboratorError wraps a failed collaborator call with its category and,
// when a response was received, the HTTP status.
type CollaboratorError struct {
	Category     Category
	Collaborator string
	Status       int
	Message      string
	Underlying   error
	Retryable    bool // set from Category: timeout, unreachable and outage are transient
}

func (e *CollaboratorError) Error() string {
	status := ""
	if e.Status != 0 {
		status = fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Underlying != nil {
		return fmt.Sprintf("collaborator %s [%s]%s: %s: %v", e.Collaborator, e.Category, status, e.Message, e.Underlying)
	}
	return fmt.Sprintf("collaborator %s [%s]%s: %s", e.Collaborator, e.Category, status, e.Message)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Underlying
}

// FailureCategory exposes the category to tracing.
func (e *CollaboratorError) FailureCategory() string {
	return string(e.Category)
}

// NewError builds a CollaboratorError with automatic retry classification.
func NewError(category Category, collaborator string, status int, message string, underlying error) *CollaboratorError {
	return &CollaboratorError{
		Category:     category,
		Collaborator: collaborator,
		Status:       status,
		Message:      message,
		Underlying:   underlying,
		Retryable:    category == CategoryTimeout || category == CategoryUnreachable || category == CategoryOutage,
	}
}

// CategoryOf extracts the category from err, CategoryInternal when err is not
// a CollaboratorError.
func CategoryOf(err error) Category {
	var ce *CollaboratorError
	if errors.As(err, &ce) {
		return ce.Category
	}
	return CategoryInternal
}

// StatusOf returns the HTTP status carried by err, 0 when there was no response.
func StatusOf(err error) int {
	var ce *CollaboratorError
	if errors.As(err, &ce) {
		return ce.Status
	}
	return 0
}

// IsRetryable reports whether err is a transient collaborator failure.
func IsRetryable(err error) bool {
	var ce *CollaboratorError
	if errors.As(err, &ce) {
		return ce.Retryable
	}
	return false
}

// IsTransport reports whether err failed before any HTTP response arrived.
func IsTransport(err error) bool {
	switch CategoryOf(err) {
	case CategoryTimeout, CategoryUnreachable:
		return true
	default:
		return false
	}
}
