package domain

import (
	"errors"
	"fmt"
)

// Error codes returned to the requester.
const (
	CodeNoURL             = "NO_URL"
	CodeInvalidURL        = "INVALID_URL"
	CodeSessionStateEmpty = "SESSION_STATE_EMPTY"
	CodeAcquisitionFailed = "ACQUISITION_FAILED"
	CodeDeliveryFailed    = "DELIVERY_FAILED"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code      string
	Message   string
	Err       error
	Retryable bool
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s - %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError with the same code, so wrapped copies of the
// sentinels below compare equal with errors.Is.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error, retryable bool) *DomainError {
	return &DomainError{
		Code:      code,
		Message:   message,
		Err:       err,
		Retryable: retryable,
	}
}

// Common domain errors
var (
	ErrNoURL = &DomainError{
		Code:    CodeNoURL,
		Message: "Please send a valid URL.",
	}

	ErrInvalidURL = &DomainError{
		Code:    CodeInvalidURL,
		Message: "The provided URL is invalid",
	}

	// ErrSessionStateEmpty is shown to the requester verbatim.
	ErrSessionStateEmpty = &DomainError{
		Code:    CodeSessionStateEmpty,
		Message: "No previous URL found. Please send a URL.",
	}

	ErrAcquisitionFailed = &DomainError{
		Code:      CodeAcquisitionFailed,
		Message:   "Download failed. Please check the URL or try again later.",
		Retryable: true,
	}

	ErrDeliveryFailed = &DomainError{
		Code:      CodeDeliveryFailed,
		Message:   "Failed to deliver the file. Please try again.",
		Retryable: true,
	}
)
