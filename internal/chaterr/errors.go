// Package chaterr provides the error types shared by the chat client and server.
package chaterr

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrEmptyMessage    = errors.New("message is empty")
	ErrInvalidResponse = errors.New("invalid response format")
	ErrMissingReply    = errors.New("response has no reply")
	ErrTransportClosed = errors.New("transport is closed")
	ErrAPI             = errors.New("chat endpoint error")
)

// APIError represents a non-success status from the chat endpoint
type APIError struct {
	StatusCode int
	Endpoint   string
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("API error [%d] at %s: %s", e.StatusCode, e.Endpoint, e.Message)
	}
	return fmt.Sprintf("API error at %s: %s", e.Endpoint, e.Message)
}

// Is matches ErrAPI and any other APIError
func (e *APIError) Is(target error) bool {
	if target == ErrAPI {
		return true
	}
	_, ok := target.(*APIError)
	return ok
}

// NewAPIError creates a new APIError
func NewAPIError(statusCode int, endpoint, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		Endpoint:   endpoint,
		Message:    message,
	}
}

// StatusCode extracts the HTTP status from an APIError chain, or 0
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
