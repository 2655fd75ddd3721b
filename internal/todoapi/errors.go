package todoapi

import (
	"fmt"
	"net/http"
)

// APIError represents a non-2xx response from the to-do backend
type APIError struct {
	StatusCode int    `json:"status_code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("todo API error (%d): %s - %s", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("todo API error (%d): %s", e.StatusCode, e.Message)
}

// Is matches API errors by status code so errors.Is(err, ErrNotFound) works.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.StatusCode == e.StatusCode
}

// Common error types
var (
	ErrBadRequest = &APIError{StatusCode: http.StatusBadRequest, Message: "Bad request"}
	ErrNotFound   = &APIError{StatusCode: http.StatusNotFound, Message: "Item not found"}
	ErrConflict   = &APIError{StatusCode: http.StatusConflict, Message: "Item already exists"}
	ErrInternal   = &APIError{StatusCode: http.StatusInternalServerError, Message: "Internal server error"}
)

