package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a rejection from the remote loan service
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("loan service: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("loan service: %d: %s", e.StatusCode, e.Message)
}

// IsConflict reports whether err is a stale-state rejection: another actor
// advanced the loan first. Callers reload instead of retrying.
func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict
}

// IsForbidden reports whether err is an authorization rejection
func IsForbidden(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden
}

// IsNotFound reports whether err means the loan does not exist remotely
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
