package trello

import (
	"errors"
	"fmt"
)

// APIError is a non-2xx response from the Trello REST API. Trello answers
// errors with a plain-text body, kept verbatim in Message.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (err *APIError) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("trello: %s %s: HTTP %d", err.Method, err.Path, err.StatusCode)
	}
	return fmt.Sprintf("trello: %s %s: HTTP %d: %s", err.Method, err.Path, err.StatusCode, err.Message)
}

// IsNotFound reports whether err is a Trello 404 response.
func IsNotFound(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == 404
}
