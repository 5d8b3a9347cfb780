package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// RequestError is returned for any non-2xx response. It carries the status
// and the raw response body.
type RequestError struct {
	StatusCode int
	Body       string
}

// Error returns the response body, or "HTTP error! status: N" when the body
// is empty.
func (e *RequestError) Error() string {
	if strings.TrimSpace(e.Body) != "" {
		return e.Body
	}
	return fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
}

// Message extracts the "message" field of a JSON error body, falling back
// to Error.
func (e *RequestError) Message() string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(e.Body), &body); err == nil && body.Message != "" {
		return body.Message
	}
	return e.Error()
}

// Unauthorized reports whether the backend rejected the session.
func (e *RequestError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// NotFound reports a 404 response.
func (e *RequestError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}
