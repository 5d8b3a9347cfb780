package backend

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/bartr-dev/bartr/pkg/model"
)

// Repository sentinels.
var (
	ErrNotFound   = errors.New("not found")
	ErrEmailTaken = errors.New("email already registered")
)

// Error is a failure with a status and a message safe to show to clients.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string { return e.Message }

func badRequest(msg string) *Error { return &Error{Status: http.StatusBadRequest, Message: msg} }
func forbidden(msg string) *Error  { return &Error{Status: http.StatusForbidden, Message: msg} }
func notFound(msg string) *Error   { return &Error{Status: http.StatusNotFound, Message: msg} }

var errUnauthorized = &Error{Status: http.StatusUnauthorized, Message: "Authentication required"}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// writeError maps err to a status. Unknown errors are logged and answered
// with a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var apiErr *Error
	switch {
	case errors.As(err, &apiErr):
		writeJSON(w, apiErr.Status, model.ErrorResponse{Message: apiErr.Message})
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, model.ErrorResponse{Message: "Not found"})
	default:
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, model.ErrorResponse{Message: "Internal server error"})
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return badRequest("Invalid JSON body")
	}
	return nil
}
