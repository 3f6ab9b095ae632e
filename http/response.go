package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sagarc03/gridfetch"
	"github.com/sagarc03/gridfetch/metrics"
)

// ErrorResponse represents a JSON error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a JSON error response
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errCode,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

// HandleError writes the response for an error raised before any object
// bytes were sent.
//
//   - ErrMalformedInput: 400 with a JSON body
//   - ErrNotFound: 404 with no body
//   - context.Canceled: nothing, the client is gone
//   - anything else: 500 with a JSON body
func HandleError(w http.ResponseWriter, err error) {
	if errors.Is(err, context.Canceled) {
		slog.Debug("request canceled", "error", err)
		return
	}

	if errors.Is(err, gridfetch.ErrMalformedInput) {
		slog.Info("malformed key", "error", err)
		WriteError(w, http.StatusBadRequest, "malformed_key", "Malformed key")
		return
	}

	if errors.Is(err, gridfetch.ErrNotFound) {
		slog.Debug("object not found", "error", err)
		w.WriteHeader(http.StatusNotFound)
		return
	}

	var ce *gridfetch.ConnectError
	if errors.As(err, &ce) {
		metrics.ConnectFailures.WithLabelValues(string(ce.Reason)).Inc()
		slog.Error("backend connection failed", "reason", ce.Reason, "error", err)
	} else {
		slog.Error("request error", "error", err)
	}

	WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}
