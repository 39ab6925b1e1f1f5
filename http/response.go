package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sagarc03/itemgate"
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

// HandleError writes the response for err according to the gateway's error
// taxonomy. Backend faults keep their own status code and message.
func HandleError(w http.ResponseWriter, err error) {
	var fault *itemgate.BackendFault

	switch {
	case errors.Is(err, itemgate.ErrMissingCredential):
		WriteError(w, http.StatusUnauthorized, "missing_credential", "No access token given.")
	case errors.Is(err, itemgate.ErrUnauthorized):
		WriteError(w, http.StatusUnauthorized, "unauthorized", "Access token is not valid.")
	case errors.Is(err, itemgate.ErrUnknownPresentation):
		WriteError(w, http.StatusBadRequest, "unknown_presentation", err.Error())
	case errors.Is(err, itemgate.ErrUnsupportedEncoding):
		WriteError(w, http.StatusBadRequest, "unsupported_encoding", err.Error())
	case errors.Is(err, itemgate.ErrInvalidInput):
		WriteError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, itemgate.ErrQuotaExceeded):
		WriteError(w, http.StatusInsufficientStorage, "quota_exceeded", err.Error())
	case errors.Is(err, itemgate.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not_found", backendMessage(err, "Item not found"))
	case errors.Is(err, itemgate.ErrForbidden):
		WriteError(w, http.StatusForbidden, "forbidden", backendMessage(err, "Access to the item was denied"))
	case errors.As(err, &fault):
		slog.Error("backend fault", "code", fault.Code, "error", err)
		WriteError(w, fault.StatusCode(), "backend_fault", fault.Message)
	case errors.Is(err, itemgate.ErrOracleUnavailable):
		slog.Error("request error", "error", err)
		WriteError(w, http.StatusInternalServerError, "oracle_unavailable", "Could not validate access token")
	default:
		slog.Error("request error", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

// backendMessage returns the storage backend's own message when err carries
// one, otherwise fallback.
func backendMessage(err error, fallback string) string {
	var msg *itemgate.BackendMessage
	if errors.As(err, &msg) && msg.Message != "" {
		return msg.Message
	}
	return fallback
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}
