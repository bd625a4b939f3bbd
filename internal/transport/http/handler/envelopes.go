package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gallery-live/internal/application/notification"
	"github.com/gallery-live/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// CountEnvelope wraps unread-count and mark-all responses.
type CountEnvelope struct {
	Count int `json:"count"`
}

// DispatchEnvelope wraps the outcome of an ingested domain event.
type DispatchEnvelope struct {
	Result notification.Result `json:"result"`
	Error  string              `json:"error,omitempty"`
}

// PresenceEnvelope reports whether a user is reachable over the live channel.
type PresenceEnvelope struct {
	UserID      string `json:"user_id"`
	Online      bool   `json:"online"`
	Connections int    `json:"connections"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg, ErrorCode: status})
}

// statusFor maps domain sentinel errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDurability):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// httpError writes err with the status its sentinel maps to. Unmapped errors
// are reported without their detail.
func httpError(w http.ResponseWriter, err error) {
	status, msg := errorMessage(err)
	writeError(w, status, msg)
}

// errorMessage returns the status for err and the text safe to show the caller.
// Unmapped errors are hidden behind a generic message.
func errorMessage(err error) (int, string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		return status, "internal server error"
	}
	return status, err.Error()
}
