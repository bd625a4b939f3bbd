package handler

import (
	"net/http"

	"github.com/gallery-live/internal/presence"
	"github.com/go-chi/chi/v5"
)

// PresenceReader exposes the live connection registry.
type PresenceReader interface {
	IsOnline(userID string) bool
	Connections(userID string) int
	Stats() presence.Stats
}

// PresenceHandler reports who is reachable over the live channel.
type PresenceHandler struct {
	presence PresenceReader
}

func NewPresenceHandler(p PresenceReader) *PresenceHandler {
	return &PresenceHandler{presence: p}
}

func (h *PresenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	writeJSON(w, http.StatusOK, PresenceEnvelope{
		UserID:      userID,
		Online:      h.presence.IsOnline(userID),
		Connections: h.presence.Connections(userID),
	})
}

func (h *PresenceHandler) Stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.presence.Stats())
}
