package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gallery-live/internal/application/notification"
	"github.com/gallery-live/internal/domain"
	"github.com/gallery-live/internal/pkg/logger"
	"github.com/gallery-live/internal/pkg/validate"
)

const maxEventBody = 64 << 10

// Dispatcher turns an ingested domain event into notifications.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev domain.DomainEvent) (notification.Result, error)
}

// EventHandler ingests domain events from the services that own artworks,
// exhibitions and comments.
type EventHandler struct {
	dispatcher Dispatcher
	logger     *slog.Logger
}

func NewEventHandler(d Dispatcher, l *slog.Logger) *EventHandler {
	if l == nil {
		l = slog.Default()
	}
	return &EventHandler{dispatcher: d, logger: l}
}

// Ingest accepts {"type": "<notification type>", ...event fields}.
func (h *EventHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ev, err := decodeEvent(body)
	if err != nil {
		httpError(w, err)
		return
	}
	if err := validate.Struct(ev); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	res, err := h.dispatcher.Dispatch(r.Context(), ev)
	if err != nil {
		h.logger.LogAttrs(r.Context(), slog.LevelError, "dispatch failed",
			logger.EventType(string(ev.Kind())), logger.Error(err))
		status, msg := errorMessage(err)
		writeJSON(w, status, DispatchEnvelope{Result: res, Error: msg})
		return
	}
	writeJSON(w, http.StatusAccepted, DispatchEnvelope{Result: res})
}

func decodeEvent(body []byte) (domain.DomainEvent, error) {
	var head struct {
		Type domain.NotificationType `json:"type"`
	}
	if err := json.Unmarshal(body, &head); err != nil {
		return nil, fmt.Errorf("%w: invalid request body", domain.ErrBadRequest)
	}

	var ev domain.DomainEvent
	var err error
	switch head.Type {
	case domain.TypeUpload:
		ev, err = decodeAs[domain.ArtworkUploaded](body)
	case domain.TypeApproved:
		ev, err = decodeAs[domain.ArtworkApproved](body)
	case domain.TypeRejected:
		ev, err = decodeAs[domain.ArtworkRejected](body)
	case domain.TypeExhibitionCreated:
		ev, err = decodeAs[domain.ExhibitionCreated](body)
	case domain.TypeCommentAdded:
		ev, err = decodeAs[domain.CommentAdded](body)
	default:
		return nil, fmt.Errorf("%w: unknown event type %q", domain.ErrBadRequest, head.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s event: %v", domain.ErrBadRequest, head.Type, err)
	}
	return ev, nil
}

func decodeAs[T domain.DomainEvent](body []byte) (domain.DomainEvent, error) {
	var ev T
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, err
	}
	return ev, nil
}
