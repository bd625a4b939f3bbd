package http

import (
	"log/slog"
	"net/http"

	"github.com/gallery-live/internal/application/notification"
	"github.com/gallery-live/internal/transport/http/handler"
	"github.com/gallery-live/internal/transport/http/middleware"
)

// Deps holds everything the router wires into handlers.
type Deps struct {
	Notifications notification.Service
	Dispatcher    handler.Dispatcher
	Presence      handler.PresenceReader
	// Tokens verifies bearer tokens. When nil, authenticated routes are not mounted.
	Tokens middleware.TokenVerifier
	// Live serves the websocket upgrade.
	Live   http.Handler
	Checks map[string]handler.Check
	Logger *slog.Logger
}
