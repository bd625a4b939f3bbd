package ws

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gallery-live/internal/config"
	"github.com/gallery-live/internal/domain"
	jwtinfra "github.com/gallery-live/internal/infrastructure/jwt"
	"github.com/gallery-live/internal/pkg/id"
	"github.com/gallery-live/internal/pkg/logger"
	"github.com/gallery-live/internal/presence"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// Hub is the part of presence.Hub the live channel drives.
type Hub interface {
	Attach(s presence.Sender) domain.Connection
	Authenticate(connID, userID string, roles ...string) (domain.Connection, error)
	JoinExhibition(connID, exhibitionID string) error
	LeaveExhibition(connID, exhibitionID string)
	Detach(connID string)
}

// TokenVerifier validates a handshake token.
type TokenVerifier interface {
	Verify(token string) (*jwtinfra.Claims, error)
}

// Handler upgrades HTTP requests to live connections.
type Handler struct {
	hub      Hub
	tokens   TokenVerifier
	cfg      config.Live
	insecure bool
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler returns the /ws endpoint. tokens may be nil, in which case only
// insecure handshakes can succeed and only if cfg allows them.
func NewHandler(hub Hub, tokens TokenVerifier, cfg *config.Config, l *slog.Logger) *Handler {
	if l == nil {
		l = slog.Default()
	}
	origins := cfg.AllowedOrigins
	return &Handler{
		hub:      hub,
		tokens:   tokens,
		cfg:      withDefaults(cfg.Live),
		insecure: cfg.AllowInsecureHandshake,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(origins, r.Header.Get("Origin"))
			},
		},
		logger: l.With(logger.Component("ws")),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		h.logger.Debug("websocket upgrade failed", logger.Error(err))
		return
	}

	c := &client{
		id:      id.NewConnectionID(),
		conn:    conn,
		handler: h,
		send:    make(chan domain.Event, h.cfg.SendBuffer),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(rate.Limit(h.cfg.MessageRate), h.cfg.MessageBurst),
	}
	c.logger = h.logger.With(logger.ConnectionID(c.id))
	h.hub.Attach(c)

	if h.cfg.AuthTimeout > 0 {
		c.authTimer = time.AfterFunc(h.cfg.AuthTimeout, c.expireHandshake)
	}

	go c.writePump()
	go c.readPump()
}

func withDefaults(l config.Live) config.Live {
	if l.SendBuffer <= 0 {
		l.SendBuffer = 64
	}
	if l.WriteTimeout <= 0 {
		l.WriteTimeout = 10 * time.Second
	}
	if l.PongWait <= 0 {
		l.PongWait = time.Minute
	}
	if l.MessageRate <= 0 {
		l.MessageRate = 20
	}
	if l.MessageBurst <= 0 {
		l.MessageBurst = 40
	}
	return l
}

// originAllowed reports whether origin may open a live connection.
// Requests without an Origin header come from non-browser clients.
func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return true
	}
	return slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
}
