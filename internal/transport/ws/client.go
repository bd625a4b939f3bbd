package ws

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gallery-live/internal/domain"
	"github.com/gallery-live/internal/pkg/logger"
	"github.com/gallery-live/internal/pkg/validate"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

var (
	errAlreadyAuthenticated = errors.New("already authenticated")
	errHandshakeRejected    = errors.New("authentication failed")
	errHandshakeDisabled    = errors.New("authentication unavailable")
)

// client is one live connection. It implements presence.Sender.
type client struct {
	id      string
	conn    *websocket.Conn
	handler *Handler
	logger  *slog.Logger

	send      chan domain.Event
	done      chan struct{}
	closeOnce sync.Once

	limiter   *rate.Limiter
	authTimer *time.Timer
	authed    atomic.Bool
}

func (c *client) ID() string { return c.id }

// Send queues ev for the write pump. It never blocks.
func (c *client) Send(ev domain.Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- ev:
		return true
	default:
		return false
	}
}

// Close stops both pumps. The read pump detaches the connection from the hub.
func (c *client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *client) expireHandshake() {
	if c.authed.Load() {
		return
	}
	c.logger.Info("handshake timed out")
	c.Close()
}

func (c *client) readPump() {
	defer func() {
		if c.authTimer != nil {
			c.authTimer.Stop()
		}
		c.Close()
		c.handler.hub.Detach(c.id)
		_ = c.conn.Close()
	}()

	cfg := c.handler.cfg
	if cfg.MaxFrameSize > 0 {
		c.conn.SetReadLimit(cfg.MaxFrameSize)
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read error", logger.Error(err))
			}
			return
		}
		if !c.limiter.Allow() {
			c.replyError("rate limit exceeded")
			continue
		}

		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.replyError("invalid message")
			continue
		}
		c.handle(frame)
	}
}

func (c *client) writePump() {
	cfg := c.handler.cfg
	ticker := time.NewTicker(cfg.PongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		c.Close()
		_ = c.conn.Close()
	}()

	for {
		select {
		case ev := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := c.conn.WriteJSON(ev); err != nil {
				c.logger.Debug("websocket write error", logger.Error(err))
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(cfg.WriteTimeout)
			if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-c.done:
			deadline := time.Now().Add(cfg.WriteTimeout)
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			return
		}
	}
}

func (c *client) handle(frame inboundFrame) {
	switch frame.Type {
	case typeAuthenticate:
		var p authenticatePayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			c.replyError("invalid authenticate payload")
			return
		}
		if err := validate.Struct(p); err != nil {
			c.replyError("invalid authenticate payload: " + err.Error())
			return
		}
		c.authenticate(p)

	case typeJoinExhibition, typeLeaveExhibition:
		var p exhibitionPayload
		if err := json.Unmarshal(frame.Data, &p); err != nil {
			c.replyError("invalid exhibition payload")
			return
		}
		if err := validate.Struct(p); err != nil {
			c.replyError("invalid exhibition payload: " + err.Error())
			return
		}
		if frame.Type == typeLeaveExhibition {
			c.handler.hub.LeaveExhibition(c.id, p.ExhibitionID)
			return
		}
		if err := c.handler.hub.JoinExhibition(c.id, p.ExhibitionID); err != nil {
			c.replyError(err.Error())
		}

	case typePing:
		c.reply(domain.NewEvent(domain.EventPong, nil))

	default:
		c.replyError("unknown message type")
	}
}

func (c *client) authenticate(p authenticatePayload) {
	if c.authed.Load() {
		c.replyError(errAlreadyAuthenticated.Error())
		return
	}
	userID, role, err := c.identify(p)
	if err != nil {
		c.logger.Info("handshake rejected", logger.Error(err))
		c.replyError(err.Error())
		return
	}
	if _, err := c.handler.hub.Authenticate(c.id, userID, role); err != nil {
		c.logger.Warn("hub rejected handshake", logger.UserID(userID), logger.Error(err))
		c.replyError(errHandshakeRejected.Error())
		return
	}
	c.authed.Store(true)
	c.reply(domain.NewEvent(domain.EventAuthenticated, domain.AuthenticatedPayload{
		UserID:       userID,
		ConnectionID: c.id,
	}))
}

// identify resolves the handshake to a user and role. A verified token always
// wins. Without one, the body is trusted only when insecure handshakes are on.
func (c *client) identify(p authenticatePayload) (string, string, error) {
	h := c.handler
	if p.Token != "" && h.tokens != nil {
		claims, err := h.tokens.Verify(p.Token)
		if err != nil {
			return "", "", errHandshakeRejected
		}
		return claims.UserID, claims.Role, nil
	}
	if !h.insecure {
		if h.tokens == nil {
			return "", "", errHandshakeDisabled
		}
		return "", "", errHandshakeRejected
	}
	if p.UserID == "" || (p.UserRole != "" && !domain.ValidRole(p.UserRole)) {
		return "", "", errHandshakeRejected
	}
	return p.UserID, p.UserRole, nil
}

func (c *client) reply(ev domain.Event) {
	if !c.Send(ev) {
		c.logger.Warn("reply dropped, closing slow connection", logger.EventType(ev.Name))
		c.Close()
	}
}

func (c *client) replyError(msg string) {
	c.reply(domain.NewEvent(domain.EventError, domain.ErrorPayload{Message: msg}))
}
