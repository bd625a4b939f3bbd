package presence

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gallery-live/internal/domain"
	"github.com/gallery-live/internal/pkg/logger"
)

// Sender is the push side of one live connection.
// Send must never block: it either queues the event or reports false.
// Close must never block either; it starts the connection's own shutdown,
// which ends with a call to Hub.Detach.
type Sender interface {
	ID() string
	Send(ev domain.Event) bool
	Close()
}

type entry struct {
	sender Sender
	conn   domain.Connection
}

// Hub owns the connection registry, the room table and the live senders.
// Lock order is Hub.mu before Registry.mu and Rooms.mu; no I/O happens under any of them.
type Hub struct {
	registry *Registry
	rooms    *Rooms
	logger   *slog.Logger

	mu    sync.RWMutex
	conns map[string]*entry
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithLogger sets the logger for the Hub.
func WithLogger(l *slog.Logger) HubOption {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithExhibitionLimit caps the exhibition rooms a single connection may join.
func WithExhibitionLimit(n int) HubOption {
	return func(h *Hub) { h.rooms.SetExhibitionLimit(n) }
}

// NewHub returns a hub with an empty registry and room table.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		registry: NewRegistry(),
		rooms:    NewRooms(),
		logger:   slog.Default(),
		conns:    make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Attach records a freshly opened, unauthenticated connection.
func (h *Hub) Attach(s Sender) domain.Connection {
	conn := domain.Connection{ID: s.ID(), OpenedAt: time.Now().UTC()}

	h.mu.Lock()
	h.conns[conn.ID] = &entry{sender: s, conn: conn}
	h.mu.Unlock()

	h.logger.Debug("connection attached", logger.ConnectionID(conn.ID))
	return conn
}

// Authenticate binds connID to userID, registers it for presence and joins the
// user room plus one role room per role. The first role is kept as roleAtAuthTime.
func (h *Hub) Authenticate(connID, userID string, roles ...string) (domain.Connection, error) {
	h.mu.Lock()
	e, ok := h.conns[connID]
	if !ok {
		h.mu.Unlock()
		return domain.Connection{}, fmt.Errorf("connection %s: %w", connID, domain.ErrNotFound)
	}
	if e.conn.Authenticated() {
		conn := e.conn
		h.mu.Unlock()
		return conn, fmt.Errorf("connection %s already authenticated: %w", connID, domain.ErrConflict)
	}

	e.conn.UserID = userID
	if len(roles) > 0 {
		e.conn.Role = roles[0]
	}
	h.registry.Register(connID, userID)
	h.rooms.JoinUser(connID, userID)
	for _, r := range roles {
		if r != "" {
			h.rooms.JoinRole(connID, r)
		}
	}
	conn := e.conn
	h.mu.Unlock()

	h.logger.Info("connection authenticated",
		logger.ConnectionID(connID), logger.UserID(userID), slog.Any("roles", roles))
	return conn, nil
}

// JoinExhibition adds an attached connection to an exhibition room.
// Unauthenticated connections may join; unknown connections are ignored.
func (h *Hub) JoinExhibition(connID, exhibitionID string) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.conns[connID]; !ok {
		return nil
	}
	return h.rooms.JoinExhibition(connID, exhibitionID)
}

// LeaveExhibition removes a connection from an exhibition room.
func (h *Hub) LeaveExhibition(connID, exhibitionID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.rooms.LeaveExhibition(connID, exhibitionID)
}

// Detach purges every trace of connID. It is called unconditionally when the
// transport closes and is a no-op for unknown or already detached connections.
func (h *Hub) Detach(connID string) {
	h.mu.Lock()
	_, ok := h.conns[connID]
	delete(h.conns, connID)
	h.rooms.PurgeConnection(connID)
	userID, registered := h.registry.Forget(connID)
	h.mu.Unlock()

	if !ok {
		return
	}
	attrs := []any{logger.ConnectionID(connID)}
	if registered {
		attrs = append(attrs, logger.UserID(userID), slog.Bool("still_online", h.registry.IsOnline(userID)))
	}
	h.logger.Debug("connection detached", attrs...)
}

// PushToRoom delivers ev to every connection currently in room and returns the
// number of connections that accepted it. Delivery is best effort: a connection
// that cannot take the event is closed and counts as offline.
func (h *Hub) PushToRoom(room string, ev domain.Event) int {
	members := h.rooms.MembersOf(room)
	if len(members) == 0 {
		return 0
	}

	senders := make([]Sender, 0, len(members))
	h.mu.RLock()
	for _, id := range members {
		if e, ok := h.conns[id]; ok {
			senders = append(senders, e.sender)
		}
	}
	h.mu.RUnlock()

	delivered := 0
	for _, s := range senders {
		if s.Send(ev) {
			delivered++
			continue
		}
		h.logger.Warn("push dropped, closing slow connection",
			logger.ConnectionID(s.ID()), logger.Room(room), logger.EventType(ev.Name))
		s.Close()
	}
	return delivered
}

// PushToUser delivers ev to every connection of userID.
func (h *Hub) PushToUser(userID string, ev domain.Event) int {
	return h.PushToRoom(UserRoom(userID), ev)
}

// IsOnline reports whether userID has at least one authenticated connection.
func (h *Hub) IsOnline(userID string) bool {
	return h.registry.IsOnline(userID)
}

// Connections returns the number of live connections held by userID.
func (h *Hub) Connections(userID string) int {
	return len(h.registry.Connections(userID))
}

// Connection returns the state of an attached connection.
func (h *Hub) Connection(connID string) (domain.Connection, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	e, ok := h.conns[connID]
	if !ok {
		return domain.Connection{}, false
	}
	return e.conn, true
}

// Stats is a point-in-time summary of the hub.
type Stats struct {
	Connections int `json:"connections"`
	OnlineUsers int `json:"online_users"`
	Rooms       int `json:"rooms"`
}

// Stats returns current counters.
func (h *Hub) Stats() Stats {
	h.mu.RLock()
	n := len(h.conns)
	h.mu.RUnlock()
	return Stats{Connections: n, OnlineUsers: h.registry.OnlineUsers(), Rooms: h.rooms.Count()}
}

// Close asks every attached connection to shut down.
func (h *Hub) Close() {
	h.mu.RLock()
	senders := make([]Sender, 0, len(h.conns))
	for _, e := range h.conns {
		senders = append(senders, e.sender)
	}
	h.mu.RUnlock()

	for _, s := range senders {
		s.Close()
	}
}
