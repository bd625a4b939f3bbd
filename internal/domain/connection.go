package domain

import "time"

// Connection describes one live transport session.
// UserID and Role stay empty until the authentication handshake completes.
type Connection struct {
	ID       string    `json:"connection_id"`
	UserID   string    `json:"user_id,omitempty"`
	Role     string    `json:"role,omitempty"`
	OpenedAt time.Time `json:"opened_at"`
}

// Authenticated reports whether the handshake has completed.
func (c Connection) Authenticated() bool {
	return c.UserID != ""
}
