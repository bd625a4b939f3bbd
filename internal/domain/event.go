package domain

import "time"

// Live event names pushed to clients.
const (
	EventNewArtwork        = "new-artwork"
	EventArtworkApproved   = "artwork-approved"
	EventArtworkRejected   = "artwork-rejected"
	EventExhibitionCreated = "exhibition-created"
	EventCommentAdded      = "comment-added"

	EventAuthenticated = "authenticated"
	EventPong          = "pong"
	EventError         = "error"
)

// Event is the envelope written to a live connection.
type Event struct {
	Name   string    `json:"type"`
	Data   any       `json:"data,omitempty"`
	SentAt time.Time `json:"sent_at"`
}

// NewEvent stamps an event with the current time.
func NewEvent(name string, data any) Event {
	return Event{Name: name, Data: data, SentAt: time.Now().UTC()}
}

// Push payloads. RecipientID and CreatedAt let clients build a provisional record.

type NewArtworkPayload struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Artist       string    `json:"artist"`
	ArtistID     string    `json:"artistId"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	RecipientID  string    `json:"recipientId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

type ArtworkApprovedPayload struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	CuratorName string    `json:"curatorName"`
	RecipientID string    `json:"recipientId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type ArtworkRejectedPayload struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Reason      *string   `json:"reason,omitempty"`
	RecipientID string    `json:"recipientId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type ExhibitionCreatedPayload struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	CuratorName string    `json:"curatorName"`
	RecipientID string    `json:"recipientId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type CommentAddedPayload struct {
	ID           string    `json:"id"`
	ArtworkID    string    `json:"artworkId"`
	ExhibitionID string    `json:"exhibitionId,omitempty"`
	AuthorID     string    `json:"authorId"`
	AuthorName   string    `json:"authorName"`
	Excerpt      string    `json:"excerpt"`
	RecipientID  string    `json:"recipientId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Control payloads.

type AuthenticatedPayload struct {
	UserID       string `json:"userId"`
	ConnectionID string `json:"connectionId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
