package domain

import "time"

// NotificationType identifies what happened to the subject of a notification.
type NotificationType string

const (
	TypeUpload            NotificationType = "upload"
	TypeApproved          NotificationType = "approved"
	TypeRejected          NotificationType = "rejected"
	TypeExhibitionCreated NotificationType = "exhibition_created"
	TypeCommentAdded      NotificationType = "comment_added"
)

// Valid reports whether t is one of the known notification types.
func (t NotificationType) Valid() bool {
	switch t {
	case TypeUpload, TypeApproved, TypeRejected, TypeExhibitionCreated, TypeCommentAdded:
		return true
	}
	return false
}

// Notification is one durable record in a recipient's notification log.
// Type, RecipientID and EntityID never change after creation; IsRead only goes false -> true.
type Notification struct {
	ID          string           `json:"id" dynamodbav:"notification_id" db:"id"`
	Type        NotificationType `json:"type" dynamodbav:"type" db:"type"`
	Message     string           `json:"message" dynamodbav:"message" db:"message"`
	EntityID    *string          `json:"entity_id,omitempty" dynamodbav:"entity_id,omitempty" db:"entity_id"`
	RecipientID string           `json:"recipient_id" dynamodbav:"recipient_id" db:"recipient_id"`
	SenderID    *string          `json:"sender_id,omitempty" dynamodbav:"sender_id,omitempty" db:"sender_id"`
	IsRead      bool             `json:"is_read" dynamodbav:"is_read" db:"is_read"`
	CreatedAt   time.Time        `json:"created_at" dynamodbav:"created_at" db:"created_at"`
}

// Entity returns the entity id or "" when the notification has no subject.
func (n *Notification) Entity() string {
	if n.EntityID == nil {
		return ""
	}
	return *n.EntityID
}

// ListLimits bounds the page size of the get-all pull.
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)
