package notification

import (
	"context"
	"fmt"

	"github.com/gallery-live/internal/domain"
)

// Repository is the durable notification log. Lists are ordered by created_at
// ascending, ties broken by id, so a recipient's records read back in dispatch order.
type Repository interface {
	Put(ctx context.Context, n *domain.Notification) error
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	ListUnread(ctx context.Context, recipientID string) ([]domain.Notification, error)
	// ListByRecipient returns the newest limit records, still in ascending order.
	ListByRecipient(ctx context.Context, recipientID string, limit int) ([]domain.Notification, error)
	// MarkAsRead sets is_read and never clears it. Marking twice is not an error.
	MarkAsRead(ctx context.Context, notificationID string) error
	// MarkAllAsRead marks every unread record of the recipient and returns how many changed.
	MarkAllAsRead(ctx context.Context, recipientID string) (int, error)
	CountUnread(ctx context.Context, recipientID string) (int, error)
}

// Service is the pull surface consumed by clients reconciling their notification state.
type Service interface {
	ListUnread(ctx context.Context, userID string) ([]domain.Notification, error)
	ListAll(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
	CountUnread(ctx context.Context, userID string) (int, error)
	MarkAsRead(ctx context.Context, notificationID, userID string) (*domain.Notification, error)
	MarkAllAsRead(ctx context.Context, userID string) (int, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) ListUnread(ctx context.Context, userID string) ([]domain.Notification, error) {
	return s.repo.ListUnread(ctx, userID)
}

func (s *service) ListAll(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	switch {
	case limit <= 0:
		limit = domain.DefaultListLimit
	case limit > domain.MaxListLimit:
		return nil, fmt.Errorf("limit must be at most %d: %w", domain.MaxListLimit, domain.ErrBadRequest)
	}
	return s.repo.ListByRecipient(ctx, userID, limit)
}

func (s *service) CountUnread(ctx context.Context, userID string) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *service) MarkAsRead(ctx context.Context, notificationID, userID string) (*domain.Notification, error) {
	n, err := s.repo.Get(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.RecipientID != userID {
		return nil, fmt.Errorf("forbidden: %w", domain.ErrForbidden)
	}
	if n.IsRead {
		return n, nil
	}
	if err := s.repo.MarkAsRead(ctx, notificationID); err != nil {
		return nil, fmt.Errorf("mark notification %s read: %w", notificationID, err)
	}
	n.IsRead = true
	return n, nil
}

func (s *service) MarkAllAsRead(ctx context.Context, userID string) (int, error) {
	return s.repo.MarkAllAsRead(ctx, userID)
}
