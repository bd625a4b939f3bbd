// Package memory holds process-local stores used by the memory driver and in tests.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/gallery-live/internal/domain"
)

// NotificationStore keeps notifications in a map guarded by a mutex.
type NotificationStore struct {
	mu      sync.RWMutex
	byID    map[string]*domain.Notification
	byOwner map[string][]string // recipientID -> ids in insertion order
}

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{
		byID:    make(map[string]*domain.Notification),
		byOwner: make(map[string][]string),
	}
}

func (s *NotificationStore) Put(_ context.Context, n *domain.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[n.ID]; ok {
		return fmt.Errorf("notification %s: %w", n.ID, domain.ErrConflict)
	}
	cp := *n
	s.byID[n.ID] = &cp
	s.byOwner[n.RecipientID] = append(s.byOwner[n.RecipientID], n.ID)
	return nil
}

func (s *NotificationStore) Get(_ context.Context, notificationID string) (*domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.byID[notificationID]
	if !ok {
		return nil, fmt.Errorf("notification %s: %w", notificationID, domain.ErrNotFound)
	}
	cp := *n
	return &cp, nil
}

func (s *NotificationStore) ListUnread(_ context.Context, recipientID string) ([]domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Notification, 0)
	for _, n := range s.sortedLocked(recipientID) {
		if !n.IsRead {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *NotificationStore) ListByRecipient(_ context.Context, recipientID string, limit int) ([]domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.sortedLocked(recipientID)
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

func (s *NotificationStore) MarkAsRead(_ context.Context, notificationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.byID[notificationID]
	if !ok {
		return fmt.Errorf("notification %s: %w", notificationID, domain.ErrNotFound)
	}
	n.IsRead = true
	return nil
}

func (s *NotificationStore) MarkAllAsRead(_ context.Context, recipientID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for _, id := range s.byOwner[recipientID] {
		if n := s.byID[id]; !n.IsRead {
			n.IsRead = true
			changed++
		}
	}
	return changed, nil
}

func (s *NotificationStore) CountUnread(_ context.Context, recipientID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, id := range s.byOwner[recipientID] {
		if !s.byID[id].IsRead {
			count++
		}
	}
	return count, nil
}

// sortedLocked returns copies of the recipient's records ordered by created_at, then id.
func (s *NotificationStore) sortedLocked(recipientID string) []domain.Notification {
	ids := s.byOwner[recipientID]
	out := make([]domain.Notification, 0, len(ids))
	for _, id := range ids {
		out = append(out, *s.byID[id])
	}
	slices.SortStableFunc(out, func(a, b domain.Notification) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}
