package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gallery-live/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func put(t *testing.T, s *NotificationStore, id, recipient string, at time.Time) {
	t.Helper()
	require.NoError(t, s.Put(context.Background(), &domain.Notification{
		ID: id, Type: domain.TypeUpload, RecipientID: recipient, CreatedAt: at,
	}))
}

func ids(ns []domain.Notification) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.ID
	}
	return out
}

func TestNotificationStore_OrderedByCreatedAtThenID(t *testing.T) {
	s := NewNotificationStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	put(t, s, "03", "u1", base.Add(time.Second))
	put(t, s, "02", "u1", base)
	put(t, s, "01", "u1", base)
	put(t, s, "99", "u2", base)

	got, err := s.ListUnread(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"01", "02", "03"}, ids(got))
}

func TestNotificationStore_ListByRecipientKeepsNewest(t *testing.T) {
	s := NewNotificationStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c", "d"} {
		put(t, s, id, "u1", base.Add(time.Duration(i)*time.Second))
	}

	got, err := s.ListByRecipient(context.Background(), "u1", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, ids(got))
}

func TestNotificationStore_DuplicateIDConflicts(t *testing.T) {
	s := NewNotificationStore()
	put(t, s, "n1", "u1", time.Now())
	err := s.Put(context.Background(), &domain.Notification{ID: "n1", RecipientID: "u1"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestNotificationStore_ReadIsMonotonic(t *testing.T) {
	ctx := context.Background()
	s := NewNotificationStore()
	put(t, s, "n1", "u1", time.Now())
	put(t, s, "n2", "u1", time.Now())

	require.NoError(t, s.MarkAsRead(ctx, "n1"))
	require.NoError(t, s.MarkAsRead(ctx, "n1"))
	n, err := s.Get(ctx, "n1")
	require.NoError(t, err)
	assert.True(t, n.IsRead)

	count, err := s.CountUnread(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	changed, err := s.MarkAllAsRead(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	changed, err = s.MarkAllAsRead(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, changed)

	unread, err := s.ListUnread(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, unread)
}

func TestNotificationStore_MarkUnknown(t *testing.T) {
	err := NewNotificationStore().MarkAsRead(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNotificationStore_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewNotificationStore()
	put(t, s, "n1", "u1", time.Now())

	n, err := s.Get(ctx, "n1")
	require.NoError(t, err)
	n.IsRead = true

	again, err := s.Get(ctx, "n1")
	require.NoError(t, err)
	assert.False(t, again.IsRead)
}

func TestNotificationStore_ConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	s := NewNotificationStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Put(ctx, &domain.Notification{ID: fmt.Sprintf("n%02d", i), RecipientID: "u1"})
			_, _ = s.CountUnread(ctx, "u1")
		}(i)
	}
	wg.Wait()

	count, err := s.CountUnread(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 50, count)
}

func TestDirectory(t *testing.T) {
	ctx := context.Background()
	d := NewDirectory()
	d.SeedUsers(
		domain.User{UserID: "c1", Role: domain.RoleCurator},
		domain.User{UserID: "a1", Role: domain.RoleArtist},
		domain.User{UserID: "c2", Role: domain.RoleCurator},
	)
	d.SeedArtworks(domain.Artwork{ArtworkID: "art1", OwnerID: "a1"})

	got, err := d.UserIDsByRole(ctx, domain.RoleCurator)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, got)

	owner, err := d.ArtworkOwner(ctx, "art1")
	require.NoError(t, err)
	assert.Equal(t, "a1", owner)

	_, err = d.ArtworkOwner(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
