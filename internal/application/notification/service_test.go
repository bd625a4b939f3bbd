package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/gallery-live/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockRepo struct{ mock.Mock }

func (m *mockRepo) Put(ctx context.Context, n *domain.Notification) error {
	return m.Called(ctx, n).Error(0)
}
func (m *mockRepo) Get(ctx context.Context, notificationID string) (*domain.Notification, error) {
	args := m.Called(ctx, notificationID)
	if n, _ := args.Get(0).(*domain.Notification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockRepo) ListUnread(ctx context.Context, recipientID string) ([]domain.Notification, error) {
	args := m.Called(ctx, recipientID)
	return args.Get(0).([]domain.Notification), args.Error(1)
}
func (m *mockRepo) ListByRecipient(ctx context.Context, recipientID string, limit int) ([]domain.Notification, error) {
	args := m.Called(ctx, recipientID, limit)
	return args.Get(0).([]domain.Notification), args.Error(1)
}
func (m *mockRepo) MarkAsRead(ctx context.Context, notificationID string) error {
	return m.Called(ctx, notificationID).Error(0)
}
func (m *mockRepo) MarkAllAsRead(ctx context.Context, recipientID string) (int, error) {
	args := m.Called(ctx, recipientID)
	return args.Int(0), args.Error(1)
}
func (m *mockRepo) CountUnread(ctx context.Context, recipientID string) (int, error) {
	args := m.Called(ctx, recipientID)
	return args.Int(0), args.Error(1)
}

// --- tests ---

func TestListAll_DefaultLimit(t *testing.T) {
	repo := &mockRepo{}
	repo.On("ListByRecipient", mock.Anything, "u1", domain.DefaultListLimit).Return([]domain.Notification{{ID: "n1"}}, nil)

	got, err := NewService(repo).ListAll(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	repo.AssertExpectations(t)
}

func TestListAll_LimitTooLarge(t *testing.T) {
	repo := &mockRepo{}
	_, err := NewService(repo).ListAll(context.Background(), "u1", domain.MaxListLimit+1)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
	repo.AssertNotCalled(t, "ListByRecipient", mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkAsRead_Success(t *testing.T) {
	repo := &mockRepo{}
	repo.On("Get", mock.Anything, "n1").Return(&domain.Notification{ID: "n1", RecipientID: "u1"}, nil)
	repo.On("MarkAsRead", mock.Anything, "n1").Return(nil)

	n, err := NewService(repo).MarkAsRead(context.Background(), "n1", "u1")
	require.NoError(t, err)
	assert.True(t, n.IsRead)
	repo.AssertExpectations(t)
}

func TestMarkAsRead_AlreadyReadSkipsWrite(t *testing.T) {
	repo := &mockRepo{}
	repo.On("Get", mock.Anything, "n1").Return(&domain.Notification{ID: "n1", RecipientID: "u1", IsRead: true}, nil)

	n, err := NewService(repo).MarkAsRead(context.Background(), "n1", "u1")
	require.NoError(t, err)
	assert.True(t, n.IsRead)
	repo.AssertNotCalled(t, "MarkAsRead", mock.Anything, mock.Anything)
}

func TestMarkAsRead_NotOwner(t *testing.T) {
	repo := &mockRepo{}
	repo.On("Get", mock.Anything, "n1").Return(&domain.Notification{ID: "n1", RecipientID: "u2"}, nil)

	_, err := NewService(repo).MarkAsRead(context.Background(), "n1", "u1")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	repo.AssertNotCalled(t, "MarkAsRead", mock.Anything, mock.Anything)
}

func TestMarkAsRead_NotFound(t *testing.T) {
	repo := &mockRepo{}
	repo.On("Get", mock.Anything, "missing").Return(nil, domain.ErrNotFound)

	_, err := NewService(repo).MarkAsRead(context.Background(), "missing", "u1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMarkAsRead_StoreError(t *testing.T) {
	repo := &mockRepo{}
	repo.On("Get", mock.Anything, "n1").Return(&domain.Notification{ID: "n1", RecipientID: "u1"}, nil)
	repo.On("MarkAsRead", mock.Anything, "n1").Return(errors.New("throttled"))

	_, err := NewService(repo).MarkAsRead(context.Background(), "n1", "u1")
	assert.Error(t, err)
}

func TestMarkAllAsRead(t *testing.T) {
	repo := &mockRepo{}
	repo.On("MarkAllAsRead", mock.Anything, "u1").Return(3, nil)

	n, err := NewService(repo).MarkAllAsRead(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestCountUnread(t *testing.T) {
	repo := &mockRepo{}
	repo.On("CountUnread", mock.Anything, "u1").Return(7, nil)

	n, err := NewService(repo).CountUnread(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}
