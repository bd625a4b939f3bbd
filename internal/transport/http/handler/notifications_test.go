package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gallery-live/internal/domain"
	jwtinfra "github.com/gallery-live/internal/infrastructure/jwt"
	"github.com/gallery-live/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mock ---

type mockNotificationSvc struct{ mock.Mock }

func (m *mockNotificationSvc) ListUnread(ctx context.Context, userID string) ([]domain.Notification, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Notification), args.Error(1)
}
func (m *mockNotificationSvc) ListAll(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	args := m.Called(ctx, userID, limit)
	return args.Get(0).([]domain.Notification), args.Error(1)
}
func (m *mockNotificationSvc) CountUnread(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}
func (m *mockNotificationSvc) MarkAsRead(ctx context.Context, notificationID, userID string) (*domain.Notification, error) {
	args := m.Called(ctx, notificationID, userID)
	if n, _ := args.Get(0).(*domain.Notification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockNotificationSvc) MarkAllAsRead(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

// --- helpers ---

// asUser attaches claims for userID the way middleware.Auth would.
func asUser(r *http.Request, userID, role string) *http.Request {
	return r.WithContext(middleware.WithClaims(r.Context(), &jwtinfra.Claims{UserID: userID, Role: role}))
}

// withURLParam injects a chi URL param into the request context.
func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// --- tests ---

func TestListUnread_MissingClaims(t *testing.T) {
	h := NewNotificationHandler(&mockNotificationSvc{})
	rr := httptest.NewRecorder()
	h.ListUnread(rr, httptest.NewRequest(http.MethodGet, "/v1/notifications/unread", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestListUnread_ReturnsCallerRecords(t *testing.T) {
	svc := &mockNotificationSvc{}
	svc.On("ListUnread", mock.Anything, "u1").Return([]domain.Notification{{ID: "n1", RecipientID: "u1"}}, nil)
	h := NewNotificationHandler(svc)

	rr := httptest.NewRecorder()
	h.ListUnread(rr, asUser(httptest.NewRequest(http.MethodGet, "/v1/notifications/unread", nil), "u1", "artist"))

	assert.Equal(t, http.StatusOK, rr.Code)
	var got []domain.Notification
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "n1", got[0].ID)
	svc.AssertExpectations(t)
}

func TestListAll_ParsesLimit(t *testing.T) {
	svc := &mockNotificationSvc{}
	svc.On("ListAll", mock.Anything, "u1", 20).Return([]domain.Notification{}, nil)
	h := NewNotificationHandler(svc)

	rr := httptest.NewRecorder()
	h.ListAll(rr, asUser(httptest.NewRequest(http.MethodGet, "/v1/notifications?limit=20", nil), "u1", "artist"))
	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestListAll_BadLimit(t *testing.T) {
	h := NewNotificationHandler(&mockNotificationSvc{})
	rr := httptest.NewRecorder()
	h.ListAll(rr, asUser(httptest.NewRequest(http.MethodGet, "/v1/notifications?limit=abc", nil), "u1", "artist"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListAll_LimitTooLarge(t *testing.T) {
	svc := &mockNotificationSvc{}
	svc.On("ListAll", mock.Anything, "u1", 500).Return([]domain.Notification(nil), domain.ErrBadRequest)
	h := NewNotificationHandler(svc)

	rr := httptest.NewRecorder()
	h.ListAll(rr, asUser(httptest.NewRequest(http.MethodGet, "/v1/notifications?limit=500", nil), "u1", "artist"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCountUnread(t *testing.T) {
	svc := &mockNotificationSvc{}
	svc.On("CountUnread", mock.Anything, "u1").Return(4, nil)
	h := NewNotificationHandler(svc)

	rr := httptest.NewRecorder()
	h.CountUnread(rr, asUser(httptest.NewRequest(http.MethodGet, "/v1/notifications/unread/count", nil), "u1", "artist"))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"count":4}`, rr.Body.String())
}

func TestMarkAsRead_Forbidden(t *testing.T) {
	svc := &mockNotificationSvc{}
	svc.On("MarkAsRead", mock.Anything, "n1", "u1").Return(nil, domain.ErrForbidden)
	h := NewNotificationHandler(svc)

	r := withURLParam(httptest.NewRequest(http.MethodPut, "/v1/notifications/n1/read", nil), "id", "n1")
	rr := httptest.NewRecorder()
	h.MarkAsRead(rr, asUser(r, "u1", "artist"))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestMarkAsRead_NotFound(t *testing.T) {
	svc := &mockNotificationSvc{}
	svc.On("MarkAsRead", mock.Anything, "nope", "u1").Return(nil, domain.ErrNotFound)
	h := NewNotificationHandler(svc)

	r := withURLParam(httptest.NewRequest(http.MethodPut, "/v1/notifications/nope/read", nil), "id", "nope")
	rr := httptest.NewRecorder()
	h.MarkAsRead(rr, asUser(r, "u1", "artist"))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMarkAsRead_Success(t *testing.T) {
	svc := &mockNotificationSvc{}
	svc.On("MarkAsRead", mock.Anything, "n1", "u1").Return(&domain.Notification{ID: "n1", RecipientID: "u1", IsRead: true}, nil)
	h := NewNotificationHandler(svc)

	r := withURLParam(httptest.NewRequest(http.MethodPut, "/v1/notifications/n1/read", nil), "id", "n1")
	rr := httptest.NewRecorder()
	h.MarkAsRead(rr, asUser(r, "u1", "artist"))

	assert.Equal(t, http.StatusOK, rr.Code)
	var got domain.Notification
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&got))
	assert.True(t, got.IsRead)
}

func TestMarkAllAsRead(t *testing.T) {
	svc := &mockNotificationSvc{}
	svc.On("MarkAllAsRead", mock.Anything, "u1").Return(2, nil)
	h := NewNotificationHandler(svc)

	rr := httptest.NewRecorder()
	h.MarkAllAsRead(rr, asUser(httptest.NewRequest(http.MethodPut, "/v1/notifications/read-all", nil), "u1", "artist"))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"count":2}`, rr.Body.String())
}

func TestHTTPError_HidesInternalDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	httpError(rr, errors.New("dial tcp 10.0.0.5:5432: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "10.0.0.5")
}
