package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gallery-live/internal/application/notification"
	"github.com/gallery-live/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockDispatcher struct{ mock.Mock }

func (m *mockDispatcher) Dispatch(ctx context.Context, ev domain.DomainEvent) (notification.Result, error) {
	args := m.Called(ctx, ev)
	return args.Get(0).(notification.Result), args.Error(1)
}

func postEvent(h *EventHandler, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.Ingest(rr, httptest.NewRequest(http.MethodPost, "/v1/events", bytes.NewBufferString(body)))
	return rr
}

func TestIngest_DecodesTypedEvent(t *testing.T) {
	d := &mockDispatcher{}
	want := domain.ArtworkApproved{ArtworkID: "art1", Title: "Dusk", CuratorID: "cur1", CuratorName: "Mo"}
	d.On("Dispatch", mock.Anything, want).Return(notification.Result{Recipients: 1, Stored: 1, Pushed: 2}, nil)

	rr := postEvent(NewEventHandler(d, nil),
		`{"type":"approved","artwork_id":"art1","title":"Dusk","curator_id":"cur1","curator_name":"Mo"}`)

	assert.Equal(t, http.StatusAccepted, rr.Code)
	var env DispatchEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	assert.Equal(t, 1, env.Result.Stored)
	assert.Equal(t, 2, env.Result.Pushed)
	d.AssertExpectations(t)
}

func TestIngest_UnknownType(t *testing.T) {
	d := &mockDispatcher{}
	rr := postEvent(NewEventHandler(d, nil), `{"type":"liked","artwork_id":"art1"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	d.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
}

func TestIngest_InvalidJSON(t *testing.T) {
	rr := postEvent(NewEventHandler(&mockDispatcher{}, nil), `not-json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestIngest_ValidationFailure(t *testing.T) {
	d := &mockDispatcher{}
	rr := postEvent(NewEventHandler(d, nil), `{"type":"comment_added","artwork_id":"art1"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	d.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
}

func TestIngest_DurabilityFailureIsBadGateway(t *testing.T) {
	d := &mockDispatcher{}
	d.On("Dispatch", mock.Anything, mock.Anything).
		Return(notification.Result{Recipients: 2, Stored: 1, Failed: 1}, fmt.Errorf("%w: recipient u2: timeout", domain.ErrDurability))

	rr := postEvent(NewEventHandler(d, nil),
		`{"type":"exhibition_created","exhibition_id":"ex1","title":"Light","curator_id":"cur1","curator_name":"Mo"}`)

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	var env DispatchEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	assert.Equal(t, 1, env.Result.Failed)
	assert.Contains(t, env.Error, "recipient u2")
}

func TestIngest_UnknownArtworkIsNotFound(t *testing.T) {
	d := &mockDispatcher{}
	d.On("Dispatch", mock.Anything, mock.Anything).Return(notification.Result{}, fmt.Errorf("resolve owner: %w", domain.ErrNotFound))

	rr := postEvent(NewEventHandler(d, nil),
		`{"type":"comment_added","comment_id":"c1","artwork_id":"gone","author_id":"u9","author_name":"Sam","body":"hi"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestIngest_UnexpectedFailureHidesDetail(t *testing.T) {
	d := &mockDispatcher{}
	d.On("Dispatch", mock.Anything, mock.Anything).
		Return(notification.Result{}, fmt.Errorf("resolve role curator: dial tcp 10.0.3.7:5432: connection refused"))

	rr := postEvent(NewEventHandler(d, nil),
		`{"type":"exhibition_created","exhibition_id":"ex1","title":"Light","curator_id":"cur1","curator_name":"Mo"}`)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	body := rr.Body.String()
	assert.NotContains(t, body, "10.0.3.7")
	var env DispatchEnvelope
	require.NoError(t, json.Unmarshal([]byte(body), &env))
	assert.Equal(t, "internal server error", env.Error)
}
