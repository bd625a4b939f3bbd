package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gallery-live/internal/presence"
	"github.com/stretchr/testify/assert"
)

type staticPresence struct {
	online map[string]int
}

func (p staticPresence) IsOnline(userID string) bool { return p.online[userID] > 0 }
func (p staticPresence) Connections(userID string) int { return p.online[userID] }
func (p staticPresence) Stats() presence.Stats { return presence.Stats{Connections: 2, OnlineUsers: 1} }

func TestPresence_Get(t *testing.T) {
	h := NewPresenceHandler(staticPresence{online: map[string]int{"u1": 2}})

	rr := httptest.NewRecorder()
	h.Get(rr, withURLParam(httptest.NewRequest(http.MethodGet, "/v1/presence/u1", nil), "userId", "u1"))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"user_id":"u1","online":true,"connections":2}`, rr.Body.String())

	rr = httptest.NewRecorder()
	h.Get(rr, withURLParam(httptest.NewRequest(http.MethodGet, "/v1/presence/u2", nil), "userId", "u2"))
	assert.JSONEq(t, `{"user_id":"u2","online":false,"connections":0}`, rr.Body.String())
}

func TestPresence_Stats(t *testing.T) {
	h := NewPresenceHandler(staticPresence{})
	rr := httptest.NewRecorder()
	h.Stats(rr, httptest.NewRequest(http.MethodGet, "/v1/presence", nil))
	assert.JSONEq(t, `{"connections":2,"online_users":1,"rooms":0}`, rr.Body.String())
}
