package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealth_Ping(t *testing.T) {
	h := NewHealthHandler(nil)
	rr := httptest.NewRecorder()
	h.Ping(rr, withURLParam(httptest.NewRequest(http.MethodGet, "/v1/health-check/ping", nil), "action", "ping"))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"message":"pong"}`, rr.Body.String())
}

func TestHealth_UnknownAction(t *testing.T) {
	h := NewHealthHandler(nil)
	rr := httptest.NewRecorder()
	h.Ping(rr, withURLParam(httptest.NewRequest(http.MethodGet, "/v1/health-check/nope", nil), "action", "nope"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHealth_Ready(t *testing.T) {
	ok := NewHealthHandler(map[string]Check{"store": func(context.Context) error { return nil }})
	rr := httptest.NewRecorder()
	ok.Ping(rr, withURLParam(httptest.NewRequest(http.MethodGet, "/v1/health-check/ready", nil), "action", "ready"))
	assert.Equal(t, http.StatusOK, rr.Code)

	bad := NewHealthHandler(map[string]Check{"redis": func(context.Context) error { return errors.New("refused") }})
	rr = httptest.NewRecorder()
	bad.Ping(rr, withURLParam(httptest.NewRequest(http.MethodGet, "/v1/health-check/ready", nil), "action", "ready"))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "redis")
}
