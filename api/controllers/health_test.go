package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthLive(t *testing.T) {
	resp := httptest.NewRecorder()
	HealthLive("dev")(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "dev", resp.Header().Get(envHeader))
	require.JSONEq(t, `{"data":{"status":"live"}}`, resp.Body.String())
}

func TestHealthReadyReportsFailedDependency(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	resp := httptest.NewRecorder()
	HealthReady("dev", nil, Dependency{Name: "database", Pinger: ok}, Dependency{Name: "redis", Pinger: down})(
		resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	require.Contains(t, resp.Body.String(), `"redis":"connection refused"`)
}

func TestHealthReadyOK(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	resp := httptest.NewRecorder()
	HealthReady("dev", nil, Dependency{Name: "database", Pinger: ok})(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, resp.Code)
}
