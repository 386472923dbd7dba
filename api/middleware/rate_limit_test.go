package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeRateStore struct {
	counts map[string]int64
	err    error
}

func (f *fakeRateStore) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	if f.err != nil {
		return false, 0, f.err
	}
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

func TestRateLimitBlocksAfterLimit(t *testing.T) {
	store := &fakeRateStore{counts: map[string]int64{}}
	policy := NewRateLimitPolicy("checkout", time.Minute, 2)
	handler := RateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/orders/checkout/", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		codes = append(codes, resp.Code)
	}
	require.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)
	require.Contains(t, store.counts, "checkout:10.0.0.1")
}

func TestRateLimitIgnoresClientSuppliedForwardedHops(t *testing.T) {
	store := &fakeRateStore{counts: map[string]int64{}}
	handler := RateLimit(NewRateLimitPolicy("checkout", time.Minute, 1), store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	codes := make([]int, 0, 2)
	for _, forged := range []string{"198.51.100.1", "198.51.100.2"} {
		req := httptest.NewRequest(http.MethodPost, "/orders/checkout/", nil)
		req.Header.Set("X-Forwarded-For", forged+", 203.0.113.9")
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		codes = append(codes, resp.Code)
	}
	require.Equal(t, []int{http.StatusCreated, http.StatusTooManyRequests}, codes)
	require.Equal(t, map[string]int64{"checkout:203.0.113.9": 2}, store.counts)
}

func TestRateLimitStoreFailure(t *testing.T) {
	store := &fakeRateStore{counts: map[string]int64{}, err: errors.New("redis down")}
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	closed := httptest.NewRecorder()
	RateLimit(NewRateLimitPolicy("checkout", time.Minute, 5), store, nil)(ok).
		ServeHTTP(closed, httptest.NewRequest(http.MethodPost, "/orders/checkout/", nil))
	require.Equal(t, http.StatusServiceUnavailable, closed.Code)

	open := httptest.NewRecorder()
	RateLimit(NewRateLimitPolicy("webhook", time.Minute, 5).FailOpen(), store, nil)(ok).
		ServeHTTP(open, httptest.NewRequest(http.MethodPost, "/orders/razorpay/webhook/", nil))
	require.Equal(t, http.StatusOK, open.Code)
}

func TestRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	store := &fakeRateStore{counts: map[string]int64{}}
	handler := RateLimit(NewRateLimitPolicy("webhook", 0, 0), store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	require.Empty(t, store.counts)
}
