package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type stubLimiterStore struct {
	counts map[string]int64
	err    error
}

func (s *stubLimiterStore) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	if s.counts == nil {
		s.counts = map[string]int64{}
	}
	s.counts[key]++
	return s.counts[key], nil
}

func TestRateLimitBlocksAfterIPLimit(t *testing.T) {
	store := &stubLimiterStore{}
	policy := NewRateLimitPolicy("conditions", time.Minute, 2, 0)
	handler := RateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("request %d should pass, got %d", i+1, resp.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", resp.Code)
	}
}

func TestRateLimitCountsActorSeparately(t *testing.T) {
	store := &stubLimiterStore{}
	policy := NewRateLimitPolicy("conditions", time.Minute, 0, 1)
	handler := RateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRequest(http.MethodPost, "/", nil)
	first = first.WithContext(WithUserID(first.Context(), "driver-a"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, first)
	if resp.Code != http.StatusOK {
		t.Fatalf("first request should pass, got %d", resp.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/", nil)
	second = second.WithContext(WithUserID(second.Context(), "driver-a"))
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, second)
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for repeat actor, got %d", resp.Code)
	}

	other := httptest.NewRequest(http.MethodPost, "/", nil)
	other = other.WithContext(WithUserID(other.Context(), "driver-b"))
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, other)
	if resp.Code != http.StatusOK {
		t.Fatalf("different actor should pass, got %d", resp.Code)
	}
}

func TestRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	policy := NewRateLimitPolicy("noop", 0, 0, 0)
	handler := RateLimit(policy, &stubLimiterStore{}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected pass-through, got %d", resp.Code)
	}
}
