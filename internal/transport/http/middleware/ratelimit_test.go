package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"leavedesk/internal/domain/auth"
)

func TestRateLimitKeysByPrincipalBeforeIP(t *testing.T) {
	limited := RateLimit(1, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	userCtx := context.WithValue(context.Background(), ctxKeyPrincipal, auth.Principal{
		ID:   "emp-1",
		Role: auth.RoleEmployee,
	})

	first := httptest.NewRequest(http.MethodPost, "/api/v1/leave/requests", nil).WithContext(userCtx)
	first.RemoteAddr = "198.51.100.11:2222"
	firstRec := httptest.NewRecorder()
	limited.ServeHTTP(firstRec, first)
	if firstRec.Code != http.StatusNoContent {
		t.Fatalf("expected first request to pass, got %d", firstRec.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/api/v1/leave/requests", nil).WithContext(userCtx)
	second.RemoteAddr = "203.0.113.9:3333"
	secondRec := httptest.NewRecorder()
	limited.ServeHTTP(secondRec, second)
	if secondRec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request from same principal to be limited, got %d", secondRec.Code)
	}

	other := httptest.NewRequest(http.MethodPost, "/api/v1/leave/requests", nil)
	other.RemoteAddr = "203.0.113.9:3333"
	otherRec := httptest.NewRecorder()
	limited.ServeHTTP(otherRec, other)
	if otherRec.Code != http.StatusNoContent {
		t.Fatalf("expected anonymous request keyed by IP to pass, got %d", otherRec.Code)
	}
}

func TestRateLimitWindowResets(t *testing.T) {
	rl := &rateLimiter{
		limit:   1,
		window:  time.Millisecond,
		keyFn:   clientIPKey,
		clients: map[string]*rateBucket{},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/leave/types", nil)
	req.RemoteAddr = "198.51.100.20:1000"

	if !rl.enforce(httptest.NewRecorder(), req) {
		t.Fatal("expected first request to pass")
	}
	if rl.enforce(httptest.NewRecorder(), req) {
		t.Fatal("expected second request in the window to be limited")
	}

	time.Sleep(2 * time.Millisecond)
	if !rl.enforce(httptest.NewRecorder(), req) {
		t.Fatal("expected request after window reset to pass")
	}
}
