package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiter_Burst(t *testing.T) {
	l := NewRateLimiter(60, 2)
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return fixed }

	if !l.Allow("1.2.3.4") || !l.Allow("1.2.3.4") {
		t.Fatal("burst requests should be allowed")
	}
	if l.Allow("1.2.3.4") {
		t.Error("third request in the same instant should be limited")
	}
	if !l.Allow("5.6.7.8") {
		t.Error("other clients have their own bucket")
	}

	// 60/min refills one token per second.
	fixed = fixed.Add(time.Second)
	if !l.Allow("1.2.3.4") {
		t.Error("request after refill should be allowed")
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	l := NewRateLimiter(0, 1)
	for i := 0; i < 100; i++ {
		if !l.Allow("1.2.3.4") {
			t.Fatalf("request %d limited with limiting disabled", i)
		}
	}
}

func TestRateLimiter_EvictsIdleClients(t *testing.T) {
	l := NewRateLimiter(60, 1)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	l.Allow("1.2.3.4")
	now = now.Add(limiterIdleTTL + time.Minute)
	l.Allow("5.6.7.8")

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.limiters["1.2.3.4"]; ok {
		t.Error("idle client should have been evicted")
	}
	if len(l.limiters) != 1 {
		t.Errorf("limiters = %d, want 1", len(l.limiters))
	}
}

func TestRateLimiter_Handler(t *testing.T) {
	l := NewRateLimiter(1, 1)
	handler := l.Handler(okHandler())

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/transcript", nil)
		req.RemoteAddr = "9.9.9.9:1234"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	if w := send(); w.Code != http.StatusOK {
		t.Fatalf("first status = %d, want 200", w.Code)
	}
	w := send()
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, want 60", w.Header().Get("Retry-After"))
	}
}
