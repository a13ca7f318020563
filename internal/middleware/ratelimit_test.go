package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAllowWindow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute, []string{"10.0.0.9"}, testLogger())
	now := time.Now()

	if !rl.allowAt("1.1.1.1", now) || !rl.allowAt("1.1.1.1", now) {
		t.Fatal("first two requests should pass")
	}
	if rl.allowAt("1.1.1.1", now) {
		t.Error("third request in the window should be blocked")
	}
	if !rl.allowAt("2.2.2.2", now) {
		t.Error("other IPs have their own bucket")
	}
	if !rl.allowAt("1.1.1.1", now.Add(61*time.Second)) {
		t.Error("bucket should reset after the window")
	}

	for i := 0; i < 5; i++ {
		if !rl.allowAt("10.0.0.9", now) {
			t.Fatal("whitelisted IP was blocked")
		}
	}

	if got := rl.Stats().Blocked; got != 1 {
		t.Errorf("blocked = %d, want 1", got)
	}
}

func TestZeroRateDisablesLimiting(t *testing.T) {
	rl := NewRateLimiter(0, time.Minute, nil, testLogger())
	for i := 0; i < 10; i++ {
		if !rl.Allow("1.1.1.1") {
			t.Fatal("limiter with zero rate should allow everything")
		}
	}
}

func TestEvict(t *testing.T) {
	rl := NewRateLimiter(1, time.Second, nil, testLogger())
	now := time.Now()
	rl.allowAt("1.1.1.1", now)
	rl.allowAt("2.2.2.2", now.Add(2*time.Second))

	if n := rl.evict(now.Add(3 * time.Second)); n != 1 {
		t.Errorf("evicted %d buckets, want 1", n)
	}
	if rl.Stats().TrackedIPs != 1 {
		t.Errorf("tracked = %d, want 1", rl.Stats().TrackedIPs)
	}
}

func TestMiddleware(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute, nil, testLogger())
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 2)
	for i := range codes {
		req := httptest.NewRequest(http.MethodGet, "/v1/routes", nil)
		req.RemoteAddr = "192.0.2.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes[i] = rec.Code
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]string
		remote string
		want   string
	}{
		{"forwarded", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "10.0.0.2:80", "203.0.113.5"},
		{"forwarded with port", map[string]string{"X-Forwarded-For": "203.0.113.5:1234"}, "10.0.0.2:80", "203.0.113.5"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.7"}, "10.0.0.2:80", "198.51.100.7"},
		{"remote addr", nil, "192.0.2.1:5555", "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			if got := ClientIP(req); got != tt.want {
				t.Errorf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}
