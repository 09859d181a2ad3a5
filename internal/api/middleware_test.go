package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRecoveryMiddleware(t *testing.T) {
	handler := recoveryMiddleware(discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(w, r)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if code := decodeErrorCode(t, w.Body); code != "internal_error" {
		t.Errorf("error code = %q, want internal_error", code)
	}
}

func TestRequestIDMiddleware_Generates(t *testing.T) {
	var seen string
	handler := requestIDMiddleware()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen, _ = requestIDFromContext(r.Context())
	}))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(w, r)

	if seen == "" {
		t.Error("request ID missing from context")
	}
	if got := w.Header().Get("X-Request-ID"); got != seen {
		t.Errorf("header X-Request-ID = %q, context = %q", got, seen)
	}
}

func TestRequestIDMiddleware_PreservesIncoming(t *testing.T) {
	handler := requestIDMiddleware()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Request-ID", "upstream-id")
	handler.ServeHTTP(w, r)

	if got := w.Header().Get("X-Request-ID"); got != "upstream-id" {
		t.Errorf("X-Request-ID = %q, want upstream-id", got)
	}
}

func TestLoggingWriter_CapturesStatusAndBytes(t *testing.T) {
	rec := httptest.NewRecorder()
	lw := &loggingWriter{w: rec}

	lw.WriteHeader(http.StatusTeapot)
	if _, err := lw.Write([]byte("short and stout")); err != nil {
		t.Fatalf("Write() = %v", err)
	}

	if lw.statusCode != http.StatusTeapot {
		t.Errorf("statusCode = %d, want %d", lw.statusCode, http.StatusTeapot)
	}
	if lw.bytesWritten != 15 {
		t.Errorf("bytesWritten = %d, want 15", lw.bytesWritten)
	}
}

func TestLoggingWriter_ImplicitOK(t *testing.T) {
	rec := httptest.NewRecorder()
	lw := &loggingWriter{w: rec}

	if _, err := lw.Write([]byte("x")); err != nil {
		t.Fatalf("Write() = %v", err)
	}
	if lw.statusCode != http.StatusOK {
		t.Errorf("statusCode = %d, want %d from implicit WriteHeader", lw.statusCode, http.StatusOK)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		realIP     string
		forwarded  string
		trustProxy bool
		want       string
	}{
		{
			name:       "direct connection",
			remoteAddr: "203.0.113.7:54321",
			want:       "203.0.113.7",
		},
		{
			name:       "proxy headers ignored without trust",
			remoteAddr: "10.0.0.1:1234",
			realIP:     "203.0.113.7",
			want:       "10.0.0.1",
		},
		{
			name:       "x-real-ip preferred when trusted",
			remoteAddr: "10.0.0.1:1234",
			realIP:     "203.0.113.7",
			forwarded:  "198.51.100.1",
			trustProxy: true,
			want:       "203.0.113.7",
		},
		{
			name:       "x-forwarded-for first hop",
			remoteAddr: "10.0.0.1:1234",
			forwarded:  "198.51.100.1, 10.0.0.2",
			trustProxy: true,
			want:       "198.51.100.1",
		},
		{
			name:       "non-IP header value falls through",
			remoteAddr: "10.0.0.1:1234",
			realIP:     "not-an-ip",
			trustProxy: true,
			want:       "10.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}

			if got := clientIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRateLimiter_BurstAndRefill(t *testing.T) {
	rl := newRateLimiter(100.0, 2)

	if !rl.allow("192.0.2.1") || !rl.allow("192.0.2.1") {
		t.Fatal("allow() should permit requests within burst")
	}
	if rl.allow("192.0.2.1") {
		t.Error("allow() should block after burst exhausted")
	}
	if !rl.allow("192.0.2.2") {
		t.Error("allow() should not share buckets across IPs")
	}

	time.Sleep(20 * time.Millisecond)
	if !rl.allow("192.0.2.1") {
		t.Error("allow() should permit after token refill")
	}
}

func TestRateLimitMiddleware_Returns429(t *testing.T) {
	rl := newRateLimiter(0.001, 1)
	handler := rateLimitMiddleware(rl, false, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:12345"

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want %d", w.Code, http.StatusOK)
	}

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing from 429 response")
	}
}
