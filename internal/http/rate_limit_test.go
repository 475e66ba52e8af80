package httpx

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestMemoryRateLimiterWindow(t *testing.T) {
	var mu sync.Mutex
	now := time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	rl := newMemoryRateLimiter(clock)
	defer rl.Close()

	for i := 1; i <= 3; i++ {
		d := rl.Allow("k", 3, time.Minute)
		if !d.allowed || d.count != i {
			t.Fatalf("call %d: unexpected decision %+v", i, d)
		}
	}
	if d := rl.Allow("k", 3, time.Minute); d.allowed {
		t.Fatalf("expected fourth call rejected, got %+v", d)
	}
	if d := rl.Allow("other", 3, time.Minute); !d.allowed {
		t.Fatal("keys must be counted separately")
	}

	mu.Lock()
	now = now.Add(time.Minute)
	mu.Unlock()
	if d := rl.Allow("k", 3, time.Minute); !d.allowed || d.count != 1 {
		t.Fatalf("expected a fresh window, got %+v", d)
	}

	rl.cleanup(now.Add(2 * time.Minute))
	rl.mu.Lock()
	left := len(rl.entries)
	rl.mu.Unlock()
	if left != 0 {
		t.Fatalf("expected expired entries swept, %d left", left)
	}
}

func TestLoginRateLimited(t *testing.T) {
	limiter := newRateLimiterStub()
	reset := time.Unix(1_950_000_000, 0)
	limiter.allowFn = func(key string, limit int, window time.Duration) rateDecision {
		return rateDecision{allowed: false, count: limit, windowEnd: reset}
	}
	env := setupRouter(t, limiter)

	rr := env.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "a@example.com", "password": "whatever1"})
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if got := rr.Header().Get("X-RateLimit-Limit"); got != "12" {
		t.Fatalf("unexpected limit header %q", got)
	}
	if got := rr.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Fatalf("unexpected remaining header %q", got)
	}
	if got := rr.Header().Get("X-RateLimit-Reset"); got != "1950000000" {
		t.Fatalf("unexpected reset header %q", got)
	}

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	if len(limiter.calls) != 1 || !strings.HasPrefix(limiter.calls[0], "/auth/login|ip:") {
		t.Fatalf("unexpected limiter calls %v", limiter.calls)
	}
}

func TestAuthenticatedRoutesLimitPerUser(t *testing.T) {
	limiter := newRateLimiterStub()
	env := setupRouter(t, limiter)
	token := env.signup(t, "ada@example.com")

	rr := env.do(t, http.MethodGet, "/teams", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := rr.Header().Get("X-RateLimit-Remaining"); got != "119" {
		t.Fatalf("unexpected remaining header %q", got)
	}

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	last := limiter.calls[len(limiter.calls)-1]
	if !strings.HasPrefix(last, "/teams|user:") {
		t.Fatalf("expected per-user key, got %q", last)
	}
}

func TestClientIP(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	if got := clientIP(req); got != "10.0.0.1" {
		t.Fatalf("unexpected ip %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.7" {
		t.Fatalf("unexpected forwarded ip %q", got)
	}
	if got := rateLimitKeyIP(req); got != "ip:10.0.0.1" {
		t.Fatalf("rate limit key must ignore X-Forwarded-For, got %q", got)
	}
	if got := rateMetricKey("user:abc"); got != "user" {
		t.Fatalf("unexpected metric key %q", got)
	}
}

func TestSignupLimitIgnoresForwardedHeader(t *testing.T) {
	env := setupRouter(t, nil)

	limited := 0
	for i := 0; i < 20; i++ {
		body := fmt.Sprintf(`{"full_name":"Ada","email":"ada%d@example.com","password":"correct horse"}`, i)
		req := httptest.NewRequest(http.MethodPost, "/auth/signup", strings.NewReader(body))
		req.RemoteAddr = "198.51.100.9:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		rr := httptest.NewRecorder()
		env.router.ServeHTTP(rr, req)
		if rr.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	if limited != 20-rateLimitSignup {
		t.Fatalf("expected %d rejected signups, got %d", 20-rateLimitSignup, limited)
	}
}
