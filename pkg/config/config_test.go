package config

import (
	"testing"
	"time"
)

func TestGetHelpersFallBack(t *testing.T) {
	t.Setenv("TEMPO_TEST_INT", "nope")
	t.Setenv("TEMPO_TEST_BOOL", "maybe")
	t.Setenv("TEMPO_TEST_DURATION", "soon")

	if got := GetInt("TEMPO_TEST_INT", 7); got != 7 {
		t.Fatalf("expected fallback int, got %d", got)
	}
	if got := GetBool("TEMPO_TEST_BOOL", true); !got {
		t.Fatal("expected fallback bool")
	}
	if got := GetDuration("TEMPO_TEST_DURATION", time.Second); got != time.Second {
		t.Fatalf("expected fallback duration, got %s", got)
	}
	if got := GetString("TEMPO_TEST_UNSET", "x"); got != "x" {
		t.Fatalf("expected fallback string, got %q", got)
	}
}

func TestLoadAPIConfigReadsEnvironment(t *testing.T) {
	t.Setenv("API_ADDR", ":9999")
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "5")
	t.Setenv("DASHBOARD_FETCH_TIMEOUT_SECONDS", "3")
	t.Setenv("SHUTDOWN_TIMEOUT", "1m")
	t.Setenv("APP_ENV", "production")

	cfg := LoadAPIConfig()
	if cfg.Addr != ":9999" {
		t.Fatalf("unexpected addr %q", cfg.Addr)
	}
	if cfg.AccessTokenTTL != 5*time.Minute {
		t.Fatalf("unexpected access ttl %s", cfg.AccessTokenTTL)
	}
	if cfg.DashboardFetchTimeout != 3*time.Second {
		t.Fatalf("unexpected fetch timeout %s", cfg.DashboardFetchTimeout)
	}
	if cfg.ShutdownTimeout != time.Minute {
		t.Fatalf("unexpected shutdown timeout %s", cfg.ShutdownTimeout)
	}
	if !cfg.Production() {
		t.Fatal("expected production environment")
	}
}
