package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Success(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.App.Env != "production" {
		t.Fatalf("expected App.Env to be production, got %q", cfg.App.Env)
	}

	if cfg.Redis.URL != "redis://localhost:6379/0" {
		t.Fatalf("unexpected Redis URL: %q", cfg.Redis.URL)
	}

	if got := cfg.Poller.Interval; got != 4*time.Second {
		t.Fatalf("expected default poll interval 4s, got %v", got)
	}

	if cfg.Backend.NativeCurrency != "USDL" {
		t.Fatalf("unexpected native currency %q", cfg.Backend.NativeCurrency)
	}

	if cfg.DB.Driver != "sqlite" {
		t.Fatalf("expected sqlite default driver, got %q", cfg.DB.Driver)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv(EnvAppEnv); err != nil {
		t.Fatalf("failed to unset %s: %v", EnvAppEnv, err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected missing required env to return an error")
	}
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv("LUMAPAY_DB_DRIVER", "oracle")

	if _, err := Load(); err == nil {
		t.Fatal("expected unknown db driver to return an error")
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv(EnvAppEnv, "production")
	t.Setenv(EnvPort, "8081")
	t.Setenv("LUMAPAY_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("LUMAPAY_JWT_SECRET", "test-secret")
	t.Setenv("LUMAPAY_JWT_ISSUER", "lumapay-pos")
	t.Setenv("LUMAPAY_BACKEND_API_KEY", "sk_test_123")
	t.Setenv("LUMAPAY_TERMINAL_ID", "term-1")
	t.Setenv("LUMAPAY_TERMINAL_SECRET", "hunter2")
}
