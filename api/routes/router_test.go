package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/andreivasquez/lumapay-pos/api/controllers"
	"github.com/andreivasquez/lumapay-pos/internal/notify"
	"github.com/andreivasquez/lumapay-pos/internal/settings"
	"github.com/andreivasquez/lumapay-pos/pkg/auth"
	"github.com/andreivasquez/lumapay-pos/pkg/config"
	"github.com/andreivasquez/lumapay-pos/pkg/logger"
)

type stubSettingsService struct{}

func (stubSettingsService) Get(ctx context.Context) (settings.PosSettings, error) {
	return settings.Defaults(), nil
}

func (stubSettingsService) Put(ctx context.Context, prefs settings.PosSettings) error {
	return nil
}

type stubToggles struct{}

func (stubToggles) SoundEnabled(ctx context.Context) bool  { return false }
func (stubToggles) HapticEnabled(ctx context.Context) bool { return false }

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "router-test-secret",
			Issuer:            "lumapay-pos-test",
			ExpirationMinutes: 60,
		},
		Terminal: config.TerminalConfig{
			ID:          "term-1",
			Secret:      "terminal-secret",
			DefaultMode: "sandbox",
		},
		RateLimit: config.RateLimitConfig{},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	logg := logger.New(logger.Options{Level: zerolog.Disabled})

	dispatcher, err := notify.NewDispatcher(notify.NewVisualChannel(5), nil, nil, stubToggles{}, logg)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	return NewRouter(Deps{
		Config:   cfg,
		Logger:   logg,
		Settings: stubSettingsService{},
		Notifier: dispatcher,
		ReadyChecks: []controllers.ReadyCheck{
			{Name: "database", Ping: func(ctx context.Context) error { return nil }},
		},
	})
}

func buildToken(t *testing.T, cfg *config.Config) string {
	t.Helper()
	token, err := auth.MintAccessToken(cfg.JWT, time.Now(), auth.AccessTokenPayload{
		TerminalID: cfg.Terminal.ID,
		JTI:        uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthRoutesArePublic(t *testing.T) {
	router := newTestRouter(t, testConfig())

	for _, path := range []string{"/health/live", "/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("expected 200 for %s got %d", path, resp.Code)
		}
	}
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/pos/state", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestPrivateGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/settings/", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for settings got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestLoginRouteIsWired(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	body := `{"terminal_id":"term-1","secret":"terminal-secret"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for login got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestMetricsRouteRequiresRegistry(t *testing.T) {
	router := newTestRouter(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without registry got %d", resp.Code)
	}
}

func TestMetricsRouteServesRegistry(t *testing.T) {
	cfg := testConfig()
	logg := logger.New(logger.Options{Level: zerolog.Disabled})
	dispatcher, err := notify.NewDispatcher(notify.NewVisualChannel(5), nil, nil, stubToggles{}, logg)
	if err != nil {
		t.Fatalf("new dispatcher: %v", err)
	}

	router := NewRouter(Deps{
		Config:   cfg,
		Logger:   logg,
		Registry: prometheus.NewRegistry(),
		Settings: stubSettingsService{},
		Notifier: dispatcher,
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for metrics got %d", resp.Code)
	}
}

func TestNotificationsRouteReturnsRecent(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for notifications got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "items") {
		t.Fatalf("expected items payload, got %s", resp.Body.String())
	}
}
