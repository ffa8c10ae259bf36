package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/andreivasquez/lumapay-pos/internal/offline"
	"github.com/andreivasquez/lumapay-pos/internal/session"
	"github.com/andreivasquez/lumapay-pos/internal/settings"
	"github.com/andreivasquez/lumapay-pos/pkg/config"
	"github.com/andreivasquez/lumapay-pos/pkg/enums"
	pkgerrors "github.com/andreivasquez/lumapay-pos/pkg/errors"
	"github.com/andreivasquez/lumapay-pos/pkg/logger"
	"github.com/andreivasquez/lumapay-pos/pkg/payments"
	"github.com/andreivasquez/lumapay-pos/pkg/types"
)

type stubBackend struct {
	createErr error
}

func (s *stubBackend) CreateSession(ctx context.Context, params payments.SessionCreateParams) (*payments.Session, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &payments.Session{
		ID:       "sess_1",
		Token:    "tok_1",
		Amount:   params.Amount,
		Currency: params.Currency,
		Mode:     params.Mode,
		Status:   enums.SessionStatusWaiting,
	}, nil
}

func (s *stubBackend) GetSessionStatus(ctx context.Context, mode enums.Mode, sessionID string) (*payments.SessionStatus, error) {
	return &payments.SessionStatus{Status: enums.SessionStatusWaiting}, nil
}

type stubGate struct {
	ready bool
}

func (s *stubGate) RequireReady(mode enums.Mode) error {
	if !s.ready {
		return pkgerrors.New(pkgerrors.CodeCredentialNotReady, "api key not configured")
	}
	return nil
}

type stubConnectivity struct{}

func (stubConnectivity) IsOnline(ctx context.Context, mode enums.Mode) bool { return true }

type stubQueue struct{}

func (stubQueue) Enqueue(ctx context.Context, amount decimal.Decimal, currency string, qrStyle enums.QRStyle) (*offline.QueuedPayment, error) {
	return &offline.QueuedPayment{ID: "queued-1", Amount: amount, Currency: currency, QRStyle: qrStyle}, nil
}

type stubNotifier struct{}

func (stubNotifier) Dispatch(ctx context.Context, kind enums.NotificationKind, message string) {}

type stubSettings struct{}

func (stubSettings) Get(ctx context.Context) (settings.PosSettings, error) {
	return settings.Defaults(), nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Level: zerolog.Disabled})
}

func newManager(t *testing.T, gate *stubGate, backend *stubBackend) *session.Manager {
	t.Helper()
	m, err := session.NewManager(
		backend, gate, stubConnectivity{}, stubQueue{}, stubNotifier{}, stubSettings{},
		testLogger(), nil,
		session.Options{PollInterval: time.Hour, NativeCurrency: "USDL"},
	)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.APIError {
	t.Helper()
	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return envelope.Error
}

func TestCreateSessionHandler(t *testing.T) {
	manager := newManager(t, &stubGate{ready: true}, &stubBackend{})
	handler := CreateSession(manager, testLogger())

	body := `{"amount":"12.50","currency":"USD","mode":"sandbox","qr_style":"dynamic"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pos/sessions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data session.CreateResult `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.State != enums.PosStateWaiting || envelope.Data.Session == nil {
		t.Fatalf("unexpected result %+v", envelope.Data)
	}
}

func TestCreateSessionHandlerRejectsBadMode(t *testing.T) {
	manager := newManager(t, &stubGate{ready: true}, &stubBackend{})
	handler := CreateSession(manager, testLogger())

	body := `{"amount":"12.50","currency":"USD","mode":"staging"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pos/sessions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if apiErr := decodeError(t, rec); apiErr.Code != "VALIDATION_ERROR" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}

func TestCreateSessionHandlerCredentialGate(t *testing.T) {
	manager := newManager(t, &stubGate{ready: false}, &stubBackend{})
	handler := CreateSession(manager, testLogger())

	body := `{"amount":"12.50","currency":"USD","mode":"live"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/pos/sessions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusPreconditionFailed {
		t.Fatalf("expected 412, got %d", rec.Code)
	}
	if apiErr := decodeError(t, rec); apiErr.Code != "CREDENTIAL_NOT_READY" {
		t.Fatalf("unexpected error %+v", apiErr)
	}
}

func TestPosStateHandler(t *testing.T) {
	manager := newManager(t, &stubGate{ready: true}, &stubBackend{})
	handler := PosState(manager, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/pos/state", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var envelope struct {
		Data session.Snapshot `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.State != enums.PosStateIdle {
		t.Fatalf("expected idle, got %s", envelope.Data.State)
	}
}

func TestTerminalLogin(t *testing.T) {
	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:            "test-secret",
			Issuer:            "lumapay-pos-test",
			ExpirationMinutes: 60,
		},
		Terminal: config.TerminalConfig{ID: "term-1", Secret: "terminal-secret"},
	}
	handler := TerminalLogin(cfg, testLogger())

	body := `{"terminal_id":"term-1","secret":"terminal-secret"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var envelope struct {
		Data terminalLoginResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.AccessToken == "" {
		t.Fatalf("expected access token")
	}

	// Wrong secret is rejected.
	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"terminal_id":"term-1","secret":"wrong"}`))
	rec = httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong secret, got %d", rec.Code)
	}
}

func TestModeFromQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions?mode=live", nil)
	mode, err := modeFromQuery(req)
	if err != nil || mode != enums.ModeLive {
		t.Fatalf("expected live, got %s %v", mode, err)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/transactions", nil)
	mode, err = modeFromQuery(req)
	if err != nil || mode != enums.ModeSandbox {
		t.Fatalf("expected sandbox default, got %s %v", mode, err)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/transactions?mode=staging", nil)
	if _, err = modeFromQuery(req); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
