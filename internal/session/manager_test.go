package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/andreivasquez/lumapay-pos/internal/offline"
	"github.com/andreivasquez/lumapay-pos/internal/settings"
	"github.com/andreivasquez/lumapay-pos/pkg/enums"
	pkgerrors "github.com/andreivasquez/lumapay-pos/pkg/errors"
	"github.com/andreivasquez/lumapay-pos/pkg/logger"
	"github.com/andreivasquez/lumapay-pos/pkg/payments"
)

type fakeBackend struct {
	mu          sync.Mutex
	createCalls int
	statusCalls map[string]int
	createFn    func(params payments.SessionCreateParams) (*payments.Session, error)
	statusFn    func(sessionID string, call int) (*payments.SessionStatus, error)
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		statusCalls: make(map[string]int),
		createFn: func(params payments.SessionCreateParams) (*payments.Session, error) {
			return &payments.Session{
				ID:       "sess-" + params.Currency,
				Token:    "tok-1",
				Amount:   params.Amount,
				Currency: params.Currency,
				Mode:     params.Mode,
				Status:   enums.SessionStatusWaiting,
			}, nil
		},
		statusFn: func(sessionID string, call int) (*payments.SessionStatus, error) {
			return &payments.SessionStatus{Status: enums.SessionStatusWaiting}, nil
		},
	}
}

func (f *fakeBackend) CreateSession(ctx context.Context, params payments.SessionCreateParams) (*payments.Session, error) {
	f.mu.Lock()
	f.createCalls++
	f.mu.Unlock()
	return f.createFn(params)
}

func (f *fakeBackend) GetSessionStatus(ctx context.Context, mode enums.Mode, sessionID string) (*payments.SessionStatus, error) {
	f.mu.Lock()
	f.statusCalls[sessionID]++
	call := f.statusCalls[sessionID]
	f.mu.Unlock()
	return f.statusFn(sessionID, call)
}

func (f *fakeBackend) creates() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls
}

func (f *fakeBackend) polls(sessionID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls[sessionID]
}

type fakeGate struct {
	ready bool
}

func (f *fakeGate) RequireReady(mode enums.Mode) error {
	if !f.ready {
		return pkgerrors.New(pkgerrors.CodeCredentialNotReady, "credential not configured")
	}
	return nil
}

type fakeConnectivity struct {
	online bool
}

func (f *fakeConnectivity) IsOnline(ctx context.Context, mode enums.Mode) bool {
	return f.online
}

type fakeQueue struct {
	mu    sync.Mutex
	items []offline.QueuedPayment
}

func (f *fakeQueue) Enqueue(ctx context.Context, amount decimal.Decimal, currency string, qrStyle enums.QRStyle) (*offline.QueuedPayment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item := offline.QueuedPayment{
		ID:       "queued-1",
		Amount:   amount,
		Currency: currency,
		QRStyle:  qrStyle,
	}
	f.items = append(f.items, item)
	return &item, nil
}

func (f *fakeQueue) depth() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []enums.NotificationKind
}

func (f *fakeNotifier) Dispatch(ctx context.Context, kind enums.NotificationKind, message string) {
	f.mu.Lock()
	f.events = append(f.events, kind)
	f.mu.Unlock()
}

func (f *fakeNotifier) count(kind enums.NotificationKind) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, k := range f.events {
		if k == kind {
			n++
		}
	}
	return n
}

type fakeSettings struct {
	prefs settings.PosSettings
}

func (f *fakeSettings) Get(ctx context.Context) (settings.PosSettings, error) {
	return f.prefs, nil
}

type fixture struct {
	backend  *fakeBackend
	gate     *fakeGate
	conn     *fakeConnectivity
	queue    *fakeQueue
	notifier *fakeNotifier
	prefs    *fakeSettings
	manager  *Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		backend:  newFakeBackend(),
		gate:     &fakeGate{ready: true},
		conn:     &fakeConnectivity{online: true},
		queue:    &fakeQueue{},
		notifier: &fakeNotifier{},
		prefs:    &fakeSettings{prefs: settings.Defaults()},
	}
	m, err := NewManager(
		f.backend, f.gate, f.conn, f.queue, f.notifier, f.prefs,
		logger.New(logger.Options{Level: zerolog.Disabled}), nil,
		Options{
			PollInterval:   5 * time.Millisecond,
			NativeCurrency: "USDL",
			DynamicTTL:     5 * time.Minute,
			StaticTTL:      720 * time.Hour,
		},
	)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	f.manager = m
	t.Cleanup(m.Close)
	return f
}

func createParams() CreateParams {
	return CreateParams{
		Amount:   decimal.RequireFromString("10.00"),
		Currency: "USD",
		Mode:     enums.ModeLive,
		QRStyle:  enums.QRStyleDynamic,
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting: %s", msg)
}

func TestCreateEntersWaiting(t *testing.T) {
	f := newFixture(t)

	result, err := f.manager.Create(context.Background(), createParams())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if result.State != enums.PosStateWaiting {
		t.Fatalf("expected waiting, got %s", result.State)
	}
	if result.Session == nil || result.Session.ID == "" {
		t.Fatalf("expected session in result")
	}

	snap := f.manager.Snapshot()
	if snap.State != enums.PosStateWaiting || snap.Session == nil {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestNonTerminalPollsStayWaiting(t *testing.T) {
	f := newFixture(t)

	f.manager.Create(context.Background(), createParams())
	waitFor(t, func() bool { return f.backend.polls("sess-USD") >= 5 }, "several polls")

	if state := f.manager.State(); state != enums.PosStateWaiting {
		t.Fatalf("expected waiting after non-terminal polls, got %s", state)
	}
	if n := f.notifier.count(enums.NotificationKindSuccess); n != 0 {
		t.Fatalf("no notification expected while waiting, got %d", n)
	}
}

func TestPaidPollSucceedsAndNotifiesOnce(t *testing.T) {
	f := newFixture(t)
	f.backend.statusFn = func(sessionID string, call int) (*payments.SessionStatus, error) {
		if call >= 2 {
			return &payments.SessionStatus{Status: enums.SessionStatusPaid}, nil
		}
		return &payments.SessionStatus{Status: enums.SessionStatusWaiting}, nil
	}

	f.manager.Create(context.Background(), createParams())
	waitFor(t, func() bool { return f.manager.State() == enums.PosStateSuccess }, "success state")

	// Give the loop time to misbehave; the terminal poll ends it, so poll
	// and notification counts must not grow.
	polls := f.backend.polls("sess-USD")
	time.Sleep(50 * time.Millisecond)
	if f.backend.polls("sess-USD") != polls {
		t.Fatalf("polling continued after terminal status")
	}
	if n := f.notifier.count(enums.NotificationKindSuccess); n != 1 {
		t.Fatalf("expected exactly one success notification, got %d", n)
	}
}

func TestExpiredAndCanceledFailWithSpecificReason(t *testing.T) {
	tests := []struct {
		status enums.SessionStatus
		reason string
	}{
		{enums.SessionStatusExpired, "session expired"},
		{enums.SessionStatusCanceled, "session canceled"},
	}
	for _, tt := range tests {
		f := newFixture(t)
		f.backend.statusFn = func(sessionID string, call int) (*payments.SessionStatus, error) {
			return &payments.SessionStatus{Status: tt.status}, nil
		}

		f.manager.Create(context.Background(), createParams())
		waitFor(t, func() bool { return f.manager.State() == enums.PosStateFailed }, "failed state")

		snap := f.manager.Snapshot()
		if snap.FailureReason != tt.reason {
			t.Fatalf("status %s: expected reason %q, got %q", tt.status, tt.reason, snap.FailureReason)
		}
		if n := f.notifier.count(enums.NotificationKindFailure); n != 1 {
			t.Fatalf("status %s: expected one failure notification, got %d", tt.status, n)
		}
	}
}

func TestPollErrorsAreTransient(t *testing.T) {
	f := newFixture(t)
	f.backend.statusFn = func(sessionID string, call int) (*payments.SessionStatus, error) {
		if call <= 3 {
			return nil, errors.New("connection reset")
		}
		return &payments.SessionStatus{Status: enums.SessionStatusPaid}, nil
	}

	f.manager.Create(context.Background(), createParams())

	// Errors never surface; the loop keeps ticking until the backend
	// answers.
	waitFor(t, func() bool { return f.manager.State() == enums.PosStateSuccess }, "success after transient errors")
}

func TestSupersessionStopsOldLoop(t *testing.T) {
	f := newFixture(t)

	f.manager.Create(context.Background(), createParams())
	waitFor(t, func() bool { return f.backend.polls("sess-USD") >= 1 }, "first session polled")

	params := createParams()
	params.Currency = "EUR"
	if _, err := f.manager.Create(context.Background(), params); err != nil {
		t.Fatalf("create second: %v", err)
	}

	// The old loop must observe zero further reads once B exists.
	oldPolls := f.backend.polls("sess-USD")
	waitFor(t, func() bool { return f.backend.polls("sess-EUR") >= 3 }, "second session polled")
	if f.backend.polls("sess-USD") != oldPolls {
		t.Fatalf("superseded session was still polled")
	}
}

func TestCreateFailureSurfacedNotRetried(t *testing.T) {
	f := newFixture(t)
	wantErr := pkgerrors.New(pkgerrors.CodeBackendUnavailable, "backend create session failed")
	f.backend.createFn = func(params payments.SessionCreateParams) (*payments.Session, error) {
		return nil, wantErr
	}

	_, err := f.manager.Create(context.Background(), createParams())
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected creation error surfaced verbatim, got %v", err)
	}

	snap := f.manager.Snapshot()
	if snap.State != enums.PosStateFailed {
		t.Fatalf("expected failed state, got %s", snap.State)
	}
	// No partial state retained.
	if snap.Session != nil {
		t.Fatalf("no session may be retained after a failed create")
	}
	time.Sleep(20 * time.Millisecond)
	if f.backend.creates() != 1 {
		t.Fatalf("creation must not be retried, got %d calls", f.backend.creates())
	}
}

func TestCredentialGateBlocksBeforeBackend(t *testing.T) {
	f := newFixture(t)
	f.gate.ready = false

	_, err := f.manager.Create(context.Background(), createParams())
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeCredentialNotReady {
		t.Fatalf("expected credential not ready, got %v", err)
	}
	if f.backend.creates() != 0 {
		t.Fatalf("backend must not be called when the gate refuses")
	}
}

func TestValidationBeforeAnyIO(t *testing.T) {
	f := newFixture(t)

	cases := []CreateParams{
		{Amount: decimal.Zero, Currency: "USD", Mode: enums.ModeLive},
		{Amount: decimal.RequireFromString("-2.00"), Currency: "USD", Mode: enums.ModeLive},
		{Amount: decimal.RequireFromString("2.00"), Currency: "  ", Mode: enums.ModeLive},
		{Amount: decimal.RequireFromString("2.00"), Currency: "USD", Mode: enums.Mode("staging")},
	}
	for _, params := range cases {
		_, err := f.manager.Create(context.Background(), params)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("params %+v: expected validation error, got %v", params, err)
		}
	}
	if f.backend.creates() != 0 {
		t.Fatalf("invalid input must be rejected before any backend call")
	}
}

func TestOfflineCreateEnqueuesWithoutBackend(t *testing.T) {
	f := newFixture(t)
	f.conn.online = false
	f.prefs.prefs.OfflineMode = true

	params := createParams()
	params.Amount = decimal.RequireFromString("5.00")
	result, err := f.manager.Create(context.Background(), params)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if result.Queued == nil || !result.Queued.Amount.Equal(decimal.RequireFromString("5.00")) {
		t.Fatalf("expected queued payment, got %+v", result)
	}
	if f.queue.depth() != 1 {
		t.Fatalf("expected one queued item, got %d", f.queue.depth())
	}
	if f.backend.creates() != 0 {
		t.Fatalf("backend must receive zero calls when deferring offline")
	}
	if f.manager.State() != enums.PosStateIdle {
		t.Fatalf("manager should stay idle for queued payments")
	}
}

func TestOfflineModeDisabledStillCreates(t *testing.T) {
	f := newFixture(t)
	f.conn.online = false
	f.prefs.prefs.OfflineMode = false

	// Without the offline toggle the create goes to the backend and fails
	// or succeeds on its own terms.
	if _, err := f.manager.Create(context.Background(), createParams()); err != nil {
		t.Fatalf("create: %v", err)
	}
	if f.backend.creates() != 1 {
		t.Fatalf("expected backend create, got %d", f.backend.creates())
	}
}

func TestNativeCurrencySelfSettles(t *testing.T) {
	f := newFixture(t)

	params := createParams()
	params.Currency = "USDL"
	result, err := f.manager.Create(context.Background(), params)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if result.State != enums.PosStateSuccess {
		t.Fatalf("expected immediate success, got %s", result.State)
	}
	if result.Session == nil || !strings.HasPrefix(result.Session.Token, "lumapay:native:") {
		t.Fatalf("expected locally built acceptance token, got %+v", result.Session)
	}
	if f.backend.creates() != 0 {
		t.Fatalf("native settlement must not reach the backend")
	}
	if n := f.notifier.count(enums.NotificationKindSuccess); n != 1 {
		t.Fatalf("expected one success notification, got %d", n)
	}

	// No polling loop exists.
	time.Sleep(30 * time.Millisecond)
	if f.backend.polls(result.Session.ID) != 0 {
		t.Fatalf("native settlement must not be polled")
	}
}

func TestAcknowledgeReturnsToIdle(t *testing.T) {
	f := newFixture(t)
	f.backend.statusFn = func(sessionID string, call int) (*payments.SessionStatus, error) {
		return &payments.SessionStatus{Status: enums.SessionStatusPaid}, nil
	}

	f.manager.Create(context.Background(), createParams())
	waitFor(t, func() bool { return f.manager.State() == enums.PosStateSuccess }, "success state")

	if err := f.manager.Acknowledge(); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	snap := f.manager.Snapshot()
	if snap.State != enums.PosStateIdle || snap.Session != nil {
		t.Fatalf("expected idle with no session, got %+v", snap)
	}
}

func TestAcknowledgeRejectedWhileWaiting(t *testing.T) {
	f := newFixture(t)

	f.manager.Create(context.Background(), createParams())
	err := f.manager.Acknowledge()
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestCloseStopsPollingDeterministically(t *testing.T) {
	f := newFixture(t)

	f.manager.Create(context.Background(), createParams())
	waitFor(t, func() bool { return f.backend.polls("sess-USD") >= 1 }, "session polled")

	f.manager.Close()
	polls := f.backend.polls("sess-USD")
	time.Sleep(50 * time.Millisecond)
	if f.backend.polls("sess-USD") != polls {
		t.Fatalf("polling survived close")
	}
	if f.manager.State() != enums.PosStateIdle {
		t.Fatalf("expected idle after close")
	}
}
