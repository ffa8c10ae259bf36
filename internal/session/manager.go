package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/andreivasquez/lumapay-pos/internal/offline"
	"github.com/andreivasquez/lumapay-pos/internal/settings"
	"github.com/andreivasquez/lumapay-pos/pkg/enums"
	pkgerrors "github.com/andreivasquez/lumapay-pos/pkg/errors"
	"github.com/andreivasquez/lumapay-pos/pkg/logger"
	"github.com/andreivasquez/lumapay-pos/pkg/metrics"
	"github.com/andreivasquez/lumapay-pos/pkg/payments"
)

// Backend is the slice of the payment client the lifecycle manager needs.
type Backend interface {
	CreateSession(ctx context.Context, params payments.SessionCreateParams) (*payments.Session, error)
	GetSessionStatus(ctx context.Context, mode enums.Mode, sessionID string) (*payments.SessionStatus, error)
}

// Gate refuses payment operations for modes without an active credential.
type Gate interface {
	RequireReady(mode enums.Mode) error
}

// Connectivity reports backend reachability at decision time.
type Connectivity interface {
	IsOnline(ctx context.Context, mode enums.Mode) bool
}

// Queue records payment intents while the backend is unreachable.
type Queue interface {
	Enqueue(ctx context.Context, amount decimal.Decimal, currency string, qrStyle enums.QRStyle) (*offline.QueuedPayment, error)
}

// Notifier fans state transitions out to the merchant-facing channels.
type Notifier interface {
	Dispatch(ctx context.Context, kind enums.NotificationKind, message string)
}

// SettingsReader supplies the always-current merchant preferences.
type SettingsReader interface {
	Get(ctx context.Context) (settings.PosSettings, error)
}

// CreateParams is one create-session request from the terminal UI.
type CreateParams struct {
	Amount   decimal.Decimal
	Currency string
	Mode     enums.Mode
	QRStyle  enums.QRStyle
}

// CreateResult reports where a create request landed: a live session now
// being polled, a self-settled local session, or an offline queue entry.
type CreateResult struct {
	State   enums.PosState         `json:"state"`
	Session *payments.Session      `json:"session,omitempty"`
	Queued  *offline.QueuedPayment `json:"queued,omitempty"`
}

// Snapshot is the manager's externally visible state.
type Snapshot struct {
	State         enums.PosState    `json:"state"`
	Session       *payments.Session `json:"session,omitempty"`
	FailureReason string            `json:"failure_reason,omitempty"`
}

// Options configures the lifecycle manager.
type Options struct {
	PollInterval   time.Duration
	PollTimeout    time.Duration
	NativeCurrency string
	DynamicTTL     time.Duration
	StaticTTL      time.Duration
}

// Manager owns the lifecycle of one payment-collection attempt at a time:
// create, poll until terminal, notify, and tear down. At most one polling
// loop is alive per manager; a new session always cancels the old loop before
// the create call goes out.
type Manager struct {
	backend      Backend
	gate         Gate
	connectivity Connectivity
	queue        Queue
	notifier     Notifier
	settings     SettingsReader
	logger       *logger.Logger
	metrics      *metrics.PosMetrics
	opts         Options

	// opMu serializes user-triggered operations (create, acknowledge,
	// close). mu guards the state fields and is safe to take from the
	// polling goroutine.
	opMu sync.Mutex
	mu   sync.Mutex

	state         enums.PosState
	current       *payments.Session
	failureReason string
	notified      bool
	generation    uint64
	cancelLoop    context.CancelFunc
	loopDone      chan struct{}
}

// NewManager wires the session lifecycle manager in the Idle state.
func NewManager(
	backend Backend,
	gate Gate,
	connectivity Connectivity,
	queue Queue,
	notifier Notifier,
	settingsReader SettingsReader,
	logg *logger.Logger,
	m *metrics.PosMetrics,
	opts Options,
) (*Manager, error) {
	if backend == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session backend required")
	}
	if gate == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session credential gate required")
	}
	if connectivity == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session connectivity probe required")
	}
	if queue == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session offline queue required")
	}
	if notifier == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session notifier required")
	}
	if settingsReader == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session settings reader required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session logger required")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 4 * time.Second
	}
	return &Manager{
		backend:      backend,
		gate:         gate,
		connectivity: connectivity,
		queue:        queue,
		notifier:     notifier,
		settings:     settingsReader,
		logger:       logg,
		metrics:      m,
		opts:         opts,
		state:        enums.PosStateIdle,
	}, nil
}

// Create starts a new payment-collection attempt. Validation and the
// credential gate run before any backend traffic. With offline mode enabled
// and no connectivity the request lands in the offline queue instead.
// Creation failures are surfaced verbatim and never retried.
func (m *Manager) Create(ctx context.Context, params CreateParams) (*CreateResult, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if err := m.validate(params); err != nil {
		return nil, err
	}
	if err := m.gate.RequireReady(params.Mode); err != nil {
		return nil, err
	}

	prefs, err := m.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if params.QRStyle == "" {
		params.QRStyle = prefs.QRStyle
	}

	if prefs.OfflineMode && !m.connectivity.IsOnline(ctx, params.Mode) {
		item, err := m.queue.Enqueue(ctx, params.Amount, params.Currency, params.QRStyle)
		if err != nil {
			return nil, err
		}
		m.notifier.Dispatch(ctx, enums.NotificationKindInfo, "payment queued for later submission")
		return &CreateResult{State: m.State(), Queued: item}, nil
	}

	// A new attempt supersedes the previous one; its loop must observe
	// zero further reads from here on.
	m.stopPolling()

	if m.isNativeCurrency(params.Currency) {
		return m.settleLocally(ctx, params), nil
	}

	m.transition(enums.PosStateCreating, "")

	session, err := m.backend.CreateSession(ctx, payments.SessionCreateParams{
		Amount:    params.Amount,
		Currency:  params.Currency,
		Mode:      params.Mode,
		QRStyle:   params.QRStyle,
		ExpiresIn: m.ttlFor(params.QRStyle),
	})
	if err != nil {
		m.mu.Lock()
		m.state = enums.PosStateFailed
		m.current = nil
		m.failureReason = "session creation failed"
		m.mu.Unlock()
		return nil, err
	}

	m.mu.Lock()
	m.state = enums.PosStateWaiting
	m.current = session
	m.failureReason = ""
	m.notified = false
	m.generation++
	gen := m.generation
	loopCtx, cancel := context.WithCancel(context.Background())
	m.cancelLoop = cancel
	m.loopDone = make(chan struct{})
	done := m.loopDone
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.IncSessionCreated(string(params.Mode), string(params.QRStyle))
	}
	m.logger.Info(m.logger.WithSessionID(m.logger.WithMode(ctx, string(params.Mode)), session.ID), "session created, polling")

	go m.poll(loopCtx, gen, session, done)

	return &CreateResult{State: m.State(), Session: session}, nil
}

// Acknowledge returns the manager to Idle after a terminal outcome.
func (m *Manager) Acknowledge() error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.state.IsTerminal() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "no outcome to acknowledge").
			WithDetails(map[string]string{"state": string(m.state)})
	}
	m.state = enums.PosStateIdle
	m.current = nil
	m.failureReason = ""
	return nil
}

// Snapshot returns the externally visible state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := Snapshot{State: m.state, FailureReason: m.failureReason}
	if m.current != nil {
		session := *m.current
		snap.Session = &session
	}
	return snap
}

// State returns the current lifecycle state.
func (m *Manager) State() enums.PosState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Close tears the manager down. Any active polling loop stops
// deterministically; no timer keeps firing against a discarded session.
func (m *Manager) Close() {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	m.stopPolling()
	m.mu.Lock()
	m.state = enums.PosStateIdle
	m.current = nil
	m.failureReason = ""
	m.mu.Unlock()
}

func (m *Manager) validate(params CreateParams) error {
	if params.Amount.LessThanOrEqual(decimal.Zero) {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if strings.TrimSpace(params.Currency) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "currency required")
	}
	if !params.Mode.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown mode").
			WithDetails(map[string]string{"mode": string(params.Mode)})
	}
	if params.QRStyle != "" && !params.QRStyle.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown qr style").
			WithDetails(map[string]string{"qr_style": string(params.QRStyle)})
	}
	return nil
}

func (m *Manager) isNativeCurrency(currency string) bool {
	return m.opts.NativeCurrency != "" &&
		strings.EqualFold(currency, m.opts.NativeCurrency)
}

// settleLocally handles the native settlement unit: receipts in it need no
// backend confirmation, so the acceptance surface is built locally and the
// attempt lands directly in Success with no polling.
func (m *Manager) settleLocally(ctx context.Context, params CreateParams) *CreateResult {
	now := time.Now().UTC()
	session := &payments.Session{
		ID:        "local-" + uuid.NewString(),
		Token:     fmt.Sprintf("lumapay:native:%s", uuid.NewString()),
		Amount:    params.Amount,
		Currency:  params.Currency,
		Mode:      params.Mode,
		Status:    enums.SessionStatusPaid,
		ExpiresAt: now.Add(m.ttlFor(params.QRStyle)),
	}

	m.mu.Lock()
	m.state = enums.PosStateSuccess
	m.current = session
	m.failureReason = ""
	m.notified = true
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.IncSessionCreated(string(params.Mode), string(params.QRStyle))
		m.metrics.IncSessionOutcome(string(enums.SessionStatusPaid))
	}
	m.notifier.Dispatch(ctx, enums.NotificationKindSuccess, "payment received")
	return &CreateResult{State: enums.PosStateSuccess, Session: session}
}

func (m *Manager) ttlFor(style enums.QRStyle) time.Duration {
	if style == enums.QRStyleStatic {
		return m.opts.StaticTTL
	}
	return m.opts.DynamicTTL
}

func (m *Manager) transition(state enums.PosState, reason string) {
	m.mu.Lock()
	m.state = state
	m.failureReason = reason
	m.mu.Unlock()
}

// stopPolling cancels the active loop and waits for it to exit so no two
// loops ever overlap.
func (m *Manager) stopPolling() {
	m.mu.Lock()
	cancel := m.cancelLoop
	done := m.loopDone
	m.cancelLoop = nil
	m.loopDone = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// poll issues strictly sequential status reads until a terminal status or
// cancellation. Errors and non-terminal statuses are transient; the loop
// just waits for the next tick. Session expiry is the backend's authority,
// surfaced as an expired status, never a client-side timeout.
func (m *Manager) poll(ctx context.Context, gen uint64, session *payments.Session, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		pollCtx := ctx
		var cancel context.CancelFunc
		if m.opts.PollTimeout > 0 {
			pollCtx, cancel = context.WithTimeout(ctx, m.opts.PollTimeout)
		}
		start := time.Now()
		status, err := m.backend.GetSessionStatus(pollCtx, session.Mode, session.ID)
		if cancel != nil {
			cancel()
		}
		if m.metrics != nil {
			m.metrics.ObservePollDuration(string(session.Mode), time.Since(start))
		}

		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.countPoll("error")
			continue
		}

		switch status.Status {
		case enums.SessionStatusPaid:
			m.countPoll("paid")
			m.finish(ctx, gen, outcome{
				state:   enums.PosStateSuccess,
				label:   "paid",
				kind:    enums.NotificationKindSuccess,
				message: "payment received",
			})
			return
		case enums.SessionStatusExpired:
			m.countPoll("expired")
			m.finish(ctx, gen, outcome{
				state:   enums.PosStateFailed,
				reason:  "session expired",
				label:   "expired",
				kind:    enums.NotificationKindFailure,
				message: "payment session expired",
			})
			return
		case enums.SessionStatusCanceled:
			m.countPoll("canceled")
			m.finish(ctx, gen, outcome{
				state:   enums.PosStateFailed,
				reason:  "session canceled",
				label:   "canceled",
				kind:    enums.NotificationKindFailure,
				message: "payment canceled",
			})
			return
		default:
			m.countPoll("pending")
		}
	}
}

type outcome struct {
	state   enums.PosState
	reason  string
	label   string
	kind    enums.NotificationKind
	message string
}

// finish applies a terminal outcome if this loop's session is still current.
// The notification fires at most once per session.
func (m *Manager) finish(ctx context.Context, gen uint64, out outcome) {
	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		return
	}
	m.state = out.state
	m.failureReason = out.reason
	dispatch := !m.notified
	m.notified = true
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.IncSessionOutcome(out.label)
	}
	if dispatch {
		m.notifier.Dispatch(ctx, out.kind, out.message)
	}
}

func (m *Manager) countPoll(result string) {
	if m.metrics != nil {
		m.metrics.IncPoll(result)
	}
}
