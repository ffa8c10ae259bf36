package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/andreivasquez/lumapay-pos/pkg/enums"
	pkgerrors "github.com/andreivasquez/lumapay-pos/pkg/errors"
	"github.com/andreivasquez/lumapay-pos/pkg/kvstore"
	"github.com/andreivasquez/lumapay-pos/pkg/logger"
	"github.com/andreivasquez/lumapay-pos/pkg/metrics"
	"github.com/andreivasquez/lumapay-pos/pkg/payments"
)

const queueKey = "offline_queue"

// QueuedPayment is a payment intent recorded while the backend was
// unreachable. Queue position is its only identity that matters; the id
// exists for display and idempotency.
type QueuedPayment struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	QRStyle   enums.QRStyle   `json:"qr_style"`
	CreatedAt time.Time       `json:"created_at"`
}

// SyncResult reports the outcome of one drain pass. Failed items are counted
// and logged but not re-queued; the queue is empty after every pass.
type SyncResult struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// SessionCreator is the create-session slice of the payment client.
type SessionCreator interface {
	CreateSession(ctx context.Context, params payments.SessionCreateParams) (*payments.Session, error)
}

// Connectivity gates the drain on backend reachability.
type Connectivity interface {
	IsOnline(ctx context.Context, mode enums.Mode) bool
}

// TransactionInvalidator refreshes the local transaction view after a drain.
type TransactionInvalidator interface {
	Invalidate(ctx context.Context, mode enums.Mode)
}

// Service is the durable offline payment queue.
type Service interface {
	Enqueue(ctx context.Context, amount decimal.Decimal, currency string, qrStyle enums.QRStyle) (*QueuedPayment, error)
	List(ctx context.Context) ([]QueuedPayment, error)
	Sync(ctx context.Context, mode enums.Mode) (*SyncResult, error)
}

type service struct {
	store        kvstore.Store
	creator      SessionCreator
	connectivity Connectivity
	view         TransactionInvalidator
	logger       *logger.Logger
	metrics      *metrics.PosMetrics

	dynamicTTL time.Duration
	staticTTL  time.Duration

	// mu serializes all queue mutations; every mutation rewrites the full
	// persisted record.
	mu sync.Mutex
}

// NewService wires the offline queue.
func NewService(
	store kvstore.Store,
	creator SessionCreator,
	connectivity Connectivity,
	view TransactionInvalidator,
	logg *logger.Logger,
	m *metrics.PosMetrics,
	dynamicTTL, staticTTL time.Duration,
) (Service, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "offline queue store required")
	}
	if creator == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "offline session creator required")
	}
	if connectivity == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "offline connectivity probe required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "offline logger required")
	}
	return &service{
		store:        store,
		creator:      creator,
		connectivity: connectivity,
		view:         view,
		logger:       logg,
		metrics:      m,
		dynamicTTL:   dynamicTTL,
		staticTTL:    staticTTL,
	}, nil
}

// Enqueue records a payment intent locally. It has no backend dependency and
// fails only if the durable store itself fails.
func (s *service) Enqueue(ctx context.Context, amount decimal.Decimal, currency string, qrStyle enums.QRStyle) (*QueuedPayment, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if currency == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "currency required")
	}
	if !qrStyle.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown qr style").
			WithDetails(map[string]string{"qr_style": string(qrStyle)})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	queue, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	item := QueuedPayment{
		ID:        uuid.NewString(),
		Amount:    amount,
		Currency:  currency,
		QRStyle:   qrStyle,
		CreatedAt: time.Now().UTC(),
	}
	queue = append(queue, item)
	if err := s.persist(ctx, queue); err != nil {
		return nil, err
	}

	s.setDepth(len(queue))
	s.logger.Info(s.logger.WithFields(ctx, map[string]any{
		"queued_id":   item.ID,
		"queue_depth": len(queue),
	}), "payment queued offline")
	return &item, nil
}

func (s *service) List(ctx context.Context) ([]QueuedPayment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Sync drains the queue in enqueue order against the backend. Items are
// independent; one failure does not stop the rest. The queue is cleared
// afterwards regardless of outcome, with failures counted in the result.
func (s *service) Sync(ctx context.Context, mode enums.Mode) (*SyncResult, error) {
	if !s.connectivity.IsOnline(ctx, mode) {
		return nil, pkgerrors.New(pkgerrors.CodeStillOffline, "cannot sync while offline")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	queue, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	result := &SyncResult{Attempted: len(queue)}
	if len(queue) == 0 {
		return result, nil
	}

	var drainErrs error
	for _, item := range queue {
		_, err := s.creator.CreateSession(ctx, payments.SessionCreateParams{
			Amount:         item.Amount,
			Currency:       item.Currency,
			Mode:           mode,
			QRStyle:        item.QRStyle,
			ExpiresIn:      s.ttlFor(item.QRStyle),
			IdempotencyKey: fmt.Sprintf("offline.sync-%s", item.ID),
		})
		if err != nil {
			result.Failed++
			s.countItem("failure")
			drainErrs = multierr.Append(drainErrs, fmt.Errorf("item %s: %w", item.ID, err))
			continue
		}
		result.Succeeded++
		s.countItem("success")
	}

	if err := s.persist(ctx, nil); err != nil {
		return nil, err
	}
	s.setDepth(0)

	if drainErrs != nil {
		s.logger.Error(s.logger.WithFields(ctx, map[string]any{
			"attempted": result.Attempted,
			"failed":    result.Failed,
		}), "offline sync dropped failed items", drainErrs)
	}
	s.logger.Info(s.logger.WithFields(ctx, map[string]any{
		"attempted": result.Attempted,
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
	}), "offline queue drained")

	if s.view != nil && result.Succeeded > 0 {
		s.view.Invalidate(ctx, mode)
	}
	return result, nil
}

func (s *service) ttlFor(style enums.QRStyle) time.Duration {
	if style == enums.QRStyleStatic {
		return s.staticTTL
	}
	return s.dynamicTTL
}

func (s *service) load(ctx context.Context) ([]QueuedPayment, error) {
	raw, found, err := s.store.Get(ctx, queueKey)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read offline queue")
	}
	if !found {
		return nil, nil
	}
	var queue []QueuedPayment
	if err := json.Unmarshal(raw, &queue); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode offline queue")
	}
	return queue, nil
}

func (s *service) persist(ctx context.Context, queue []QueuedPayment) error {
	if queue == nil {
		queue = []QueuedPayment{}
	}
	raw, err := json.Marshal(queue)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode offline queue")
	}
	if err := s.store.Set(ctx, queueKey, raw); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist offline queue")
	}
	return nil
}

func (s *service) setDepth(depth int) {
	if s.metrics != nil {
		s.metrics.SetQueueDepth(depth)
	}
}

func (s *service) countItem(result string) {
	if s.metrics != nil {
		s.metrics.IncSyncItem(result)
	}
}
