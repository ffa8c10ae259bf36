package refunds

import (
	"context"
	"sync"

	"github.com/andreivasquez/lumapay-pos/pkg/enums"
	pkgerrors "github.com/andreivasquez/lumapay-pos/pkg/errors"
	"github.com/andreivasquez/lumapay-pos/pkg/logger"
	"github.com/andreivasquez/lumapay-pos/pkg/metrics"
	"github.com/andreivasquez/lumapay-pos/pkg/payments"
)

// Backend is the slice of the payment client refunds need.
type Backend interface {
	RefundTransaction(ctx context.Context, mode enums.Mode, transactionID, reason string) (*payments.RefundResult, error)
}

// TransactionView provides the local read model that gets checked before and
// refreshed after a refund.
type TransactionView interface {
	Get(ctx context.Context, mode enums.Mode, transactionID string) (*payments.Transaction, error)
	Invalidate(ctx context.Context, mode enums.Mode)
}

// Service issues refunds against settled transactions.
type Service interface {
	Refund(ctx context.Context, mode enums.Mode, transactionID, reason string) (*payments.RefundResult, error)
}

type service struct {
	backend Backend
	view    TransactionView
	logger  *logger.Logger
	metrics *metrics.PosMetrics

	mu       sync.Mutex
	inFlight map[string]*sync.Mutex
}

// NewService wires the refund coordinator.
func NewService(backend Backend, view TransactionView, logg *logger.Logger, m *metrics.PosMetrics) (Service, error) {
	if backend == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "refunds backend required")
	}
	if view == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "refunds transaction view required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "refunds logger required")
	}
	return &service{
		backend:  backend,
		view:     view,
		logger:   logg,
		metrics:  m,
		inFlight: make(map[string]*sync.Mutex),
	}, nil
}

// Refund issues a refund for a succeeded transaction. Concurrent refunds of
// the same transaction serialize; the state check repeats under the lock so
// the loser of the race sees the already-refunded state and never reaches the
// backend.
func (s *service) Refund(ctx context.Context, mode enums.Mode, transactionID, reason string) (*payments.RefundResult, error) {
	if transactionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}

	lock := s.lockFor(transactionID)
	lock.Lock()
	defer lock.Unlock()

	txn, err := s.view.Get(ctx, mode, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.Status != enums.TransactionStatusSucceeded {
		s.count("rejected")
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "transaction is not refundable").
			WithDetails(map[string]string{
				"transaction_id": transactionID,
				"status":         string(txn.Status),
			})
	}

	result, err := s.backend.RefundTransaction(ctx, mode, transactionID, reason)
	if err != nil {
		s.count("failure")
		return nil, err
	}

	s.view.Invalidate(ctx, mode)
	s.count("success")
	s.logger.Info(s.logger.WithFields(ctx, map[string]any{
		"transaction_id": transactionID,
		"refund_id":      result.RefundID,
		"mode":           string(mode),
	}), "refund issued")
	return result, nil
}

func (s *service) lockFor(transactionID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.inFlight[transactionID]
	if !ok {
		lock = &sync.Mutex{}
		s.inFlight[transactionID] = lock
	}
	return lock
}

func (s *service) count(result string) {
	if s.metrics != nil {
		s.metrics.IncRefund(result)
	}
}
