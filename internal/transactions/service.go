package transactions

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/andreivasquez/lumapay-pos/pkg/enums"
	pkgerrors "github.com/andreivasquez/lumapay-pos/pkg/errors"
	"github.com/andreivasquez/lumapay-pos/pkg/logger"
	"github.com/andreivasquez/lumapay-pos/pkg/payments"
	"github.com/andreivasquez/lumapay-pos/pkg/redis"
)

// Backend is the slice of the payment client the transactions view needs.
type Backend interface {
	ListTransactions(ctx context.Context, mode enums.Mode) ([]payments.Transaction, error)
}

// Cache is the slice of the redis client used for the per-mode list cache.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CacheKey(parts ...string) string
}

// Service is the terminal's read view over backend-owned transactions.
type Service interface {
	List(ctx context.Context, mode enums.Mode) ([]payments.Transaction, error)
	Get(ctx context.Context, mode enums.Mode, transactionID string) (*payments.Transaction, error)
	Invalidate(ctx context.Context, mode enums.Mode)
}

type service struct {
	backend  Backend
	cache    Cache
	logger   *logger.Logger
	cacheTTL time.Duration
}

// NewService wires the transactions view. The cache is optional; without it
// every list goes to the backend.
func NewService(backend Backend, cache Cache, logg *logger.Logger, cacheTTL time.Duration) (Service, error) {
	if backend == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transactions backend required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transactions logger required")
	}
	return &service{
		backend:  backend,
		cache:    cache,
		logger:   logg,
		cacheTTL: cacheTTL,
	}, nil
}

func (s *service) List(ctx context.Context, mode enums.Mode) ([]payments.Transaction, error) {
	if !mode.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown mode").
			WithDetails(map[string]string{"mode": string(mode)})
	}

	if cached, ok := s.fromCache(ctx, mode); ok {
		return cached, nil
	}

	txns, err := s.backend.ListTransactions(ctx, mode)
	if err != nil {
		return nil, err
	}
	s.toCache(ctx, mode, txns)
	return txns, nil
}

func (s *service) Get(ctx context.Context, mode enums.Mode, transactionID string) (*payments.Transaction, error) {
	if transactionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transaction id required")
	}

	txns, err := s.List(ctx, mode)
	if err != nil {
		return nil, err
	}
	for i := range txns {
		if txns[i].ID == transactionID {
			return &txns[i], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transaction not found").
		WithDetails(map[string]string{"transaction_id": transactionID})
}

// Invalidate drops the cached list for the mode. Called after refunds and
// offline syncs so the next read reflects the backend.
func (s *service) Invalidate(ctx context.Context, mode enums.Mode) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, s.cacheKey(mode)); err != nil {
		s.logger.Warn(s.logger.WithMode(ctx, string(mode)), "transactions cache invalidation failed")
	}
}

func (s *service) cacheKey(mode enums.Mode) string {
	return s.cache.CacheKey("transactions", string(mode))
}

func (s *service) fromCache(ctx context.Context, mode enums.Mode) ([]payments.Transaction, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, s.cacheKey(mode))
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn(s.logger.WithMode(ctx, string(mode)), "transactions cache read failed")
		}
		return nil, false
	}
	var txns []payments.Transaction
	if err := json.Unmarshal([]byte(raw), &txns); err != nil {
		return nil, false
	}
	return txns, true
}

func (s *service) toCache(ctx context.Context, mode enums.Mode, txns []payments.Transaction) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(txns)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cacheKey(mode), string(raw), s.cacheTTL); err != nil {
		s.logger.Warn(s.logger.WithMode(ctx, string(mode)), "transactions cache write failed")
	}
}
