package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/andreivasquez/lumapay-pos/pkg/enums"
	pkgerrors "github.com/andreivasquez/lumapay-pos/pkg/errors"
	"github.com/andreivasquez/lumapay-pos/pkg/logger"
)

// Pinger probes the backend health endpoint for a mode's partition.
type Pinger interface {
	Ping(ctx context.Context, mode enums.Mode) error
}

// Probe answers "is the backend reachable right now" with a short cache so
// bursts of checks do not become bursts of health requests.
type Probe struct {
	pinger   Pinger
	logger   *logger.Logger
	cacheTTL time.Duration
	timeout  time.Duration

	mu        sync.Mutex
	verdict   bool
	checkedAt time.Time
}

// NewProbe wires the connectivity checker.
func NewProbe(pinger Pinger, logg *logger.Logger, cacheTTL, timeout time.Duration) (*Probe, error) {
	if pinger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "connectivity pinger required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "connectivity logger required")
	}
	return &Probe{
		pinger:   pinger,
		logger:   logg,
		cacheTTL: cacheTTL,
		timeout:  timeout,
	}, nil
}

// IsOnline reports backend reachability for the mode. A cached verdict is
// reused inside the TTL window regardless of outcome.
func (p *Probe) IsOnline(ctx context.Context, mode enums.Mode) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.checkedAt.IsZero() && time.Since(p.checkedAt) < p.cacheTTL {
		return p.verdict
	}

	probeCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	err := p.pinger.Ping(probeCtx, mode)
	p.verdict = err == nil
	p.checkedAt = time.Now()
	if err != nil {
		p.logger.Warn(p.logger.WithMode(ctx, string(mode)), "backend unreachable")
	}
	return p.verdict
}

// Invalidate drops the cached verdict so the next check probes again. Called
// after operations that already learned the connectivity state the hard way.
func (p *Probe) Invalidate() {
	p.mu.Lock()
	p.checkedAt = time.Time{}
	p.mu.Unlock()
}
