package credentials

import (
	"context"
	"strings"
	"sync"

	"github.com/andreivasquez/lumapay-pos/pkg/enums"
	pkgerrors "github.com/andreivasquez/lumapay-pos/pkg/errors"
	"github.com/andreivasquez/lumapay-pos/pkg/logger"
	"github.com/andreivasquez/lumapay-pos/pkg/payments"
)

// Backend is the slice of the payment client the gate needs.
type Backend interface {
	GetCredentialState(ctx context.Context, mode enums.Mode) (*payments.CredentialState, error)
	StoreCredential(ctx context.Context, mode enums.Mode, secret string) error
}

// APIKeyState is the cached per-mode readiness snapshot.
type APIKeyState struct {
	Configured  bool   `json:"configured"`
	DisplayName string `json:"display_name"`
}

// Service gates payment operations behind per-mode merchant credentials.
// Sandbox and live readiness are tracked independently.
type Service interface {
	IsReady(mode enums.Mode) bool
	State(mode enums.Mode) APIKeyState
	SetCredential(ctx context.Context, mode enums.Mode, secret string) error
	Refresh(ctx context.Context, mode enums.Mode) (APIKeyState, error)
	RequireReady(mode enums.Mode) error
}

type service struct {
	backend Backend
	logger  *logger.Logger

	mu     sync.RWMutex
	states map[enums.Mode]APIKeyState
}

// NewService wires the credential gate with an empty cache. Callers refresh
// per mode on startup and on every mode switch.
func NewService(backend Backend, logg *logger.Logger) (Service, error) {
	if backend == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "credentials backend required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "credentials logger required")
	}
	return &service{
		backend: backend,
		logger:  logg,
		states:  make(map[enums.Mode]APIKeyState),
	}, nil
}

func (s *service) IsReady(mode enums.Mode) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[mode].Configured
}

func (s *service) State(mode enums.Mode) APIKeyState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[mode]
}

// RequireReady is the pre-flight check used before any backend payment call.
func (s *service) RequireReady(mode enums.Mode) error {
	if !s.IsReady(mode) {
		return pkgerrors.New(pkgerrors.CodeCredentialNotReady, "credential not configured").
			WithDetails(map[string]string{"mode": string(mode)})
	}
	return nil
}

func (s *service) SetCredential(ctx context.Context, mode enums.Mode, secret string) error {
	if !mode.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown mode").
			WithDetails(map[string]string{"mode": string(mode)})
	}
	if strings.TrimSpace(secret) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "credential secret required")
	}

	if err := s.backend.StoreCredential(ctx, mode, secret); err != nil {
		return err
	}

	// Readiness flips immediately; the display name arrives on the next
	// refresh.
	s.mu.Lock()
	state := s.states[mode]
	state.Configured = true
	s.states[mode] = state
	s.mu.Unlock()

	s.logger.Info(s.logger.WithMode(ctx, string(mode)), "credential stored")
	return nil
}

func (s *service) Refresh(ctx context.Context, mode enums.Mode) (APIKeyState, error) {
	if !mode.IsValid() {
		return APIKeyState{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown mode").
			WithDetails(map[string]string{"mode": string(mode)})
	}

	remote, err := s.backend.GetCredentialState(ctx, mode)
	if err != nil {
		return APIKeyState{}, err
	}

	state := APIKeyState{
		Configured:  remote.Configured,
		DisplayName: remote.DisplayName,
	}
	s.mu.Lock()
	s.states[mode] = state
	s.mu.Unlock()
	return state, nil
}
