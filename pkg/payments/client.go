package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/andreivasquez/lumapay-pos/pkg/config"
	"github.com/andreivasquez/lumapay-pos/pkg/enums"
	pkgerrors "github.com/andreivasquez/lumapay-pos/pkg/errors"
	"github.com/andreivasquez/lumapay-pos/pkg/logger"
)

var (
	errAPIKeyRequired = errors.New("backend api key is required")
	errLoggerRequired = errors.New("backend logger is required")
)

// Client exposes the payment backend with centralized auth, logging,
// idempotency, and error mapping. Sandbox and live are independent backend
// partitions selected per call through the session mode.
type Client struct {
	httpClient *http.Client
	baseURLs   map[enums.Mode]string
	apiKey     string
	logger     *logger.Logger
}

// NewClient initializes the backend wrapper and validates the credentials.
func NewClient(cfg config.BackendConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	baseURLs := map[enums.Mode]string{
		enums.ModeSandbox: strings.TrimRight(cfg.SandboxBaseURL, "/"),
		enums.ModeLive:    strings.TrimRight(cfg.LiveBaseURL, "/"),
	}
	for mode, base := range baseURLs {
		if base == "" {
			return nil, fmt.Errorf("base url for %s mode is required", mode)
		}
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		baseURLs:   baseURLs,
		apiKey:     apiKey,
		logger:     logg,
	}, nil
}

// NewIdempotencyKey returns a unique key for backend operations.
func (c *Client) NewIdempotencyKey(prefix string) string {
	key := strings.TrimSpace(prefix)
	if key == "" {
		key = "lmp"
	}
	return fmt.Sprintf("%s-%s", key, uuid.NewString())
}

// CreateSession opens a payment session in the partition selected by params.Mode.
func (c *Client) CreateSession(ctx context.Context, params SessionCreateParams) (*Session, error) {
	c.log(ctx, "request", "create_session", map[string]any{
		"mode":       params.Mode,
		"amount":     params.Amount.String(),
		"currency":   params.Currency,
		"qr_style":   params.QRStyle,
		"expires_in": params.ExpiresIn.String(),
	})

	var session Session
	err := c.do(ctx, doParams{
		mode:           params.Mode,
		method:         http.MethodPost,
		path:           "/v1/pos/sessions",
		body:           params.toRequest(),
		idempotencyKey: c.ensureIdempotencyKey("session.create", params.IdempotencyKey),
		out:            &session,
	})
	if err != nil {
		c.log(ctx, "error", "create_session", map[string]any{"error": err.Error()})
		return nil, c.mapError(err, "create session")
	}
	session.Mode = params.Mode

	c.log(ctx, "response", "create_session", map[string]any{
		"session_id": session.ID,
		"status":     session.Status,
	})
	return &session, nil
}

// GetSessionStatus reads the current status of a session. Callers poll this;
// transport failures map to a retryable backend error.
func (c *Client) GetSessionStatus(ctx context.Context, mode enums.Mode, sessionID string) (*SessionStatus, error) {
	var status SessionStatus
	err := c.do(ctx, doParams{
		mode:   mode,
		method: http.MethodGet,
		path:   "/v1/pos/sessions/" + url.PathEscape(sessionID),
		out:    &status,
	})
	if err != nil {
		return nil, c.mapError(err, "get session status")
	}
	return &status, nil
}

// ListTransactions returns the settled transactions for the mode's partition.
func (c *Client) ListTransactions(ctx context.Context, mode enums.Mode) ([]Transaction, error) {
	var resp transactionsResponse
	err := c.do(ctx, doParams{
		mode:   mode,
		method: http.MethodGet,
		path:   "/v1/transactions",
		out:    &resp,
	})
	if err != nil {
		return nil, c.mapError(err, "list transactions")
	}
	return resp.Transactions, nil
}

// RefundTransaction issues a compensating refund against a settled transaction.
func (c *Client) RefundTransaction(ctx context.Context, mode enums.Mode, transactionID, reason string) (*RefundResult, error) {
	c.log(ctx, "request", "refund_transaction", map[string]any{
		"mode":           mode,
		"transaction_id": transactionID,
	})

	var result RefundResult
	err := c.do(ctx, doParams{
		mode:           mode,
		method:         http.MethodPost,
		path:           "/v1/transactions/" + url.PathEscape(transactionID) + "/refunds",
		body:           refundRequest{Reason: reason},
		idempotencyKey: c.NewIdempotencyKey("refund.create"),
		out:            &result,
	})
	if err != nil {
		c.log(ctx, "error", "refund_transaction", map[string]any{"error": err.Error()})
		return nil, c.mapError(err, "refund transaction")
	}

	c.log(ctx, "response", "refund_transaction", map[string]any{"refund_id": result.RefundID})
	return &result, nil
}

// GetCredentialState reports whether the merchant holds an active credential
// for the mode.
func (c *Client) GetCredentialState(ctx context.Context, mode enums.Mode) (*CredentialState, error) {
	var state CredentialState
	err := c.do(ctx, doParams{
		mode:   mode,
		method: http.MethodGet,
		path:   "/v1/merchant/credentials/" + url.PathEscape(string(mode)),
		out:    &state,
	})
	if err != nil {
		return nil, c.mapError(err, "get credential state")
	}
	return &state, nil
}

// StoreCredential forwards a merchant credential secret for the mode.
func (c *Client) StoreCredential(ctx context.Context, mode enums.Mode, secret string) error {
	c.log(ctx, "request", "store_credential", map[string]any{"mode": mode, "secret": secret})

	err := c.do(ctx, doParams{
		mode:   mode,
		method: http.MethodPut,
		path:   "/v1/merchant/credentials/" + url.PathEscape(string(mode)),
		body:   credentialRequest{Secret: secret},
	})
	if err != nil {
		c.log(ctx, "error", "store_credential", map[string]any{"error": err.Error()})
		return c.mapError(err, "store credential")
	}

	c.log(ctx, "response", "store_credential", map[string]any{"mode": mode})
	return nil
}

// Ping probes the backend health endpoint for the mode's partition.
func (c *Client) Ping(ctx context.Context, mode enums.Mode) error {
	if err := c.do(ctx, doParams{mode: mode, method: http.MethodGet, path: "/v1/health"}); err != nil {
		return c.mapError(err, "ping")
	}
	return nil
}

type doParams struct {
	mode           enums.Mode
	method         string
	path           string
	body           any
	idempotencyKey string
	out            any
}

// httpError carries the backend status code through to mapError.
type httpError struct {
	status int
	body   string
}

func (e *httpError) Error() string {
	return fmt.Sprintf("backend status %d: %s", e.status, e.body)
}

func (c *Client) do(ctx context.Context, params doParams) error {
	base, ok := c.baseURLs[params.mode]
	if !ok {
		return fmt.Errorf("no base url for mode %q", params.mode)
	}

	var reqBody io.Reader
	if params.body != nil {
		payload, err := json.Marshal(params.body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, params.method, base+params.path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if params.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if params.idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", params.idempotencyKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &httpError{status: resp.StatusCode, body: strings.TrimSpace(string(raw))}
	}

	if params.out != nil {
		if err := json.NewDecoder(resp.Body).Decode(params.out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) ensureIdempotencyKey(prefix, provided string) string {
	if strings.TrimSpace(provided) != "" {
		return provided
	}
	return c.NewIdempotencyKey(prefix)
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = c.redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("backend %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("backend %s", phase))
	}
}

func (c *Client) redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"secret", "token", "key", "credential"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

func (c *Client) mapError(err error, op string) error {
	if err == nil {
		return nil
	}
	var typed *httpError
	if errors.As(err, &typed) {
		return pkgerrors.Wrap(domainCodeForStatus(typed.status), err, fmt.Sprintf("backend %s failed", op))
	}
	return pkgerrors.Wrap(pkgerrors.CodeBackendUnavailable, err, fmt.Sprintf("backend %s failed", op))
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return pkgerrors.CodeUnauthorized
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return pkgerrors.CodeStateConflict
	case http.StatusTooManyRequests:
		return pkgerrors.CodeRateLimit
	case http.StatusBadRequest:
		return pkgerrors.CodeValidation
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeBackendUnavailable
	}
}
