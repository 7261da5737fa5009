// Package payment holds adapters for hosted card-payment processors.
package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/bizdocs/backend/internal/domain/finance"
	"github.com/bizdocs/backend/internal/domain/shared/valueobject"
	"github.com/bizdocs/backend/internal/infrastructure/telemetry"
)

const (
	paystackName           = "paystack"
	paystackInitializePath = "/transaction/initialize"
	paystackVerifyPath     = "/transaction/verify/"

	// PaystackSignatureHeader carries the HMAC-SHA512 of a webhook body.
	PaystackSignatureHeader = "X-Paystack-Signature"

	maxResponseBytes = 1 << 20
)

// PaystackAdapter implements finance.PaymentGateway for Paystack
type PaystackAdapter struct {
	config     *PaystackConfig
	httpClient *http.Client
	metrics    *telemetry.BusinessMetrics
	logger     *zap.Logger
}

// PaystackOption customises the adapter.
type PaystackOption func(*PaystackAdapter)

// WithHTTPClient replaces the default client. Its timeout is forced to the
// configured one.
func WithHTTPClient(c *http.Client) PaystackOption {
	return func(a *PaystackAdapter) { a.httpClient = c }
}

// WithMetrics records call latency.
func WithMetrics(m *telemetry.BusinessMetrics) PaystackOption {
	return func(a *PaystackAdapter) { a.metrics = m }
}

// WithLogger sets the adapter logger.
func WithLogger(l *zap.Logger) PaystackOption {
	return func(a *PaystackAdapter) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewPaystackAdapter creates a new Paystack adapter
func NewPaystackAdapter(config *PaystackConfig, opts ...PaystackOption) (*PaystackAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	a := &PaystackAdapter{
		config:     config,
		httpClient: &http.Client{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.httpClient.Timeout = config.Timeout
	return a, nil
}

var _ finance.PaymentGateway = (*PaystackAdapter)(nil)

// Name returns the processor name
func (a *PaystackAdapter) Name() string {
	return paystackName
}

// InitializeTransaction creates a hosted checkout session
func (a *PaystackAdapter) InitializeTransaction(ctx context.Context, req *finance.InitializeRequest) (*finance.InitializeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	callbackURL := req.CallbackURL
	if callbackURL == "" {
		callbackURL = a.config.CallbackURL
	}
	body, err := json.Marshal(paystackInitializeRequest{
		Email:       req.Email,
		Amount:      toMinorUnits(req.Amount, req.Currency),
		Currency:    string(req.Currency),
		Reference:   req.Reference,
		CallbackURL: callbackURL,
		Metadata:    req.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("paystack: failed to marshal request: %w", err)
	}

	const op = "initialize"
	raw, err := a.doRequest(ctx, op, http.MethodPost, paystackInitializePath, body)
	if err != nil {
		return nil, err
	}

	var data paystackInitializeData
	if err := json.Unmarshal(raw, &data); err != nil || data.AuthorizationURL == "" {
		return nil, finance.NewRetryableGatewayError(op, "INVALID_RESPONSE", finance.ErrGatewayInvalidResponse)
	}
	if data.Reference == "" {
		data.Reference = req.Reference
	}
	return &finance.InitializeResponse{
		Reference:        data.Reference,
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
	}, nil
}

// VerifyTransaction fetches the final state of a transaction
func (a *PaystackAdapter) VerifyTransaction(ctx context.Context, reference string) (*finance.Transaction, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, finance.NewTerminalGatewayError("verify", "INVALID_REFERENCE", finance.ErrGatewayInvalidReference)
	}

	const op = "verify"
	raw, err := a.doRequest(ctx, op, http.MethodGet, paystackVerifyPath+url.PathEscape(reference), nil)
	if err != nil {
		return nil, err
	}

	var tx paystackTransaction
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, finance.NewRetryableGatewayError(op, "INVALID_RESPONSE", finance.ErrGatewayInvalidResponse)
	}
	if tx.Reference != "" && tx.Reference != reference {
		return nil, finance.NewRetryableGatewayError(op, "REFERENCE_MISMATCH",
			fmt.Errorf("%w: asked for %s, got %s", finance.ErrGatewayInvalidResponse, reference, tx.Reference))
	}
	if tx.Reference == "" {
		tx.Reference = reference
	}
	return tx.toDomain(), nil
}

// VerifyWebhookSignature checks the hex HMAC-SHA512 of payload
func (a *PaystackAdapter) VerifyWebhookSignature(payload []byte, signature string) bool {
	if signature == "" {
		return false
	}
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	return hmac.Equal(got, signPayload(a.config.WebhookSecret, payload))
}

// ParseWebhook decodes a webhook body
func (a *PaystackAdapter) ParseWebhook(payload []byte) (*finance.WebhookEvent, error) {
	var hook paystackWebhook
	if err := json.Unmarshal(payload, &hook); err != nil {
		return nil, fmt.Errorf("paystack: failed to parse webhook: %w", err)
	}
	if hook.Event == "" {
		return nil, errors.New("paystack: webhook has no event type")
	}
	return &finance.WebhookEvent{
		Event:       hook.Event,
		Transaction: *hook.Data.toDomain(),
	}, nil
}

// doRequest performs one API call and returns the envelope's data field.
// Transport failures, timeouts, 429 and 5xx are retryable; other 4xx
// responses are terminal for the attempt.
func (a *PaystackAdapter) doRequest(ctx context.Context, op, method, path string, body []byte) (_ json.RawMessage, err error) {
	ctx, span := telemetry.StartSpan(ctx, "paystack."+op,
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute("gateway.name", paystackName),
	)
	start := time.Now()
	defer func() {
		a.metrics.RecordGatewayCall(ctx, paystackName, op, time.Since(start), err)
		if err != nil {
			telemetry.RecordError(span, err)
		}
		span.End()
	}()

	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.config.BaseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("paystack: failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.config.SecretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.logger.Warn("Gateway request failed", zap.String("op", op), zap.Error(err))
		return nil, finance.NewRetryableGatewayError(op, "UNAVAILABLE",
			fmt.Errorf("%w: %v", finance.ErrGatewayUnavailable, err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, finance.NewRetryableGatewayError(op, "UNAVAILABLE",
			fmt.Errorf("%w: reading response: %v", finance.ErrGatewayUnavailable, err))
	}
	telemetry.SetAttributes(span, "http.status_code", resp.StatusCode)

	var env paystackEnvelope
	decodeErr := json.Unmarshal(respBody, &env)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		return nil, finance.NewRetryableGatewayError(op, "UNAVAILABLE",
			fmt.Errorf("%w: HTTP %d", finance.ErrGatewayUnavailable, resp.StatusCode))
	case resp.StatusCode == http.StatusNotFound && op == "verify":
		return nil, finance.NewTerminalGatewayError(op, "INVALID_REFERENCE",
			fmt.Errorf("%w: %s", finance.ErrGatewayInvalidReference, env.Message))
	case resp.StatusCode >= http.StatusBadRequest:
		if op == "verify" && strings.Contains(strings.ToLower(env.Message), "reference not found") {
			return nil, finance.NewTerminalGatewayError(op, "INVALID_REFERENCE",
				fmt.Errorf("%w: %s", finance.ErrGatewayInvalidReference, env.Message))
		}
		return nil, finance.NewTerminalGatewayError(op, "DECLINED",
			fmt.Errorf("%w: HTTP %d: %s", finance.ErrGatewayDeclined, resp.StatusCode, env.Message))
	}

	if decodeErr != nil {
		return nil, finance.NewRetryableGatewayError(op, "INVALID_RESPONSE",
			fmt.Errorf("%w: %v", finance.ErrGatewayInvalidResponse, decodeErr))
	}
	if !env.Status {
		return nil, finance.NewTerminalGatewayError(op, "DECLINED",
			fmt.Errorf("%w: %s", finance.ErrGatewayDeclined, env.Message))
	}
	return env.Data, nil
}

func (t *paystackTransaction) toDomain() *finance.Transaction {
	currency := valueobject.Currency(strings.ToUpper(t.Currency))
	tx := &finance.Transaction{
		Reference:       t.Reference,
		Status:          finance.ParseGatewayStatus(t.Status),
		Amount:          fromMinorUnits(t.Amount, currency),
		Currency:        currency,
		Channel:         t.Channel,
		GatewayResponse: t.GatewayResponse,
		Metadata:        t.Metadata,
	}
	if t.Fees != nil {
		tx.Fees = decimal.NewNullDecimal(fromMinorUnits(*t.Fees, currency))
	}
	if t.PaidAt != "" {
		if ts, err := time.Parse(time.RFC3339, t.PaidAt); err == nil {
			tx.PaidAt = &ts
		}
	}
	return tx
}

func signPayload(secret string, payload []byte) []byte {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(payload)
	return mac.Sum(nil)
}

// SignWebhook returns the signature header value for payload. Used by
// tests and local tooling that replays webhooks.
func SignWebhook(secret string, payload []byte) string {
	return hex.EncodeToString(signPayload(secret, payload))
}

func toMinorUnits(amount decimal.Decimal, c valueobject.Currency) int64 {
	return amount.Shift(c.MinorUnits()).Round(0).IntPart()
}

func fromMinorUnits(amount int64, c valueobject.Currency) decimal.Decimal {
	return decimal.New(amount, -c.MinorUnits())
}
