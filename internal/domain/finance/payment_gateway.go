package finance

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bizdocs/backend/internal/domain/shared"
	"github.com/bizdocs/backend/internal/domain/shared/valueobject"
)

// ---------------------------------------------------------------------------
// Payment Gateway Errors
// ---------------------------------------------------------------------------

var (
	// Retryable: the attempt may succeed if repeated
	ErrGatewayUnavailable     = errors.New("payment: gateway temporarily unavailable")
	ErrGatewayInvalidResponse = errors.New("payment: invalid gateway response")

	// Terminal for this attempt
	ErrGatewayDeclined         = errors.New("payment: transaction declined")
	ErrGatewayInvalidReference = errors.New("payment: unknown transaction reference")
	ErrGatewayAmountMismatch   = errors.New("payment: settled amount does not cover the invoice")
	ErrGatewayInvalidSignature = errors.New("payment: invalid webhook signature")
	ErrGatewayNotConfigured    = errors.New("payment: gateway not configured")
)

// GatewayError carries a gateway failure together with whether the caller
// may retry it.
type GatewayError struct {
	Op        string
	Code      string
	Retryable bool
	Err       error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// NewRetryableGatewayError wraps a transient failure (timeout, 5xx, malformed reply)
func NewRetryableGatewayError(op, code string, err error) *GatewayError {
	return &GatewayError{Op: op, Code: code, Retryable: true, Err: err}
}

// NewTerminalGatewayError wraps a failure that will not succeed on retry
func NewTerminalGatewayError(op, code string, err error) *GatewayError {
	return &GatewayError{Op: op, Code: code, Retryable: false, Err: err}
}

// IsRetryable reports whether err is a retryable gateway error
func IsRetryable(err error) bool {
	var ge *GatewayError
	return errors.As(err, &ge) && ge.Retryable
}

// AsGatewayError extracts a GatewayError from an error chain
func AsGatewayError(err error) (*GatewayError, bool) {
	var ge *GatewayError
	ok := errors.As(err, &ge)
	return ge, ok
}

// ---------------------------------------------------------------------------
// GatewayTransactionStatus is the processor's view of a transaction
type GatewayTransactionStatus string

const (
	GatewayStatusSuccess   GatewayTransactionStatus = "success"
	GatewayStatusPending   GatewayTransactionStatus = "pending"
	GatewayStatusFailed    GatewayTransactionStatus = "failed"
	GatewayStatusAbandoned GatewayTransactionStatus = "abandoned"
	GatewayStatusReversed  GatewayTransactionStatus = "reversed"
)

// ParseGatewayStatus maps a processor status string. Unknown values are
// treated as pending so they are re-queried rather than settled.
func ParseGatewayStatus(s string) GatewayTransactionStatus {
	switch st := GatewayTransactionStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case GatewayStatusSuccess, GatewayStatusFailed, GatewayStatusAbandoned, GatewayStatusReversed:
		return st
	}
	return GatewayStatusPending
}

func (s GatewayTransactionStatus) String() string {
	return string(s)
}

// IsSuccess returns true if money was captured
func (s GatewayTransactionStatus) IsSuccess() bool {
	return s == GatewayStatusSuccess
}

// IsFinal returns true once the status can no longer change to success
func (s GatewayTransactionStatus) IsFinal() bool {
	return s != GatewayStatusPending
}

// ---------------------------------------------------------------------------
// Request/Response types
// ---------------------------------------------------------------------------

// InitializeRequest asks the gateway for a hosted payment session
type InitializeRequest struct {
	Reference   string
	Email       string
	Amount      decimal.Decimal
	Currency    valueobject.Currency
	CallbackURL string
	Metadata    map[string]string
}

// Validate validates the initialize request
func (r *InitializeRequest) Validate() error {
	if strings.TrimSpace(r.Reference) == "" {
		return shared.NewValidationError("INVALID_REFERENCE", "Payment reference is required")
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return shared.NewValidationError("INVALID_EMAIL", "A valid customer email is required for card payments")
	}
	if !r.Amount.IsPositive() {
		return shared.NewValidationError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if !r.Currency.Valid() {
		return shared.NewValidationError("INVALID_CURRENCY", "Unknown currency: "+string(r.Currency))
	}
	return nil
}

// InitializeResponse is a created payment session
type InitializeResponse struct {
	Reference        string
	AuthorizationURL string
	AccessCode       string
}

// Transaction is a verified gateway transaction. Amounts are in major units.
type Transaction struct {
	Reference       string
	Status          GatewayTransactionStatus
	Amount          decimal.Decimal
	Fees            decimal.NullDecimal
	Currency        valueobject.Currency
	PaidAt          *time.Time
	Channel         string
	GatewayResponse string
	Metadata        map[string]string
}

// WebhookEvent is a parsed, signature-checked gateway notification
type WebhookEvent struct {
	Event       string
	Transaction Transaction
}

// IsChargeSuccess reports whether the event confirms a captured charge
func (e *WebhookEvent) IsChargeSuccess() bool {
	return e.Event == "charge.success"
}

// ---------------------------------------------------------------------------
// PaymentGateway Port Interface
// ---------------------------------------------------------------------------

// PaymentGateway is the port for a hosted card-payment processor. Adapters
// live in the infrastructure layer and must bound every call with a timeout,
// reporting expiry as a retryable GatewayError.
type PaymentGateway interface {
	// Name identifies the processor
	Name() string

	// InitializeTransaction creates a hosted payment session
	InitializeTransaction(ctx context.Context, req *InitializeRequest) (*InitializeResponse, error)

	// VerifyTransaction queries the final status of a transaction
	VerifyTransaction(ctx context.Context, reference string) (*Transaction, error)

	// VerifyWebhookSignature checks a notification payload against its signature header
	VerifyWebhookSignature(payload []byte, signature string) bool

	// ParseWebhook decodes a notification payload
	ParseWebhook(payload []byte) (*WebhookEvent, error)
}
