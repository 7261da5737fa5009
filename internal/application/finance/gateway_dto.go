package finance

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	billingapp "github.com/bizdocs/backend/internal/application/billing"
)

// Verification outcomes reported to callers and metrics
const (
	OutcomeApplied        = "applied"
	OutcomeAlreadyApplied = "already_applied"
	OutcomePending        = "pending"
	OutcomeNothingDue     = "nothing_due"
	OutcomeFailed         = "failed"
	OutcomeIgnored        = "ignored"
)

// InitiatePaymentRequest starts a hosted card payment for an invoice
type InitiatePaymentRequest struct {
	// Email overrides the invoice's customer email
	Email       string `json:"email" binding:"omitempty,email"`
	CallbackURL string `json:"callback_url" binding:"omitempty,url"`
}

// VerifyPaymentRequest asks for a gateway transaction to be checked and applied
type VerifyPaymentRequest struct {
	Reference string `json:"reference" binding:"required,max=100"`
}

// FeePreviewResponse shows the card surcharge before a payment starts
type FeePreviewResponse struct {
	InvoiceID              uuid.UUID       `json:"invoice_id"`
	Currency               string          `json:"currency"`
	BalanceDue             decimal.Decimal `json:"balance_due"`
	GatewayFee             decimal.Decimal `json:"gateway_fee"`
	TotalWithFees          decimal.Decimal `json:"total_with_fees"`
	FormattedBalanceDue    string          `json:"formatted_balance_due"`
	FormattedGatewayFee    string          `json:"formatted_gateway_fee"`
	FormattedTotalWithFees string          `json:"formatted_total_with_fees"`
}

// InitiatePaymentResponse carries the hosted checkout to redirect the payer to
type InitiatePaymentResponse struct {
	Reference        string             `json:"reference"`
	AuthorizationURL string             `json:"authorization_url"`
	AccessCode       string             `json:"access_code,omitempty"`
	Gateway          string             `json:"gateway"`
	Preview          FeePreviewResponse `json:"preview"`
}

// VerifyPaymentResponse reports what verification did
type VerifyPaymentResponse struct {
	Outcome       string                      `json:"outcome"`
	Reference     string                      `json:"reference"`
	GatewayStatus string                      `json:"gateway_status,omitempty"`
	AmountApplied decimal.Decimal             `json:"amount_applied"`
	GatewayFee    decimal.Decimal             `json:"gateway_fee"`
	Surplus       decimal.Decimal             `json:"surplus"`
	Invoice       *billingapp.InvoiceResponse `json:"invoice,omitempty"`
}

// WebhookResponse reports how a gateway notification was handled
type WebhookResponse struct {
	Event     string     `json:"event"`
	Reference string     `json:"reference,omitempty"`
	InvoiceID *uuid.UUID `json:"invoice_id,omitempty"`
	Outcome   string     `json:"outcome"`
}
