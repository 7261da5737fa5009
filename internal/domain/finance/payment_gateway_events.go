package finance

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bizdocs/backend/internal/domain/shared"
)

// Aggregate type for gateway events; the aggregate id is the invoice id.
const AggregateTypeGatewayPayment = "GatewayPayment"

const (
	EventTypeGatewayPaymentInitiated = "GatewayPaymentInitiated"
	EventTypeGatewayPaymentVerified  = "GatewayPaymentVerified"
)

// GatewayPaymentInitiatedEvent is raised when a hosted payment session is created
type GatewayPaymentInitiatedEvent struct {
	shared.BaseDomainEvent
	Reference     string          `json:"reference"`
	TotalWithFees decimal.Decimal `json:"total_with_fees"`
	GatewayFee    decimal.Decimal `json:"gateway_fee"`
}

// NewGatewayPaymentInitiatedEvent creates a new GatewayPaymentInitiatedEvent
func NewGatewayPaymentInitiatedEvent(invoiceID uuid.UUID, reference string, preview FeePreview) *GatewayPaymentInitiatedEvent {
	return &GatewayPaymentInitiatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeGatewayPaymentInitiated, AggregateTypeGatewayPayment, invoiceID),
		Reference:       reference,
		TotalWithFees:   preview.TotalWithFees,
		GatewayFee:      preview.GatewayFee,
	}
}

// GatewayPaymentVerifiedEvent is raised once per reference when a verified
// transaction has been applied to an invoice
type GatewayPaymentVerifiedEvent struct {
	shared.BaseDomainEvent
	Reference  string          `json:"reference"`
	Amount     decimal.Decimal `json:"amount"`
	GatewayFee decimal.Decimal `json:"gateway_fee"`
	Surplus    decimal.Decimal `json:"surplus"`
}

// NewGatewayPaymentVerifiedEvent creates a new GatewayPaymentVerifiedEvent
func NewGatewayPaymentVerifiedEvent(invoiceID uuid.UUID, reference string, amount, fee, surplus decimal.Decimal) *GatewayPaymentVerifiedEvent {
	return &GatewayPaymentVerifiedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeGatewayPaymentVerified, AggregateTypeGatewayPayment, invoiceID),
		Reference:       reference,
		Amount:          amount,
		GatewayFee:      fee,
		Surplus:         surplus,
	}
}
