package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bizdocs/backend/internal/domain/shared"
	"github.com/bizdocs/backend/internal/domain/shared/valueobject"
)

// PaymentMethod is how a payment was made
type PaymentMethod string

const (
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodCash         PaymentMethod = "cash"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodEFT          PaymentMethod = "eft"
	PaymentMethodGateway      PaymentMethod = "gateway"
	PaymentMethodOther        PaymentMethod = "other"
)

// IsValid checks if the method is known
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodBankTransfer, PaymentMethodCash, PaymentMethodCard,
		PaymentMethodEFT, PaymentMethodGateway, PaymentMethodOther:
		return true
	}
	return false
}

func (m PaymentMethod) String() string {
	return string(m)
}

// Payment is an immutable record of money applied to an invoice.
// Refunds are separate Payments with a negative Amount and RefundOf set.
type Payment struct {
	ID               uuid.UUID
	InvoiceID        uuid.UUID
	Amount           decimal.Decimal
	Method           PaymentMethod
	GatewayReference string
	GatewayFee       decimal.NullDecimal
	RefundOf         *uuid.UUID
	Note             string
	AppliedAt        time.Time
}

// IsRefund reports whether the payment offsets an earlier one
func (p Payment) IsRefund() bool {
	return p.RefundOf != nil
}

// PaymentInput describes a payment to apply
type PaymentInput struct {
	Amount           decimal.Decimal
	Method           PaymentMethod
	GatewayReference string
	GatewayFee       *decimal.Decimal
	Note             string
	AppliedAt        time.Time
}

func (in PaymentInput) validate() error {
	if !in.Amount.IsPositive() {
		return shared.NewValidationError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if !valueobject.FitsStorage(in.Amount) {
		return amountOutOfRange("INVALID_AMOUNT", "Payment amount")
	}
	if !in.Method.IsValid() {
		return shared.NewValidationError("INVALID_PAYMENT_METHOD", "Unknown payment method: "+string(in.Method))
	}
	if in.Method == PaymentMethodGateway && in.GatewayReference == "" {
		return shared.NewValidationError("MISSING_GATEWAY_REFERENCE", "Gateway payments require a gateway reference")
	}
	if in.GatewayFee != nil {
		if in.Method != PaymentMethodGateway {
			return shared.NewValidationError("UNEXPECTED_GATEWAY_FEE", "Gateway fee is only recorded for gateway payments")
		}
		if in.GatewayFee.IsNegative() {
			return shared.NewValidationError("INVALID_GATEWAY_FEE", "Gateway fee cannot be negative")
		}
		if !valueobject.FitsStorage(*in.GatewayFee) {
			return amountOutOfRange("INVALID_GATEWAY_FEE", "Gateway fee")
		}
	}
	return nil
}

func amountOutOfRange(code, label string) error {
	return shared.NewValidationError(code, fmt.Sprintf("%s must have at most %d integer digits and %d decimals",
		label, valueobject.MaxIntegerDigits, valueobject.MaxFractionDigits))
}
