package finance

import (
	"github.com/shopspring/decimal"

	"github.com/bizdocs/backend/internal/domain/shared"
	"github.com/bizdocs/backend/internal/domain/shared/valueobject"
)

var hundred = decimal.NewFromInt(100)

// FeeSchedule is a processor's surcharge: a percentage of the amount plus a
// fixed component, optionally capped.
type FeeSchedule struct {
	Percent decimal.Decimal
	Fixed   decimal.Decimal
	Cap     decimal.NullDecimal
}

// NewFeeSchedule validates and builds a fee schedule. A nil cap means uncapped.
func NewFeeSchedule(percent, fixed decimal.Decimal, cap *decimal.Decimal) (FeeSchedule, error) {
	if percent.IsNegative() || percent.GreaterThan(hundred) {
		return FeeSchedule{}, shared.NewValidationError("INVALID_FEE_PERCENT", "Fee percent must be between 0 and 100")
	}
	if fixed.IsNegative() {
		return FeeSchedule{}, shared.NewValidationError("INVALID_FEE_FIXED", "Fixed fee cannot be negative")
	}
	s := FeeSchedule{Percent: percent, Fixed: fixed}
	if cap != nil {
		if cap.IsNegative() {
			return FeeSchedule{}, shared.NewValidationError("INVALID_FEE_CAP", "Fee cap cannot be negative")
		}
		s.Cap = decimal.NewNullDecimal(*cap)
	}
	return s, nil
}

// Fee returns the surcharge for amount, rounded to scale decimals.
// Nothing is charged on a zero or negative amount.
func (s FeeSchedule) Fee(amount decimal.Decimal, scale int32) decimal.Decimal {
	if !amount.IsPositive() {
		return decimal.Zero
	}
	fee := amount.Mul(valueobject.Percent(s.Percent)).Add(s.Fixed)
	if s.Cap.Valid && fee.GreaterThan(s.Cap.Decimal) {
		fee = s.Cap.Decimal
	}
	return fee.Round(scale)
}

// FeePreview is what the payer sees before starting a card payment
type FeePreview struct {
	BalanceDue    decimal.Decimal      `json:"balance_due"`
	GatewayFee    decimal.Decimal      `json:"gateway_fee"`
	TotalWithFees decimal.Decimal      `json:"total_with_fees"`
	Currency      valueobject.Currency `json:"currency"`
}

// Preview computes the fee on a balance. It has no side effects.
func (s FeeSchedule) Preview(balanceDue decimal.Decimal, currency valueobject.Currency) FeePreview {
	if balanceDue.IsNegative() {
		balanceDue = decimal.Zero
	}
	fee := s.Fee(balanceDue, currency.MinorUnits())
	return FeePreview{
		BalanceDue:    balanceDue,
		GatewayFee:    fee,
		TotalWithFees: balanceDue.Add(fee),
		Currency:      currency,
	}
}
