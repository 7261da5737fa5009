package finance

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizdocs/backend/internal/domain/shared"
	"github.com/bizdocs/backend/internal/domain/shared/valueobject"
)

func mustSchedule(t *testing.T, percent, fixed string, cap *decimal.Decimal) FeeSchedule {
	s, err := NewFeeSchedule(decimal.RequireFromString(percent), decimal.RequireFromString(fixed), cap)
	require.NoError(t, err)
	return s
}

func TestFeeSchedule_Preview(t *testing.T) {
	t.Run("percentage plus fixed", func(t *testing.T) {
		s := mustSchedule(t, "2.9", "2", nil)
		p := s.Preview(decimal.NewFromInt(1000), valueobject.ZAR)

		// fee = fixed + percent x balance
		want := decimal.NewFromInt(2).Add(decimal.RequireFromString("0.029").Mul(decimal.NewFromInt(1000)))
		assert.True(t, want.Equal(p.GatewayFee))
		assert.Equal(t, "31.00", p.GatewayFee.StringFixed(2))
		assert.Equal(t, "1031.00", p.TotalWithFees.StringFixed(2))
		assert.True(t, p.TotalWithFees.Equal(p.BalanceDue.Add(p.GatewayFee)))
	})

	t.Run("rounds to minor units", func(t *testing.T) {
		s := mustSchedule(t, "2.9", "0.30", nil)
		p := s.Preview(decimal.RequireFromString("33.33"), valueobject.USD)
		// 33.33 x 0.029 = 0.96657, + 0.30 = 1.26657
		assert.Equal(t, "1.27", p.GatewayFee.String())
		assert.Equal(t, "34.6", p.TotalWithFees.String())
	})

	t.Run("cap applies", func(t *testing.T) {
		limit := decimal.NewFromInt(50)
		s := mustSchedule(t, "2.9", "2", &limit)
		p := s.Preview(decimal.NewFromInt(10000), valueobject.ZAR)
		assert.Equal(t, "50", p.GatewayFee.String())
	})

	t.Run("zero balance has no fee", func(t *testing.T) {
		s := mustSchedule(t, "2.9", "2", nil)
		p := s.Preview(decimal.Zero, valueobject.ZAR)
		assert.True(t, p.GatewayFee.IsZero())
		assert.True(t, p.TotalWithFees.IsZero())
	})

	t.Run("preview is repeatable", func(t *testing.T) {
		s := mustSchedule(t, "2.9", "2", nil)
		a := s.Preview(decimal.NewFromInt(1000), valueobject.ZAR)
		b := s.Preview(decimal.NewFromInt(1000), valueobject.ZAR)
		assert.Equal(t, a, b)
	})
}

func TestNewFeeSchedule_Validation(t *testing.T) {
	_, err := NewFeeSchedule(decimal.NewFromInt(-1), decimal.Zero, nil)
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = NewFeeSchedule(decimal.NewFromInt(101), decimal.Zero, nil)
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = NewFeeSchedule(decimal.NewFromInt(1), decimal.NewFromInt(-2), nil)
	assert.ErrorIs(t, err, shared.ErrValidation)

	negative := decimal.NewFromInt(-5)
	_, err = NewFeeSchedule(decimal.NewFromInt(1), decimal.Zero, &negative)
	assert.ErrorIs(t, err, shared.ErrValidation)
}
