package valueobject

import (
	"encoding/json"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount and quantity columns are DECIMAL(18,4).
const (
	MaxIntegerDigits  = 14
	MaxFractionDigits = 4
)

var (
	hundred = decimal.NewFromInt(100)
	bigTen  = big.NewInt(10)
)

// FitsStorage reports whether d has at most MaxIntegerDigits integer digits
// and MaxFractionDigits significant decimals. It reads only the coefficient
// and exponent, so values like 1e999999999 are rejected without being
// expanded.
func FitsStorage(d decimal.Decimal) bool {
	coef := new(big.Int).Abs(d.Coefficient())
	if coef.Sign() == 0 {
		return true
	}
	exp := int64(d.Exponent())
	rem := new(big.Int)
	for exp < -MaxFractionDigits {
		coef.QuoRem(coef, bigTen, rem)
		if rem.Sign() != 0 {
			return false
		}
		exp++
	}
	return int64(len(coef.Text(10)))+exp <= MaxIntegerDigits
}

// ToNumber coerces an externally supplied value to a finite float64.
// Strings are trimmed and may carry thousands separators; nil, unparsable
// values, NaN and ±Inf yield fallback. It never panics.
func ToNumber(value any, fallback float64) float64 {
	f, ok := toFloat(value)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return fallback
	}
	return f
}

// ToDecimal is ToNumber for money paths: decimal and string inputs are
// parsed exactly rather than through float64.
func ToDecimal(value any, fallback decimal.Decimal) decimal.Decimal {
	switch v := value.(type) {
	case decimal.Decimal:
		return v
	case *decimal.Decimal:
		if v == nil {
			return fallback
		}
		return *v
	case string:
		d, err := decimal.NewFromString(normalizeNumeric(v))
		if err != nil {
			return fallback
		}
		return d
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err != nil {
			return fallback
		}
		return d
	}
	f, ok := toFloat(value)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return fallback
	}
	return decimal.NewFromFloat(f)
}

// ClampPercent bounds a percentage to [0, 100].
func ClampPercent(p decimal.Decimal) decimal.Decimal {
	if p.IsNegative() {
		return decimal.Zero
	}
	if p.GreaterThan(hundred) {
		return hundred
	}
	return p
}

// Percent converts a percentage (15 for 15%) to a rate (0.15).
func Percent(p decimal.Decimal) decimal.Decimal {
	return p.Div(hundred)
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case decimal.Decimal:
		return v.InexactFloat64(), true
	case string:
		f, err := strconv.ParseFloat(normalizeNumeric(v), 64)
		return f, err == nil
	case *string:
		if v == nil {
			return 0, false
		}
		return toFloat(*v)
	case *float64:
		if v == nil {
			return 0, false
		}
		return *v, true
	default:
		return 0, false
	}
}

func normalizeNumeric(s string) string {
	s = strings.TrimSpace(s)
	return strings.ReplaceAll(s, ",", "")
}
