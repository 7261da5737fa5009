package valueobject

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	ZAR Currency = "ZAR" // South African Rand (default)
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	NGN Currency = "NGN"
	KES Currency = "KES"
	GHS Currency = "GHS"
)

// DefaultCurrency is the default currency for the system
const DefaultCurrency = ZAR

// ErrCurrencyMismatch is returned when combining amounts in different currencies.
var ErrCurrencyMismatch = errors.New("currency mismatch")

// nonTender lists the ISO 4217 codes that do not denote money: precious
// metals, fund units, the test code and "no currency".
var nonTender = map[Currency]struct{}{
	"XAU": {}, "XAG": {}, "XPD": {}, "XPT": {},
	"XBA": {}, "XBB": {}, "XBC": {}, "XBD": {},
	"XDR": {}, "XSU": {}, "XUA": {},
	"XTS": {}, "XXX": {},
}

// Valid reports whether c is an ISO 4217 code known to x/text that denotes a
// tender currency.
func (c Currency) Valid() bool {
	if _, ok := nonTender[c]; ok {
		return false
	}
	_, err := currency.ParseISO(string(c))
	return err == nil
}

// MinorUnits returns the number of decimal places the currency uses
// for cash-independent amounts (2 for ZAR, USD, EUR; 0 for JPY).
func (c Currency) MinorUnits() int32 {
	unit, err := currency.ParseISO(string(c))
	if err != nil {
		return 2
	}
	scale, _ := currency.Standard.Rounding(unit)
	return int32(scale)
}

// Money is a value object representing monetary amounts.
// It is immutable - all operations return new Money instances
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates a new Money with the specified amount and currency
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, errors.New("currency cannot be empty")
	}
	return Money{amount: amount, currency: currency}, nil
}

// MustMoney is NewMoney for callers that already validated the currency.
func MustMoney(amount decimal.Decimal, currency Currency) Money {
	m, err := NewMoney(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// NewMoneyFromString creates Money from a string representation
func NewMoneyFromString(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount string: %w", err)
	}
	return NewMoney(d, currency)
}

// Zero returns a zero-value Money in the specified currency
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() Currency      { return m.currency }
func (m Money) IsZero() bool            { return m.amount.IsZero() }
func (m Money) IsPositive() bool        { return m.amount.IsPositive() }
func (m Money) IsNegative() bool        { return m.amount.IsNegative() }

// Add returns the sum of both amounts.
func (m Money) Add(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("%w: %s and %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// Subtract returns the difference of both amounts.
func (m Money) Subtract(other Money) (Money, error) {
	if m.currency != other.currency {
		return Money{}, fmt.Errorf("%w: %s and %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.currency}, nil
}

// Multiply returns a new Money multiplied by the given factor
func (m Money) Multiply(factor decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(factor), currency: m.currency}
}

// Negate returns a new Money with the sign reversed
func (m Money) Negate() Money {
	return Money{amount: m.amount.Neg(), currency: m.currency}
}

// RoundToMinor rounds half away from zero to the currency's minor unit.
func (m Money) RoundToMinor() Money {
	return Money{amount: m.amount.Round(m.currency.MinorUnits()), currency: m.currency}
}

// MinorAmount returns the amount in minor units (cents), as gateways expect.
func (m Money) MinorAmount() int64 {
	places := m.currency.MinorUnits()
	return m.amount.Shift(places).Round(0).IntPart()
}

// FromMinor builds Money from an amount expressed in minor units.
func FromMinor(minor int64, currency Currency) Money {
	return Money{amount: decimal.NewFromInt(minor).Shift(-currency.MinorUnits()), currency: currency}
}

// Equals returns true if both Money values are equal (same amount and currency)
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// GreaterThan returns true if this Money is greater than the other
func (m Money) GreaterThan(other Money) (bool, error) {
	if m.currency != other.currency {
		return false, fmt.Errorf("%w: %s and %s", ErrCurrencyMismatch, m.currency, other.currency)
	}
	return m.amount.GreaterThan(other.amount), nil
}

// String returns "<amount> <currency>" with the currency's minor-unit precision.
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(m.currency.MinorUnits()), m.currency)
}

// Format renders the amount for display in the given locale: the currency's
// narrow symbol placed the way the locale places it, and the amount grouped
// with exactly the minor-unit number of decimals. Unknown currencies fall back
// to String.
func (m Money) Format(tag language.Tag) string {
	unit, err := currency.ParseISO(string(m.currency))
	if err != nil {
		return m.String()
	}
	places := m.currency.MinorUnits()
	rounded := m.amount.Round(places)

	p := message.NewPrinter(tag)
	symbol := p.Sprint(currency.NarrowSymbol(unit))
	value := formatDigits(p, rounded.Abs().StringFixed(places))
	sign := ""
	if rounded.IsNegative() {
		sign = "-"
	}
	placement := symbolPlacementFor(tag)
	if placement.suffix {
		return sign + value + placement.space + symbol
	}
	return sign + symbol + placement.space + value
}

// formatDigits groups the integer part of a plain non-negative decimal string
// with the printer's locale and joins the fraction with its decimal
// separator. The digits never pass through float64.
func formatDigits(p *message.Printer, plain string) string {
	whole, frac, _ := strings.Cut(plain, ".")
	n, ok := new(big.Int).SetString(whole, 10)
	grouped := whole
	if ok && n.IsInt64() {
		grouped = p.Sprint(number.Decimal(n.Int64()))
	}
	if frac == "" {
		return grouped
	}
	return grouped + decimalSeparator(p) + frac
}

func decimalSeparator(p *message.Printer) string {
	sample := []rune(p.Sprint(number.Decimal(1.5, number.Scale(1))))
	if len(sample) < 3 {
		return "."
	}
	return string(sample[1 : len(sample)-1])
}

type symbolPlacement struct {
	suffix bool
	space  string
}

const nbsp = "\u00a0"

var (
	prefixTight  = symbolPlacement{}
	prefixSpaced = symbolPlacement{space: nbsp}
	suffixSpaced = symbolPlacement{suffix: true, space: nbsp}
)

// symbolPlacements follows the CLDR standard currency patterns per language,
// with regional overrides where a region differs from its language.
var symbolPlacements = map[string]symbolPlacement{
	"de": suffixSpaced, "de-AT": prefixSpaced, "de-CH": prefixSpaced, "de-LI": prefixSpaced,
	"fr": suffixSpaced, "fr-CA": suffixSpaced, "fr-CH": suffixSpaced,
	"es": suffixSpaced, "es-MX": prefixTight, "es-US": prefixTight, "es-419": prefixTight,
	"it": suffixSpaced, "it-CH": prefixSpaced,
	"pt": prefixSpaced, "pt-PT": suffixSpaced,
	"nl": prefixSpaced,
	"sv": suffixSpaced, "nb": suffixSpaced, "no": suffixSpaced, "da": suffixSpaced, "fi": suffixSpaced,
	"pl": suffixSpaced, "cs": suffixSpaced, "sk": suffixSpaced, "hu": suffixSpaced,
	"ru": suffixSpaced, "uk": suffixSpaced, "el": suffixSpaced, "ro": suffixSpaced,
	"bg": suffixSpaced, "hr": suffixSpaced, "lt": suffixSpaced, "lv": suffixSpaced, "et": suffixSpaced,
	"sw": prefixSpaced,
}

var latinAmerica = language.MustParseRegion("419")

func symbolPlacementFor(tag language.Tag) symbolPlacement {
	base, _ := tag.Base()
	region, _ := tag.Region()
	if pl, ok := symbolPlacements[base.String()+"-"+region.String()]; ok {
		return pl
	}
	if latinAmerica.Contains(region) {
		if pl, ok := symbolPlacements[base.String()+"-419"]; ok {
			return pl
		}
	}
	if pl, ok := symbolPlacements[base.String()]; ok {
		return pl
	}
	return prefixTight
}

// FormatCurrency renders amount in currencyCode for the given BCP 47 locale.
// Malformed locales fall back to English.
func FormatCurrency(amount decimal.Decimal, currencyCode string, locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return Money{amount: amount, currency: Currency(currencyCode)}.Format(tag)
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount   string   `json:"amount"`
		Currency Currency `json:"currency"`
	}{
		Amount:   m.amount.StringFixed(m.currency.MinorUnits()),
		Currency: m.currency,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Money) UnmarshalJSON(data []byte) error {
	var v struct {
		Amount   string   `json:"amount"`
		Currency Currency `json:"currency"`
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	amount, err := decimal.NewFromString(v.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	m.amount = amount
	m.currency = v.Currency
	return nil
}
