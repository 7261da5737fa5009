package costing

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bizdocs/backend/internal/domain/shared"
	"github.com/bizdocs/backend/internal/domain/shared/valueobject"
)

// RawLine is a line as received from outside the core. Numeric fields may be
// strings, numbers or nil and are read through valueobject.ToDecimal.
type RawLine struct {
	Description     string
	ProductID       *uuid.UUID
	Quantity        any
	UnitPrice       any
	DiscountPercent any
	TaxRate         any
}

var (
	minusOne = decimal.NewFromInt(-1)
	hundred  = decimal.NewFromInt(100)
)

// ParseLine coerces and validates a raw line. Unparsable numbers are
// rejected rather than silently treated as zero, except percentages which
// default to zero when absent.
func ParseLine(raw RawLine) (string, LineInput, error) {
	description := strings.TrimSpace(raw.Description)
	if description == "" {
		return "", LineInput{}, shared.NewValidationError("INVALID_DESCRIPTION", "Line description cannot be empty")
	}
	if len(description) > 500 {
		return "", LineInput{}, shared.NewValidationError("INVALID_DESCRIPTION", "Line description cannot exceed 500 characters")
	}

	qty := valueobject.ToDecimal(raw.Quantity, minusOne)
	if qty.IsNegative() {
		return "", LineInput{}, shared.NewValidationError("INVALID_QUANTITY", "Quantity must be a non-negative number")
	}
	if !valueobject.FitsStorage(qty) {
		return "", LineInput{}, outOfRange("INVALID_QUANTITY", "Quantity")
	}
	price := valueobject.ToDecimal(raw.UnitPrice, minusOne)
	if price.IsNegative() {
		return "", LineInput{}, shared.NewValidationError("INVALID_PRICE", "Unit price must be a non-negative number")
	}
	if !valueobject.FitsStorage(price) {
		return "", LineInput{}, outOfRange("INVALID_PRICE", "Unit price")
	}

	discount, err := parsePercent(raw.DiscountPercent, "INVALID_DISCOUNT", "Discount percent")
	if err != nil {
		return "", LineInput{}, err
	}
	tax, err := parsePercent(raw.TaxRate, "INVALID_TAX_RATE", "Tax rate")
	if err != nil {
		return "", LineInput{}, err
	}

	return description, LineInput{
		Quantity:        qty,
		UnitPrice:       price,
		DiscountPercent: discount,
		TaxRate:         tax,
	}, nil
}

func parsePercent(value any, code, label string) (decimal.Decimal, error) {
	if value == nil {
		return decimal.Zero, nil
	}
	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	p := valueobject.ToDecimal(value, minusOne)
	if !valueobject.FitsStorage(p) || p.IsNegative() || p.GreaterThan(hundred) {
		return decimal.Zero, shared.NewValidationError(code,
			fmt.Sprintf("%s must be between 0 and 100 with at most %d decimals", label, valueobject.MaxFractionDigits))
	}
	return p, nil
}

func outOfRange(code, label string) error {
	return shared.NewValidationError(code, fmt.Sprintf("%s must have at most %d integer digits and %d decimals",
		label, valueobject.MaxIntegerDigits, valueobject.MaxFractionDigits))
}

func checkCost(cost LineCost) error {
	if !valueobject.FitsStorage(cost.Subtotal) || !valueobject.FitsStorage(cost.Total) {
		return outOfRange("LINE_TOO_LARGE", "Line amount")
	}
	return nil
}

// LineItem is one row of a document. Its derived amounts are only ever
// written by Recompute.
type LineItem struct {
	ID              uuid.UUID
	DocumentID      uuid.UUID
	Position        int
	ProductID       *uuid.UUID
	Description     string
	Quantity        decimal.Decimal
	UnitPrice       decimal.Decimal
	DiscountPercent decimal.Decimal
	TaxRate         decimal.Decimal
	LineCost
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewLineItem validates raw input and returns a costed line.
func NewLineItem(documentID uuid.UUID, position int, raw RawLine, scale int32) (*LineItem, error) {
	description, in, err := ParseLine(raw)
	if err != nil {
		return nil, err
	}
	cost := ComputeLine(in, scale)
	if err := checkCost(cost); err != nil {
		return nil, err
	}
	now := time.Now()
	item := &LineItem{
		ID:          uuid.New(),
		DocumentID:  documentID,
		Position:    position,
		ProductID:   raw.ProductID,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	item.apply(in, cost)
	return item, nil
}

// Update replaces the line's inputs and recomputes every derived field.
func (l *LineItem) Update(raw RawLine, scale int32) error {
	description, in, err := ParseLine(raw)
	if err != nil {
		return err
	}
	cost := ComputeLine(in, scale)
	if err := checkCost(cost); err != nil {
		return err
	}
	l.Description = description
	if raw.ProductID != nil {
		l.ProductID = raw.ProductID
	}
	l.apply(in, cost)
	l.UpdatedAt = time.Now()
	return nil
}

// Input returns the line's numeric inputs.
func (l *LineItem) Input() LineInput {
	return LineInput{
		Quantity:        l.Quantity,
		UnitPrice:       l.UnitPrice,
		DiscountPercent: l.DiscountPercent,
		TaxRate:         l.TaxRate,
	}
}

// Recompute re-derives the line amounts from its inputs.
func (l *LineItem) Recompute(scale int32) {
	l.LineCost = ComputeLine(l.Input(), scale)
}

func (l *LineItem) apply(in LineInput, cost LineCost) {
	l.Quantity = in.Quantity
	l.UnitPrice = in.UnitPrice
	l.DiscountPercent = in.DiscountPercent
	l.TaxRate = in.TaxRate
	l.LineCost = cost
}

// Summarize recomputes every line and returns the document totals.
func Summarize(items []LineItem, scale int32) Totals {
	costs := make([]LineCost, len(items))
	for i := range items {
		items[i].Recompute(scale)
		costs[i] = items[i].LineCost
	}
	return Sum(costs)
}
