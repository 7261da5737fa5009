package costing

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizdocs/backend/internal/domain/shared"
)

func TestParseLine(t *testing.T) {
	t.Run("accepts strings and numbers", func(t *testing.T) {
		desc, in, err := ParseLine(RawLine{
			Description:     "  Consulting ",
			Quantity:        "2",
			UnitPrice:       100,
			DiscountPercent: json.Number("10"),
			TaxRate:         15.0,
		})
		require.NoError(t, err)
		assert.Equal(t, "Consulting", desc)
		assert.True(t, in.Quantity.Equal(d("2")))
		assert.True(t, in.UnitPrice.Equal(d("100")))
		assert.True(t, in.DiscountPercent.Equal(d("10")))
		assert.True(t, in.TaxRate.Equal(d("15")))
	})

	t.Run("missing percentages default to zero", func(t *testing.T) {
		_, in, err := ParseLine(RawLine{Description: "Widget", Quantity: 1, UnitPrice: "5", TaxRate: ""})
		require.NoError(t, err)
		assert.True(t, in.DiscountPercent.IsZero())
		assert.True(t, in.TaxRate.IsZero())
	})

	tests := []struct {
		name string
		raw  RawLine
		code string
	}{
		{"empty description", RawLine{Description: " ", Quantity: 1, UnitPrice: 1}, "INVALID_DESCRIPTION"},
		{"negative quantity", RawLine{Description: "x", Quantity: -1, UnitPrice: 1}, "INVALID_QUANTITY"},
		{"missing quantity", RawLine{Description: "x", UnitPrice: 1}, "INVALID_QUANTITY"},
		{"garbage price", RawLine{Description: "x", Quantity: 1, UnitPrice: "abc"}, "INVALID_PRICE"},
		{"discount above 100", RawLine{Description: "x", Quantity: 1, UnitPrice: 1, DiscountPercent: 101}, "INVALID_DISCOUNT"},
		{"negative tax", RawLine{Description: "x", Quantity: 1, UnitPrice: 1, TaxRate: "-1"}, "INVALID_TAX_RATE"},
		{"huge exponent quantity", RawLine{Description: "x", Quantity: "1e999999999", UnitPrice: "1"}, "INVALID_QUANTITY"},
		{"huge exponent json price", RawLine{Description: "x", Quantity: 1, UnitPrice: json.Number("1e999999999")}, "INVALID_PRICE"},
		{"fifteen integer digits", RawLine{Description: "x", Quantity: "100000000000000", UnitPrice: 1}, "INVALID_QUANTITY"},
		{"five decimals", RawLine{Description: "x", Quantity: "0.00004", UnitPrice: 1000}, "INVALID_QUANTITY"},
		{"five decimal discount", RawLine{Description: "x", Quantity: 1, UnitPrice: 1, DiscountPercent: "12.34567"}, "INVALID_DISCOUNT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseLine(tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, shared.ErrValidation)
			var de *shared.DomainError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.code, de.Code)
		})
	}
}

func TestNewLineItem_StorageBounds(t *testing.T) {
	t.Run("largest storable inputs", func(t *testing.T) {
		item, err := NewLineItem(uuid.New(), 1, RawLine{Description: "x", Quantity: "99999999999999.9999", UnitPrice: "1"}, 4)
		require.NoError(t, err)
		assert.True(t, item.Total.Equal(d("99999999999999.9999")))
	})

	t.Run("product beyond storage", func(t *testing.T) {
		_, err := NewLineItem(uuid.New(), 1, RawLine{Description: "x", Quantity: "10000000", UnitPrice: "10000000"}, 2)
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "LINE_TOO_LARGE", de.Code)
		assert.ErrorIs(t, err, shared.ErrValidation)
	})

	t.Run("four decimals survive a recompute", func(t *testing.T) {
		item, err := NewLineItem(uuid.New(), 1, RawLine{Description: "x", Quantity: "0.0004", UnitPrice: 1000}, 2)
		require.NoError(t, err)
		before := item.Total
		item.Recompute(2)
		assert.True(t, item.Total.Equal(before))
		assert.True(t, before.Equal(d("0.4")))
	})
}

func TestSheet_TotalBeyondStorage(t *testing.T) {
	docID := uuid.New()
	sheet := NewSheet()
	_, err := sheet.AddLine(docID, RawLine{Description: "A", Quantity: "60000000000000", UnitPrice: 1}, 2)
	require.NoError(t, err)
	second, err := sheet.AddLine(docID, RawLine{Description: "B", Quantity: 1, UnitPrice: 1}, 2)
	require.NoError(t, err)
	secondID := second.ID

	_, err = sheet.AddLine(docID, RawLine{Description: "C", Quantity: "60000000000000", UnitPrice: 1}, 2)
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.Equal(t, 2, sheet.ItemCount())

	_, err = sheet.UpdateLine(secondID, RawLine{Description: "B", Quantity: "60000000000000", UnitPrice: 1}, 2)
	assert.ErrorIs(t, err, shared.ErrValidation)
	item, ok := sheet.Item(secondID)
	require.True(t, ok)
	assert.True(t, item.Quantity.Equal(d("1")))
	assert.True(t, sheet.Totals.Total.Equal(d("60000000000001")))
}

func TestSheet(t *testing.T) {
	docID := uuid.New()
	sheet := NewSheet()

	first, err := sheet.AddLine(docID, RawLine{Description: "A", Quantity: 2, UnitPrice: 100, DiscountPercent: 10, TaxRate: 15}, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Position)
	assert.True(t, sheet.Totals.Total.Equal(d("207")))

	second, err := sheet.AddLine(docID, RawLine{Description: "B", Quantity: 1, UnitPrice: 50}, 2)
	require.NoError(t, err)
	secondID := second.ID
	assert.True(t, sheet.Totals.Total.Equal(d("257")))

	t.Run("update recomputes line and totals", func(t *testing.T) {
		updated, err := sheet.UpdateLine(secondID, RawLine{Description: "B", Quantity: 3, UnitPrice: 50, TaxRate: 15}, 2)
		require.NoError(t, err)
		assert.True(t, updated.Total.Equal(d("172.5")))
		assert.True(t, sheet.Totals.Total.Equal(d("379.5")))
	})

	t.Run("failed update leaves line intact", func(t *testing.T) {
		_, err := sheet.UpdateLine(secondID, RawLine{Description: "B", Quantity: -3, UnitPrice: 50}, 2)
		require.Error(t, err)
		item, ok := sheet.Item(secondID)
		require.True(t, ok)
		assert.True(t, item.Quantity.Equal(d("3")))
	})

	t.Run("update unknown line", func(t *testing.T) {
		_, err := sheet.UpdateLine(uuid.New(), RawLine{Description: "B", Quantity: 1, UnitPrice: 1}, 2)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("remove renumbers and recalculates", func(t *testing.T) {
		require.NoError(t, sheet.RemoveLine(sheet.Items[0].ID, 2))
		require.Equal(t, 1, sheet.ItemCount())
		assert.Equal(t, 1, sheet.Items[0].Position)
		assert.True(t, sheet.Totals.Total.Equal(d("172.5")))
		assert.ErrorIs(t, sheet.RemoveLine(uuid.New(), 2), shared.ErrNotFound)
	})
}
