package valueobject

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestToNumber(t *testing.T) {
	s := "12.5"
	tests := []struct {
		name     string
		value    any
		fallback float64
		want     float64
	}{
		{"nil", nil, 7, 7},
		{"float", 3.25, 0, 3.25},
		{"int", 4, 0, 4},
		{"int64", int64(9), 0, 9},
		{"uint8", uint8(2), 0, 2},
		{"numeric string", " 1,250.75 ", 0, 1250.75},
		{"string pointer", &s, 0, 12.5},
		{"nil string pointer", (*string)(nil), 1, 1},
		{"garbage string", "abc", -1, -1},
		{"empty string", "", 0, 0},
		{"NaN string", "NaN", 0, 0},
		{"Inf string", "Inf", 5, 5},
		{"NaN float", math.NaN(), 2, 2},
		{"infinite float", math.Inf(1), 2, 2},
		{"json number", json.Number("42"), 0, 42},
		{"decimal", decimal.RequireFromString("0.1"), 0, 0.1},
		{"bool is unsupported", true, 8, 8},
		{"struct is unsupported", struct{}{}, 8, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToNumber(tt.value, tt.fallback)
			assert.Equal(t, tt.want, got)
			assert.False(t, math.IsNaN(got))
			assert.False(t, math.IsInf(got, 0))
		})
	}
}

func TestToDecimal(t *testing.T) {
	fallback := decimal.NewFromInt(-1)

	assert.Equal(t, "0.1", ToDecimal("0.1", fallback).String())
	assert.Equal(t, "100", ToDecimal(100, fallback).String())
	assert.Equal(t, "2.9", ToDecimal(json.Number("2.9"), fallback).String())
	assert.Equal(t, "-1", ToDecimal("nope", fallback).String())
	assert.Equal(t, "-1", ToDecimal(nil, fallback).String())
	assert.Equal(t, "-1", ToDecimal(math.NaN(), fallback).String())
	assert.Equal(t, "-1", ToDecimal((*decimal.Decimal)(nil), fallback).String())

	d := decimal.RequireFromString("3.14")
	assert.True(t, ToDecimal(&d, fallback).Equal(d))
}

func TestClampPercent(t *testing.T) {
	assert.Equal(t, "0", ClampPercent(decimal.NewFromInt(-5)).String())
	assert.Equal(t, "100", ClampPercent(decimal.NewFromInt(150)).String())
	assert.Equal(t, "15", ClampPercent(decimal.NewFromInt(15)).String())
	assert.Equal(t, "0.15", Percent(decimal.NewFromInt(15)).String())
}

func TestFitsStorage(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"0", true},
		{"99999999999999.9999", true},
		{"-99999999999999.9999", true},
		{"100000000000000", false},
		{"1e14", false},
		{"1e13", true},
		{"0.0001", true},
		{"0.00004", false},
		{"12.50000000", true},
		{"12.500001", false},
		{"1e999999999", false},
		{"1e-999999999", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FitsStorage(decimal.RequireFromString(tt.in)))
		})
	}
}
