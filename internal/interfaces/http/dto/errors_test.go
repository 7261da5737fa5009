package dto

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizdocs/backend/internal/domain/billing"
	"github.com/bizdocs/backend/internal/domain/finance"
	"github.com/bizdocs/backend/internal/domain/shared"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeAlreadyExists, http.StatusConflict},
		{ErrCodeConcurrencyConflict, http.StatusConflict},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodeInvalidTransition, http.StatusUnprocessableEntity},
		{ErrCodeGatewayUnavailable, http.StatusServiceUnavailable},
		{ErrCodeGatewayRejected, http.StatusPaymentRequired},
		{ErrCodeGatewaySignature, http.StatusUnauthorized},
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestMapError_DomainKinds(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
		reason string
	}{
		{"validation", shared.NewValidationError("INVALID_AMOUNT", "Amount must be positive"), http.StatusBadRequest, ErrCodeValidation, "INVALID_AMOUNT"},
		{"invalid state", shared.NewInvalidStateError("PAYMENT_EXCEEDS_BALANCE", "too much"), http.StatusUnprocessableEntity, ErrCodeInvalidState, "PAYMENT_EXCEEDS_BALANCE"},
		{"transition", shared.NewInvalidTransitionError("invoice", billing.InvoiceStatusPaid, billing.InvoiceStatusSent), http.StatusUnprocessableEntity, ErrCodeInvalidTransition, "INVALID_TRANSITION"},
		{"not found", shared.ErrNotFound, http.StatusNotFound, ErrCodeNotFound, "NOT_FOUND"},
		{"conflict", shared.ErrConcurrencyConflict, http.StatusConflict, ErrCodeConcurrencyConflict, "CONCURRENCY_CONFLICT"},
		{"duplicate", shared.ErrDuplicate, http.StatusConflict, ErrCodeAlreadyExists, "DUPLICATE"},
		{"wrapped", fmt.Errorf("load invoice: %w", shared.ErrNotFound), http.StatusNotFound, ErrCodeNotFound, "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := MapError(tt.err)
			assert.Equal(t, tt.status, m.Status)
			assert.Equal(t, tt.code, m.Info.Code)
			assert.Equal(t, tt.reason, m.Info.Details["reason"])
		})
	}
}

func TestMapError_TransitionKeepsDetails(t *testing.T) {
	m := MapError(shared.NewInvalidTransitionError("invoice", billing.InvoiceStatusPaid, billing.InvoiceStatusSent))
	assert.Equal(t, "paid", m.Info.Details["from"])
	assert.Equal(t, "sent", m.Info.Details["to"])
}

func TestMapError_Gateway(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"retryable", finance.NewRetryableGatewayError("verify", "timeout", finance.ErrGatewayUnavailable), http.StatusServiceUnavailable, ErrCodeGatewayUnavailable},
		{"declined", finance.NewTerminalGatewayError("verify", "abandoned", finance.ErrGatewayDeclined), http.StatusPaymentRequired, ErrCodeGatewayRejected},
		{"mismatch", finance.NewTerminalGatewayError("verify", "short", finance.ErrGatewayAmountMismatch), http.StatusPaymentRequired, ErrCodeGatewayRejected},
		{"signature", finance.NewTerminalGatewayError("webhook", "", finance.ErrGatewayInvalidSignature), http.StatusUnauthorized, ErrCodeGatewaySignature},
		{"not configured", finance.NewTerminalGatewayError("initiate", "", finance.ErrGatewayNotConfigured), http.StatusServiceUnavailable, ErrCodeGatewayNotConfigured},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := MapError(tt.err)
			assert.Equal(t, tt.status, m.Status)
			assert.Equal(t, tt.code, m.Info.Code)
		})
	}
}

func TestMapError_Unknown(t *testing.T) {
	m := MapError(fmt.Errorf("boom"))
	assert.Equal(t, http.StatusInternalServerError, m.Status)
	assert.Equal(t, ErrCodeInternal, m.Info.Code)
	assert.NotContains(t, m.Info.Message, "boom")
}

func TestErrorResponseJSON(t *testing.T) {
	resp := NewErrorResponseWithRequestID(MapError(shared.ErrNotFound).Info, "req-test-123")

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, false, decoded["success"])
	body := decoded["error"].(map[string]any)
	assert.Equal(t, ErrCodeNotFound, body["code"])
	assert.Equal(t, "req-test-123", body["request_id"])
	_, hasData := decoded["data"]
	assert.False(t, hasData)
}

func TestNewSuccessResponseWithMetaPagination(t *testing.T) {
	tests := []struct {
		total         int64
		pageSize      int
		expectedPages int
		expectedSize  int
	}{
		{100, 10, 10, 10},
		{101, 10, 11, 10},
		{0, 10, 0, 10},
		{9, 10, 1, 10},
		{100, 0, 5, 20},
		{100, -1, 5, 20},
	}

	for _, tt := range tests {
		resp := NewSuccessResponseWithMeta(nil, tt.total, 1, tt.pageSize)
		assert.Equal(t, tt.expectedPages, resp.Meta.TotalPages)
		assert.Equal(t, tt.expectedSize, resp.Meta.PageSize)
	}
}
