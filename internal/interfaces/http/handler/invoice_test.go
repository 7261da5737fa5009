package handler

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	billingapp "github.com/bizdocs/backend/internal/application/billing"
	"github.com/bizdocs/backend/internal/interfaces/http/dto"
)

func TestInvoiceHandler_Create(t *testing.T) {
	s := newTestServer(t)

	t.Run("prices lines and returns 201", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/invoices", map[string]any{
			"customer_name": "Acme Stores",
			"currency":      "ZAR",
			"items": []map[string]any{
				{"description": "Shelving", "quantity": "2", "unit_price": "100", "discount_percent": "10", "tax_rate": "15"},
			},
		})

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		env := decode[billingapp.InvoiceResponse](t, w)
		assert.True(t, env.Success)
		assert.Equal(t, "draft", env.Data.Status)
		assert.True(t, decimal.RequireFromString("200").Equal(env.Data.Subtotal))
		assert.True(t, decimal.RequireFromString("20").Equal(env.Data.DiscountAmount))
		assert.True(t, decimal.RequireFromString("27").Equal(env.Data.TaxAmount))
		assert.True(t, decimal.RequireFromString("207").Equal(env.Data.Total))
		assert.NotEmpty(t, env.Data.InvoiceNumber)
	})

	t.Run("missing customer is a field error", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/invoices", map[string]any{"currency": "ZAR"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decode[any](t, w)
		require.NotNil(t, env.Error)
		assert.Equal(t, dto.ErrCodeValidation, env.Error.Code)
		assert.Contains(t, env.Error.Details, "customer_name")
	})

	t.Run("malformed json", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/invoices", `{"customer_name":`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidJSON, decode[any](t, w).Error.Code)
	})
}

func TestInvoiceHandler_GetByID(t *testing.T) {
	s := newTestServer(t)

	t.Run("bad id", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/v1/invoices/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown invoice", func(t *testing.T) {
		w := s.do(t, http.MethodGet, "/api/v1/invoices/8d3c2a8e-5f0e-4a51-9e1a-3c7b6d1f0a11", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, dto.ErrCodeNotFound, decode[any](t, w).Error.Code)
	})
}

func TestInvoiceHandler_List(t *testing.T) {
	s := newTestServer(t)
	s.createSentInvoice(t)
	s.createSentInvoice(t)

	w := s.do(t, http.MethodGet, "/api/v1/invoices?status=sent&page=1&page_size=1", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	env := decode[[]billingapp.InvoiceListResponse](t, w)
	assert.Len(t, env.Data, 1)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(2), env.Meta.Total)
	assert.Equal(t, 2, env.Meta.TotalPages)

	w = s.do(t, http.MethodGet, "/api/v1/invoices?status=unknown", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvoiceHandler_RecordPayment(t *testing.T) {
	s := newTestServer(t)
	inv := s.createSentInvoice(t)
	path := "/api/v1/invoices/" + inv.ID.String() + "/payments"

	w := s.do(t, http.MethodPost, path, map[string]any{"amount": "400.00", "method": "eft"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	partial := decode[billingapp.InvoiceResponse](t, w).Data
	assert.Equal(t, "partial", partial.Status)
	assert.True(t, decimal.RequireFromString("600").Equal(partial.BalanceDue))

	t.Run("overpayment is rejected", func(t *testing.T) {
		w := s.do(t, http.MethodPost, path, map[string]any{"amount": "600.01", "method": "cash"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decode[any](t, w)
		assert.Equal(t, dto.ErrCodeValidation, env.Error.Code)
		assert.Equal(t, "EXCEEDS_BALANCE_DUE", env.Error.Details["reason"])
	})

	t.Run("non-positive amount fails binding", func(t *testing.T) {
		w := s.do(t, http.MethodPost, path, map[string]any{"amount": "0", "method": "cash"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("settling the balance marks the invoice paid", func(t *testing.T) {
		w := s.do(t, http.MethodPost, path, map[string]any{"amount": "600", "method": "cash"})

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		paid := decode[billingapp.InvoiceResponse](t, w).Data
		assert.Equal(t, "paid", paid.Status)
		assert.True(t, paid.IsPaid)
		assert.True(t, paid.BalanceDue.IsZero())
		assert.Len(t, paid.Payments, 2)
	})

	t.Run("refund reopens the balance", func(t *testing.T) {
		current := decode[billingapp.InvoiceResponse](t, s.do(t, http.MethodGet, "/api/v1/invoices/"+inv.ID.String(), nil)).Data
		require.NotEmpty(t, current.Payments)
		refundPath := path + "/" + current.Payments[0].ID.String() + "/refund"

		w := s.do(t, http.MethodPost, refundPath, map[string]any{"amount": "100", "reason": "Damaged shelf"})

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		refunded := decode[billingapp.InvoiceResponse](t, w).Data
		assert.Equal(t, "partial", refunded.Status)
		assert.True(t, decimal.RequireFromString("100").Equal(refunded.BalanceDue))
	})
}

func TestInvoiceHandler_GetByNumber(t *testing.T) {
	s := newTestServer(t)
	inv := s.createSentInvoice(t)

	w := s.do(t, http.MethodGet, "/api/v1/invoices/number/"+inv.InvoiceNumber, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, inv.ID, decode[billingapp.InvoiceResponse](t, w).Data.ID)

	w = s.do(t, http.MethodGet, "/api/v1/invoices/number/INV-19990101-000000", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInvoiceHandler_Transition(t *testing.T) {
	s := newTestServer(t)
	inv := s.createSentInvoice(t)
	path := "/api/v1/invoices/" + inv.ID.String() + "/transition"

	w := s.do(t, http.MethodPost, path, map[string]any{"status": "viewed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "viewed", decode[billingapp.InvoiceResponse](t, w).Data.Status)

	t.Run("paid needs the money first", func(t *testing.T) {
		w := s.do(t, http.MethodPost, path, map[string]any{"status": "paid"})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidState, decode[any](t, w).Error.Code)
	})

	t.Run("edges outside the table", func(t *testing.T) {
		w := s.do(t, http.MethodPost, path, map[string]any{"status": "draft"})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		env := decode[any](t, w)
		assert.Equal(t, dto.ErrCodeInvalidTransition, env.Error.Code)
		assert.Equal(t, "viewed", env.Error.Details["from"])
	})

	t.Run("unknown status", func(t *testing.T) {
		w := s.do(t, http.MethodPost, path, map[string]any{"status": "archived"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("paid invoices cannot become overdue", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/v1/invoices/"+inv.ID.String()+"/payments", map[string]any{"amount": "1000", "method": "eft"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = s.do(t, http.MethodPost, path, map[string]any{"status": "overdue"})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidTransition, decode[any](t, w).Error.Code)
	})
}

func TestInvoiceHandler_RejectsUnstorableNumbers(t *testing.T) {
	s := newTestServer(t)

	for name, qty := range map[string]any{
		"huge exponent string": "1e999999999",
		"huge exponent number": json.Number("1e999999999"),
		"fifteen digits":       "100000000000000",
		"five decimals":        "0.00004",
	} {
		t.Run(name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/v1/invoices", map[string]any{
				"customer_name": "Acme Stores",
				"items": []map[string]any{
					{"description": "Shelving", "quantity": qty, "unit_price": "1000"},
				},
			})
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, dto.ErrCodeValidation, decode[any](t, w).Error.Code)
		})
	}

	inv := s.createSentInvoice(t)
	w := s.do(t, http.MethodPost, "/api/v1/invoices/"+inv.ID.String()+"/payments", `{"amount":1e999999999,"method":"eft"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
}

func TestInvoiceHandler_Lifecycle(t *testing.T) {
	s := newTestServer(t)
	inv := s.createSentInvoice(t)
	base := "/api/v1/invoices/" + inv.ID.String()

	t.Run("sent invoices cannot take new lines", func(t *testing.T) {
		w := s.do(t, http.MethodPost, base+"/items", map[string]any{"description": "Bracket", "quantity": "1", "unit_price": "5"})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("sending twice is an invalid transition", func(t *testing.T) {
		w := s.do(t, http.MethodPost, base+"/send", nil)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		env := decode[any](t, w)
		assert.Equal(t, dto.ErrCodeInvalidTransition, env.Error.Code)
		assert.Equal(t, "sent", env.Error.Details["from"])
	})

	t.Run("cancel requires a reason", func(t *testing.T) {
		w := s.do(t, http.MethodPost, base+"/cancel", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("cancel then delete", func(t *testing.T) {
		w := s.do(t, http.MethodPost, base+"/cancel", map[string]any{"reason": "Raised in error"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "cancelled", decode[billingapp.InvoiceResponse](t, w).Data.Status)

		w = s.do(t, http.MethodDelete, base, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = s.do(t, http.MethodGet, base, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestInvoiceHandler_SweepOverdue(t *testing.T) {
	s := newTestServer(t)
	s.createSentInvoice(t)

	w := s.do(t, http.MethodPost, "/api/v1/invoices/overdue/sweep", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode[billingapp.OverdueSweepResponse](t, w).Data
	assert.Zero(t, result.MarkedOverdue, "fresh invoices are not yet due")
}
