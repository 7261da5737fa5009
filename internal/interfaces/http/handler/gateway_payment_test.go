package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	billingapp "github.com/bizdocs/backend/internal/application/billing"
	financeapp "github.com/bizdocs/backend/internal/application/finance"
	"github.com/bizdocs/backend/internal/domain/finance"
	"github.com/bizdocs/backend/internal/domain/shared/valueobject"
	"github.com/bizdocs/backend/internal/interfaces/http/dto"
)

func settledTx(reference, invoiceID, amount string) *finance.Transaction {
	return &finance.Transaction{
		Reference: reference,
		Status:    finance.GatewayStatusSuccess,
		Amount:    decimal.RequireFromString(amount),
		Currency:  valueobject.ZAR,
		Channel:   "card",
		Metadata:  map[string]string{financeapp.MetadataInvoiceID: invoiceID},
	}
}

func TestGatewayPaymentHandler_Preview(t *testing.T) {
	s := newTestServer(t)
	inv := s.createSentInvoice(t)

	w := s.do(t, http.MethodGet, "/api/v1/invoices/"+inv.ID.String()+"/gateway/preview", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	preview := decode[financeapp.FeePreviewResponse](t, w).Data
	// 1000 × 2.9% + 2
	assert.True(t, decimal.RequireFromString("1000").Equal(preview.BalanceDue))
	assert.True(t, decimal.RequireFromString("31").Equal(preview.GatewayFee))
	assert.True(t, decimal.RequireFromString("1031").Equal(preview.TotalWithFees))
}

func TestGatewayPaymentHandler_Initiate(t *testing.T) {
	s := newTestServer(t)
	inv := s.createSentInvoice(t)

	w := s.do(t, http.MethodPost, "/api/v1/invoices/"+inv.ID.String()+"/gateway/initiate", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[financeapp.InitiatePaymentResponse](t, w).Data
	assert.NotEmpty(t, resp.Reference)
	assert.True(t, strings.HasPrefix(resp.AuthorizationURL, "https://checkout.paystack.com/"))
	require.Len(t, s.gateway.initialized, 1)
	assert.True(t, decimal.RequireFromString("1031").Equal(s.gateway.initialized[0].Amount))
	assert.Equal(t, "accounts@acme.test", s.gateway.initialized[0].Email)
}

func TestGatewayPaymentHandler_Verify(t *testing.T) {
	s := newTestServer(t)
	inv := s.createSentInvoice(t)
	path := "/api/v1/invoices/" + inv.ID.String() + "/gateway/verify"
	s.gateway.transactions["REF-OK"] = settledTx("REF-OK", inv.ID.String(), "1031")

	t.Run("applies the settled payment", func(t *testing.T) {
		w := s.do(t, http.MethodPost, path, map[string]any{"reference": "REF-OK"})

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decode[financeapp.VerifyPaymentResponse](t, w).Data
		assert.Equal(t, financeapp.OutcomeApplied, resp.Outcome)
		assert.True(t, decimal.RequireFromString("1000").Equal(resp.AmountApplied))
		assert.True(t, decimal.RequireFromString("31").Equal(resp.GatewayFee))
		require.NotNil(t, resp.Invoice)
		assert.Equal(t, "paid", resp.Invoice.Status)
	})

	t.Run("repeating the call applies nothing", func(t *testing.T) {
		w := s.do(t, http.MethodPost, path, map[string]any{"reference": "REF-OK"})

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, financeapp.OutcomeAlreadyApplied, decode[financeapp.VerifyPaymentResponse](t, w).Data.Outcome)

		got := decode[billingapp.InvoiceResponse](t, s.do(t, http.MethodGet, "/api/v1/invoices/"+inv.ID.String(), nil)).Data
		assert.Len(t, got.Payments, 1)
	})

	t.Run("reference is required", func(t *testing.T) {
		w := s.do(t, http.MethodPost, path, map[string]any{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestGatewayPaymentHandler_VerifyRejected(t *testing.T) {
	s := newTestServer(t)
	inv := s.createSentInvoice(t)
	path := "/api/v1/invoices/" + inv.ID.String() + "/gateway/verify"

	t.Run("underpayment", func(t *testing.T) {
		s.gateway.transactions["REF-SHORT"] = settledTx("REF-SHORT", inv.ID.String(), "1000")

		w := s.do(t, http.MethodPost, path, map[string]any{"reference": "REF-SHORT"})

		assert.Equal(t, http.StatusPaymentRequired, w.Code)
		env := decode[any](t, w)
		assert.Equal(t, dto.ErrCodeGatewayRejected, env.Error.Code)
		assert.Equal(t, "AMOUNT_MISMATCH", env.Error.Details["reason"])
	})

	t.Run("unknown reference", func(t *testing.T) {
		w := s.do(t, http.MethodPost, path, map[string]any{"reference": "REF-NOPE"})
		assert.Equal(t, http.StatusPaymentRequired, w.Code)
	})

	got := decode[billingapp.InvoiceResponse](t, s.do(t, http.MethodGet, "/api/v1/invoices/"+inv.ID.String(), nil)).Data
	assert.Equal(t, "sent", got.Status)
	assert.Empty(t, got.Payments)
}

func TestGatewayPaymentHandler_Webhook(t *testing.T) {
	s := newTestServer(t)
	inv := s.createSentInvoice(t)
	tx := settledTx("REF-HOOK", inv.ID.String(), "1031")
	s.gateway.transactions["REF-HOOK"] = tx
	payload := `{"event":"charge.success","data":{"reference":"REF-HOOK"}}`
	s.gateway.events[payload] = &finance.WebhookEvent{Event: "charge.success", Transaction: *tx}

	post := func(signature string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/webhook", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(SignatureHeader, signature)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		return w
	}

	t.Run("bad signature", func(t *testing.T) {
		w := post("forged")

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeGatewaySignature, decode[any](t, w).Error.Code)
	})

	t.Run("signed charge is applied", func(t *testing.T) {
		w := post(s.gateway.signature)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decode[financeapp.WebhookResponse](t, w).Data
		assert.Equal(t, financeapp.OutcomeApplied, resp.Outcome)
		require.NotNil(t, resp.InvoiceID)
		assert.Equal(t, inv.ID, *resp.InvoiceID)
	})

	t.Run("redelivery is a no-op", func(t *testing.T) {
		w := post(s.gateway.signature)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, financeapp.OutcomeAlreadyApplied, decode[financeapp.WebhookResponse](t, w).Data.Outcome)
	})
}
