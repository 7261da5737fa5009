package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	billingapp "github.com/bizdocs/backend/internal/application/billing"
	financeapp "github.com/bizdocs/backend/internal/application/finance"
	fulfillmentapp "github.com/bizdocs/backend/internal/application/fulfillment"
	inventoryapp "github.com/bizdocs/backend/internal/application/inventory"
	"github.com/bizdocs/backend/internal/domain/finance"
	"github.com/bizdocs/backend/internal/infrastructure/config"
	"github.com/bizdocs/backend/internal/infrastructure/persistence"
	"github.com/bizdocs/backend/internal/interfaces/http/dto"
	"github.com/bizdocs/backend/internal/interfaces/http/middleware"
)

// testServer wires real services over a private sqlite database.
type testServer struct {
	router  *gin.Engine
	gateway *fakeGateway
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()

	db, err := persistence.NewDatabase(context.Background(), &config.DatabaseConfig{
		Driver:       "sqlite",
		SQLitePath:   fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, persistence.WithAutoMigrate())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	invoices := billingapp.NewInvoiceService(invoiceRepo, nil, nil, billingapp.ServiceConfig{}, nil)
	schedule, err := finance.NewFeeSchedule(decimal.RequireFromString("2.9"), decimal.NewFromInt(2), nil)
	require.NoError(t, err)
	gw := newFakeGateway()
	payments := financeapp.NewGatewayPaymentService(invoiceRepo, invoices, gw, schedule, nil, nil, nil,
		financeapp.GatewayServiceConfig{CallbackURL: "https://shop.example/paid"}, nil)
	orders := fulfillmentapp.NewOrderService(persistence.NewGormOrderRepository(db.DB), nil, billingapp.ServiceConfig{}, nil)
	takes := inventoryapp.NewStockTakingService(persistence.NewGormStockTakeRepository(db.DB), nil, 3, nil)

	invoiceHandler := NewInvoiceHandler(invoices)
	gatewayHandler := NewGatewayPaymentHandler(payments)
	orderHandler := NewOrderHandler(orders)
	stockHandler := NewStockTakingHandler(takes)

	r := gin.New()
	r.Use(middleware.RequestID())
	api := r.Group("/api/v1")

	api.POST("/invoices", invoiceHandler.Create)
	api.GET("/invoices", invoiceHandler.List)
	api.POST("/invoices/overdue/sweep", invoiceHandler.SweepOverdue)
	api.GET("/invoices/number/:number", invoiceHandler.GetByNumber)
	api.GET("/invoices/:id", invoiceHandler.GetByID)
	api.PUT("/invoices/:id", invoiceHandler.Update)
	api.DELETE("/invoices/:id", invoiceHandler.Delete)
	api.POST("/invoices/:id/items", invoiceHandler.AddItem)
	api.POST("/invoices/:id/send", invoiceHandler.Send)
	api.POST("/invoices/:id/cancel", invoiceHandler.Cancel)
	api.POST("/invoices/:id/transition", invoiceHandler.Transition)
	api.POST("/invoices/:id/payments", invoiceHandler.RecordPayment)
	api.POST("/invoices/:id/payments/:payment_id/refund", invoiceHandler.Refund)
	api.GET("/invoices/:id/gateway/preview", gatewayHandler.Preview)
	api.POST("/invoices/:id/gateway/initiate", gatewayHandler.Initiate)
	api.POST("/invoices/:id/gateway/verify", gatewayHandler.Verify)
	api.POST("/payments/webhook", gatewayHandler.Webhook)

	api.POST("/orders", orderHandler.Create)
	api.GET("/orders/:id", orderHandler.GetByID)
	api.POST("/orders/:id/transition", orderHandler.Transition)
	api.POST("/orders/:id/cancel", orderHandler.Cancel)

	api.POST("/stock-takes", stockHandler.Create)
	api.GET("/stock-takes", stockHandler.List)
	api.POST("/stock-takes/:id/start", stockHandler.Start)
	api.POST("/stock-takes/:id/counts", stockHandler.RecordCounts)
	api.POST("/stock-takes/:id/complete", stockHandler.Complete)
	api.POST("/stock-takes/:id/cancel", stockHandler.Cancel)
	api.GET("/stock-takes/:id/summary", stockHandler.GetVarianceSummary)
	api.GET("/stock-takes/:id/progress", stockHandler.GetProgress)

	return &testServer{router: r, gateway: gw}
}

// envelope decodes the response wrapper with a typed payload
type envelope[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data"`
	Error   *dto.ErrorInfo `json:"error"`
	Meta    *dto.Meta      `json:"meta"`
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

// createSentInvoice creates and sends an invoice totalling 1000.00
func (s *testServer) createSentInvoice(t *testing.T) billingapp.InvoiceResponse {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/invoices", map[string]any{
		"customer_name":  "Acme Stores",
		"customer_email": "accounts@acme.test",
		"currency":       "ZAR",
		"items": []map[string]any{
			{"description": "Shelving", "quantity": "4", "unit_price": "250"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[billingapp.InvoiceResponse](t, w)

	w = s.do(t, http.MethodPost, "/api/v1/invoices/"+created.Data.ID.String()+"/send", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[billingapp.InvoiceResponse](t, w).Data
}

// fakeGateway answers verification from a fixed table of transactions
type fakeGateway struct {
	transactions map[string]*finance.Transaction
	events       map[string]*finance.WebhookEvent
	signature    string
	initialized  []*finance.InitializeRequest
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		transactions: make(map[string]*finance.Transaction),
		events:       make(map[string]*finance.WebhookEvent),
		signature:    "valid-signature",
	}
}

func (g *fakeGateway) Name() string { return "paystack" }

func (g *fakeGateway) InitializeTransaction(_ context.Context, req *finance.InitializeRequest) (*finance.InitializeResponse, error) {
	g.initialized = append(g.initialized, req)
	return &finance.InitializeResponse{
		Reference:        req.Reference,
		AuthorizationURL: "https://checkout.paystack.com/" + req.Reference,
		AccessCode:       "code",
	}, nil
}

func (g *fakeGateway) VerifyTransaction(_ context.Context, reference string) (*finance.Transaction, error) {
	tx, ok := g.transactions[reference]
	if !ok {
		return nil, finance.NewTerminalGatewayError("verify", "NOT_FOUND",
			fmt.Errorf("%w: %s", finance.ErrGatewayInvalidReference, reference))
	}
	return tx, nil
}

func (g *fakeGateway) VerifyWebhookSignature(_ []byte, signature string) bool {
	return signature == g.signature
}

func (g *fakeGateway) ParseWebhook(payload []byte) (*finance.WebhookEvent, error) {
	ev, ok := g.events[string(payload)]
	if !ok {
		return nil, finance.NewTerminalGatewayError("webhook", "INVALID_PAYLOAD", finance.ErrGatewayInvalidResponse)
	}
	return ev, nil
}
