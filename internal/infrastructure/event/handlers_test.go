package event

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/bizdocs/backend/internal/domain/billing"
	"github.com/bizdocs/backend/internal/domain/fulfillment"
	"github.com/bizdocs/backend/internal/domain/shared"
	"github.com/bizdocs/backend/internal/infrastructure/cache"
	"github.com/bizdocs/backend/internal/infrastructure/telemetry"
)

func TestAuditLogHandler(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := NewAuditLogHandler(zap.New(core))
	assert.Empty(t, h.EventTypes())

	e := newTestEvent("InvoiceSent")
	require.NoError(t, h.Handle(context.Background(), e))

	entries := logs.FilterMessage("Domain event").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "InvoiceSent", entries[0].ContextMap()["event_type"])
	assert.Equal(t, e.AggregateID().String(), entries[0].ContextMap()["aggregate_id"])
}

func TestMetricsHandler(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()
	bm, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{Meter: provider.Meter("test")})
	require.NoError(t, err)

	bus := NewInMemoryEventBus(nil)
	bus.Subscribe(NewMetricsHandler(bm))

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx,
		&billing.PaymentAppliedEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(billing.EventTypePaymentApplied, billing.AggregateTypeInvoice, uuid.New()),
			Method:          "cash",
			Amount:          decimal.RequireFromString("400.00"),
		},
		&fulfillment.OrderStatusChangedEvent{
			BaseDomainEvent: shared.NewBaseDomainEvent(fulfillment.EventTypeOrderStatusChanged, fulfillment.AggregateTypeOrder, uuid.New()),
			From:            "pending",
			To:              "confirmed",
		},
		newTestEvent("Unrelated"),
	))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	assert.True(t, names["payments_applied_total"])
	assert.True(t, names["document_status_transitions_total"])
	assert.False(t, names["stock_takes_completed_total"])
}

type failingStore struct{}

func (failingStore) MarkProcessed(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("store down")
}
func (failingStore) IsProcessed(context.Context, string) (bool, error) { return false, nil }
func (failingStore) Forget(context.Context, string) error             { return nil }
func (failingStore) Close() error                                     { return nil }

func TestIdempotentHandler(t *testing.T) {
	ctx := context.Background()
	cfg := shared.DefaultIdempotencyConfig()

	t.Run("duplicates are skipped", func(t *testing.T) {
		store := cache.NewInMemoryIdempotencyStore(0)
		defer store.Close()
		inner := &recordingHandler{types: []string{"A"}}
		h := NewIdempotentHandler(inner, store, cfg, nil)
		assert.Equal(t, []string{"A"}, h.EventTypes())

		e := newTestEvent("A")
		require.NoError(t, h.Handle(ctx, e))
		require.NoError(t, h.Handle(ctx, e))
		require.NoError(t, h.Handle(ctx, newTestEvent("A")))
		assert.Equal(t, 2, inner.count())
	})

	t.Run("handler failure releases the key", func(t *testing.T) {
		store := cache.NewInMemoryIdempotencyStore(0)
		defer store.Close()
		inner := &recordingHandler{err: errors.New("fail")}
		h := NewIdempotentHandler(inner, store, cfg, nil)

		e := newTestEvent("A")
		assert.Error(t, h.Handle(ctx, e))
		inner.err = nil
		assert.NoError(t, h.Handle(ctx, e))
		assert.Equal(t, 2, inner.count())
	})

	t.Run("store failure still processes", func(t *testing.T) {
		inner := &recordingHandler{}
		h := NewIdempotentHandler(inner, failingStore{}, cfg, nil)
		require.NoError(t, h.Handle(ctx, newTestEvent("A")))
		assert.Equal(t, 1, inner.count())
	})

	t.Run("disabled passes through", func(t *testing.T) {
		inner := &recordingHandler{}
		h := NewIdempotentHandler(inner, failingStore{}, shared.IdempotencyConfig{Enabled: false}, nil)
		e := newTestEvent("A")
		_ = h.Handle(ctx, e)
		_ = h.Handle(ctx, e)
		assert.Equal(t, 2, inner.count())
	})
}
