package event

import (
	"context"

	"go.uber.org/zap"

	"github.com/bizdocs/backend/internal/domain/billing"
	"github.com/bizdocs/backend/internal/domain/fulfillment"
	"github.com/bizdocs/backend/internal/domain/inventory"
	"github.com/bizdocs/backend/internal/domain/shared"
	"github.com/bizdocs/backend/internal/infrastructure/telemetry"
)

// AuditLogHandler writes one structured line per domain event.
type AuditLogHandler struct {
	logger *zap.Logger
}

func NewAuditLogHandler(logger *zap.Logger) *AuditLogHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditLogHandler{logger: logger.Named("audit")}
}

// EventTypes is empty so the handler sees every event.
func (h *AuditLogHandler) EventTypes() []string { return nil }

func (h *AuditLogHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	h.logger.Info("Domain event",
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.String("aggregate_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	)
	return nil
}

// MetricsHandler turns domain events into business metrics.
type MetricsHandler struct {
	metrics *telemetry.BusinessMetrics
}

func NewMetricsHandler(metrics *telemetry.BusinessMetrics) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

func (h *MetricsHandler) EventTypes() []string {
	return []string{
		billing.EventTypePaymentApplied,
		billing.EventTypePaymentRefunded,
		fulfillment.EventTypeOrderStatusChanged,
		inventory.EventTypeStockTakeCompleted,
	}
}

func (h *MetricsHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *billing.PaymentAppliedEvent:
		h.metrics.RecordPaymentApplied(ctx, e.Method, e.Amount)
	case *billing.PaymentRefundedEvent:
		h.metrics.RecordRefund(ctx)
	case *fulfillment.OrderStatusChangedEvent:
		h.metrics.RecordStatusTransition(ctx, "order", e.From, e.To)
	case *inventory.StockTakeCompletedEvent:
		h.metrics.RecordStockTakeCompleted(ctx)
	}
	return nil
}
