package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when BusinessMetrics is built without a meter.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// Gateway verification outcomes.
const (
	OutcomeApplied        = "applied"
	OutcomeAlreadyApplied = "already_applied"
	OutcomePending        = "pending"
	OutcomeFailed         = "failed"
)

// BusinessMetrics records billing counters. A nil *BusinessMetrics is valid
// and records nothing, so services can run without a meter.
type BusinessMetrics struct {
	paymentsApplied      *Counter
	paymentAmountMinor   *Counter
	refunds              *Counter
	gatewayVerifications *Counter
	gatewayCallDuration  *Histogram
	statusTransitions    *Counter
	stockTakesCompleted  *Counter
	logger               *zap.Logger
}

// BusinessMetricsConfig configures BusinessMetrics.
type BusinessMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewBusinessMetrics creates the billing instruments on cfg.Meter.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	bm := &BusinessMetrics{logger: logger}

	var err error
	if bm.paymentsApplied, err = NewCounter(cfg.Meter, "payments_applied_total", "Payments applied to invoices", "{payment}"); err != nil {
		return nil, err
	}
	if bm.paymentAmountMinor, err = NewCounter(cfg.Meter, "payment_amount_minor_total", "Applied payment amount in minor currency units", "{minor_unit}"); err != nil {
		return nil, err
	}
	if bm.refunds, err = NewCounter(cfg.Meter, "payment_refunds_total", "Refunds recorded against invoices", "{refund}"); err != nil {
		return nil, err
	}
	if bm.gatewayVerifications, err = NewCounter(cfg.Meter, "gateway_verifications_total", "Gateway payment verifications by outcome", "{verification}"); err != nil {
		return nil, err
	}
	if bm.gatewayCallDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "gateway_call_duration_seconds",
		Description: "Latency of outbound payment gateway calls",
		Unit:        "s",
		Buckets:     GatewayDurationBuckets,
	}); err != nil {
		return nil, err
	}
	if bm.statusTransitions, err = NewCounter(cfg.Meter, "document_status_transitions_total", "Document status transitions", "{transition}"); err != nil {
		return nil, err
	}
	if bm.stockTakesCompleted, err = NewCounter(cfg.Meter, "stock_takes_completed_total", "Completed stock takes", "{stock_take}"); err != nil {
		return nil, err
	}

	logger.Info("Business metrics initialized")
	return bm, nil
}

// RecordPaymentApplied counts a payment and its amount in minor units.
func (bm *BusinessMetrics) RecordPaymentApplied(ctx context.Context, method string, amount decimal.Decimal) {
	if bm == nil {
		return
	}
	attrs := []attribute.KeyValue{AttrPaymentMethod.String(method)}
	bm.paymentsApplied.Inc(ctx, attrs...)
	bm.paymentAmountMinor.Add(ctx, amount.Shift(2).Round(0).IntPart(), attrs...)
}

// RecordRefund counts a refund.
func (bm *BusinessMetrics) RecordRefund(ctx context.Context) {
	if bm == nil {
		return
	}
	bm.refunds.Inc(ctx)
}

// RecordGatewayVerification counts a verification by outcome.
func (bm *BusinessMetrics) RecordGatewayVerification(ctx context.Context, gateway, outcome string) {
	if bm == nil {
		return
	}
	bm.gatewayVerifications.Inc(ctx, AttrGateway.String(gateway), AttrPaymentOutcome.String(outcome))
}

// RecordGatewayCall records the latency of one gateway request.
func (bm *BusinessMetrics) RecordGatewayCall(ctx context.Context, gateway, op string, d time.Duration, err error) {
	if bm == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	bm.gatewayCallDuration.RecordDuration(ctx, d,
		AttrGateway.String(gateway),
		AttrGatewayOp.String(op),
		AttrPaymentOutcome.String(outcome),
	)
}

// RecordStatusTransition counts a document moving between statuses.
func (bm *BusinessMetrics) RecordStatusTransition(ctx context.Context, documentType, from, to string) {
	if bm == nil || from == to {
		return
	}
	bm.statusTransitions.Inc(ctx,
		AttrDocumentType.String(documentType),
		AttrStatusFrom.String(from),
		AttrStatusTo.String(to),
	)
}

// RecordStockTakeCompleted counts a completed stock take.
func (bm *BusinessMetrics) RecordStockTakeCompleted(ctx context.Context) {
	if bm == nil {
		return
	}
	bm.stockTakesCompleted.Inc(ctx)
}
