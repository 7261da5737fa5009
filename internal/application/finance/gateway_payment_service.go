package finance

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	billingapp "github.com/bizdocs/backend/internal/application/billing"
	"github.com/bizdocs/backend/internal/domain/billing"
	"github.com/bizdocs/backend/internal/domain/finance"
	"github.com/bizdocs/backend/internal/domain/shared"
	"github.com/bizdocs/backend/internal/domain/shared/valueobject"
	"github.com/bizdocs/backend/internal/infrastructure/telemetry"
)

// MetadataInvoiceID is the transaction metadata key linking a gateway
// transaction back to its invoice
const MetadataInvoiceID = "invoice_id"

// GatewayPaymentApplier records a verified gateway payment on an invoice
type GatewayPaymentApplier interface {
	ApplyGatewayPayment(ctx context.Context, invoiceID uuid.UUID, in billing.PaymentInput) (*billingapp.GatewayApplyResult, error)
}

// GatewayServiceConfig holds settings for GatewayPaymentService
type GatewayServiceConfig struct {
	CallbackURL    string
	IdempotencyTTL time.Duration
	Locale         language.Tag
}

// GatewayPaymentService previews, starts and verifies hosted card payments.
// Verification may be requested any number of times, concurrently, by the
// payer's redirect and by webhooks; a reference is applied at most once.
type GatewayPaymentService struct {
	invoices  billing.InvoiceRepository
	payer     GatewayPaymentApplier
	gateway   finance.PaymentGateway
	schedule  finance.FeeSchedule
	store     shared.IdempotencyStore
	publisher shared.EventPublisher
	metrics   *telemetry.BusinessMetrics
	cfg       GatewayServiceConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewGatewayPaymentService creates a new GatewayPaymentService. gateway may
// be nil, in which case only previews are served. store may be nil.
func NewGatewayPaymentService(
	invoices billing.InvoiceRepository,
	payer GatewayPaymentApplier,
	gateway finance.PaymentGateway,
	schedule finance.FeeSchedule,
	store shared.IdempotencyStore,
	publisher shared.EventPublisher,
	metrics *telemetry.BusinessMetrics,
	cfg GatewayServiceConfig,
	logger *zap.Logger,
) *GatewayPaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.Locale == language.Und {
		cfg.Locale = language.MustParse("en-ZA")
	}
	return &GatewayPaymentService{
		invoices:  invoices,
		payer:     payer,
		gateway:   gateway,
		schedule:  schedule,
		store:     store,
		publisher: publisher,
		metrics:   metrics,
		cfg:       cfg,
		logger:    logger.Named("gateway_payment_service"),
		now:       time.Now,
	}
}

// SetClock replaces the time source
func (s *GatewayPaymentService) SetClock(now func() time.Time) {
	s.now = now
}

// Preview computes the surcharge on the invoice's current balance. It has
// no side effects.
func (s *GatewayPaymentService) Preview(ctx context.Context, invoiceID uuid.UUID) (*FeePreviewResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "gateway_payment", "preview")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrInvoiceID, invoiceID.String())

	inv, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	resp := s.toPreviewResponse(inv.ID, s.schedule.Preview(inv.BalanceDue, inv.Currency))
	return &resp, nil
}

// Initiate opens a hosted payment session for the balance plus surcharge
func (s *GatewayPaymentService) Initiate(ctx context.Context, invoiceID uuid.UUID, req InitiatePaymentRequest) (*InitiatePaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "gateway_payment", "initiate")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrInvoiceID, invoiceID.String())

	if s.gateway == nil {
		err := finance.NewTerminalGatewayError("initialize", "NOT_CONFIGURED", finance.ErrGatewayNotConfigured)
		telemetry.RecordError(span, err)
		return nil, err
	}

	inv, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !inv.Status.AcceptsPayments() || !inv.BalanceDue.IsPositive() {
		err := shared.NewInvalidStateError("PAYMENT_NOT_ALLOWED",
			fmt.Sprintf("Invoice %s in %s status has nothing to pay", inv.InvoiceNumber, inv.Status))
		telemetry.RecordError(span, err)
		return nil, err
	}

	preview := s.schedule.Preview(inv.BalanceDue, inv.Currency)
	email := req.Email
	if email == "" {
		email = inv.CustomerEmail
	}
	callback := req.CallbackURL
	if callback == "" {
		callback = s.cfg.CallbackURL
	}

	reference := newGatewayReference(inv.InvoiceNumber)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrReference, reference,
		telemetry.SpanAttrGateway, s.gateway.Name(),
		telemetry.SpanAttrAmount, preview.TotalWithFees.String(),
	)

	session, err := s.gateway.InitializeTransaction(ctx, &finance.InitializeRequest{
		Reference:   reference,
		Email:       email,
		Amount:      preview.TotalWithFees,
		Currency:    inv.Currency,
		CallbackURL: callback,
		Metadata: map[string]string{
			MetadataInvoiceID: inv.ID.String(),
			"invoice_number":  inv.InvoiceNumber,
			"gateway_fee":     preview.GatewayFee.String(),
		},
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Warn("Gateway initialize failed",
			zap.String("invoice_id", inv.ID.String()),
			zap.String("reference", reference),
			zap.Bool("retryable", finance.IsRetryable(err)),
			zap.Error(err),
		)
		return nil, err
	}

	if s.publisher != nil {
		event := finance.NewGatewayPaymentInitiatedEvent(inv.ID, session.Reference, preview)
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish gateway initiated event", zap.Error(err))
		}
	}

	s.logger.Info("Gateway payment initiated",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("reference", session.Reference),
		zap.String("total_with_fees", preview.TotalWithFees.String()),
	)
	return &InitiatePaymentResponse{
		Reference:        session.Reference,
		AuthorizationURL: session.AuthorizationURL,
		AccessCode:       session.AccessCode,
		Gateway:          s.gateway.Name(),
		Preview:          s.toPreviewResponse(inv.ID, preview),
	}, nil
}

// Verify asks the gateway for the final state of reference and applies a
// successful transaction to the invoice exactly once.
func (s *GatewayPaymentService) Verify(ctx context.Context, invoiceID uuid.UUID, reference string) (*VerifyPaymentResponse, error) {
	var (
		resp *VerifyPaymentResponse
		err  error
	)
	telemetry.WithProfilingLabels(ctx, map[string]string{"operation": "gateway_verify"}, func(ctx context.Context) {
		resp, err = s.verify(ctx, invoiceID, reference)
	})
	return resp, err
}

func (s *GatewayPaymentService) verify(ctx context.Context, invoiceID uuid.UUID, reference string) (*VerifyPaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "gateway_payment", "verify")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrInvoiceID, invoiceID.String(),
		telemetry.SpanAttrReference, reference,
	)

	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, shared.NewValidationError("INVALID_REFERENCE", "Payment reference is required")
	}
	if s.gateway == nil {
		err := finance.NewTerminalGatewayError("verify", "NOT_CONFIGURED", finance.ErrGatewayNotConfigured)
		telemetry.RecordError(span, err)
		return nil, err
	}
	gatewayName := s.gateway.Name()
	key := verifyKey(invoiceID, reference)

	if s.isProcessed(ctx, key) {
		inv, err := s.invoices.FindByID(ctx, invoiceID)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if p, ok := inv.PaymentByReference(reference); ok {
			s.metrics.RecordGatewayVerification(ctx, gatewayName, OutcomeAlreadyApplied)
			return s.alreadyApplied(inv, p, reference), nil
		}
	}

	inv, err := s.invoices.FindByID(ctx, invoiceID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if p, ok := inv.PaymentByReference(reference); ok {
		s.markProcessed(ctx, key)
		s.metrics.RecordGatewayVerification(ctx, gatewayName, OutcomeAlreadyApplied)
		return s.alreadyApplied(inv, p, reference), nil
	}

	tx, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordGatewayVerification(ctx, gatewayName, OutcomeFailed)
		s.logger.Warn("Gateway verification failed",
			zap.String("invoice_id", invoiceID.String()),
			zap.String("reference", reference),
			zap.Bool("retryable", finance.IsRetryable(err)),
			zap.Error(err),
		)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrGateway, gatewayName,
		telemetry.SpanAttrStatus, tx.Status.String(),
		telemetry.SpanAttrAmount, tx.Amount.String(),
	)

	if err := checkTransactionBelongs(tx, inv); err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordGatewayVerification(ctx, gatewayName, OutcomeFailed)
		return nil, err
	}

	switch {
	case tx.Status == finance.GatewayStatusPending:
		s.metrics.RecordGatewayVerification(ctx, gatewayName, OutcomePending)
		return &VerifyPaymentResponse{
			Outcome:       OutcomePending,
			Reference:     reference,
			GatewayStatus: tx.Status.String(),
			AmountApplied: decimal.Zero,
			GatewayFee:    decimal.Zero,
			Surplus:       decimal.Zero,
			Invoice:       s.invoiceResponse(inv),
		}, nil
	case !tx.Status.IsSuccess():
		err := finance.NewTerminalGatewayError("verify", "TRANSACTION_"+strings.ToUpper(tx.Status.String()),
			fmt.Errorf("%w: transaction %s is %s", finance.ErrGatewayDeclined, reference, tx.Status))
		telemetry.RecordError(span, err)
		s.metrics.RecordGatewayVerification(ctx, gatewayName, OutcomeFailed)
		return nil, err
	}

	scale := inv.Currency.MinorUnits()
	if !inv.BalanceDue.IsPositive() {
		s.logger.Warn("Gateway payment received for an invoice with nothing due",
			zap.String("invoice_id", inv.ID.String()),
			zap.String("reference", reference),
			zap.String("amount", tx.Amount.String()),
		)
		s.markProcessed(ctx, key)
		s.metrics.RecordGatewayVerification(ctx, gatewayName, OutcomeNothingDue)
		return &VerifyPaymentResponse{
			Outcome:       OutcomeNothingDue,
			Reference:     reference,
			GatewayStatus: tx.Status.String(),
			AmountApplied: decimal.Zero,
			GatewayFee:    decimal.Zero,
			Surplus:       tx.Amount,
			Invoice:       s.invoiceResponse(inv),
		}, nil
	}

	applied, fee, surplus, err := settle(tx.Amount, inv.BalanceDue, s.schedule, scale)
	if err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordGatewayVerification(ctx, gatewayName, OutcomeFailed)
		s.logger.Error("Gateway settlement does not cover the invoice",
			zap.String("invoice_id", inv.ID.String()),
			zap.String("reference", reference),
			zap.String("settled", tx.Amount.String()),
			zap.String("balance_due", inv.BalanceDue.String()),
		)
		return nil, err
	}

	paidAt := s.now()
	if tx.PaidAt != nil {
		paidAt = *tx.PaidAt
	}
	result, err := s.payer.ApplyGatewayPayment(ctx, inv.ID, billing.PaymentInput{
		Amount:           applied,
		Method:           billing.PaymentMethodGateway,
		GatewayReference: reference,
		GatewayFee:       &fee,
		Note:             fmt.Sprintf("%s %s", gatewayName, tx.Channel),
		AppliedAt:        paidAt,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordGatewayVerification(ctx, gatewayName, OutcomeFailed)
		s.logger.Error("Failed to apply verified gateway payment",
			zap.String("invoice_id", inv.ID.String()),
			zap.String("reference", reference),
			zap.Error(err),
		)
		return nil, err
	}
	s.markProcessed(ctx, key)

	if result.AlreadyApplied {
		s.metrics.RecordGatewayVerification(ctx, gatewayName, OutcomeAlreadyApplied)
		return s.alreadyApplied(result.Invoice, result.Payment, reference), nil
	}

	s.metrics.RecordGatewayVerification(ctx, gatewayName, OutcomeApplied)
	if s.publisher != nil {
		event := finance.NewGatewayPaymentVerifiedEvent(inv.ID, reference, applied, fee, surplus)
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("Failed to publish gateway verified event", zap.Error(err))
		}
	}
	if surplus.IsPositive() {
		s.logger.Warn("Gateway settlement exceeded balance and fee",
			zap.String("invoice_id", inv.ID.String()),
			zap.String("reference", reference),
			zap.String("surplus", surplus.String()),
		)
	}
	s.logger.Info("Gateway payment applied",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("reference", reference),
		zap.String("amount", applied.String()),
		zap.String("fee", fee.String()),
		zap.String("status", string(result.Invoice.Status)),
	)

	return &VerifyPaymentResponse{
		Outcome:       OutcomeApplied,
		Reference:     reference,
		GatewayStatus: tx.Status.String(),
		AmountApplied: applied,
		GatewayFee:    fee,
		Surplus:       surplus,
		Invoice:       s.invoiceResponse(result.Invoice),
	}, nil
}

// HandleWebhook checks a notification's signature and runs successful
// charges through Verify. The notification body is never trusted for
// amounts; the gateway is queried again.
func (s *GatewayPaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "gateway_payment", "webhook")
	defer span.End()

	if s.gateway == nil {
		err := finance.NewTerminalGatewayError("webhook", "NOT_CONFIGURED", finance.ErrGatewayNotConfigured)
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !s.gateway.VerifyWebhookSignature(payload, signature) {
		err := finance.NewTerminalGatewayError("webhook", "INVALID_SIGNATURE", finance.ErrGatewayInvalidSignature)
		telemetry.RecordError(span, err)
		s.logger.Warn("Rejected webhook with invalid signature")
		return nil, err
	}

	event, err := s.gateway.ParseWebhook(payload)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	reference := event.Transaction.Reference
	telemetry.SetAttributes(span, "event", event.Event, telemetry.SpanAttrReference, reference)

	resp := &WebhookResponse{Event: event.Event, Reference: reference, Outcome: OutcomeIgnored}
	if !event.IsChargeSuccess() {
		s.logger.Debug("Ignoring webhook event", zap.String("event", event.Event))
		return resp, nil
	}

	invoiceID, err := uuid.Parse(event.Transaction.Metadata[MetadataInvoiceID])
	if err != nil {
		s.logger.Warn("Webhook charge has no invoice reference",
			zap.String("reference", reference),
		)
		return resp, nil
	}
	resp.InvoiceID = &invoiceID

	verified, err := s.Verify(ctx, invoiceID, reference)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	resp.Outcome = verified.Outcome
	return resp, nil
}

// settle splits a settled amount into the payment applied to the balance,
// the surcharge and any surplus. A settlement that does not cover the
// balance plus its surcharge is rejected.
func settle(settled, balanceDue decimal.Decimal, schedule finance.FeeSchedule, scale int32) (applied, fee, surplus decimal.Decimal, err error) {
	fee = schedule.Fee(balanceDue, scale)
	required := balanceDue.Add(fee)
	if settled.LessThan(required) {
		return decimal.Zero, decimal.Zero, decimal.Zero, finance.NewTerminalGatewayError("verify", "AMOUNT_MISMATCH",
			fmt.Errorf("%w: settled %s, required %s", finance.ErrGatewayAmountMismatch,
				settled.StringFixed(scale), required.StringFixed(scale)))
	}
	return balanceDue, fee, settled.Sub(required), nil
}

func checkTransactionBelongs(tx *finance.Transaction, inv *billing.Invoice) error {
	if id, ok := tx.Metadata[MetadataInvoiceID]; ok && id != "" && id != inv.ID.String() {
		return finance.NewTerminalGatewayError("verify", "REFERENCE_MISMATCH",
			fmt.Errorf("%w: transaction %s belongs to another invoice", finance.ErrGatewayInvalidReference, tx.Reference))
	}
	if tx.Currency != "" && tx.Currency != inv.Currency {
		return finance.NewTerminalGatewayError("verify", "CURRENCY_MISMATCH",
			fmt.Errorf("%w: settled in %s, invoiced in %s", finance.ErrGatewayAmountMismatch, tx.Currency, inv.Currency))
	}
	return nil
}

func (s *GatewayPaymentService) isProcessed(ctx context.Context, key string) bool {
	if s.store == nil {
		return false
	}
	done, err := s.store.IsProcessed(ctx, key)
	if err != nil {
		s.logger.Warn("Idempotency lookup failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return done
}

func (s *GatewayPaymentService) markProcessed(ctx context.Context, key string) {
	if s.store == nil {
		return
	}
	if _, err := s.store.MarkProcessed(ctx, key, s.cfg.IdempotencyTTL); err != nil {
		s.logger.Warn("Idempotency mark failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *GatewayPaymentService) alreadyApplied(inv *billing.Invoice, p *billing.Payment, reference string) *VerifyPaymentResponse {
	resp := &VerifyPaymentResponse{
		Outcome:       OutcomeAlreadyApplied,
		Reference:     reference,
		AmountApplied: decimal.Zero,
		GatewayFee:    decimal.Zero,
		Surplus:       decimal.Zero,
		Invoice:       s.invoiceResponse(inv),
	}
	if p != nil {
		resp.AmountApplied = p.Amount
		if p.GatewayFee.Valid {
			resp.GatewayFee = p.GatewayFee.Decimal
		}
	}
	return resp
}

func (s *GatewayPaymentService) invoiceResponse(inv *billing.Invoice) *billingapp.InvoiceResponse {
	resp := billingapp.ToInvoiceResponse(inv, s.now(), s.cfg.Locale)
	return &resp
}

func (s *GatewayPaymentService) toPreviewResponse(invoiceID uuid.UUID, p finance.FeePreview) FeePreviewResponse {
	format := func(d decimal.Decimal) string {
		return valueobject.MustMoney(d, p.Currency).Format(s.cfg.Locale)
	}
	return FeePreviewResponse{
		InvoiceID:              invoiceID,
		Currency:               string(p.Currency),
		BalanceDue:             p.BalanceDue,
		GatewayFee:             p.GatewayFee,
		TotalWithFees:          p.TotalWithFees,
		FormattedBalanceDue:    format(p.BalanceDue),
		FormattedGatewayFee:    format(p.GatewayFee),
		FormattedTotalWithFees: format(p.TotalWithFees),
	}
}

// verifyKey is the idempotency key for one reference on one invoice
func verifyKey(invoiceID uuid.UUID, reference string) string {
	return "gateway:verify:" + invoiceID.String() + ":" + reference
}

// newGatewayReference derives a unique transaction reference from the
// invoice number, e.g. INV-20240131-3FA2C1-9B0E77
func newGatewayReference(invoiceNumber string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return invoiceNumber + "-" + suffix
}
