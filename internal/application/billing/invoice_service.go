package billing

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/bizdocs/backend/internal/domain/billing"
	"github.com/bizdocs/backend/internal/domain/shared"
	"github.com/bizdocs/backend/internal/domain/shared/valueobject"
	"github.com/bizdocs/backend/internal/infrastructure/telemetry"
)

const (
	invoiceNumberPrefix   = "INV"
	numberAttempts        = 3
	overdueSweepBatchSize = 500
)

// ServiceConfig holds the billing defaults the service applies
type ServiceConfig struct {
	DefaultCurrency  valueobject.Currency
	PaymentTermsDays int
	// RetryAttempts bounds how often a mutation is re-applied on a
	// concurrency conflict
	RetryAttempts int
	Locale        language.Tag
}

func (c ServiceConfig) withDefaults() ServiceConfig {
	if c.DefaultCurrency == "" {
		c.DefaultCurrency = valueobject.DefaultCurrency
	}
	if c.PaymentTermsDays <= 0 {
		c.PaymentTermsDays = 30
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = 3
	}
	if c.Locale == language.Und {
		c.Locale = language.MustParse("en-ZA")
	}
	return c
}

// GatewayApplyResult is the outcome of applying a verified gateway payment
type GatewayApplyResult struct {
	Invoice        *billing.Invoice
	Payment        *billing.Payment
	AlreadyApplied bool
}

// InvoiceService handles invoice use cases. Every mutation is a
// read-modify-write of the whole aggregate guarded by its version.
type InvoiceService struct {
	repo      billing.InvoiceRepository
	publisher shared.EventPublisher
	metrics   *telemetry.BusinessMetrics
	cfg       ServiceConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(
	repo billing.InvoiceRepository,
	publisher shared.EventPublisher,
	metrics *telemetry.BusinessMetrics,
	cfg ServiceConfig,
	logger *zap.Logger,
) *InvoiceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceService{
		repo:      repo,
		publisher: publisher,
		metrics:   metrics,
		cfg:       cfg.withDefaults(),
		logger:    logger.Named("invoice_service"),
		now:       time.Now,
	}
}

// SetClock replaces the time source
func (s *InvoiceService) SetClock(now func() time.Time) {
	s.now = now
}

// Locale returns the locale used for formatted amounts
func (s *InvoiceService) Locale() language.Tag {
	return s.cfg.Locale
}

// Create creates a draft invoice with optional initial items
func (s *InvoiceService) Create(ctx context.Context, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "create")
	defer span.End()

	now := s.now()
	currency := valueobject.Currency(req.Currency)
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}
	var issueDate, dueDate time.Time
	if req.IssueDate != nil {
		issueDate = *req.IssueDate
	} else {
		issueDate = now
	}
	if req.DueDate != nil {
		dueDate = *req.DueDate
	}

	var inv *billing.Invoice
	for attempt := 1; ; attempt++ {
		var err error
		inv, err = billing.NewInvoice(billing.NewDocumentNumber(invoiceNumberPrefix, now),
			req.CustomerName, req.CustomerEmail, currency, issueDate, dueDate, s.cfg.PaymentTermsDays)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		inv.Notes = req.Notes
		for _, item := range req.Items {
			if _, err := inv.AddItem(item.ToRawLine()); err != nil {
				telemetry.RecordError(span, err)
				return nil, err
			}
		}

		err = s.repo.Create(ctx, inv)
		if err == nil {
			break
		}
		// Number collisions are retried with a fresh number
		if errors.Is(err, shared.ErrDuplicate) && attempt < numberAttempts {
			continue
		}
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrInvoiceID, inv.ID.String(),
		telemetry.SpanAttrInvoiceNumber, inv.InvoiceNumber,
	)
	s.publish(ctx, inv)
	s.logger.Info("Invoice created",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.Int("items", inv.ItemCount()),
	)
	return s.toResponse(inv), nil
}

// GetByID returns an invoice by ID
func (s *InvoiceService) GetByID(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toResponse(inv), nil
}

// GetByNumber returns an invoice by its number
func (s *InvoiceService) GetByNumber(ctx context.Context, number string) (*InvoiceResponse, error) {
	inv, err := s.repo.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	return s.toResponse(inv), nil
}

// List returns a page of invoices
func (s *InvoiceService) List(ctx context.Context, filter InvoiceListFilter) ([]InvoiceListResponse, int64, error) {
	invoices, total, err := s.repo.FindAll(ctx, filter.toDomain())
	if err != nil {
		return nil, 0, err
	}
	return ToInvoiceListResponses(invoices, s.now(), s.cfg.Locale), total, nil
}

// UpdateDetails edits the header of a draft invoice
func (s *InvoiceService) UpdateDetails(ctx context.Context, id uuid.UUID, req UpdateInvoiceRequest) (*InvoiceResponse, error) {
	return s.mutateResponse(ctx, id, "update_details", func(inv *billing.Invoice, _ time.Time) error {
		dueDate := inv.DueDate
		if req.DueDate != nil {
			dueDate = *req.DueDate
		}
		return inv.UpdateDetails(req.CustomerName, req.CustomerEmail, req.Notes, dueDate)
	})
}

// AddItem adds a line to a draft invoice
func (s *InvoiceService) AddItem(ctx context.Context, id uuid.UUID, req LineItemRequest) (*InvoiceResponse, error) {
	return s.mutateResponse(ctx, id, "add_item", func(inv *billing.Invoice, _ time.Time) error {
		_, err := inv.AddItem(req.ToRawLine())
		return err
	})
}

// UpdateItem replaces the inputs of one line on a draft invoice
func (s *InvoiceService) UpdateItem(ctx context.Context, id, itemID uuid.UUID, req LineItemRequest) (*InvoiceResponse, error) {
	return s.mutateResponse(ctx, id, "update_item", func(inv *billing.Invoice, _ time.Time) error {
		_, err := inv.UpdateItem(itemID, req.ToRawLine())
		return err
	})
}

// RemoveItem removes one line from a draft invoice
func (s *InvoiceService) RemoveItem(ctx context.Context, id, itemID uuid.UUID) (*InvoiceResponse, error) {
	return s.mutateResponse(ctx, id, "remove_item", func(inv *billing.Invoice, _ time.Time) error {
		return inv.RemoveItem(itemID)
	})
}

// Send issues a draft invoice
func (s *InvoiceService) Send(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	return s.mutateResponse(ctx, id, "send", func(inv *billing.Invoice, now time.Time) error {
		return inv.Send(now)
	})
}

// MarkViewed records that the customer opened a sent invoice
func (s *InvoiceService) MarkViewed(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	return s.mutateResponse(ctx, id, "mark_viewed", func(inv *billing.Invoice, now time.Time) error {
		return inv.MarkViewed(now)
	})
}

// Cancel cancels an invoice. Payments already applied stay on record.
func (s *InvoiceService) Cancel(ctx context.Context, id uuid.UUID, req CancelRequest) (*InvoiceResponse, error) {
	return s.mutateResponse(ctx, id, "cancel", func(inv *billing.Invoice, now time.Time) error {
		return inv.Cancel(req.Reason, now)
	})
}

// Transition moves an invoice to the requested status. Payment-derived
// statuses are only accepted when the invoice's figures agree.
func (s *InvoiceService) Transition(ctx context.Context, id uuid.UUID, req TransitionInvoiceRequest) (*InvoiceResponse, error) {
	target := billing.InvoiceStatus(req.Status)
	return s.mutateResponse(ctx, id, "transition", func(inv *billing.Invoice, now time.Time) error {
		if target == billing.InvoiceStatusCancelled && strings.TrimSpace(req.Reason) != "" {
			return inv.Cancel(req.Reason, now)
		}
		return inv.TransitionTo(target, now)
	})
}

// Delete removes a draft or cancelled invoice
func (s *InvoiceService) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "delete")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrInvoiceID, id.String())

	inv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if err := inv.EnsureDeletable(); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	s.logger.Info("Invoice deleted", zap.String("invoice_id", id.String()))
	return nil
}

// RecordPayment applies a manual payment. Gateway payments only arrive
// through verification.
func (s *InvoiceService) RecordPayment(ctx context.Context, id uuid.UUID, req RecordPaymentRequest) (*InvoiceResponse, error) {
	if req.Method == billing.PaymentMethodGateway {
		return nil, shared.NewValidationError("GATEWAY_METHOD_NOT_ALLOWED",
			"Gateway payments are recorded by verifying the gateway transaction")
	}
	return s.mutateResponse(ctx, id, "record_payment", func(inv *billing.Invoice, now time.Time) error {
		paidAt := now
		if req.PaidAt != nil {
			paidAt = *req.PaidAt
		}
		_, err := inv.ApplyPayment(billing.PaymentInput{
			Amount:    req.Amount,
			Method:    req.Method,
			Note:      req.Note,
			AppliedAt: paidAt,
		})
		return err
	})
}

// Refund records a refund against an earlier payment
func (s *InvoiceService) Refund(ctx context.Context, id, paymentID uuid.UUID, req RefundPaymentRequest) (*InvoiceResponse, error) {
	return s.mutateResponse(ctx, id, "refund", func(inv *billing.Invoice, now time.Time) error {
		_, err := inv.Refund(paymentID, req.Amount, req.Reason, now)
		return err
	})
}

// ApplyGatewayPayment records a verified gateway payment. A reference that
// is already on the invoice, or that a concurrent writer recorded first,
// is reported as AlreadyApplied rather than as an error.
func (s *InvoiceService) ApplyGatewayPayment(ctx context.Context, id uuid.UUID, in billing.PaymentInput) (*GatewayApplyResult, error) {
	in.Method = billing.PaymentMethodGateway
	var applied *billing.Payment
	inv, err := s.mutate(ctx, id, "apply_gateway_payment", func(inv *billing.Invoice, now time.Time) error {
		if inv.HasGatewayReference(in.GatewayReference) {
			return shared.ErrDuplicate.WithDetail("gateway_reference", in.GatewayReference)
		}
		if in.AppliedAt.IsZero() {
			in.AppliedAt = now
		}
		p, err := inv.ApplyPayment(in)
		if err != nil {
			return err
		}
		applied = p
		return nil
	})
	if err == nil {
		return &GatewayApplyResult{Invoice: inv, Payment: applied}, nil
	}
	if !errors.Is(err, shared.ErrDuplicate) {
		return nil, err
	}

	current, findErr := s.repo.FindByID(ctx, id)
	if findErr != nil {
		return nil, findErr
	}
	existing, _ := current.PaymentByReference(in.GatewayReference)
	s.logger.Info("Gateway payment already applied",
		zap.String("invoice_id", id.String()),
		zap.String("reference", in.GatewayReference),
	)
	return &GatewayApplyResult{Invoice: current, Payment: existing, AlreadyApplied: true}, nil
}

// SweepOverdue moves every unpaid invoice past its due date to overdue.
// Individual failures are logged and counted; the sweep continues.
func (s *InvoiceService) SweepOverdue(ctx context.Context) (*OverdueSweepResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", "sweep_overdue")
	defer span.End()

	now := s.now()
	ids, err := s.repo.FindOverdueCandidates(ctx, now, overdueSweepBatchSize)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result := &OverdueSweepResponse{Checked: len(ids), MarkedIDs: make([]uuid.UUID, 0)}
	for _, id := range ids {
		marked := false
		_, err := s.mutate(ctx, id, "mark_overdue", func(inv *billing.Invoice, now time.Time) error {
			changed, err := inv.MarkOverdue(now)
			if err != nil {
				return err
			}
			if !changed {
				return errNothingChanged
			}
			marked = true
			return nil
		})
		switch {
		case errors.Is(err, errNothingChanged):
		case err != nil:
			result.Failed++
			s.logger.Warn("Failed to mark invoice overdue",
				zap.String("invoice_id", id.String()),
				zap.Error(err),
			)
		case marked:
			result.MarkedOverdue++
			result.MarkedIDs = append(result.MarkedIDs, id)
		}
	}

	telemetry.SetAttributes(span,
		"checked", result.Checked,
		"marked_overdue", result.MarkedOverdue,
		"failed", result.Failed,
	)
	s.logger.Info("Overdue sweep finished",
		zap.Int("checked", result.Checked),
		zap.Int("marked_overdue", result.MarkedOverdue),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// errNothingChanged aborts a mutation without saving
var errNothingChanged = errors.New("invoice: nothing changed")

func (s *InvoiceService) mutateResponse(ctx context.Context, id uuid.UUID, op string, fn func(*billing.Invoice, time.Time) error) (*InvoiceResponse, error) {
	inv, err := s.mutate(ctx, id, op, fn)
	if err != nil {
		return nil, err
	}
	return s.toResponse(inv), nil
}

// mutate loads the invoice, applies fn and saves with the version check.
// On a concurrency conflict fn is re-applied to freshly loaded state, so
// validation always sees the latest payments.
func (s *InvoiceService) mutate(ctx context.Context, id uuid.UUID, op string, fn func(*billing.Invoice, time.Time) error) (*billing.Invoice, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "invoice", op)
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrInvoiceID, id.String())

	for attempt := 1; ; attempt++ {
		inv, err := s.repo.FindByID(ctx, id)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		from := inv.Status

		if err := fn(inv, s.now()); err != nil {
			if !errors.Is(err, errNothingChanged) {
				telemetry.RecordError(span, err)
			}
			return nil, err
		}

		err = s.repo.SaveWithLock(ctx, inv)
		if err == nil {
			telemetry.SetAttributes(span,
				telemetry.SpanAttrInvoiceNumber, inv.InvoiceNumber,
				telemetry.SpanAttrStatus, string(inv.Status),
				"attempts", attempt,
			)
			s.metrics.RecordStatusTransition(ctx, "invoice", string(from), string(inv.Status))
			s.publish(ctx, inv)
			return inv, nil
		}
		if errors.Is(err, shared.ErrConcurrencyConflict) && attempt < s.cfg.RetryAttempts {
			s.logger.Debug("Invoice version conflict, retrying",
				zap.String("invoice_id", id.String()),
				zap.String("operation", op),
				zap.Int("attempt", attempt),
			)
			continue
		}
		telemetry.RecordError(span, err)
		return nil, err
	}
}

// publish hands the aggregate's events to the bus once it is persisted.
// Delivery failures are logged; the state change already happened.
func (s *InvoiceService) publish(ctx context.Context, inv *billing.Invoice) {
	events := inv.GetDomainEvents()
	inv.ClearDomainEvents()
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish invoice events",
			zap.String("invoice_id", inv.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *InvoiceService) toResponse(inv *billing.Invoice) *InvoiceResponse {
	resp := ToInvoiceResponse(inv, s.now(), s.cfg.Locale)
	return &resp
}
