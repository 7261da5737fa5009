package billing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bizdocs/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeInvoice = "Invoice"

// Event type constants
const (
	EventTypeInvoiceCreated   = "InvoiceCreated"
	EventTypeInvoiceSent      = "InvoiceSent"
	EventTypeInvoiceCancelled = "InvoiceCancelled"
	EventTypeInvoiceOverdue   = "InvoiceOverdue"
	EventTypeInvoicePaid      = "InvoicePaid"
	EventTypePaymentApplied   = "PaymentApplied"
	EventTypePaymentRefunded  = "PaymentRefunded"
)

// InvoiceCreatedEvent is raised when a draft invoice is created
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string `json:"invoice_number"`
	CustomerName  string `json:"customer_name"`
	Currency      string `json:"currency"`
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCreated, AggregateTypeInvoice, inv.ID),
		InvoiceNumber:   inv.InvoiceNumber,
		CustomerName:    inv.CustomerName,
		Currency:        string(inv.Currency),
	}
}

// InvoiceSentEvent is raised when an invoice is sent to the customer
type InvoiceSentEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	CustomerEmail string          `json:"customer_email"`
	Total         decimal.Decimal `json:"total"`
}

// NewInvoiceSentEvent creates a new InvoiceSentEvent
func NewInvoiceSentEvent(inv *Invoice) *InvoiceSentEvent {
	return &InvoiceSentEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceSent, AggregateTypeInvoice, inv.ID),
		InvoiceNumber:   inv.InvoiceNumber,
		CustomerEmail:   inv.CustomerEmail,
		Total:           inv.Totals.Total,
	}
}

// InvoiceCancelledEvent is raised when an invoice is cancelled
type InvoiceCancelledEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	Reason        string          `json:"reason"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
}

// NewInvoiceCancelledEvent creates a new InvoiceCancelledEvent
func NewInvoiceCancelledEvent(inv *Invoice) *InvoiceCancelledEvent {
	return &InvoiceCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCancelled, AggregateTypeInvoice, inv.ID),
		InvoiceNumber:   inv.InvoiceNumber,
		Reason:          inv.CancelReason,
		AmountPaid:      inv.AmountPaid,
	}
}

// InvoiceOverdueEvent is raised when an unpaid invoice passes its due date
type InvoiceOverdueEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	BalanceDue    decimal.Decimal `json:"balance_due"`
}

// NewInvoiceOverdueEvent creates a new InvoiceOverdueEvent
func NewInvoiceOverdueEvent(inv *Invoice) *InvoiceOverdueEvent {
	return &InvoiceOverdueEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceOverdue, AggregateTypeInvoice, inv.ID),
		InvoiceNumber:   inv.InvoiceNumber,
		BalanceDue:      inv.BalanceDue,
	}
}

// InvoicePaidEvent is raised when the balance due reaches zero
type InvoicePaidEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	Total         decimal.Decimal `json:"total"`
}

// NewInvoicePaidEvent creates a new InvoicePaidEvent
func NewInvoicePaidEvent(inv *Invoice) *InvoicePaidEvent {
	return &InvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoicePaid, AggregateTypeInvoice, inv.ID),
		InvoiceNumber:   inv.InvoiceNumber,
		Total:           inv.Totals.Total,
	}
}

// PaymentAppliedEvent is raised for every payment recorded against an invoice
type PaymentAppliedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber    string          `json:"invoice_number"`
	PaymentID        uuid.UUID       `json:"payment_id"`
	Amount           decimal.Decimal `json:"amount"`
	Method           string          `json:"method"`
	GatewayReference string          `json:"gateway_reference,omitempty"`
	BalanceDue       decimal.Decimal `json:"balance_due"`
	Status           string          `json:"status"`
}

// NewPaymentAppliedEvent creates a new PaymentAppliedEvent
func NewPaymentAppliedEvent(inv *Invoice, p Payment) *PaymentAppliedEvent {
	return &PaymentAppliedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypePaymentApplied, AggregateTypeInvoice, inv.ID),
		InvoiceNumber:    inv.InvoiceNumber,
		PaymentID:        p.ID,
		Amount:           p.Amount,
		Method:           string(p.Method),
		GatewayReference: p.GatewayReference,
		BalanceDue:       inv.BalanceDue,
		Status:           string(inv.Status),
	}
}

// PaymentRefundedEvent is raised when part of a payment is returned
type PaymentRefundedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	RefundID      uuid.UUID       `json:"refund_id"`
	RefundOf      uuid.UUID       `json:"refund_of"`
	Amount        decimal.Decimal `json:"amount"`
	BalanceDue    decimal.Decimal `json:"balance_due"`
}

// NewPaymentRefundedEvent creates a new PaymentRefundedEvent
func NewPaymentRefundedEvent(inv *Invoice, refund Payment) *PaymentRefundedEvent {
	e := &PaymentRefundedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRefunded, AggregateTypeInvoice, inv.ID),
		InvoiceNumber:   inv.InvoiceNumber,
		RefundID:        refund.ID,
		Amount:          refund.Amount.Neg(),
		BalanceDue:      inv.BalanceDue,
	}
	if refund.RefundOf != nil {
		e.RefundOf = *refund.RefundOf
	}
	return e
}
