package billing

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bizdocs/backend/internal/domain/costing"
	"github.com/bizdocs/backend/internal/domain/shared"
	"github.com/bizdocs/backend/internal/domain/shared/valueobject"
)

// Invoice is the aggregate root for a customer invoice. It owns its line
// items and payments; AmountPaid, BalanceDue and Status are always derived
// from them.
type Invoice struct {
	shared.BaseAggregateRoot
	InvoiceNumber string
	CustomerName  string
	CustomerEmail string
	Currency      valueobject.Currency
	Status        InvoiceStatus
	IssueDate     time.Time
	DueDate       time.Time
	costing.Sheet
	AmountPaid   decimal.Decimal
	BalanceDue   decimal.Decimal
	Payments     []Payment
	Notes        string
	SentAt       *time.Time
	ViewedAt     *time.Time
	PaidAt       *time.Time
	CancelledAt  *time.Time
	CancelReason string
}

// NewInvoice creates a draft invoice. A zero dueDate is replaced by
// issueDate plus termsDays.
func NewInvoice(number, customerName, customerEmail string, currency valueobject.Currency, issueDate, dueDate time.Time, termsDays int) (*Invoice, error) {
	if strings.TrimSpace(number) == "" {
		return nil, shared.NewValidationError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if strings.TrimSpace(customerName) == "" {
		return nil, shared.NewValidationError("INVALID_CUSTOMER", "Customer name cannot be empty")
	}
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	if !currency.Valid() {
		return nil, shared.NewValidationError("INVALID_CURRENCY", "Unknown currency: "+string(currency))
	}
	if issueDate.IsZero() {
		issueDate = time.Now()
	}
	if dueDate.IsZero() {
		dueDate = issueDate.AddDate(0, 0, termsDays)
	}
	if dueDate.Before(issueDate) {
		return nil, shared.NewValidationError("INVALID_DUE_DATE", "Due date cannot be before issue date")
	}

	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		InvoiceNumber:     number,
		CustomerName:      strings.TrimSpace(customerName),
		CustomerEmail:     strings.TrimSpace(customerEmail),
		Currency:          currency,
		Status:            InvoiceStatusDraft,
		IssueDate:         issueDate,
		DueDate:           dueDate,
		Sheet:             costing.NewSheet(),
		AmountPaid:        decimal.Zero,
		BalanceDue:        decimal.Zero,
		Payments:          make([]Payment, 0),
	}
	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))
	return inv, nil
}

func (i *Invoice) scale() int32 {
	return i.Currency.MinorUnits()
}

// Total returns the invoice total as Money
func (i *Invoice) Total() valueobject.Money {
	return valueobject.MustMoney(i.Totals.Total, i.Currency)
}

// Balance returns the balance due as Money
func (i *Invoice) Balance() valueobject.Money {
	return valueobject.MustMoney(i.BalanceDue, i.Currency)
}

// AddItem adds a line item. Only allowed in draft.
func (i *Invoice) AddItem(raw costing.RawLine) (*costing.LineItem, error) {
	if err := i.ensureEditable(); err != nil {
		return nil, err
	}
	item, err := i.AddLine(i.ID, raw, i.scale())
	if err != nil {
		return nil, err
	}
	i.refreshBalance()
	return item, nil
}

// UpdateItem replaces a line item's inputs. Only allowed in draft.
func (i *Invoice) UpdateItem(itemID uuid.UUID, raw costing.RawLine) (*costing.LineItem, error) {
	if err := i.ensureEditable(); err != nil {
		return nil, err
	}
	item, err := i.UpdateLine(itemID, raw, i.scale())
	if err != nil {
		return nil, err
	}
	i.refreshBalance()
	return item, nil
}

// RemoveItem deletes a line item. Only allowed in draft.
func (i *Invoice) RemoveItem(itemID uuid.UUID) error {
	if err := i.ensureEditable(); err != nil {
		return err
	}
	if err := i.RemoveLine(itemID, i.scale()); err != nil {
		return err
	}
	i.refreshBalance()
	return nil
}

// UpdateDetails changes header fields. Only allowed in draft.
func (i *Invoice) UpdateDetails(customerName, customerEmail, notes string, dueDate time.Time) error {
	if err := i.ensureEditable(); err != nil {
		return err
	}
	if strings.TrimSpace(customerName) == "" {
		return shared.NewValidationError("INVALID_CUSTOMER", "Customer name cannot be empty")
	}
	if !dueDate.IsZero() {
		if dueDate.Before(i.IssueDate) {
			return shared.NewValidationError("INVALID_DUE_DATE", "Due date cannot be before issue date")
		}
		i.DueDate = dueDate
	}
	i.CustomerName = strings.TrimSpace(customerName)
	i.CustomerEmail = strings.TrimSpace(customerEmail)
	i.Notes = notes
	i.Touch()
	return nil
}

func (i *Invoice) ensureEditable() error {
	if !i.Status.IsEditable() {
		return shared.NewInvalidStateError("INVOICE_NOT_EDITABLE",
			fmt.Sprintf("Cannot modify items of an invoice in %s status", i.Status))
	}
	return nil
}

// Send moves a draft invoice to sent. Requires at least one line item.
func (i *Invoice) Send(now time.Time) error {
	if i.Status == InvoiceStatusDraft && i.ItemCount() == 0 {
		return shared.NewInvalidStateError("NO_ITEMS", "Cannot send an invoice without line items")
	}
	if err := i.transition(InvoiceStatusSent); err != nil {
		return err
	}
	i.SentAt = &now
	i.AddDomainEvent(NewInvoiceSentEvent(i))
	return nil
}

// MarkViewed records that the customer opened the invoice. Only a sent
// invoice changes status; later statuses just keep the first view time.
func (i *Invoice) MarkViewed(now time.Time) error {
	switch i.Status {
	case InvoiceStatusSent:
		if err := i.transition(InvoiceStatusViewed); err != nil {
			return err
		}
	case InvoiceStatusViewed, InvoiceStatusPartial, InvoiceStatusOverdue, InvoiceStatusPaid:
	default:
		return shared.NewInvalidStateError("INVOICE_NOT_SENT",
			fmt.Sprintf("Cannot mark an invoice in %s status as viewed", i.Status))
	}
	if i.ViewedAt == nil {
		i.ViewedAt = &now
	}
	return nil
}

// Cancel cancels the invoice. Payments already applied are kept.
func (i *Invoice) Cancel(reason string, now time.Time) error {
	if !i.Status.CanTransitionTo(InvoiceStatusCancelled) {
		return shared.NewInvalidTransitionError("invoice", i.Status, InvoiceStatusCancelled)
	}
	if strings.TrimSpace(reason) == "" {
		return shared.NewValidationError("INVALID_REASON", "Cancel reason is required")
	}
	if err := i.transition(InvoiceStatusCancelled); err != nil {
		return err
	}
	i.CancelledAt = &now
	i.CancelReason = reason
	i.AddDomainEvent(NewInvoiceCancelledEvent(i))
	return nil
}

// TransitionTo performs an explicit status change. Payment-derived statuses
// must agree with the invoice's figures, so a user cannot mark an unpaid
// invoice paid.
func (i *Invoice) TransitionTo(target InvoiceStatus, now time.Time) error {
	if !target.IsValid() {
		return shared.NewValidationError("INVALID_STATUS", "Unknown invoice status: "+string(target))
	}
	if !i.Status.CanTransitionTo(target) {
		return shared.NewInvalidTransitionError("invoice", i.Status, target)
	}
	switch target {
	case InvoiceStatusSent:
		return i.Send(now)
	case InvoiceStatusViewed:
		return i.MarkViewed(now)
	case InvoiceStatusCancelled:
		return i.Cancel("cancelled by user", now)
	case InvoiceStatusOverdue:
		marked, err := i.MarkOverdue(now)
		if err != nil {
			return err
		}
		if !marked {
			return shared.NewInvalidStateError("NOT_OVERDUE", "Invoice is not past due with an outstanding balance")
		}
		return nil
	}

	derived := Classify(i.Totals.Total, i.AmountPaid, i.DueDate, now, i.Status)
	if derived != target {
		return shared.NewInvalidStateError("STATUS_MISMATCH",
			fmt.Sprintf("Invoice figures put it in %s status, not %s", derived, target))
	}
	return i.reconcile(now)
}

// MarkOverdue moves the invoice to overdue when money is owed past the due
// date and nothing has been paid. It returns false when nothing changed.
func (i *Invoice) MarkOverdue(now time.Time) (bool, error) {
	derived := Classify(i.Totals.Total, i.AmountPaid, i.DueDate, now, i.Status)
	if derived != InvoiceStatusOverdue || i.Status == InvoiceStatusOverdue {
		return false, nil
	}
	if err := i.transition(InvoiceStatusOverdue); err != nil {
		return false, err
	}
	i.AddDomainEvent(NewInvoiceOverdueEvent(i))
	return true, nil
}

// ApplyPayment validates and records a payment, then reclassifies the
// invoice. A rejected payment leaves the invoice untouched.
func (i *Invoice) ApplyPayment(in PaymentInput) (*Payment, error) {
	if !i.Status.AcceptsPayments() {
		return nil, shared.NewInvalidStateError("PAYMENT_NOT_ALLOWED",
			fmt.Sprintf("Cannot record a payment on an invoice in %s status", i.Status))
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.Amount.GreaterThan(i.BalanceDue) {
		return nil, shared.NewValidationError("EXCEEDS_BALANCE_DUE",
			fmt.Sprintf("Payment amount %s exceeds balance due %s", in.Amount.StringFixed(i.scale()), i.BalanceDue.StringFixed(i.scale())))
	}
	if in.GatewayReference != "" && i.HasGatewayReference(in.GatewayReference) {
		return nil, shared.ErrDuplicate.WithDetail("gateway_reference", in.GatewayReference)
	}

	appliedAt := in.AppliedAt
	if appliedAt.IsZero() {
		appliedAt = time.Now()
	}
	payment := Payment{
		ID:               uuid.New(),
		InvoiceID:        i.ID,
		Amount:           in.Amount,
		Method:           in.Method,
		GatewayReference: in.GatewayReference,
		Note:             in.Note,
		AppliedAt:        appliedAt,
	}
	if in.GatewayFee != nil {
		payment.GatewayFee = decimal.NewNullDecimal(*in.GatewayFee)
	}

	snapshot := i.snapshot()
	i.Payments = append(i.Payments, payment)
	i.refreshBalance()
	if err := i.reconcile(appliedAt); err != nil {
		i.restore(snapshot)
		return nil, err
	}

	i.AddDomainEvent(NewPaymentAppliedEvent(i, payment))
	return &i.Payments[len(i.Payments)-1], nil
}

// Refund records a negative payment against an earlier payment. The
// original record is never modified.
func (i *Invoice) Refund(paymentID uuid.UUID, amount decimal.Decimal, reason string, now time.Time) (*Payment, error) {
	switch i.Status {
	case InvoiceStatusPartial, InvoiceStatusPaid, InvoiceStatusOverdue:
	default:
		return nil, shared.NewInvalidStateError("REFUND_NOT_ALLOWED",
			fmt.Sprintf("Cannot refund a payment on an invoice in %s status", i.Status))
	}
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("INVALID_AMOUNT", "Refund amount must be positive")
	}
	if !valueobject.FitsStorage(amount) {
		return nil, amountOutOfRange("INVALID_AMOUNT", "Refund amount")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, shared.NewValidationError("INVALID_REASON", "Refund reason is required")
	}
	original, ok := i.Payment(paymentID)
	if !ok {
		return nil, shared.ErrNotFound.WithDetail("payment_id", paymentID.String())
	}
	if original.IsRefund() {
		return nil, shared.NewValidationError("INVALID_REFUND_TARGET", "A refund cannot itself be refunded")
	}
	refundable := original.Amount.Sub(i.RefundedAmount(paymentID))
	if amount.GreaterThan(refundable) {
		return nil, shared.NewValidationError("EXCEEDS_REFUNDABLE",
			fmt.Sprintf("Refund amount %s exceeds refundable amount %s", amount.StringFixed(i.scale()), refundable.StringFixed(i.scale())))
	}

	originalID := original.ID
	refund := Payment{
		ID:        uuid.New(),
		InvoiceID: i.ID,
		Amount:    amount.Neg(),
		Method:    original.Method,
		RefundOf:  &originalID,
		Note:      reason,
		AppliedAt: now,
	}

	snapshot := i.snapshot()
	i.Payments = append(i.Payments, refund)
	i.refreshBalance()
	if reopened, ok := refundReopens[i.Status]; ok {
		i.Status = reopened
		i.PaidAt = nil
	}
	if err := i.reconcile(now); err != nil {
		i.restore(snapshot)
		return nil, err
	}

	i.AddDomainEvent(NewPaymentRefundedEvent(i, refund))
	return &i.Payments[len(i.Payments)-1], nil
}

// Payment returns the payment with the given id
func (i *Invoice) Payment(paymentID uuid.UUID) (*Payment, bool) {
	for idx := range i.Payments {
		if i.Payments[idx].ID == paymentID {
			return &i.Payments[idx], true
		}
	}
	return nil, false
}

// PaymentByReference returns the gateway payment recorded for reference
func (i *Invoice) PaymentByReference(reference string) (*Payment, bool) {
	for idx := range i.Payments {
		p := &i.Payments[idx]
		if p.GatewayReference == reference && !p.IsRefund() {
			return p, true
		}
	}
	return nil, false
}

// HasGatewayReference reports whether a gateway payment was already applied
func (i *Invoice) HasGatewayReference(reference string) bool {
	_, ok := i.PaymentByReference(reference)
	return ok
}

// RefundedAmount returns the total refunded against a payment, as a positive number
func (i *Invoice) RefundedAmount(paymentID uuid.UUID) decimal.Decimal {
	total := decimal.Zero
	for _, p := range i.Payments {
		if p.RefundOf != nil && *p.RefundOf == paymentID {
			total = total.Add(p.Amount.Neg())
		}
	}
	return total
}

// EnsureDeletable returns an error unless the invoice is draft or cancelled
func (i *Invoice) EnsureDeletable() error {
	if !i.Status.IsDeletable() {
		return shared.NewInvalidStateError("INVOICE_NOT_DELETABLE",
			fmt.Sprintf("Cannot delete an invoice in %s status", i.Status))
	}
	return nil
}

// IsPaid is the paid flag
func (i *Invoice) IsPaid() bool {
	return i.BalanceDue.IsZero() && i.Totals.Total.IsPositive()
}

// IsOverdue is the overdue flag as of now
func (i *Invoice) IsOverdue(now time.Time) bool {
	if i.Status == InvoiceStatusDraft || i.Status == InvoiceStatusCancelled {
		return false
	}
	return IsOverdue(i.Totals.Total, i.AmountPaid, i.DueDate, now)
}

// Classification returns the status the invoice's figures imply as of now
func (i *Invoice) Classification(now time.Time) InvoiceStatus {
	return Classify(i.Totals.Total, i.AmountPaid, i.DueDate, now, i.Status)
}

// Recalculate re-derives line amounts, totals and balances from stored
// inputs. Repositories call it after loading.
func (i *Invoice) Recalculate() {
	i.Sheet.Recalculate(i.scale())
	i.refreshBalance()
}

func (i *Invoice) refreshBalance() {
	paid := decimal.Zero
	for _, p := range i.Payments {
		paid = paid.Add(p.Amount)
	}
	i.AmountPaid = paid
	i.BalanceDue = BalanceDue(i.Totals.Total, paid)
}

// reconcile moves the status to whatever the figures imply, through the
// transition table.
func (i *Invoice) reconcile(now time.Time) error {
	target := Classify(i.Totals.Total, i.AmountPaid, i.DueDate, now, i.Status)
	if target == i.Status {
		return nil
	}
	if err := i.transition(target); err != nil {
		return err
	}
	if target == InvoiceStatusPaid {
		i.PaidAt = &now
		i.AddDomainEvent(NewInvoicePaidEvent(i))
	}
	return nil
}

func (i *Invoice) transition(target InvoiceStatus) error {
	if !i.Status.CanTransitionTo(target) {
		return shared.NewInvalidTransitionError("invoice", i.Status, target)
	}
	i.Status = target
	i.Touch()
	return nil
}

type invoiceSnapshot struct {
	status     InvoiceStatus
	payments   []Payment
	amountPaid decimal.Decimal
	balanceDue decimal.Decimal
	paidAt     *time.Time
}

func (i *Invoice) snapshot() invoiceSnapshot {
	return invoiceSnapshot{
		status:     i.Status,
		payments:   i.Payments,
		amountPaid: i.AmountPaid,
		balanceDue: i.BalanceDue,
		paidAt:     i.PaidAt,
	}
}

func (i *Invoice) restore(s invoiceSnapshot) {
	i.Status = s.status
	i.Payments = s.payments[:len(s.payments):len(s.payments)]
	i.AmountPaid = s.amountPaid
	i.BalanceDue = s.balanceDue
	i.PaidAt = s.paidAt
}

// NewDocumentNumber builds a human-readable number such as INV-20240131-3FA2C1.
func NewDocumentNumber(prefix string, now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("%s-%s-%s", prefix, now.Format("20060102"), suffix)
}
