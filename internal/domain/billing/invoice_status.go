package billing

// InvoiceStatus represents the lifecycle status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft     InvoiceStatus = "draft"
	InvoiceStatusSent      InvoiceStatus = "sent"
	InvoiceStatusViewed    InvoiceStatus = "viewed"
	InvoiceStatusPartial   InvoiceStatus = "partial"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

type statusSet map[InvoiceStatus]struct{}

func setOf(statuses ...InvoiceStatus) statusSet {
	s := make(statusSet, len(statuses))
	for _, st := range statuses {
		s[st] = struct{}{}
	}
	return s
}

// invoiceTransitions is the complete set of legal status changes. Explicit
// actions and payment reconciliation both go through it.
var invoiceTransitions = map[InvoiceStatus]statusSet{
	InvoiceStatusDraft:     setOf(InvoiceStatusSent, InvoiceStatusCancelled),
	InvoiceStatusSent:      setOf(InvoiceStatusViewed, InvoiceStatusPartial, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled),
	InvoiceStatusViewed:    setOf(InvoiceStatusPartial, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled),
	InvoiceStatusPartial:   setOf(InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled),
	InvoiceStatusOverdue:   setOf(InvoiceStatusPartial, InvoiceStatusPaid, InvoiceStatusCancelled),
	InvoiceStatusPaid:      setOf(),
	InvoiceStatusCancelled: setOf(),
}

// refundReopens lists the only edges a refund may take out of a status the
// main table treats as terminal.
var refundReopens = map[InvoiceStatus]InvoiceStatus{
	InvoiceStatusPaid: InvoiceStatusPartial,
}

// AllInvoiceStatuses returns every status in lifecycle order
func AllInvoiceStatuses() []InvoiceStatus {
	return []InvoiceStatus{
		InvoiceStatusDraft,
		InvoiceStatusSent,
		InvoiceStatusViewed,
		InvoiceStatusPartial,
		InvoiceStatusPaid,
		InvoiceStatusOverdue,
		InvoiceStatusCancelled,
	}
}

// IsValid checks if the status is a known InvoiceStatus
func (s InvoiceStatus) IsValid() bool {
	_, ok := invoiceTransitions[s]
	return ok
}

func (s InvoiceStatus) String() string {
	return string(s)
}

// CanTransitionTo checks the transition table
func (s InvoiceStatus) CanTransitionTo(target InvoiceStatus) bool {
	_, ok := invoiceTransitions[s][target]
	return ok
}

// AllowedTransitions returns the statuses reachable from s in lifecycle order
func (s InvoiceStatus) AllowedTransitions() []InvoiceStatus {
	allowed := make([]InvoiceStatus, 0)
	for _, st := range AllInvoiceStatuses() {
		if s.CanTransitionTo(st) {
			allowed = append(allowed, st)
		}
	}
	return allowed
}

// IsTerminal returns true when no explicit transition leaves the status
func (s InvoiceStatus) IsTerminal() bool {
	return len(invoiceTransitions[s]) == 0
}

// AcceptsPayments returns true when payments may be recorded
func (s InvoiceStatus) AcceptsPayments() bool {
	switch s {
	case InvoiceStatusSent, InvoiceStatusViewed, InvoiceStatusPartial, InvoiceStatusOverdue:
		return true
	}
	return false
}

// IsEditable returns true when line items may change
func (s InvoiceStatus) IsEditable() bool {
	return s == InvoiceStatusDraft
}

// IsDeletable returns true when the invoice may be destroyed
func (s InvoiceStatus) IsDeletable() bool {
	return s == InvoiceStatusDraft || s == InvoiceStatusCancelled
}
