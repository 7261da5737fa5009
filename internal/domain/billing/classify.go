package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceDue is total minus amount paid, floored at zero.
func BalanceDue(total, amountPaid decimal.Decimal) decimal.Decimal {
	balance := total.Sub(amountPaid)
	if balance.IsNegative() {
		return decimal.Zero
	}
	return balance
}

// Classify derives the payment status of an invoice from its figures.
// It is pure: the stored status is only ever set to its result.
//
// Draft and cancelled invoices keep their status. Otherwise the invoice is
// paid when nothing is owed on a non-zero total, partial when something but
// not everything was paid, overdue when money is owed past the due date,
// and keeps its sent/viewed status otherwise.
func Classify(total, amountPaid decimal.Decimal, dueDate, now time.Time, status InvoiceStatus) InvoiceStatus {
	if status == InvoiceStatusDraft || status == InvoiceStatusCancelled {
		return status
	}

	balance := BalanceDue(total, amountPaid)
	if balance.IsZero() && total.IsPositive() {
		return InvoiceStatusPaid
	}
	if amountPaid.IsPositive() && amountPaid.LessThan(total) {
		return InvoiceStatusPartial
	}
	if balance.IsPositive() && !dueDate.IsZero() && now.After(dueDate) {
		return InvoiceStatusOverdue
	}

	switch status {
	case InvoiceStatusPaid, InvoiceStatusPartial:
		// everything was refunded before the due date
		return InvoiceStatusPartial
	}
	return status
}

// IsOverdue is the overdue flag: money is owed and the due date has passed.
// Unlike the status it is also true for partially paid invoices.
func IsOverdue(total, amountPaid decimal.Decimal, dueDate, now time.Time) bool {
	return BalanceDue(total, amountPaid).IsPositive() && !dueDate.IsZero() && now.After(dueDate)
}
