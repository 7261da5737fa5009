// Package billing holds the invoice aggregate and its payment reconciliation.
//
// An invoice's AmountPaid is always the sum of its payments, refunds
// included as negative payments, and its status is derived from its figures
// by Classify and applied through the transition table in invoice_status.go.
package billing
