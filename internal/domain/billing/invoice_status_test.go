package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvoiceStatus_IsValid(t *testing.T) {
	for _, s := range AllInvoiceStatuses() {
		assert.True(t, s.IsValid(), s)
	}
	assert.False(t, InvoiceStatus("").IsValid())
	assert.False(t, InvoiceStatus("refunded").IsValid())
}

func TestInvoiceStatus_TransitionTable(t *testing.T) {
	allowed := map[InvoiceStatus][]InvoiceStatus{
		InvoiceStatusDraft:     {InvoiceStatusSent, InvoiceStatusCancelled},
		InvoiceStatusSent:      {InvoiceStatusViewed, InvoiceStatusPartial, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled},
		InvoiceStatusViewed:    {InvoiceStatusPartial, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled},
		InvoiceStatusPartial:   {InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled},
		InvoiceStatusOverdue:   {InvoiceStatusPartial, InvoiceStatusPaid, InvoiceStatusCancelled},
		InvoiceStatusPaid:      {},
		InvoiceStatusCancelled: {},
	}

	for _, from := range AllInvoiceStatuses() {
		for _, to := range AllInvoiceStatuses() {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				assert.Equal(t, want, from.CanTransitionTo(to))
			})
		}
	}
}

func TestInvoiceStatus_Flags(t *testing.T) {
	t.Run("terminal", func(t *testing.T) {
		assert.True(t, InvoiceStatusPaid.IsTerminal())
		assert.True(t, InvoiceStatusCancelled.IsTerminal())
		assert.False(t, InvoiceStatusPartial.IsTerminal())
	})

	t.Run("accepts payments", func(t *testing.T) {
		assert.False(t, InvoiceStatusDraft.AcceptsPayments())
		assert.True(t, InvoiceStatusSent.AcceptsPayments())
		assert.True(t, InvoiceStatusViewed.AcceptsPayments())
		assert.True(t, InvoiceStatusPartial.AcceptsPayments())
		assert.True(t, InvoiceStatusOverdue.AcceptsPayments())
		assert.False(t, InvoiceStatusPaid.AcceptsPayments())
		assert.False(t, InvoiceStatusCancelled.AcceptsPayments())
	})

	t.Run("editable and deletable", func(t *testing.T) {
		assert.True(t, InvoiceStatusDraft.IsEditable())
		assert.False(t, InvoiceStatusSent.IsEditable())
		assert.True(t, InvoiceStatusCancelled.IsDeletable())
		assert.False(t, InvoiceStatusPaid.IsDeletable())
	})

	t.Run("allowed transitions keep lifecycle order", func(t *testing.T) {
		assert.Equal(t, []InvoiceStatus{InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusCancelled},
			InvoiceStatusPartial.AllowedTransitions())
		assert.Empty(t, InvoiceStatusPaid.AllowedTransitions())
	})
}
