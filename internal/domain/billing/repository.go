package billing

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bizdocs/backend/internal/domain/shared"
)

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	// FindByID loads an invoice with its items and payments
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// FindByNumber loads an invoice by its invoice number
	FindByNumber(ctx context.Context, number string) (*Invoice, error)

	// FindAll lists invoices without items or payments. Filters supports
	// "status" and "customer".
	FindAll(ctx context.Context, filter shared.Filter) ([]Invoice, int64, error)

	// FindOverdueCandidates returns ids of invoices that accept payments and
	// were due before asOf
	FindOverdueCandidates(ctx context.Context, asOf time.Time, limit int) ([]uuid.UUID, error)

	// Create inserts a new invoice with its items
	Create(ctx context.Context, invoice *Invoice) error

	// SaveWithLock updates the invoice if its version is unchanged since it
	// was loaded, replacing items and inserting new payments in the same
	// transaction. Returns shared.ErrConcurrencyConflict on a stale version
	// and shared.ErrDuplicate when a gateway reference is already recorded.
	SaveWithLock(ctx context.Context, invoice *Invoice) error

	// Delete removes an invoice and its children
	Delete(ctx context.Context, id uuid.UUID) error
}
