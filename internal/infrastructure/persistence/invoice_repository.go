package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bizdocs/backend/internal/domain/billing"
	"github.com/bizdocs/backend/internal/domain/shared"
	"github.com/bizdocs/backend/internal/infrastructure/persistence/models"
)

// GormInvoiceRepository implements billing.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

func (r *GormInvoiceRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("applied_at ASC") })
}

// FindByID finds an invoice with its items and payments
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.preloaded(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "find invoice")
	}
	inv := model.ToDomain()
	inv.Recalculate()
	return inv, nil
}

// FindByNumber finds an invoice by its invoice number
func (r *GormInvoiceRepository) FindByNumber(ctx context.Context, number string) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.preloaded(ctx).First(&model, "invoice_number = ?", number).Error; err != nil {
		return nil, translateError(err, "find invoice by number")
	}
	inv := model.ToDomain()
	inv.Recalculate()
	return inv, nil
}

// FindAll lists invoices with their stored totals
func (r *GormInvoiceRepository) FindAll(ctx context.Context, filter shared.Filter) ([]billing.Invoice, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.InvoiceModel{})
	if status, ok := filter.Filters["status"].(string); ok && status != "" {
		query = query.Where("status = ?", status)
	}
	if customer, ok := filter.Filters["customer"].(string); ok && customer != "" {
		query = query.Where(`LOWER(customer_name) LIKE ? ESCAPE '\'`, likePattern(customer))
	}
	if filter.Search != "" {
		p := likePattern(filter.Search)
		query = query.Where(`LOWER(invoice_number) LIKE ? ESCAPE '\' OR LOWER(customer_name) LIKE ? ESCAPE '\'`, p, p)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "count invoices")
	}

	var rows []models.InvoiceModel
	if err := paginate(query, filter, InvoiceSortFields, "created_at").Find(&rows).Error; err != nil {
		return nil, 0, translateError(err, "list invoices")
	}
	invoices := make([]billing.Invoice, len(rows))
	for i := range rows {
		invoices[i] = *rows[i].ToDomain()
	}
	return invoices, total, nil
}

// FindOverdueCandidates returns ids of sent or viewed invoices due before asOf.
// Partially paid invoices keep their status, so they are not candidates.
func (r *GormInvoiceRepository) FindOverdueCandidates(ctx context.Context, asOf time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).
		Where("status IN ? AND due_date < ? AND balance_due > 0",
			[]billing.InvoiceStatus{billing.InvoiceStatusSent, billing.InvoiceStatusViewed}, asOf).
		Order("due_date ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, translateError(err, "find overdue invoices")
	}
	return ids, nil
}

// Create inserts a new invoice with its items
func (r *GormInvoiceRepository) Create(ctx context.Context, inv *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(inv)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(model).Error
	})
	return translateError(err, "create invoice")
}

// SaveWithLock writes the invoice header under an optimistic lock, syncs the
// line items and appends payments not yet stored, all in one transaction.
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, inv *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(inv)
	now := time.Now()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.InvoiceModel{}).
			Where("id = ? AND version = ?", inv.ID, inv.Version).
			Updates(map[string]any{
				"customer_name":   model.CustomerName,
				"customer_email":  model.CustomerEmail,
				"status":          model.Status,
				"due_date":        model.DueDate,
				"subtotal":        model.Subtotal,
				"discount_amount": model.DiscountAmount,
				"tax_amount":      model.TaxAmount,
				"total":           model.Total,
				"amount_paid":     model.AmountPaid,
				"balance_due":     model.BalanceDue,
				"notes":           model.Notes,
				"sent_at":         model.SentAt,
				"viewed_at":       model.ViewedAt,
				"paid_at":         model.PaidAt,
				"cancelled_at":    model.CancelledAt,
				"cancel_reason":   model.CancelReason,
				"version":         inv.Version + 1,
				"updated_at":      now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict.WithDetail("invoice_id", inv.ID.String())
		}

		if err := syncInvoiceItems(tx, inv.ID, model.Items); err != nil {
			return err
		}
		return appendPayments(tx, inv.ID, model.Payments)
	})
	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrDuplicate.WithDetail("invoice_id", inv.ID.String())
		}
		return translateError(err, "save invoice")
	}

	inv.IncrementVersion()
	return nil
}

func syncInvoiceItems(tx *gorm.DB, invoiceID uuid.UUID, items []models.InvoiceItemModel) error {
	keep := make([]uuid.UUID, len(items))
	for i := range items {
		keep[i] = items[i].ID
	}
	del := tx.Where("invoice_id = ?", invoiceID)
	if len(keep) > 0 {
		del = del.Where("id NOT IN ?", keep)
	}
	if err := del.Delete(&models.InvoiceItemModel{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&items).Error
}

// appendPayments inserts payments the database has not seen. Stored
// payments are immutable and never updated.
func appendPayments(tx *gorm.DB, invoiceID uuid.UUID, payments []models.PaymentModel) error {
	if len(payments) == 0 {
		return nil
	}
	var stored []uuid.UUID
	if err := tx.Model(&models.PaymentModel{}).Where("invoice_id = ?", invoiceID).Pluck("id", &stored).Error; err != nil {
		return err
	}
	seen := make(map[uuid.UUID]bool, len(stored))
	for _, id := range stored {
		seen[id] = true
	}
	fresh := make([]models.PaymentModel, 0, len(payments))
	for _, p := range payments {
		if !seen[p.ID] {
			fresh = append(fresh, p)
		}
	}
	if len(fresh) == 0 {
		return nil
	}
	return tx.Create(&fresh).Error
}

// Delete removes an invoice with its items and payments
func (r *GormInvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", id).Delete(&models.PaymentModel{}).Error; err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", id).Delete(&models.InvoiceItemModel{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.InvoiceModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
	if errors.Is(err, shared.ErrNotFound) {
		return shared.ErrNotFound.WithDetail("invoice_id", id.String())
	}
	return translateError(err, "delete invoice")
}

var _ billing.InvoiceRepository = (*GormInvoiceRepository)(nil)
