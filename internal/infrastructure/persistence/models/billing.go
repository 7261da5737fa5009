package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bizdocs/backend/internal/domain/billing"
	"github.com/bizdocs/backend/internal/domain/costing"
	"github.com/bizdocs/backend/internal/domain/shared/valueobject"
)

// InvoiceModel is the persistence model for the Invoice aggregate root.
type InvoiceModel struct {
	AggregateModel
	InvoiceNumber string                `gorm:"type:varchar(50);not null;uniqueIndex"`
	CustomerName  string                `gorm:"type:varchar(200);not null"`
	CustomerEmail string                `gorm:"type:varchar(200)"`
	Currency      string                `gorm:"type:char(3);not null"`
	Status        billing.InvoiceStatus `gorm:"type:varchar(20);not null;default:'draft';index"`
	IssueDate     time.Time             `gorm:"not null"`
	DueDate       time.Time             `gorm:"not null;index"`
	TotalsColumns
	AmountPaid   decimal.Decimal    `gorm:"type:decimal(18,4);not null;default:0"`
	BalanceDue   decimal.Decimal    `gorm:"type:decimal(18,4);not null;default:0"`
	Notes        string             `gorm:"type:text"`
	SentAt       *time.Time         `gorm:""`
	ViewedAt     *time.Time         `gorm:""`
	PaidAt       *time.Time         `gorm:""`
	CancelledAt  *time.Time         `gorm:""`
	CancelReason string             `gorm:"type:varchar(500)"`
	Items        []InvoiceItemModel `gorm:"foreignKey:InvoiceID;references:ID"`
	Payments     []PaymentModel     `gorm:"foreignKey:InvoiceID;references:ID"`
}

func (InvoiceModel) TableName() string {
	return "invoices"
}

// InvoiceItemModel is one invoice line.
type InvoiceItemModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	InvoiceID uuid.UUID `gorm:"type:uuid;not null;index"`
	LineColumns
}

func (InvoiceItemModel) TableName() string {
	return "invoice_items"
}

// PaymentModel is an applied payment or refund. A gateway reference is
// unique per invoice, which is what makes gateway verification at-most-once.
type PaymentModel struct {
	ID               uuid.UUID           `gorm:"type:uuid;primaryKey"`
	InvoiceID        uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:idx_payments_invoice_reference,priority:1"`
	Amount           decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	Method           string              `gorm:"type:varchar(20);not null"`
	GatewayReference *string             `gorm:"type:varchar(100);uniqueIndex:idx_payments_invoice_reference,priority:2"`
	GatewayFee       decimal.NullDecimal `gorm:"type:decimal(18,4)"`
	RefundOf         *uuid.UUID          `gorm:"type:uuid"`
	Note             string              `gorm:"type:varchar(500)"`
	AppliedAt        time.Time           `gorm:"not null"`
}

func (PaymentModel) TableName() string {
	return "invoice_payments"
}

// InvoiceModelFromDomain converts the aggregate, items and payments included.
func InvoiceModelFromDomain(inv *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{
		InvoiceNumber: inv.InvoiceNumber,
		CustomerName:  inv.CustomerName,
		CustomerEmail: inv.CustomerEmail,
		Currency:      string(inv.Currency),
		Status:        inv.Status,
		IssueDate:     inv.IssueDate,
		DueDate:       inv.DueDate,
		TotalsColumns: totalsFromDomain(inv.Totals),
		AmountPaid:    inv.AmountPaid,
		BalanceDue:    inv.BalanceDue,
		Notes:         inv.Notes,
		SentAt:        inv.SentAt,
		ViewedAt:      inv.ViewedAt,
		PaidAt:        inv.PaidAt,
		CancelledAt:   inv.CancelledAt,
		CancelReason:  inv.CancelReason,
	}
	m.fromDomain(inv.BaseAggregateRoot)
	m.Items = make([]InvoiceItemModel, len(inv.Items))
	for i := range inv.Items {
		m.Items[i] = InvoiceItemModel{ID: inv.Items[i].ID, InvoiceID: inv.ID, LineColumns: lineFromDomain(&inv.Items[i])}
	}
	m.Payments = make([]PaymentModel, len(inv.Payments))
	for i, p := range inv.Payments {
		m.Payments[i] = PaymentModelFromDomain(p)
	}
	return m
}

// ToDomain converts the model. Stored totals are kept as-is; callers that
// loaded items and payments should call Recalculate on the result.
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	inv := &billing.Invoice{
		BaseAggregateRoot: m.AggregateModel.toDomain(),
		InvoiceNumber:     m.InvoiceNumber,
		CustomerName:      m.CustomerName,
		CustomerEmail:     m.CustomerEmail,
		Currency:          valueobject.Currency(m.Currency),
		Status:            m.Status,
		IssueDate:         m.IssueDate,
		DueDate:           m.DueDate,
		Sheet:             costing.Sheet{Items: make([]costing.LineItem, len(m.Items)), Totals: m.TotalsColumns.toDomain()},
		AmountPaid:        m.AmountPaid,
		BalanceDue:        m.BalanceDue,
		Payments:          make([]billing.Payment, len(m.Payments)),
		Notes:             m.Notes,
		SentAt:            m.SentAt,
		ViewedAt:          m.ViewedAt,
		PaidAt:            m.PaidAt,
		CancelledAt:       m.CancelledAt,
		CancelReason:      m.CancelReason,
	}
	for i, item := range m.Items {
		inv.Items[i] = item.LineColumns.toDomain(item.ID, m.ID)
	}
	for i := range m.Payments {
		inv.Payments[i] = m.Payments[i].ToDomain()
	}
	return inv
}

// PaymentModelFromDomain converts a payment.
func PaymentModelFromDomain(p billing.Payment) PaymentModel {
	return PaymentModel{
		ID:               p.ID,
		InvoiceID:        p.InvoiceID,
		Amount:           p.Amount,
		Method:           string(p.Method),
		GatewayReference: nullableString(p.GatewayReference),
		GatewayFee:       p.GatewayFee,
		RefundOf:         p.RefundOf,
		Note:             p.Note,
		AppliedAt:        p.AppliedAt,
	}
}

// ToDomain converts the model.
func (m PaymentModel) ToDomain() billing.Payment {
	return billing.Payment{
		ID:               m.ID,
		InvoiceID:        m.InvoiceID,
		Amount:           m.Amount,
		Method:           billing.PaymentMethod(m.Method),
		GatewayReference: derefString(m.GatewayReference),
		GatewayFee:       m.GatewayFee,
		RefundOf:         m.RefundOf,
		Note:             m.Note,
		AppliedAt:        m.AppliedAt,
	}
}
