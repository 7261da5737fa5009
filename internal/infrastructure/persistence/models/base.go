package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bizdocs/backend/internal/domain/costing"
	"github.com/bizdocs/backend/internal/domain/shared"
)

// BaseModel maps shared.BaseEntity.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// AggregateModel adds the optimistic lock version.
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

func (m *AggregateModel) fromDomain(a shared.BaseAggregateRoot) {
	m.ID = a.ID
	m.CreatedAt = a.CreatedAt
	m.UpdatedAt = a.UpdatedAt
	m.Version = a.Version
}

func (m *AggregateModel) toDomain() shared.BaseAggregateRoot {
	return shared.BaseAggregateRoot{
		BaseEntity: shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		Version:    m.Version,
	}
}

// TotalsColumns stores a document's costed totals.
type TotalsColumns struct {
	Subtotal       decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Total          decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

func totalsFromDomain(t costing.Totals) TotalsColumns {
	return TotalsColumns{Subtotal: t.Subtotal, DiscountAmount: t.Discount, TaxAmount: t.Tax, Total: t.Total}
}

func (c TotalsColumns) toDomain() costing.Totals {
	return costing.Totals{Subtotal: c.Subtotal, Discount: c.DiscountAmount, Tax: c.TaxAmount, Total: c.Total}
}

// LineColumns are the columns shared by invoice and order lines.
type LineColumns struct {
	Position        int             `gorm:"not null"`
	ProductID       *uuid.UUID      `gorm:"type:uuid"`
	Description     string          `gorm:"type:varchar(500);not null"`
	Quantity        decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	DiscountPercent decimal.Decimal `gorm:"type:decimal(7,4);not null;default:0"`
	TaxRate         decimal.Decimal `gorm:"type:decimal(7,4);not null;default:0"`
	LineTotal       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt       time.Time       `gorm:"not null"`
	UpdatedAt       time.Time       `gorm:"not null"`
}

func lineFromDomain(l *costing.LineItem) LineColumns {
	return LineColumns{
		Position:        l.Position,
		ProductID:       l.ProductID,
		Description:     l.Description,
		Quantity:        l.Quantity,
		UnitPrice:       l.UnitPrice,
		DiscountPercent: l.DiscountPercent,
		TaxRate:         l.TaxRate,
		LineTotal:       l.Total,
		CreatedAt:       l.CreatedAt,
		UpdatedAt:       l.UpdatedAt,
	}
}

// toDomain returns the line inputs only; the owning aggregate recomputes
// the amounts after load.
func (c LineColumns) toDomain(id, documentID uuid.UUID) costing.LineItem {
	return costing.LineItem{
		ID:              id,
		DocumentID:      documentID,
		Position:        c.Position,
		ProductID:       c.ProductID,
		Description:     c.Description,
		Quantity:        c.Quantity,
		UnitPrice:       c.UnitPrice,
		DiscountPercent: c.DiscountPercent,
		TaxRate:         c.TaxRate,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// All returns every model, in dependency order, for schema creation in tests.
func All() []any {
	return []any{
		&InvoiceModel{}, &InvoiceItemModel{}, &PaymentModel{},
		&OrderModel{}, &OrderItemModel{},
		&StockTakeModel{}, &StockCountModel{},
	}
}
