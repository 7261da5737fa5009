package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bizdocs/backend/internal/domain/inventory"
)

// StockTakeModel is the persistence model for the StockTake aggregate root.
// The variance summary is frozen at completion and stored as JSON.
type StockTakeModel struct {
	AggregateModel
	TakeNumber   string                     `gorm:"type:varchar(50);not null;uniqueIndex"`
	Location     string                     `gorm:"type:varchar(200);not null"`
	Status       inventory.StockTakeStatus  `gorm:"type:varchar(20);not null;default:'draft';index"`
	TakeDate     time.Time                  `gorm:"not null"`
	StartedAt    *time.Time                 `gorm:""`
	CompletedAt  *time.Time                 `gorm:""`
	CancelledAt  *time.Time                 `gorm:""`
	CancelReason string                     `gorm:"type:varchar(500)"`
	Notes        string                     `gorm:"type:text"`
	Summary      *inventory.VarianceSummary `gorm:"serializer:json"`
	Counts       []StockCountModel          `gorm:"foreignKey:StockTakeID;references:ID"`
}

func (StockTakeModel) TableName() string {
	return "stock_takes"
}

// StockCountModel is one product line of a stock-take.
type StockCountModel struct {
	ID            uuid.UUID           `gorm:"type:uuid;primaryKey"`
	StockTakeID   uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:idx_stock_counts_take_product,priority:1"`
	ProductID     uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex:idx_stock_counts_take_product,priority:2"`
	ProductName   string              `gorm:"type:varchar(200);not null"`
	ProductCode   string              `gorm:"type:varchar(50)"`
	Unit          string              `gorm:"type:varchar(20)"`
	SystemQty     decimal.Decimal     `gorm:"type:decimal(18,4);not null"`
	CountedQty    decimal.NullDecimal `gorm:"type:decimal(18,4)"`
	UnitCost      decimal.Decimal     `gorm:"type:decimal(18,4);not null;default:0"`
	Remark        string              `gorm:"type:varchar(500)"`
	CountedAt     *time.Time          `gorm:""`
	CreatedAt     time.Time           `gorm:"not null"`
	UpdatedAt     time.Time           `gorm:"not null"`
}

func (StockCountModel) TableName() string {
	return "stock_counts"
}

// StockTakeModelFromDomain converts the aggregate and its counts.
func StockTakeModelFromDomain(st *inventory.StockTake) *StockTakeModel {
	m := &StockTakeModel{
		TakeNumber:   st.TakeNumber,
		Location:     st.Location,
		Status:       st.Status,
		TakeDate:     st.TakeDate,
		StartedAt:    st.StartedAt,
		CompletedAt:  st.CompletedAt,
		CancelledAt:  st.CancelledAt,
		CancelReason: st.CancelReason,
		Notes:        st.Notes,
		Summary:      st.Summary,
		Counts:       make([]StockCountModel, len(st.Counts)),
	}
	m.fromDomain(st.BaseAggregateRoot)
	for i, c := range st.Counts {
		m.Counts[i] = StockCountModel{
			ID:          c.ID,
			StockTakeID: st.ID,
			ProductID:   c.ProductID,
			ProductName: c.ProductName,
			ProductCode: c.ProductCode,
			Unit:        c.Unit,
			SystemQty:   c.SystemQty,
			CountedQty:  c.CountedQty,
			UnitCost:    c.UnitCost,
			Remark:      c.Remark,
			CountedAt:   c.CountedAt,
			CreatedAt:   c.CreatedAt,
			UpdatedAt:   c.UpdatedAt,
		}
	}
	return m
}

// ToDomain converts the model, re-deriving each count's variance.
func (m *StockTakeModel) ToDomain() *inventory.StockTake {
	st := &inventory.StockTake{
		BaseAggregateRoot: m.toDomain(),
		TakeNumber:        m.TakeNumber,
		Location:          m.Location,
		Status:            m.Status,
		TakeDate:          m.TakeDate,
		StartedAt:         m.StartedAt,
		CompletedAt:       m.CompletedAt,
		CancelledAt:       m.CancelledAt,
		CancelReason:      m.CancelReason,
		Notes:             m.Notes,
		Summary:           m.Summary,
		Counts:            make([]inventory.StockCount, len(m.Counts)),
	}
	for i, c := range m.Counts {
		count := inventory.StockCount{
			ID:          c.ID,
			StockTakeID: m.ID,
			ProductID:   c.ProductID,
			ProductName: c.ProductName,
			ProductCode: c.ProductCode,
			Unit:        c.Unit,
			SystemQty:   c.SystemQty,
			CountedQty:  c.CountedQty,
			Variance:    decimal.Zero,
			UnitCost:    c.UnitCost,
			Remark:      c.Remark,
			CountedAt:   c.CountedAt,
			CreatedAt:   c.CreatedAt,
			UpdatedAt:   c.UpdatedAt,
		}
		count.VarianceValue = decimal.Zero
		if c.CountedQty.Valid {
			count.Variance = c.CountedQty.Decimal.Sub(c.SystemQty)
			count.VarianceValue = count.Variance.Mul(c.UnitCost)
		}
		st.Counts[i] = count
	}
	return st
}
