package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/bizdocs/backend/internal/domain/costing"
	"github.com/bizdocs/backend/internal/domain/fulfillment"
	"github.com/bizdocs/backend/internal/domain/shared/valueobject"
)

// OrderModel is the persistence model for the Order aggregate root.
type OrderModel struct {
	AggregateModel
	OrderNumber       string                        `gorm:"type:varchar(50);not null;uniqueIndex"`
	CustomerName      string                        `gorm:"type:varchar(200);not null"`
	CustomerPhone     string                        `gorm:"type:varchar(50)"`
	CustomerEmail     string                        `gorm:"type:varchar(200)"`
	Currency          string                        `gorm:"type:char(3);not null"`
	FulfillmentMethod fulfillment.FulfillmentMethod `gorm:"type:varchar(20);not null"`
	DeliveryAddress   string                        `gorm:"type:varchar(500)"`
	Status            fulfillment.OrderStatus       `gorm:"type:varchar(20);not null;default:'pending';index"`
	TotalsColumns
	Notes        string           `gorm:"type:text"`
	ConfirmedAt  *time.Time       `gorm:""`
	ReadyAt      *time.Time       `gorm:""`
	CompletedAt  *time.Time       `gorm:""`
	CancelledAt  *time.Time       `gorm:""`
	CancelReason string           `gorm:"type:varchar(500)"`
	Items        []OrderItemModel `gorm:"foreignKey:OrderID;references:ID"`
}

func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel is one order line.
type OrderItemModel struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	OrderID uuid.UUID `gorm:"type:uuid;not null;index"`
	LineColumns
}

func (OrderItemModel) TableName() string {
	return "order_items"
}

// OrderModelFromDomain converts the aggregate and its items.
func OrderModelFromDomain(o *fulfillment.Order) *OrderModel {
	m := &OrderModel{
		OrderNumber:       o.OrderNumber,
		CustomerName:      o.CustomerName,
		CustomerPhone:     o.CustomerPhone,
		CustomerEmail:     o.CustomerEmail,
		Currency:          string(o.Currency),
		FulfillmentMethod: o.FulfillmentMethod,
		DeliveryAddress:   o.DeliveryAddress,
		Status:            o.Status,
		TotalsColumns:     totalsFromDomain(o.Totals),
		Notes:             o.Notes,
		ConfirmedAt:       o.ConfirmedAt,
		ReadyAt:           o.ReadyAt,
		CompletedAt:       o.CompletedAt,
		CancelledAt:       o.CancelledAt,
		CancelReason:      o.CancelReason,
	}
	m.fromDomain(o.BaseAggregateRoot)
	m.Items = make([]OrderItemModel, len(o.Items))
	for i := range o.Items {
		m.Items[i] = OrderItemModel{ID: o.Items[i].ID, OrderID: o.ID, LineColumns: lineFromDomain(&o.Items[i])}
	}
	return m
}

// ToDomain converts the model. Callers that loaded items should call
// Recalculate on the result.
func (m *OrderModel) ToDomain() *fulfillment.Order {
	o := &fulfillment.Order{
		BaseAggregateRoot: m.AggregateModel.toDomain(),
		OrderNumber:       m.OrderNumber,
		CustomerName:      m.CustomerName,
		CustomerPhone:     m.CustomerPhone,
		CustomerEmail:     m.CustomerEmail,
		Currency:          valueobject.Currency(m.Currency),
		FulfillmentMethod: m.FulfillmentMethod,
		DeliveryAddress:   m.DeliveryAddress,
		Status:            m.Status,
		Sheet:             costing.Sheet{Items: make([]costing.LineItem, len(m.Items)), Totals: m.TotalsColumns.toDomain()},
		Notes:             m.Notes,
		ConfirmedAt:       m.ConfirmedAt,
		ReadyAt:           m.ReadyAt,
		CompletedAt:       m.CompletedAt,
		CancelledAt:       m.CancelledAt,
		CancelReason:      m.CancelReason,
	}
	for i, item := range m.Items {
		o.Items[i] = item.LineColumns.toDomain(item.ID, m.ID)
	}
	return o
}
