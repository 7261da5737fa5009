package fulfillment

import (
	"github.com/shopspring/decimal"

	"github.com/bizdocs/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeOrder = "Order"

// Event type constants
const (
	EventTypeOrderCreated       = "OrderCreated"
	EventTypeOrderStatusChanged = "OrderStatusChanged"
)

// OrderCreatedEvent is raised when a new order is placed
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	OrderNumber       string `json:"order_number"`
	FulfillmentMethod string `json:"fulfillment_method"`
}

// NewOrderCreatedEvent creates a new OrderCreatedEvent
func NewOrderCreatedEvent(o *Order) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventTypeOrderCreated, AggregateTypeOrder, o.ID),
		OrderNumber:       o.OrderNumber,
		FulfillmentMethod: string(o.FulfillmentMethod),
	}
}

// OrderStatusChangedEvent is raised on every status change, cancellation included
type OrderStatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string          `json:"order_number"`
	From        string          `json:"from"`
	To          string          `json:"to"`
	Total       decimal.Decimal `json:"total"`
	Reason      string          `json:"reason,omitempty"`
}

// NewOrderStatusChangedEvent creates a new OrderStatusChangedEvent
func NewOrderStatusChangedEvent(o *Order, from OrderStatus) *OrderStatusChangedEvent {
	return &OrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderStatusChanged, AggregateTypeOrder, o.ID),
		OrderNumber:     o.OrderNumber,
		From:            string(from),
		To:              string(o.Status),
		Total:           o.Totals.Total,
		Reason:          o.CancelReason,
	}
}
