package fulfillment

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bizdocs/backend/internal/domain/costing"
	"github.com/bizdocs/backend/internal/domain/shared"
	"github.com/bizdocs/backend/internal/domain/shared/valueobject"
)

// Order is an online order moving through preparation and hand-over.
// Orders are settled outside this context and carry no payments.
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber       string
	CustomerName      string
	CustomerPhone     string
	CustomerEmail     string
	Currency          valueobject.Currency
	FulfillmentMethod FulfillmentMethod
	DeliveryAddress   string
	Status            OrderStatus
	costing.Sheet
	Notes        string
	ConfirmedAt  *time.Time
	ReadyAt      *time.Time
	CompletedAt  *time.Time
	CancelledAt  *time.Time
	CancelReason string
}

// NewOrder creates a pending order
func NewOrder(number, customerName string, currency valueobject.Currency, method FulfillmentMethod, deliveryAddress string) (*Order, error) {
	if strings.TrimSpace(number) == "" {
		return nil, shared.NewValidationError("INVALID_ORDER_NUMBER", "Order number cannot be empty")
	}
	if strings.TrimSpace(customerName) == "" {
		return nil, shared.NewValidationError("INVALID_CUSTOMER", "Customer name cannot be empty")
	}
	if !method.IsValid() {
		return nil, shared.NewValidationError("INVALID_FULFILLMENT_METHOD", "Fulfillment method must be delivery or collection")
	}
	if method == FulfillmentDelivery && strings.TrimSpace(deliveryAddress) == "" {
		return nil, shared.NewValidationError("MISSING_DELIVERY_ADDRESS", "Delivery orders require an address")
	}
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	if !currency.Valid() {
		return nil, shared.NewValidationError("INVALID_CURRENCY", "Unknown currency: "+string(currency))
	}

	order := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       number,
		CustomerName:      strings.TrimSpace(customerName),
		Currency:          currency,
		FulfillmentMethod: method,
		DeliveryAddress:   strings.TrimSpace(deliveryAddress),
		Status:            OrderStatusPending,
		Sheet:             costing.NewSheet(),
	}
	order.AddDomainEvent(NewOrderCreatedEvent(order))
	return order, nil
}

func (o *Order) scale() int32 {
	return o.Currency.MinorUnits()
}

// AddItem adds a line item while the order is pending
func (o *Order) AddItem(raw costing.RawLine) (*costing.LineItem, error) {
	if err := o.ensureEditable(); err != nil {
		return nil, err
	}
	return o.AddLine(o.ID, raw, o.scale())
}

// UpdateItem replaces a line item's inputs while the order is pending
func (o *Order) UpdateItem(itemID uuid.UUID, raw costing.RawLine) (*costing.LineItem, error) {
	if err := o.ensureEditable(); err != nil {
		return nil, err
	}
	return o.UpdateLine(itemID, raw, o.scale())
}

// RemoveItem removes a line item while the order is pending
func (o *Order) RemoveItem(itemID uuid.UUID) error {
	if err := o.ensureEditable(); err != nil {
		return err
	}
	return o.RemoveLine(itemID, o.scale())
}

func (o *Order) ensureEditable() error {
	if !o.Status.IsEditable() {
		return shared.NewInvalidStateError("ORDER_NOT_EDITABLE",
			fmt.Sprintf("Cannot modify items of an order in %s status", o.Status))
	}
	return nil
}

// TransitionTo advances the order. Cancellation goes through Cancel so a
// reason is always recorded.
func (o *Order) TransitionTo(target OrderStatus, now time.Time) error {
	if !target.IsValid() {
		return shared.NewValidationError("INVALID_STATUS", "Unknown order status: "+string(target))
	}
	if !o.Status.CanTransitionTo(target, o.FulfillmentMethod) {
		return shared.NewInvalidTransitionError("order", o.Status, target)
	}
	if target == OrderStatusCancelled {
		return shared.NewValidationError("INVALID_REASON", "Cancelling an order requires a reason")
	}
	if target == OrderStatusConfirmed && o.ItemCount() == 0 {
		return shared.NewInvalidStateError("NO_ITEMS", "Cannot confirm an order without line items")
	}

	from := o.Status
	o.Status = target
	switch target {
	case OrderStatusConfirmed:
		o.ConfirmedAt = &now
	case OrderStatusReady:
		o.ReadyAt = &now
	case OrderStatusDelivered, OrderStatusCollected:
		o.CompletedAt = &now
	}
	o.Touch()
	o.AddDomainEvent(NewOrderStatusChangedEvent(o, from))
	return nil
}

// Cancel cancels an order that has not yet been handed over
func (o *Order) Cancel(reason string, now time.Time) error {
	if !o.Status.CanTransitionTo(OrderStatusCancelled, o.FulfillmentMethod) {
		return shared.NewInvalidTransitionError("order", o.Status, OrderStatusCancelled)
	}
	if strings.TrimSpace(reason) == "" {
		return shared.NewValidationError("INVALID_REASON", "Cancel reason is required")
	}
	from := o.Status
	o.Status = OrderStatusCancelled
	o.CancelledAt = &now
	o.CancelReason = reason
	o.Touch()
	o.AddDomainEvent(NewOrderStatusChangedEvent(o, from))
	return nil
}

// Recalculate re-derives line amounts and totals after loading
func (o *Order) Recalculate() {
	o.Sheet.Recalculate(o.scale())
}

// Total returns the order total as Money
func (o *Order) Total() valueobject.Money {
	return valueobject.MustMoney(o.Totals.Total, o.Currency)
}
