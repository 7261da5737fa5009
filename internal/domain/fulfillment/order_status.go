package fulfillment

// OrderStatus represents the fulfillment status of an online order
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusReady          OrderStatus = "ready"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCollected      OrderStatus = "collected"
	OrderStatusCancelled      OrderStatus = "cancelled"
)

// FulfillmentMethod is how the customer receives the order
type FulfillmentMethod string

const (
	FulfillmentDelivery   FulfillmentMethod = "delivery"
	FulfillmentCollection FulfillmentMethod = "collection"
)

// IsValid checks if the method is known
func (m FulfillmentMethod) IsValid() bool {
	return m == FulfillmentDelivery || m == FulfillmentCollection
}

func (m FulfillmentMethod) String() string {
	return string(m)
}

// edge is a legal transition, optionally restricted to one fulfillment method
type edge struct {
	to     OrderStatus
	method FulfillmentMethod
}

// orderTransitions is the complete set of legal order status changes
var orderTransitions = map[OrderStatus][]edge{
	OrderStatusPending:        {{to: OrderStatusConfirmed}, {to: OrderStatusCancelled}},
	OrderStatusConfirmed:      {{to: OrderStatusPreparing}, {to: OrderStatusCancelled}},
	OrderStatusPreparing:      {{to: OrderStatusReady}, {to: OrderStatusCancelled}},
	OrderStatusReady:          {{to: OrderStatusOutForDelivery, method: FulfillmentDelivery}, {to: OrderStatusCollected, method: FulfillmentCollection}},
	OrderStatusOutForDelivery: {{to: OrderStatusDelivered}},
	OrderStatusDelivered:      {},
	OrderStatusCollected:      {},
	OrderStatusCancelled:      {},
}

// AllOrderStatuses returns every status in lifecycle order
func AllOrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusPending,
		OrderStatusConfirmed,
		OrderStatusPreparing,
		OrderStatusReady,
		OrderStatusOutForDelivery,
		OrderStatusDelivered,
		OrderStatusCollected,
		OrderStatusCancelled,
	}
}

// IsValid checks if the status is known
func (s OrderStatus) IsValid() bool {
	_, ok := orderTransitions[s]
	return ok
}

func (s OrderStatus) String() string {
	return string(s)
}

// CanTransitionTo checks the transition table for an order fulfilled by method
func (s OrderStatus) CanTransitionTo(target OrderStatus, method FulfillmentMethod) bool {
	for _, e := range orderTransitions[s] {
		if e.to == target && (e.method == "" || e.method == method) {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the statuses reachable from s for method
func (s OrderStatus) AllowedTransitions(method FulfillmentMethod) []OrderStatus {
	allowed := make([]OrderStatus, 0)
	for _, st := range AllOrderStatuses() {
		if s.CanTransitionTo(st, method) {
			allowed = append(allowed, st)
		}
	}
	return allowed
}

// IsTerminal returns true when nothing follows the status
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

// IsEditable returns true while line items may change
func (s OrderStatus) IsEditable() bool {
	return s == OrderStatusPending
}
