package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/bizdocs/backend/internal/domain/shared"
)

// Aggregate type constant for StockTake
const AggregateTypeStockTake = "StockTake"

// StockTake event type constants
const (
	EventTypeStockTakeCreated   = "StockTakeCreated"
	EventTypeStockTakeStarted   = "StockTakeStarted"
	EventTypeStockTakeCompleted = "StockTakeCompleted"
	EventTypeStockTakeCancelled = "StockTakeCancelled"
)

// StockTakeCreatedEvent is raised when a stock-take is created
type StockTakeCreatedEvent struct {
	shared.BaseDomainEvent
	TakeNumber string `json:"take_number"`
	Location   string `json:"location"`
}

// NewStockTakeCreatedEvent creates a new StockTakeCreatedEvent
func NewStockTakeCreatedEvent(st *StockTake) *StockTakeCreatedEvent {
	return &StockTakeCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockTakeCreated, AggregateTypeStockTake, st.ID),
		TakeNumber:      st.TakeNumber,
		Location:        st.Location,
	}
}

// StockTakeStartedEvent is raised when counting starts
type StockTakeStartedEvent struct {
	shared.BaseDomainEvent
	TakeNumber string `json:"take_number"`
	TotalItems int    `json:"total_items"`
}

// NewStockTakeStartedEvent creates a new StockTakeStartedEvent
func NewStockTakeStartedEvent(st *StockTake) *StockTakeStartedEvent {
	return &StockTakeStartedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockTakeStarted, AggregateTypeStockTake, st.ID),
		TakeNumber:      st.TakeNumber,
		TotalItems:      len(st.Counts),
	}
}

// StockTakeCompletedEvent is raised when a stock-take is completed.
// Consumers post inventory adjustments from it.
type StockTakeCompletedEvent struct {
	shared.BaseDomainEvent
	TakeNumber        string          `json:"take_number"`
	ItemsWithVariance int             `json:"items_with_variance"`
	NetVariance       decimal.Decimal `json:"net_variance"`
	VarianceValue     decimal.Decimal `json:"variance_value"`
}

// NewStockTakeCompletedEvent creates a new StockTakeCompletedEvent
func NewStockTakeCompletedEvent(st *StockTake) *StockTakeCompletedEvent {
	e := &StockTakeCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockTakeCompleted, AggregateTypeStockTake, st.ID),
		TakeNumber:      st.TakeNumber,
	}
	if st.Summary != nil {
		e.ItemsWithVariance = st.Summary.ItemsWithVariance
		e.NetVariance = st.Summary.NetVariance
		e.VarianceValue = st.Summary.VarianceValue
	}
	return e
}

// StockTakeCancelledEvent is raised when a stock-take is cancelled
type StockTakeCancelledEvent struct {
	shared.BaseDomainEvent
	TakeNumber string `json:"take_number"`
	Reason     string `json:"reason"`
}

// NewStockTakeCancelledEvent creates a new StockTakeCancelledEvent
func NewStockTakeCancelledEvent(st *StockTake) *StockTakeCancelledEvent {
	return &StockTakeCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockTakeCancelled, AggregateTypeStockTake, st.ID),
		TakeNumber:      st.TakeNumber,
		Reason:          st.CancelReason,
	}
}
