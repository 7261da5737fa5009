package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bizdocs/backend/internal/domain/shared"
	"github.com/bizdocs/backend/internal/domain/shared/valueobject"
)

// StockTakeStatus represents the status of a stock-take session
type StockTakeStatus string

const (
	StockTakeStatusDraft      StockTakeStatus = "draft"
	StockTakeStatusInProgress StockTakeStatus = "in_progress"
	StockTakeStatusCompleted  StockTakeStatus = "completed"
	StockTakeStatusCancelled  StockTakeStatus = "cancelled"
)

var stockTakeTransitions = map[StockTakeStatus][]StockTakeStatus{
	StockTakeStatusDraft:      {StockTakeStatusInProgress, StockTakeStatusCancelled},
	StockTakeStatusInProgress: {StockTakeStatusCompleted, StockTakeStatusCancelled},
	StockTakeStatusCompleted:  {},
	StockTakeStatusCancelled:  {},
}

// IsValid checks if the status is a valid StockTakeStatus
func (s StockTakeStatus) IsValid() bool {
	_, ok := stockTakeTransitions[s]
	return ok
}

// String returns the string representation of StockTakeStatus
func (s StockTakeStatus) String() string {
	return string(s)
}

// CanTransitionTo checks the transition table
func (s StockTakeStatus) CanTransitionTo(target StockTakeStatus) bool {
	for _, to := range stockTakeTransitions[s] {
		if to == target {
			return true
		}
	}
	return false
}

// StockCount is one product line of a stock-take. CountedQty stays null
// until the product is counted.
type StockCount struct {
	ID            uuid.UUID
	StockTakeID   uuid.UUID
	ProductID     uuid.UUID
	ProductName   string
	ProductCode   string
	Unit          string
	SystemQty     decimal.Decimal
	CountedQty    decimal.NullDecimal
	Variance      decimal.Decimal
	UnitCost      decimal.Decimal
	VarianceValue decimal.Decimal
	Remark        string
	CountedAt     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Counted reports whether a physical count was recorded
func (c *StockCount) Counted() bool {
	return c.CountedQty.Valid
}

// HasVariance returns true if a counted quantity differs from the system quantity
func (c *StockCount) HasVariance() bool {
	return c.Counted() && !c.Variance.IsZero()
}

func (c *StockCount) record(counted decimal.Decimal, remark string, now time.Time) {
	c.CountedQty = decimal.NewNullDecimal(counted)
	c.Variance = counted.Sub(c.SystemQty)
	c.VarianceValue = c.Variance.Mul(c.UnitCost)
	c.Remark = remark
	c.CountedAt = &now
	c.UpdatedAt = now
}

// StockTake is a physical inventory count session and the aggregate root
// for its counts.
type StockTake struct {
	shared.BaseAggregateRoot
	TakeNumber   string
	Location     string
	Status       StockTakeStatus
	TakeDate     time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
	CancelledAt  *time.Time
	CancelReason string
	Notes        string
	Counts       []StockCount
	Summary      *VarianceSummary
}

// NewStockTake creates a draft stock-take session
func NewStockTake(takeNumber, location string, takeDate time.Time) (*StockTake, error) {
	if strings.TrimSpace(takeNumber) == "" {
		return nil, shared.NewValidationError("INVALID_TAKE_NUMBER", "Stock-take number cannot be empty")
	}
	if strings.TrimSpace(location) == "" {
		return nil, shared.NewValidationError("INVALID_LOCATION", "Location cannot be empty")
	}
	if takeDate.IsZero() {
		takeDate = time.Now()
	}

	st := &StockTake{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		TakeNumber:        takeNumber,
		Location:          strings.TrimSpace(location),
		Status:            StockTakeStatusDraft,
		TakeDate:          takeDate,
		Counts:            make([]StockCount, 0),
	}
	st.AddDomainEvent(NewStockTakeCreatedEvent(st))
	return st, nil
}

// AddProduct adds a product line with its system quantity snapshot
func (st *StockTake) AddProduct(productID uuid.UUID, name, code, unit string, systemQty, unitCost decimal.Decimal) (*StockCount, error) {
	if st.Status != StockTakeStatusDraft {
		return nil, shared.NewInvalidStateError("STOCK_TAKE_NOT_DRAFT", "Products can only be added to a draft stock-take")
	}
	if productID == uuid.Nil {
		return nil, shared.NewValidationError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewValidationError("INVALID_PRODUCT_NAME", "Product name cannot be empty")
	}
	if systemQty.IsNegative() {
		return nil, shared.NewValidationError("INVALID_QUANTITY", "System quantity cannot be negative")
	}
	if unitCost.IsNegative() {
		return nil, shared.NewValidationError("INVALID_UNIT_COST", "Unit cost cannot be negative")
	}
	if !valueobject.FitsStorage(systemQty) {
		return nil, outOfRange("INVALID_QUANTITY", "System quantity")
	}
	if !valueobject.FitsStorage(unitCost) {
		return nil, outOfRange("INVALID_UNIT_COST", "Unit cost")
	}
	if st.indexOf(productID) >= 0 {
		return nil, shared.NewValidationError("DUPLICATE_PRODUCT", "Product already exists in stock-take")
	}

	now := time.Now()
	st.Counts = append(st.Counts, StockCount{
		ID:          uuid.New(),
		StockTakeID: st.ID,
		ProductID:   productID,
		ProductName: strings.TrimSpace(name),
		ProductCode: code,
		Unit:        unit,
		SystemQty:   systemQty,
		UnitCost:    unitCost,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	st.Touch()
	return &st.Counts[len(st.Counts)-1], nil
}

// RemoveProduct removes a product line from a draft stock-take
func (st *StockTake) RemoveProduct(productID uuid.UUID) error {
	if st.Status != StockTakeStatusDraft {
		return shared.NewInvalidStateError("STOCK_TAKE_NOT_DRAFT", "Products can only be removed from a draft stock-take")
	}
	idx := st.indexOf(productID)
	if idx < 0 {
		return shared.ErrNotFound.WithDetail("product_id", productID.String())
	}
	st.Counts = append(st.Counts[:idx], st.Counts[idx+1:]...)
	st.Touch()
	return nil
}

// Start freezes the product list and opens counting
func (st *StockTake) Start(now time.Time) error {
	if st.Status == StockTakeStatusDraft && len(st.Counts) == 0 {
		return shared.NewInvalidStateError("NO_ITEMS", "Cannot start a stock-take with no products")
	}
	if err := st.transition(StockTakeStatusInProgress); err != nil {
		return err
	}
	st.StartedAt = &now
	st.AddDomainEvent(NewStockTakeStartedEvent(st))
	return nil
}

// Count records the physical quantity for a product. Recounting replaces
// the previous figure.
func (st *StockTake) Count(productID uuid.UUID, countedQty decimal.Decimal, remark string, now time.Time) (*StockCount, error) {
	if st.Status != StockTakeStatusInProgress {
		return nil, shared.NewInvalidStateError("STOCK_TAKE_NOT_IN_PROGRESS",
			fmt.Sprintf("Counts can only be recorded while in progress, not %s", st.Status))
	}
	if countedQty.IsNegative() {
		return nil, shared.NewValidationError("INVALID_QUANTITY", "Counted quantity cannot be negative")
	}
	if !valueobject.FitsStorage(countedQty) {
		return nil, outOfRange("INVALID_QUANTITY", "Counted quantity")
	}
	idx := st.indexOf(productID)
	if idx < 0 {
		return nil, shared.ErrNotFound.WithDetail("product_id", productID.String())
	}
	st.Counts[idx].record(countedQty, remark, now)
	st.Touch()
	return &st.Counts[idx], nil
}

// Complete closes counting and computes the variance summary once.
// Uncounted products are allowed and excluded from variance.
func (st *StockTake) Complete(now time.Time) error {
	if err := st.transition(StockTakeStatusCompleted); err != nil {
		return err
	}
	summary := Summarize(st.Counts)
	st.Summary = &summary
	st.CompletedAt = &now
	st.AddDomainEvent(NewStockTakeCompletedEvent(st))
	return nil
}

// Cancel abandons the session
func (st *StockTake) Cancel(reason string, now time.Time) error {
	if strings.TrimSpace(reason) == "" {
		return shared.NewValidationError("INVALID_REASON", "Cancel reason is required")
	}
	if err := st.transition(StockTakeStatusCancelled); err != nil {
		return err
	}
	st.CancelledAt = &now
	st.CancelReason = reason
	st.AddDomainEvent(NewStockTakeCancelledEvent(st))
	return nil
}

// VarianceReport returns the frozen summary of a completed session
func (st *StockTake) VarianceReport() (*VarianceSummary, error) {
	if st.Status != StockTakeStatusCompleted || st.Summary == nil {
		return nil, shared.NewInvalidStateError("STOCK_TAKE_NOT_COMPLETED", "Variance summary is only available once the stock-take is completed")
	}
	return st.Summary, nil
}

// CountedItems returns how many products have been counted
func (st *StockTake) CountedItems() int {
	n := 0
	for i := range st.Counts {
		if st.Counts[i].Counted() {
			n++
		}
	}
	return n
}

// Progress returns the counting progress as a percentage
func (st *StockTake) Progress() float64 {
	if len(st.Counts) == 0 {
		return 0
	}
	return float64(st.CountedItems()) / float64(len(st.Counts)) * 100
}

// UncountedItems returns products that have not been counted yet
func (st *StockTake) UncountedItems() []StockCount {
	result := make([]StockCount, 0)
	for _, c := range st.Counts {
		if !c.Counted() {
			result = append(result, c)
		}
	}
	return result
}

func (st *StockTake) transition(target StockTakeStatus) error {
	if !st.Status.CanTransitionTo(target) {
		return shared.NewInvalidTransitionError("stock take", st.Status, target)
	}
	st.Status = target
	st.Touch()
	return nil
}

func (st *StockTake) indexOf(productID uuid.UUID) int {
	for i := range st.Counts {
		if st.Counts[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func outOfRange(code, label string) error {
	return shared.NewValidationError(code, fmt.Sprintf("%s must have at most %d integer digits and %d decimals",
		label, valueobject.MaxIntegerDigits, valueobject.MaxFractionDigits))
}
