package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bizdocs/backend/internal/domain/inventory"
	"github.com/bizdocs/backend/internal/domain/shared"
)

// ===================== Request DTOs =====================

// CreateStockTakeRequest represents a request to create a stock-take
type CreateStockTakeRequest struct {
	Location string              `json:"location" binding:"required,max=200"`
	TakeDate *time.Time          `json:"take_date"`
	Notes    string              `json:"notes" binding:"max=2000"`
	Products []AddProductRequest `json:"products" binding:"omitempty,dive"`
}

// AddProductRequest adds a product line with its system quantity snapshot
type AddProductRequest struct {
	ProductID   uuid.UUID       `json:"product_id" binding:"required"`
	ProductName string          `json:"product_name" binding:"required,max=200"`
	ProductCode string          `json:"product_code" binding:"max=50"`
	Unit        string          `json:"unit" binding:"max=20"`
	SystemQty   decimal.Decimal `json:"system_quantity" binding:"dgte0" swaggertype:"string" example:"100"`
	UnitCost    decimal.Decimal `json:"unit_cost" binding:"dgte0" swaggertype:"string" example:"12.50"`
}

// AddProductsRequest adds several product lines
type AddProductsRequest struct {
	Products []AddProductRequest `json:"products" binding:"required,min=1,dive"`
}

// RecordCountRequest records the physical quantity of one product
type RecordCountRequest struct {
	ProductID  uuid.UUID       `json:"product_id" binding:"required"`
	CountedQty decimal.Decimal `json:"counted_quantity" binding:"dgte0" swaggertype:"string" example:"98"`
	Remark     string          `json:"remark" binding:"max=500"`
}

// RecordCountsRequest records several counts at once
type RecordCountsRequest struct {
	Counts []RecordCountRequest `json:"counts" binding:"required,min=1,dive"`
}

// StockTakeListFilter represents filter options for the stock-take list
type StockTakeListFilter struct {
	Search   string `form:"search"`
	Status   string `form:"status" binding:"omitempty,oneof=draft in_progress completed cancelled"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

func (f StockTakeListFilter) toDomain() shared.Filter {
	filter := shared.DefaultFilter()
	if f.Page > 0 {
		filter.Page = f.Page
	}
	if f.PageSize > 0 {
		filter.PageSize = f.PageSize
	}
	if f.OrderBy != "" {
		filter.OrderBy = f.OrderBy
	}
	if f.OrderDir != "" {
		filter.OrderDir = f.OrderDir
	}
	filter.Search = f.Search
	if f.Status != "" {
		filter.Filters["status"] = f.Status
	}
	return filter
}

// ===================== Response DTOs =====================

// StockCountResponse represents one product line
type StockCountResponse struct {
	ID            uuid.UUID        `json:"id"`
	ProductID     uuid.UUID        `json:"product_id"`
	ProductName   string           `json:"product_name"`
	ProductCode   string           `json:"product_code,omitempty"`
	Unit          string           `json:"unit,omitempty"`
	SystemQty     decimal.Decimal  `json:"system_quantity"`
	CountedQty    *decimal.Decimal `json:"counted_quantity"`
	Variance      decimal.Decimal  `json:"variance"`
	UnitCost      decimal.Decimal  `json:"unit_cost"`
	VarianceValue decimal.Decimal  `json:"variance_value"`
	Counted       bool             `json:"counted"`
	Remark        string           `json:"remark,omitempty"`
	CountedAt     *time.Time       `json:"counted_at,omitempty"`
}

// StockTakeResponse represents a stock-take with its counts
type StockTakeResponse struct {
	ID           uuid.UUID                  `json:"id"`
	TakeNumber   string                     `json:"take_number"`
	Location     string                     `json:"location"`
	Status       string                     `json:"status"`
	TakeDate     time.Time                  `json:"take_date"`
	TotalItems   int                        `json:"total_items"`
	CountedItems int                        `json:"counted_items"`
	Progress     float64                    `json:"progress"`
	Counts       []StockCountResponse       `json:"counts"`
	Summary      *inventory.VarianceSummary `json:"summary,omitempty"`
	Notes        string                     `json:"notes,omitempty"`
	StartedAt    *time.Time                 `json:"started_at,omitempty"`
	CompletedAt  *time.Time                 `json:"completed_at,omitempty"`
	CancelledAt  *time.Time                 `json:"cancelled_at,omitempty"`
	CancelReason string                     `json:"cancel_reason,omitempty"`
	Version      int                        `json:"version"`
	CreatedAt    time.Time                  `json:"created_at"`
	UpdatedAt    time.Time                  `json:"updated_at"`
}

// StockTakeListResponse represents a stock-take in list views
type StockTakeListResponse struct {
	ID          uuid.UUID  `json:"id"`
	TakeNumber  string     `json:"take_number"`
	Location    string     `json:"location"`
	Status      string     `json:"status"`
	TakeDate    time.Time  `json:"take_date"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ProgressResponse reports counting progress
type ProgressResponse struct {
	TotalItems     int                  `json:"total_items"`
	CountedItems   int                  `json:"counted_items"`
	Progress       float64              `json:"progress"`
	UncountedItems []StockCountResponse `json:"uncounted_items"`
}

// ToStockCountResponse converts a count line
func ToStockCountResponse(c inventory.StockCount) StockCountResponse {
	r := StockCountResponse{
		ID:            c.ID,
		ProductID:     c.ProductID,
		ProductName:   c.ProductName,
		ProductCode:   c.ProductCode,
		Unit:          c.Unit,
		SystemQty:     c.SystemQty,
		Variance:      c.Variance,
		UnitCost:      c.UnitCost,
		VarianceValue: c.VarianceValue,
		Counted:       c.Counted(),
		Remark:        c.Remark,
		CountedAt:     c.CountedAt,
	}
	if c.CountedQty.Valid {
		counted := c.CountedQty.Decimal
		r.CountedQty = &counted
	}
	return r
}

func toStockCountResponses(counts []inventory.StockCount) []StockCountResponse {
	out := make([]StockCountResponse, len(counts))
	for i, c := range counts {
		out[i] = ToStockCountResponse(c)
	}
	return out
}

// ToStockTakeResponse converts a stock-take
func ToStockTakeResponse(st *inventory.StockTake) StockTakeResponse {
	return StockTakeResponse{
		ID:           st.ID,
		TakeNumber:   st.TakeNumber,
		Location:     st.Location,
		Status:       string(st.Status),
		TakeDate:     st.TakeDate,
		TotalItems:   len(st.Counts),
		CountedItems: st.CountedItems(),
		Progress:     st.Progress(),
		Counts:       toStockCountResponses(st.Counts),
		Summary:      st.Summary,
		Notes:        st.Notes,
		StartedAt:    st.StartedAt,
		CompletedAt:  st.CompletedAt,
		CancelledAt:  st.CancelledAt,
		CancelReason: st.CancelReason,
		Version:      st.Version,
		CreatedAt:    st.CreatedAt,
		UpdatedAt:    st.UpdatedAt,
	}
}

// ToStockTakeListResponses converts a page of stock-takes
func ToStockTakeListResponses(sts []inventory.StockTake) []StockTakeListResponse {
	out := make([]StockTakeListResponse, len(sts))
	for i := range sts {
		st := &sts[i]
		out[i] = StockTakeListResponse{
			ID:          st.ID,
			TakeNumber:  st.TakeNumber,
			Location:    st.Location,
			Status:      string(st.Status),
			TakeDate:    st.TakeDate,
			CompletedAt: st.CompletedAt,
			CreatedAt:   st.CreatedAt,
		}
	}
	return out
}
