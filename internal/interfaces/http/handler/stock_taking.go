package handler

import (
	"github.com/gin-gonic/gin"

	inventoryapp "github.com/bizdocs/backend/internal/application/inventory"
)

// StockTakingHandler handles stock-take endpoints
type StockTakingHandler struct {
	BaseHandler
	stockTakingService *inventoryapp.StockTakingService
}

// NewStockTakingHandler creates a new StockTakingHandler
func NewStockTakingHandler(stockTakingService *inventoryapp.StockTakingService) *StockTakingHandler {
	return &StockTakingHandler{stockTakingService: stockTakingService}
}

// CancelStockTakingRequest represents a request to cancel a stock-take
// @Description Request body for cancelling a stock-take
type CancelStockTakingRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500" example:"Recount scheduled for next week"`
}

// Create godoc
// @ID           createStockTake
// @Summary      Create stock-take
// @Description  Create a draft stock-take, optionally with product lines and their system quantities
// @Tags         stock-taking
// @Accept       json
// @Produce      json
// @Param        request body inventoryapp.CreateStockTakeRequest true "Stock-take"
// @Success      201 {object} APIResponse[inventoryapp.StockTakeResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /stock-takes [post]
func (h *StockTakingHandler) Create(c *gin.Context) {
	var req inventoryapp.CreateStockTakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	st, err := h.stockTakingService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, st)
}

// GetByID godoc
// @ID           getStockTake
// @Summary      Get stock-take
// @Tags         stock-taking
// @Produce      json
// @Param        id path string true "Stock-take ID" format(uuid)
// @Success      200 {object} APIResponse[inventoryapp.StockTakeResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /stock-takes/{id} [get]
func (h *StockTakingHandler) GetByID(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	st, err := h.stockTakingService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, st)
}

// List godoc
// @ID           listStockTakes
// @Summary      List stock-takes
// @Tags         stock-taking
// @Produce      json
// @Param        search query string false "Number or location search"
// @Param        status query string false "Status" Enums(draft, in_progress, completed, cancelled)
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Page size" default(20) maximum(100)
// @Success      200 {object} APIResponse[[]inventoryapp.StockTakeListResponse]
// @Router       /stock-takes [get]
func (h *StockTakingHandler) List(c *gin.Context) {
	var filter inventoryapp.StockTakeListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}

	takes, total, err := h.stockTakingService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	page, size := pageOf(filter.Page, filter.PageSize)
	h.SuccessWithMeta(c, takes, total, page, size)
}

// GetProgress godoc
// @ID           getStockTakeProgress
// @Summary      Get counting progress
// @Tags         stock-taking
// @Produce      json
// @Param        id path string true "Stock-take ID" format(uuid)
// @Success      200 {object} APIResponse[inventoryapp.ProgressResponse]
// @Router       /stock-takes/{id}/progress [get]
func (h *StockTakingHandler) GetProgress(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	progress, err := h.stockTakingService.GetProgress(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, progress)
}

// GetVarianceSummary godoc
// @ID           getStockTakeSummary
// @Summary      Get variance summary
// @Description  Aggregate surplus, shortage and valued variance over the counted lines
// @Tags         stock-taking
// @Produce      json
// @Param        id path string true "Stock-take ID" format(uuid)
// @Success      200 {object} APIResponse[inventory.VarianceSummary]
// @Router       /stock-takes/{id}/summary [get]
func (h *StockTakingHandler) GetVarianceSummary(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	summary, err := h.stockTakingService.GetVarianceSummary(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// AddProducts godoc
// @ID           addStockTakeProducts
// @Summary      Add products
// @Tags         stock-taking
// @Accept       json
// @Produce      json
// @Param        id path string true "Stock-take ID" format(uuid)
// @Param        request body inventoryapp.AddProductsRequest true "Products"
// @Success      200 {object} APIResponse[inventoryapp.StockTakeResponse]
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /stock-takes/{id}/products [post]
func (h *StockTakingHandler) AddProducts(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req inventoryapp.AddProductsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	st, err := h.stockTakingService.AddProducts(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, st)
}

// RemoveProduct godoc
// @ID           removeStockTakeProduct
// @Summary      Remove product
// @Tags         stock-taking
// @Produce      json
// @Param        id path string true "Stock-take ID" format(uuid)
// @Param        product_id path string true "Product ID" format(uuid)
// @Success      200 {object} APIResponse[inventoryapp.StockTakeResponse]
// @Router       /stock-takes/{id}/products/{product_id} [delete]
func (h *StockTakingHandler) RemoveProduct(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	productID, ok := h.pathUUID(c, "product_id")
	if !ok {
		return
	}

	st, err := h.stockTakingService.RemoveProduct(c.Request.Context(), id, productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, st)
}

// Start godoc
// @ID           startStockTake
// @Summary      Start counting
// @Tags         stock-taking
// @Produce      json
// @Param        id path string true "Stock-take ID" format(uuid)
// @Success      200 {object} APIResponse[inventoryapp.StockTakeResponse]
// @Failure      422 {object} ErrorResponse
// @Router       /stock-takes/{id}/start [post]
func (h *StockTakingHandler) Start(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	st, err := h.stockTakingService.Start(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, st)
}

// RecordCount godoc
// @ID           recordStockCount
// @Summary      Record count
// @Tags         stock-taking
// @Accept       json
// @Produce      json
// @Param        id path string true "Stock-take ID" format(uuid)
// @Param        request body inventoryapp.RecordCountRequest true "Count"
// @Success      200 {object} APIResponse[inventoryapp.StockTakeResponse]
// @Failure      422 {object} ErrorResponse
// @Router       /stock-takes/{id}/count [post]
func (h *StockTakingHandler) RecordCount(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req inventoryapp.RecordCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	st, err := h.stockTakingService.RecordCount(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, st)
}

// RecordCounts godoc
// @ID           recordStockCounts
// @Summary      Record counts in bulk
// @Description  Record several counts. Either every count applies or none does.
// @Tags         stock-taking
// @Accept       json
// @Produce      json
// @Param        id path string true "Stock-take ID" format(uuid)
// @Param        request body inventoryapp.RecordCountsRequest true "Counts"
// @Success      200 {object} APIResponse[inventoryapp.StockTakeResponse]
// @Failure      422 {object} ErrorResponse
// @Router       /stock-takes/{id}/counts [post]
func (h *StockTakingHandler) RecordCounts(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req inventoryapp.RecordCountsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	st, err := h.stockTakingService.RecordCounts(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, st)
}

// Complete godoc
// @ID           completeStockTake
// @Summary      Complete stock-take
// @Description  Close counting and freeze the variance summary. Uncounted lines are left out of the variance.
// @Tags         stock-taking
// @Produce      json
// @Param        id path string true "Stock-take ID" format(uuid)
// @Success      200 {object} APIResponse[inventoryapp.StockTakeResponse]
// @Failure      422 {object} ErrorResponse
// @Router       /stock-takes/{id}/complete [post]
func (h *StockTakingHandler) Complete(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	st, err := h.stockTakingService.Complete(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, st)
}

// Cancel godoc
// @ID           cancelStockTake
// @Summary      Cancel stock-take
// @Tags         stock-taking
// @Accept       json
// @Produce      json
// @Param        id path string true "Stock-take ID" format(uuid)
// @Param        request body CancelStockTakingRequest true "Cancellation"
// @Success      200 {object} APIResponse[inventoryapp.StockTakeResponse]
// @Failure      422 {object} ErrorResponse
// @Router       /stock-takes/{id}/cancel [post]
func (h *StockTakingHandler) Cancel(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req CancelStockTakingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	st, err := h.stockTakingService.Cancel(c.Request.Context(), id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, st)
}
