package router

import (
	"github.com/bizdocs/backend/internal/interfaces/http/handler"
)

// Handlers are the HTTP handlers mounted under the versioned API
type Handlers struct {
	Invoice        *handler.InvoiceHandler
	GatewayPayment *handler.GatewayPaymentHandler
	Order          *handler.OrderHandler
	StockTaking    *handler.StockTakingHandler
}

// DomainGroups builds the route groups for every configured handler
func DomainGroups(h Handlers) []*DomainGroup {
	var groups []*DomainGroup

	if h.Invoice != nil {
		invoices := NewDomainGroup("billing", "/invoices")
		invoices.POST("", h.Invoice.Create).
			GET("", h.Invoice.List).
			POST("/overdue/sweep", h.Invoice.SweepOverdue).
			GET("/number/:number", h.Invoice.GetByNumber).
			GET("/:id", h.Invoice.GetByID).
			PUT("/:id", h.Invoice.Update).
			DELETE("/:id", h.Invoice.Delete).
			POST("/:id/items", h.Invoice.AddItem).
			PUT("/:id/items/:item_id", h.Invoice.UpdateItem).
			DELETE("/:id/items/:item_id", h.Invoice.RemoveItem).
			POST("/:id/send", h.Invoice.Send).
			POST("/:id/view", h.Invoice.MarkViewed).
			POST("/:id/cancel", h.Invoice.Cancel).
			POST("/:id/transition", h.Invoice.Transition).
			POST("/:id/payments", h.Invoice.RecordPayment).
			POST("/:id/payments/:payment_id/refund", h.Invoice.Refund)
		if h.GatewayPayment != nil {
			invoices.GET("/:id/gateway/preview", h.GatewayPayment.Preview).
				POST("/:id/gateway/initiate", h.GatewayPayment.Initiate).
				POST("/:id/gateway/verify", h.GatewayPayment.Verify)
		}
		groups = append(groups, invoices)
	}

	if h.GatewayPayment != nil {
		payments := NewDomainGroup("finance", "/payments")
		payments.POST("/webhook", h.GatewayPayment.Webhook)
		groups = append(groups, payments)
	}

	if h.Order != nil {
		orders := NewDomainGroup("fulfillment", "/orders")
		orders.POST("", h.Order.Create).
			GET("", h.Order.List).
			GET("/:id", h.Order.GetByID).
			POST("/:id/items", h.Order.AddItem).
			PUT("/:id/items/:item_id", h.Order.UpdateItem).
			DELETE("/:id/items/:item_id", h.Order.RemoveItem).
			POST("/:id/transition", h.Order.Transition).
			POST("/:id/cancel", h.Order.Cancel)
		groups = append(groups, orders)
	}

	if h.StockTaking != nil {
		takes := NewDomainGroup("inventory", "/stock-takes")
		takes.POST("", h.StockTaking.Create).
			GET("", h.StockTaking.List).
			GET("/:id", h.StockTaking.GetByID).
			GET("/:id/progress", h.StockTaking.GetProgress).
			GET("/:id/summary", h.StockTaking.GetVarianceSummary).
			POST("/:id/products", h.StockTaking.AddProducts).
			DELETE("/:id/products/:product_id", h.StockTaking.RemoveProduct).
			POST("/:id/start", h.StockTaking.Start).
			POST("/:id/count", h.StockTaking.RecordCount).
			POST("/:id/counts", h.StockTaking.RecordCounts).
			POST("/:id/complete", h.StockTaking.Complete).
			POST("/:id/cancel", h.StockTaking.Cancel)
		groups = append(groups, takes)
	}

	return groups
}
