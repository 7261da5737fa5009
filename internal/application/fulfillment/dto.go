package fulfillment

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"

	billingapp "github.com/bizdocs/backend/internal/application/billing"
	"github.com/bizdocs/backend/internal/domain/fulfillment"
	"github.com/bizdocs/backend/internal/domain/shared"
	"github.com/bizdocs/backend/internal/domain/shared/valueobject"
)

// CreateOrderRequest represents a request to create a pending order
type CreateOrderRequest struct {
	CustomerName      string                       `json:"customer_name" binding:"required,max=200"`
	CustomerPhone     string                       `json:"customer_phone" binding:"max=50"`
	CustomerEmail     string                       `json:"customer_email" binding:"omitempty,email,max=200"`
	Currency          string                       `json:"currency" binding:"omitempty,len=3"`
	FulfillmentMethod string                       `json:"fulfillment_method" binding:"required,oneof=delivery collection"`
	DeliveryAddress   string                       `json:"delivery_address" binding:"max=500"`
	Notes             string                       `json:"notes" binding:"max=2000"`
	Items             []billingapp.LineItemRequest `json:"items" binding:"omitempty,dive"`
}

// TransitionOrderRequest moves an order to another status
type TransitionOrderRequest struct {
	Status string `json:"status" binding:"required"`
	// Reason is required when Status is cancelled
	Reason string `json:"reason" binding:"max=500"`
}

// OrderListFilter represents filter options for the order list
type OrderListFilter struct {
	Search            string `form:"search"`
	Status            string `form:"status"`
	FulfillmentMethod string `form:"fulfillment_method" binding:"omitempty,oneof=delivery collection"`
	Page              int    `form:"page" binding:"omitempty,min=1"`
	PageSize          int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy           string `form:"order_by"`
	OrderDir          string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

func (f OrderListFilter) toDomain() shared.Filter {
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
	if f.FulfillmentMethod != "" {
		filter.Filters["fulfillment_method"] = f.FulfillmentMethod
	}
	return filter
}

// OrderResponse is the full order view
type OrderResponse struct {
	ID                 uuid.UUID                     `json:"id"`
	OrderNumber        string                        `json:"order_number"`
	CustomerName       string                        `json:"customer_name"`
	CustomerPhone      string                        `json:"customer_phone,omitempty"`
	CustomerEmail      string                        `json:"customer_email,omitempty"`
	Currency           string                        `json:"currency"`
	FulfillmentMethod  string                        `json:"fulfillment_method"`
	DeliveryAddress    string                        `json:"delivery_address,omitempty"`
	Status             string                        `json:"status"`
	AllowedTransitions []string                      `json:"allowed_transitions"`
	Items              []billingapp.LineItemResponse `json:"items"`
	Subtotal           decimal.Decimal               `json:"subtotal"`
	DiscountAmount     decimal.Decimal               `json:"discount_amount"`
	TaxAmount          decimal.Decimal               `json:"tax_amount"`
	Total              decimal.Decimal               `json:"total"`
	FormattedTotal     string                        `json:"formatted_total"`
	Notes              string                        `json:"notes,omitempty"`
	ConfirmedAt        *time.Time                    `json:"confirmed_at,omitempty"`
	ReadyAt            *time.Time                    `json:"ready_at,omitempty"`
	CompletedAt        *time.Time                    `json:"completed_at,omitempty"`
	CancelledAt        *time.Time                    `json:"cancelled_at,omitempty"`
	CancelReason       string                        `json:"cancel_reason,omitempty"`
	Version            int                           `json:"version"`
	CreatedAt          time.Time                     `json:"created_at"`
	UpdatedAt          time.Time                     `json:"updated_at"`
}

// ToOrderResponse converts an order
func ToOrderResponse(o *fulfillment.Order, locale language.Tag) OrderResponse {
	allowed := o.Status.AllowedTransitions(o.FulfillmentMethod)
	transitions := make([]string, len(allowed))
	for i, s := range allowed {
		transitions[i] = string(s)
	}
	return OrderResponse{
		ID:                 o.ID,
		OrderNumber:        o.OrderNumber,
		CustomerName:       o.CustomerName,
		CustomerPhone:      o.CustomerPhone,
		CustomerEmail:      o.CustomerEmail,
		Currency:           string(o.Currency),
		FulfillmentMethod:  string(o.FulfillmentMethod),
		DeliveryAddress:    o.DeliveryAddress,
		Status:             string(o.Status),
		AllowedTransitions: transitions,
		Items:              billingapp.ToLineItemResponses(o.Items),
		Subtotal:           o.Totals.Subtotal,
		DiscountAmount:     o.Totals.Discount,
		TaxAmount:          o.Totals.Tax,
		Total:              o.Totals.Total,
		FormattedTotal:     o.Total().Format(locale),
		Notes:              o.Notes,
		ConfirmedAt:        o.ConfirmedAt,
		ReadyAt:            o.ReadyAt,
		CompletedAt:        o.CompletedAt,
		CancelledAt:        o.CancelledAt,
		CancelReason:       o.CancelReason,
		Version:            o.Version,
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
}

// OrderListResponse is the list view without lines
type OrderListResponse struct {
	ID                uuid.UUID       `json:"id"`
	OrderNumber       string          `json:"order_number"`
	CustomerName      string          `json:"customer_name"`
	FulfillmentMethod string          `json:"fulfillment_method"`
	Status            string          `json:"status"`
	Currency          string          `json:"currency"`
	Total             decimal.Decimal `json:"total"`
	FormattedTotal    string          `json:"formatted_total"`
	CreatedAt         time.Time       `json:"created_at"`
}

// ToOrderListResponses converts a page of orders
func ToOrderListResponses(orders []fulfillment.Order, locale language.Tag) []OrderListResponse {
	out := make([]OrderListResponse, len(orders))
	for i := range orders {
		o := &orders[i]
		out[i] = OrderListResponse{
			ID:                o.ID,
			OrderNumber:       o.OrderNumber,
			CustomerName:      o.CustomerName,
			FulfillmentMethod: string(o.FulfillmentMethod),
			Status:            string(o.Status),
			Currency:          string(o.Currency),
			Total:             o.Totals.Total,
			FormattedTotal:    valueobject.MustMoney(o.Totals.Total, o.Currency).Format(locale),
			CreatedAt:         o.CreatedAt,
		}
	}
	return out
}
