package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"

	"github.com/bizdocs/backend/internal/domain/billing"
	"github.com/bizdocs/backend/internal/domain/costing"
	"github.com/bizdocs/backend/internal/domain/shared"
	"github.com/bizdocs/backend/internal/domain/shared/valueobject"
)

// ===================== Request DTOs =====================

// LineItemRequest carries one line as sent by a client. Numeric fields
// accept numbers or numeric strings and are coerced by the costing engine.
type LineItemRequest struct {
	Description     string     `json:"description" binding:"required,max=500"`
	ProductID       *uuid.UUID `json:"product_id"`
	Quantity        any        `json:"quantity" swaggertype:"string" example:"2"`
	UnitPrice       any        `json:"unit_price" swaggertype:"string" example:"100.00"`
	DiscountPercent any        `json:"discount_percent" swaggertype:"string" example:"10"`
	TaxRate         any        `json:"tax_rate" swaggertype:"string" example:"15"`
}

// ToRawLine converts the request for the costing engine
func (r LineItemRequest) ToRawLine() costing.RawLine {
	return costing.RawLine{
		Description:     r.Description,
		ProductID:       r.ProductID,
		Quantity:        r.Quantity,
		UnitPrice:       r.UnitPrice,
		DiscountPercent: r.DiscountPercent,
		TaxRate:         r.TaxRate,
	}
}

// CreateInvoiceRequest represents a request to create a draft invoice
type CreateInvoiceRequest struct {
	CustomerName  string            `json:"customer_name" binding:"required,max=200"`
	CustomerEmail string            `json:"customer_email" binding:"omitempty,email,max=200"`
	Currency      string            `json:"currency" binding:"omitempty,len=3"`
	IssueDate     *time.Time        `json:"issue_date"`
	DueDate       *time.Time        `json:"due_date"`
	Notes         string            `json:"notes" binding:"max=2000"`
	Items         []LineItemRequest `json:"items" binding:"omitempty,dive"`
}

// UpdateInvoiceRequest edits the header of a draft invoice
type UpdateInvoiceRequest struct {
	CustomerName  string     `json:"customer_name" binding:"required,max=200"`
	CustomerEmail string     `json:"customer_email" binding:"omitempty,email,max=200"`
	Notes         string     `json:"notes" binding:"max=2000"`
	DueDate       *time.Time `json:"due_date"`
}

// RecordPaymentRequest records a manual (non-gateway) payment
type RecordPaymentRequest struct {
	Amount decimal.Decimal       `json:"amount" binding:"dgt0" swaggertype:"string" example:"400.00"`
	Method billing.PaymentMethod `json:"method" binding:"required,oneof=bank_transfer cash card eft other"`
	Note   string                `json:"note" binding:"max=500"`
	PaidAt *time.Time            `json:"paid_at"`
}

// RefundPaymentRequest refunds part or all of an earlier payment
type RefundPaymentRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"dgt0" swaggertype:"string" example:"100.00"`
	Reason string          `json:"reason" binding:"required,max=500"`
}

// TransitionInvoiceRequest moves an invoice to a named status
type TransitionInvoiceRequest struct {
	Status string `json:"status" binding:"required" example:"overdue"`
	// Reason is recorded when Status is cancelled
	Reason string `json:"reason" binding:"max=500"`
}

// CancelRequest carries the reason for a cancellation
type CancelRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// InvoiceListFilter represents filter options for the invoice list
type InvoiceListFilter struct {
	Search   string `form:"search"`
	Status   string `form:"status" binding:"omitempty,oneof=draft sent viewed partial paid overdue cancelled"`
	Customer string `form:"customer"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

func (f InvoiceListFilter) toDomain() shared.Filter {
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
	filter.Filters = map[string]interface{}{}
	if f.Status != "" {
		filter.Filters["status"] = f.Status
	}
	if f.Customer != "" {
		filter.Filters["customer"] = f.Customer
	}
	return filter
}

// ===================== Response DTOs =====================

// LineItemResponse is one costed line
type LineItemResponse struct {
	ID              uuid.UUID       `json:"id"`
	Position        int             `json:"position"`
	ProductID       *uuid.UUID      `json:"product_id,omitempty"`
	Description     string          `json:"description"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	TaxRate         decimal.Decimal `json:"tax_rate"`
	LineSubtotal    decimal.Decimal `json:"line_subtotal"`
	LineDiscount    decimal.Decimal `json:"line_discount"`
	LineTaxable     decimal.Decimal `json:"line_taxable"`
	LineTax         decimal.Decimal `json:"line_tax"`
	LineTotal       decimal.Decimal `json:"line_total"`
}

// ToLineItemResponses converts costed lines
func ToLineItemResponses(items []costing.LineItem) []LineItemResponse {
	out := make([]LineItemResponse, len(items))
	for i, l := range items {
		out[i] = LineItemResponse{
			ID:              l.ID,
			Position:        l.Position,
			ProductID:       l.ProductID,
			Description:     l.Description,
			Quantity:        l.Quantity,
			UnitPrice:       l.UnitPrice,
			DiscountPercent: l.DiscountPercent,
			TaxRate:         l.TaxRate,
			LineSubtotal:    l.Subtotal,
			LineDiscount:    l.Discount,
			LineTaxable:     l.Taxable,
			LineTax:         l.Tax,
			LineTotal:       l.Total,
		}
	}
	return out
}

// PaymentResponse is an applied payment or refund
type PaymentResponse struct {
	ID               uuid.UUID        `json:"id"`
	Amount           decimal.Decimal  `json:"amount"`
	Method           string           `json:"method"`
	GatewayReference string           `json:"gateway_reference,omitempty"`
	GatewayFee       *decimal.Decimal `json:"gateway_fee,omitempty"`
	RefundOf         *uuid.UUID       `json:"refund_of,omitempty"`
	Note             string           `json:"note,omitempty"`
	AppliedAt        time.Time        `json:"applied_at"`
}

// ToPaymentResponse converts a payment
func ToPaymentResponse(p billing.Payment) PaymentResponse {
	r := PaymentResponse{
		ID:               p.ID,
		Amount:           p.Amount,
		Method:           string(p.Method),
		GatewayReference: p.GatewayReference,
		RefundOf:         p.RefundOf,
		Note:             p.Note,
		AppliedAt:        p.AppliedAt,
	}
	if p.GatewayFee.Valid {
		fee := p.GatewayFee.Decimal
		r.GatewayFee = &fee
	}
	return r
}

// InvoiceResponse is the full invoice view
type InvoiceResponse struct {
	ID                  uuid.UUID          `json:"id"`
	InvoiceNumber       string             `json:"invoice_number"`
	CustomerName        string             `json:"customer_name"`
	CustomerEmail       string             `json:"customer_email,omitempty"`
	Currency            string             `json:"currency"`
	Status              string             `json:"status"`
	IssueDate           time.Time          `json:"issue_date"`
	DueDate             time.Time          `json:"due_date"`
	Items               []LineItemResponse `json:"items"`
	Subtotal            decimal.Decimal    `json:"subtotal"`
	DiscountAmount      decimal.Decimal    `json:"discount_amount"`
	TaxAmount           decimal.Decimal    `json:"tax_amount"`
	Total               decimal.Decimal    `json:"total"`
	AmountPaid          decimal.Decimal    `json:"amount_paid"`
	BalanceDue          decimal.Decimal    `json:"balance_due"`
	FormattedTotal      string             `json:"formatted_total"`
	FormattedBalanceDue string             `json:"formatted_balance_due"`
	IsPaid              bool               `json:"is_paid"`
	IsOverdue           bool               `json:"is_overdue"`
	Payments            []PaymentResponse  `json:"payments"`
	Notes               string             `json:"notes,omitempty"`
	SentAt              *time.Time         `json:"sent_at,omitempty"`
	ViewedAt            *time.Time         `json:"viewed_at,omitempty"`
	PaidAt              *time.Time         `json:"paid_at,omitempty"`
	CancelledAt         *time.Time         `json:"cancelled_at,omitempty"`
	CancelReason        string             `json:"cancel_reason,omitempty"`
	Version             int                `json:"version"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

// ToInvoiceResponse converts an invoice; now decides the overdue flag.
func ToInvoiceResponse(inv *billing.Invoice, now time.Time, locale language.Tag) InvoiceResponse {
	payments := make([]PaymentResponse, len(inv.Payments))
	for i, p := range inv.Payments {
		payments[i] = ToPaymentResponse(p)
	}
	return InvoiceResponse{
		ID:                  inv.ID,
		InvoiceNumber:       inv.InvoiceNumber,
		CustomerName:        inv.CustomerName,
		CustomerEmail:       inv.CustomerEmail,
		Currency:            string(inv.Currency),
		Status:              string(inv.Status),
		IssueDate:           inv.IssueDate,
		DueDate:             inv.DueDate,
		Items:               ToLineItemResponses(inv.Items),
		Subtotal:            inv.Totals.Subtotal,
		DiscountAmount:      inv.Totals.Discount,
		TaxAmount:           inv.Totals.Tax,
		Total:               inv.Totals.Total,
		AmountPaid:          inv.AmountPaid,
		BalanceDue:          inv.BalanceDue,
		FormattedTotal:      inv.Total().Format(locale),
		FormattedBalanceDue: inv.Balance().Format(locale),
		IsPaid:              inv.IsPaid(),
		IsOverdue:           inv.IsOverdue(now),
		Payments:            payments,
		Notes:               inv.Notes,
		SentAt:              inv.SentAt,
		ViewedAt:            inv.ViewedAt,
		PaidAt:              inv.PaidAt,
		CancelledAt:         inv.CancelledAt,
		CancelReason:        inv.CancelReason,
		Version:             inv.Version,
		CreatedAt:           inv.CreatedAt,
		UpdatedAt:           inv.UpdatedAt,
	}
}

// InvoiceListResponse is the list view without lines or payments
type InvoiceListResponse struct {
	ID             uuid.UUID       `json:"id"`
	InvoiceNumber  string          `json:"invoice_number"`
	CustomerName   string          `json:"customer_name"`
	Currency       string          `json:"currency"`
	Status         string          `json:"status"`
	IssueDate      time.Time       `json:"issue_date"`
	DueDate        time.Time       `json:"due_date"`
	Total          decimal.Decimal `json:"total"`
	BalanceDue     decimal.Decimal `json:"balance_due"`
	FormattedTotal string          `json:"formatted_total"`
	IsOverdue      bool            `json:"is_overdue"`
}

// ToInvoiceListResponses converts a page of invoices
func ToInvoiceListResponses(invoices []billing.Invoice, now time.Time, locale language.Tag) []InvoiceListResponse {
	out := make([]InvoiceListResponse, len(invoices))
	for i := range invoices {
		inv := &invoices[i]
		out[i] = InvoiceListResponse{
			ID:             inv.ID,
			InvoiceNumber:  inv.InvoiceNumber,
			CustomerName:   inv.CustomerName,
			Currency:       string(inv.Currency),
			Status:         string(inv.Status),
			IssueDate:      inv.IssueDate,
			DueDate:        inv.DueDate,
			Total:          inv.Totals.Total,
			BalanceDue:     inv.BalanceDue,
			FormattedTotal: valueobject.MustMoney(inv.Totals.Total, inv.Currency).Format(locale),
			IsOverdue:      inv.IsOverdue(now),
		}
	}
	return out
}

// OverdueSweepResponse reports one overdue sweep
type OverdueSweepResponse struct {
	Checked       int         `json:"checked"`
	MarkedOverdue int         `json:"marked_overdue"`
	MarkedIDs     []uuid.UUID `json:"marked_ids"`
	Failed        int         `json:"failed"`
}
