package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	financeapp "github.com/bizdocs/backend/internal/application/finance"
)

// SignatureHeader carries the gateway's HMAC of the webhook body
const SignatureHeader = "X-Paystack-Signature"

// maxWebhookBody bounds the body read for signature verification
const maxWebhookBody = 1 << 20

// GatewayPaymentHandler handles card gateway payment endpoints
type GatewayPaymentHandler struct {
	BaseHandler
	gatewayService *financeapp.GatewayPaymentService
}

// NewGatewayPaymentHandler creates a new GatewayPaymentHandler
func NewGatewayPaymentHandler(gatewayService *financeapp.GatewayPaymentService) *GatewayPaymentHandler {
	return &GatewayPaymentHandler{gatewayService: gatewayService}
}

// Preview godoc
// @ID           previewGatewayFee
// @Summary      Preview card fee
// @Description  Show the gateway surcharge and the total the payer will be charged
// @Tags         payments
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} APIResponse[financeapp.FeePreviewResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /invoices/{id}/gateway/preview [get]
func (h *GatewayPaymentHandler) Preview(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}

	preview, err := h.gatewayService.Preview(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, preview)
}

// Initiate godoc
// @ID           initiateGatewayPayment
// @Summary      Start card payment
// @Description  Create a hosted checkout for the invoice balance plus the card fee
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body financeapp.InitiatePaymentRequest false "Payer overrides"
// @Success      200 {object} APIResponse[financeapp.InitiatePaymentResponse]
// @Failure      422 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Router       /invoices/{id}/gateway/initiate [post]
func (h *GatewayPaymentHandler) Initiate(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req financeapp.InitiatePaymentRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}

	resp, err := h.gatewayService.Initiate(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Verify godoc
// @ID           verifyGatewayPayment
// @Summary      Verify card payment
// @Description  Confirm a gateway transaction and apply it to the invoice. Repeating the call is safe.
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body financeapp.VerifyPaymentRequest true "Reference"
// @Success      200 {object} APIResponse[financeapp.VerifyPaymentResponse]
// @Failure      402 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      503 {object} ErrorResponse
// @Router       /invoices/{id}/gateway/verify [post]
func (h *GatewayPaymentHandler) Verify(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req financeapp.VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.gatewayService.Verify(c.Request.Context(), id, req.Reference)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Webhook godoc
// @ID           gatewayWebhook
// @Summary      Gateway webhook
// @Description  Receive signed payment notifications from the card gateway
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        X-Paystack-Signature header string true "HMAC-SHA512 of the body"
// @Success      200 {object} APIResponse[financeapp.WebhookResponse]
// @Failure      401 {object} ErrorResponse
// @Router       /payments/webhook [post]
func (h *GatewayPaymentHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		h.BadRequest(c, "Unable to read request body")
		return
	}

	resp, err := h.gatewayService.HandleWebhook(c.Request.Context(), payload, c.GetHeader(SignatureHeader))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
