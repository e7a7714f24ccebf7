package handler

import (
	"encoding/json"

	"commerce-core/internal/adapter/http/dto"
	"commerce-core/internal/core/ports"
	"commerce-core/pkg/apperror"
	"commerce-core/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// PaymentHandler handles payment intent lifecycle endpoints.
type PaymentHandler struct {
	paymentSvc ports.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentSvc ports.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentSvc: paymentSvc}
}

// Create handles POST /api/v1/payment-intents.
func (h *PaymentHandler) Create(c *gin.Context) {
	var req dto.CreatePaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}
	dto.SanitizeStruct(&req)

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		response.Error(c, apperror.ErrInvalidAmount())
		return
	}

	var metadata json.RawMessage
	if req.Metadata != nil {
		metadata, err = json.Marshal(req.Metadata)
		if err != nil {
			response.Error(c, apperror.Validation("metadata must be valid JSON"))
			return
		}
	}

	intent, err := h.paymentSvc.CreatePaymentIntent(c.Request.Context(), ports.CreatePaymentIntentInput{
		OrderID:        req.OrderID,
		CheckoutID:     req.CheckoutID,
		Provider:       req.Provider,
		Amount:         amount,
		Currency:       req.Currency,
		IdempotencyKey: req.IdempotencyKey,
		Metadata:       metadata,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.FromPaymentIntent(intent))
}

// Get handles GET /api/v1/payment-intents/:id.
func (h *PaymentHandler) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	intent, err := h.paymentSvc.GetPaymentIntent(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromPaymentIntent(intent))
}

// GetByOrder handles GET /api/v1/orders/:orderId/payment-intent.
func (h *PaymentHandler) GetByOrder(c *gin.Context) {
	intent, err := h.paymentSvc.GetPaymentIntentByOrderID(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromPaymentIntent(intent))
}

// Authorize handles POST /api/v1/payment-intents/:id/authorize.
func (h *PaymentHandler) Authorize(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	intent, err := h.paymentSvc.AuthorizePayment(c.Request.Context(), id, nil)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromPaymentIntent(intent))
}

// Capture handles POST /api/v1/payment-intents/:id/capture.
func (h *PaymentHandler) Capture(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	intent, err := h.paymentSvc.CapturePayment(c.Request.Context(), id, nil)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromPaymentIntent(intent))
}

// Cancel handles POST /api/v1/payment-intents/:id/cancel.
func (h *PaymentHandler) Cancel(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	intent, err := h.paymentSvc.CancelPayment(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromPaymentIntent(intent))
}

// Refund handles POST /api/v1/payment-intents/:id/refund.
func (h *PaymentHandler) Refund(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.RefundPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}
	dto.SanitizeStruct(&req)

	in := ports.RefundPaymentInput{IntentID: id, PSPReference: req.PSPReference}
	if req.Amount != nil {
		amount, err := decimal.NewFromString(*req.Amount)
		if err != nil {
			response.Error(c, apperror.ErrInvalidAmount())
			return
		}
		in.Amount = &amount
	}

	intent, err := h.paymentSvc.RefundPayment(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromPaymentIntent(intent))
}

// Fail handles POST /api/v1/payment-intents/:id/fail.
func (h *PaymentHandler) Fail(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.FailPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}
	dto.SanitizeStruct(&req)

	intent, err := h.paymentSvc.FailPayment(c.Request.Context(), id, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromPaymentIntent(intent))
}

// ListTransactions handles GET /api/v1/payment-intents/:id/transactions.
func (h *PaymentHandler) ListTransactions(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	txns, err := h.paymentSvc.GetPaymentTransactions(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.PaymentTransactionResponse, 0, len(txns))
	for i := range txns {
		out = append(out, dto.FromPaymentTransaction(&txns[i]))
	}

	response.OK(c, out)
}
