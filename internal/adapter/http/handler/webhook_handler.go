package handler

import (
	"bytes"
	"encoding/json"
	"io"

	"commerce-core/internal/adapter/http/dto"
	"commerce-core/internal/core/ports"
	"commerce-core/pkg/apperror"
	"commerce-core/pkg/response"

	"github.com/gin-gonic/gin"
)

// HeaderWebhookSignature carries the provider's HMAC over the raw body.
const HeaderWebhookSignature = "X-Signature"

// WebhookHandler receives provider callbacks.
type WebhookHandler struct {
	webhookSvc ports.WebhookService
	gateway    ports.PaymentGateway
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(webhookSvc ports.WebhookService, gateway ports.PaymentGateway) *WebhookHandler {
	return &WebhookHandler{webhookSvc: webhookSvc, gateway: gateway}
}

// Receive handles POST /api/v1/webhooks/:provider.
// The signature is verified over the raw body before any parsing. Duplicate
// deliveries are acknowledged with 200 so the provider stops retrying.
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, apperror.Validation("cannot read request body"))
		return
	}

	if !h.gateway.ValidateWebhookSignature(body, c.GetHeader(HeaderWebhookSignature)) {
		response.Error(c, apperror.ErrInvalidWebhookSignature())
		return
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))

	var req dto.WebhookEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	intent, err := h.webhookSvc.HandleProviderEvent(c.Request.Context(), ports.ProviderEvent{
		EventID:       req.EventID,
		Provider:      c.Param("provider"),
		Type:          req.Type,
		TransactionID: req.TransactionID,
		InvoiceNumber: req.InvoiceNumber,
		CorrelationID: req.CorrelationID,
		FailureReason: req.FailureReason,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	// Duplicate delivery: no state change, still a 200 acknowledgment.
	if intent == nil {
		response.OK(c, json.RawMessage(`{"status":"acknowledged"}`))
		return
	}

	response.OK(c, dto.FromPaymentIntent(intent))
}
