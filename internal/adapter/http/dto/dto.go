package dto

import (
	"time"

	"commerce-core/internal/core/domain"
)

// --- Shipment DTOs ---

// ShipmentItemRequest is one item in a shipment create/add request.
type ShipmentItemRequest struct {
	OrderItemID string  `json:"order_item_id" binding:"required,max=100,safe_id"`
	Qty         int     `json:"qty" binding:"required,gt=0"`
	GiftWrap    bool    `json:"gift_wrap"`
	GiftMessage *string `json:"gift_message,omitempty" binding:"omitempty,max=500"`
}

// CreateShipmentRequest is the request body for shipment creation.
type CreateShipmentRequest struct {
	OrderID     string                `json:"order_id" binding:"required,max=100,safe_id"`
	Carrier     *string               `json:"carrier,omitempty" binding:"omitempty,max=100"`
	Service     *string               `json:"service,omitempty" binding:"omitempty,max=100"`
	LabelURL    *string               `json:"label_url,omitempty" binding:"omitempty,safe_url"`
	IsGift      bool                  `json:"is_gift"`
	GiftMessage *string               `json:"gift_message,omitempty" binding:"omitempty,max=500"`
	Items       []ShipmentItemRequest `json:"items" binding:"omitempty,dive"`
}

// UpdateShipmentStatusRequest carries a lifecycle transition target.
type UpdateShipmentStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=created in_transit delivered cancelled"`
}

// UpdateShipmentDetailsRequest updates the mutable header fields.
type UpdateShipmentDetailsRequest struct {
	Carrier     *string `json:"carrier,omitempty" binding:"omitempty,max=100"`
	Service     *string `json:"service,omitempty" binding:"omitempty,max=100"`
	LabelURL    *string `json:"label_url,omitempty" binding:"omitempty,safe_url"`
	IsGift      *bool   `json:"is_gift,omitempty"`
	GiftMessage *string `json:"gift_message,omitempty" binding:"omitempty,max=500"`
}

// UpdateShipmentItemRequest mutates one item's qty/gift fields.
type UpdateShipmentItemRequest struct {
	Qty         int     `json:"qty" binding:"required,gt=0"`
	GiftWrap    bool    `json:"gift_wrap"`
	GiftMessage *string `json:"gift_message,omitempty" binding:"omitempty,max=500"`
}

// ShipmentItemResponse is one item in a shipment response.
type ShipmentItemResponse struct {
	OrderItemID string  `json:"order_item_id"`
	Qty         int     `json:"qty"`
	GiftWrap    bool    `json:"gift_wrap"`
	GiftMessage *string `json:"gift_message,omitempty"`
}

// ShipmentResponse is the response body for shipment results.
type ShipmentResponse struct {
	ID          string                 `json:"id"`
	OrderID     string                 `json:"order_id"`
	Carrier     *string                `json:"carrier,omitempty"`
	Service     *string                `json:"service,omitempty"`
	LabelURL    *string                `json:"label_url,omitempty"`
	Status      string                 `json:"status"`
	Items       []ShipmentItemResponse `json:"items"`
	IsGift      bool                   `json:"is_gift"`
	GiftMessage *string                `json:"gift_message,omitempty"`
	ShippedAt   *string                `json:"shipped_at,omitempty"`
	DeliveredAt *string                `json:"delivered_at,omitempty"`
	CreatedAt   string                 `json:"created_at"`
	UpdatedAt   string                 `json:"updated_at"`
}

// ShipmentListResponse wraps a paginated shipment list.
type ShipmentListResponse struct {
	Items  []ShipmentResponse `json:"items"`
	Total  int64              `json:"total"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}

// FromShipment flattens a domain shipment into its response shape.
func FromShipment(s *domain.Shipment) ShipmentResponse {
	items := make([]ShipmentItemResponse, 0, len(s.Items))
	for _, item := range s.Items {
		items = append(items, ShipmentItemResponse{
			OrderItemID: item.OrderItemID,
			Qty:         item.Qty,
			GiftWrap:    item.GiftWrap,
			GiftMessage: item.GiftMessage,
		})
	}
	return ShipmentResponse{
		ID:          s.ID.String(),
		OrderID:     s.OrderID,
		Carrier:     s.Carrier,
		Service:     s.Service,
		LabelURL:    s.LabelURL,
		Status:      string(s.Status),
		Items:       items,
		IsGift:      s.IsGift,
		GiftMessage: s.GiftMessage,
		ShippedAt:   formatTimePtr(s.ShippedAt),
		DeliveredAt: formatTimePtr(s.DeliveredAt),
		CreatedAt:   s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   s.UpdatedAt.Format(time.RFC3339),
	}
}

// --- Payment DTOs ---

// CreatePaymentIntentRequest is the request body for intent creation.
// The amount travels as a decimal string to avoid float rounding.
type CreatePaymentIntentRequest struct {
	OrderID        string  `json:"order_id" binding:"required,max=100,safe_id"`
	CheckoutID     *string `json:"checkout_id,omitempty" binding:"omitempty,max=100,safe_id"`
	Provider       string  `json:"provider" binding:"required,max=50,safe_id"`
	Amount         string  `json:"amount" binding:"required,decimal_amount"`
	Currency       string  `json:"currency" binding:"required,len=3"`
	IdempotencyKey string  `json:"idempotency_key" binding:"required,max=100,safe_id"`
	Metadata       any     `json:"metadata,omitempty"`
}

// RefundPaymentRequest is the request body for refunds. A missing amount
// refunds the full remaining balance.
type RefundPaymentRequest struct {
	Amount       *string `json:"amount,omitempty" binding:"omitempty,decimal_amount"`
	PSPReference *string `json:"psp_reference,omitempty" binding:"omitempty,max=200"`
}

// FailPaymentRequest carries the failure reason.
type FailPaymentRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// PaymentIntentResponse is the response body for intent results.
type PaymentIntentResponse struct {
	ID                string  `json:"id"`
	OrderID           string  `json:"order_id"`
	CheckoutID        *string `json:"checkout_id,omitempty"`
	Provider          string  `json:"provider"`
	Amount            string  `json:"amount"`
	Currency          string  `json:"currency"`
	Status            string  `json:"status"`
	ClientSecret      string  `json:"client_secret"`
	ExternalReference *string `json:"external_reference,omitempty"`
	RefundedAmount    string  `json:"refunded_amount"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         string  `json:"updated_at"`
}

// PaymentTransactionResponse is one audit row of an intent.
type PaymentTransactionResponse struct {
	ID            string  `json:"id"`
	Type          string  `json:"type"`
	Amount        string  `json:"amount"`
	Currency      string  `json:"currency"`
	Status        string  `json:"status"`
	PSPReference  *string `json:"psp_reference,omitempty"`
	FailureReason *string `json:"failure_reason,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

// WebhookEventRequest is the normalized provider callback body.
type WebhookEventRequest struct {
	EventID       string `json:"event_id" binding:"required,max=200"`
	Type          string `json:"type" binding:"required,max=100"`
	TransactionID string `json:"transaction_id" binding:"omitempty,max=200"`
	InvoiceNumber string `json:"invoice_number" binding:"omitempty,max=200"`
	CorrelationID string `json:"correlation_id" binding:"omitempty,max=100"`
	FailureReason string `json:"failure_reason" binding:"omitempty,max=500"`
}

// FromPaymentIntent flattens a domain intent into its response shape.
// Amounts are rendered with a fixed two-decimal scale so the wire format
// stays stable regardless of the decimal's internal exponent.
func FromPaymentIntent(p *domain.PaymentIntent) PaymentIntentResponse {
	return PaymentIntentResponse{
		ID:                p.ID.String(),
		OrderID:           p.OrderID,
		CheckoutID:        p.CheckoutID,
		Provider:          p.Provider,
		Amount:            p.Amount.Amount.StringFixed(2),
		Currency:          p.Amount.Currency,
		Status:            string(p.Status),
		ClientSecret:      p.ClientSecret,
		ExternalReference: p.ExternalReference,
		RefundedAmount:    p.RefundedAmount.Amount.StringFixed(2),
		CreatedAt:         p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         p.UpdatedAt.Format(time.RFC3339),
	}
}

// FromPaymentTransaction flattens one audit row.
func FromPaymentTransaction(t *domain.PaymentTransaction) PaymentTransactionResponse {
	return PaymentTransactionResponse{
		ID:            t.ID.String(),
		Type:          string(t.Type),
		Amount:        t.Amount.Amount.StringFixed(2),
		Currency:      t.Amount.Currency,
		Status:        string(t.Status),
		PSPReference:  t.PSPReference,
		FailureReason: t.FailureReason,
		CreatedAt:     t.CreatedAt.Format(time.RFC3339),
	}
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
