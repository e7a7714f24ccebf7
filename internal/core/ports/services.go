package ports

import (
	"context"
	"encoding/json"
	"time"

	"commerce-core/internal/core/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- Shipment Service ---

// CreateShipmentInput holds validated input for shipment creation.
type CreateShipmentInput struct {
	OrderID     string
	Carrier     *string
	Service     *string
	LabelURL    *string
	IsGift      bool
	GiftMessage *string
	Items       []domain.ShipmentItemInput
}

// UpdateShipmentDetailsInput holds the mutable header fields.
type UpdateShipmentDetailsInput struct {
	Carrier     *string
	Service     *string
	LabelURL    *string
	IsGift      *bool
	GiftMessage *string
}

// ShipmentPage is one page of a shipment listing plus the total match count.
type ShipmentPage struct {
	Shipments []domain.Shipment
	Total     int64
}

// ShipmentService orchestrates the shipment aggregate lifecycle.
type ShipmentService interface {
	CreateShipment(ctx context.Context, in CreateShipmentInput) (*domain.Shipment, error)
	GetShipment(ctx context.Context, id uuid.UUID) (*domain.Shipment, error)
	UpdateShipmentStatus(ctx context.Context, id uuid.UUID, target domain.ShipmentStatus) (*domain.Shipment, error)
	UpdateShipmentDetails(ctx context.Context, id uuid.UUID, in UpdateShipmentDetailsInput) (*domain.Shipment, error)
	AddShipmentItem(ctx context.Context, id uuid.UUID, in domain.ShipmentItemInput) (*domain.Shipment, error)
	UpdateShipmentItem(ctx context.Context, id uuid.UUID, orderItemID string, qty int, giftWrap bool, giftMessage *string) (*domain.Shipment, error)
	RemoveShipmentItem(ctx context.Context, id uuid.UUID, orderItemID string) (*domain.Shipment, error)
	ListShipments(ctx context.Context, params ShipmentListParams) (*ShipmentPage, error)
	DeleteShipment(ctx context.Context, id uuid.UUID) error
}

// --- Payment Service ---

// CreatePaymentIntentInput holds validated input for intent creation.
type CreatePaymentIntentInput struct {
	OrderID        string
	CheckoutID     *string
	Provider       string
	Amount         decimal.Decimal
	Currency       string
	IdempotencyKey string
	Metadata       json.RawMessage
}

// RefundPaymentInput holds validated input for refund processing.
type RefundPaymentInput struct {
	IntentID     uuid.UUID
	Amount       *decimal.Decimal // nil = refund the full remaining balance
	PSPReference *string
}

// PaymentService orchestrates the payment intent lifecycle. Every transition
// that represents a financial event appends an audit transaction in the same
// atomic unit as the intent update.
type PaymentService interface {
	CreatePaymentIntent(ctx context.Context, in CreatePaymentIntentInput) (*domain.PaymentIntent, error)
	AuthorizePayment(ctx context.Context, intentID uuid.UUID, pspReference *string) (*domain.PaymentIntent, error)
	CapturePayment(ctx context.Context, intentID uuid.UUID, pspReference *string) (*domain.PaymentIntent, error)
	RefundPayment(ctx context.Context, in RefundPaymentInput) (*domain.PaymentIntent, error)
	CancelPayment(ctx context.Context, intentID uuid.UUID) (*domain.PaymentIntent, error)
	FailPayment(ctx context.Context, intentID uuid.UUID, reason string) (*domain.PaymentIntent, error)
	GetPaymentIntent(ctx context.Context, intentID uuid.UUID) (*domain.PaymentIntent, error)
	GetPaymentIntentByOrderID(ctx context.Context, orderID string) (*domain.PaymentIntent, error)
	GetPaymentTransactions(ctx context.Context, intentID uuid.UUID) ([]domain.PaymentTransaction, error)
}

// --- Webhook Service ---

// ProviderEvent is a normalized inbound payment-provider callback.
type ProviderEvent struct {
	EventID       string
	Provider      string
	Type          string // payment.authorized, payment.captured, payment.failed
	TransactionID string // provider's own transaction/payment reference
	InvoiceNumber string
	CorrelationID string // merchant-supplied, matches the intent ID directly
	FailureReason string
}

// WebhookService correlates provider callbacks to payment intents and drives
// the matching transitions idempotently.
type WebhookService interface {
	HandleProviderEvent(ctx context.Context, event ProviderEvent) (*domain.PaymentIntent, error)
}

// WebhookEventStore deduplicates provider events by event ID.
type WebhookEventStore interface {
	// CheckAndSet atomically records an event ID. Returns true if the event
	// is new, false if it was already processed.
	CheckAndSet(ctx context.Context, provider, eventID string, ttl time.Duration) (bool, error)
}

// IdempotencyCache is the Redis-layer fast path for intent-creation retries.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
