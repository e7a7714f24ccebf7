package domain

import (
	"encoding/json"
	"time"

	"commerce-core/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentIntentStatus represents the lifecycle state of a payment intent.
//
// "refunded" is a distinct terminal state: "cancelled" is reserved for
// pre-capture abandonment so a cancelled-but-never-captured intent never
// looks like a refunded one.
type PaymentIntentStatus string

const (
	IntentStatusRequiresAction PaymentIntentStatus = "requires_action"
	IntentStatusAuthorized     PaymentIntentStatus = "authorized"
	IntentStatusCaptured       PaymentIntentStatus = "captured"
	IntentStatusRefunded       PaymentIntentStatus = "refunded"
	IntentStatusCancelled      PaymentIntentStatus = "cancelled"
	IntentStatusFailed         PaymentIntentStatus = "failed"
)

// intentTransitions is the complete adjacency table. Any pair not listed here
// is rejected.
var intentTransitions = map[PaymentIntentStatus][]PaymentIntentStatus{
	IntentStatusRequiresAction: {IntentStatusAuthorized, IntentStatusFailed, IntentStatusCancelled},
	IntentStatusAuthorized:     {IntentStatusCaptured, IntentStatusFailed, IntentStatusCancelled},
	IntentStatusCaptured:       {IntentStatusRefunded},
	IntentStatusRefunded:       {},
	IntentStatusCancelled:      {},
	IntentStatusFailed:         {},
}

// CanTransitionTo reports whether the move from s to target is allowed.
func (s PaymentIntentStatus) CanTransitionTo(target PaymentIntentStatus) bool {
	for _, allowed := range intentTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are possible.
func (s PaymentIntentStatus) IsTerminal() bool {
	return len(intentTransitions[s]) == 0
}

// PaymentIntent represents one attempt to collect payment for an order or
// checkout. Intents are financial records and are never hard-deleted.
type PaymentIntent struct {
	ID             uuid.UUID           `json:"id"`
	OrderID        string              `json:"order_id"`
	CheckoutID     *string             `json:"checkout_id,omitempty"`
	Provider       string              `json:"provider"`
	Amount         Money               `json:"amount"`
	Status         PaymentIntentStatus `json:"status"`
	IdempotencyKey string              `json:"idempotency_key"`
	ClientSecret   string              `json:"client_secret"`
	// ExternalReference is the provider-side reference used to correlate
	// inbound webhooks. It lives in its own indexed column instead of
	// overloading ClientSecret.
	ExternalReference *string         `json:"external_reference,omitempty"`
	Metadata          json.RawMessage `json:"metadata,omitempty"`
	RefundedAmount    Money           `json:"refunded_amount"`
	Version           int64           `json:"-"` // optimistic concurrency counter
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// NewPaymentIntentInput carries the fields needed to create a payment intent.
type NewPaymentIntentInput struct {
	OrderID        string
	CheckoutID     *string
	Provider       string
	Amount         Money
	IdempotencyKey string
	ClientSecret   string
	Metadata       json.RawMessage
}

// NewPaymentIntent builds an intent in the initial "requires_action" status.
// The amount currency is fixed here for the whole lifecycle.
func NewPaymentIntent(in NewPaymentIntentInput) (*PaymentIntent, error) {
	if in.OrderID == "" {
		return nil, apperror.Validation("orderId is required")
	}
	if in.Provider == "" {
		return nil, apperror.Validation("provider is required")
	}
	if !in.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	if in.IdempotencyKey == "" {
		return nil, apperror.Validation("idempotencyKey is required")
	}

	now := time.Now().UTC()
	return &PaymentIntent{
		ID:             uuid.New(),
		OrderID:        in.OrderID,
		CheckoutID:     in.CheckoutID,
		Provider:       in.Provider,
		Amount:         in.Amount,
		Status:         IntentStatusRequiresAction,
		IdempotencyKey: in.IdempotencyKey,
		ClientSecret:   in.ClientSecret,
		Metadata:       in.Metadata,
		RefundedAmount: Money{Amount: decimal.Zero, Currency: in.Amount.Currency},
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Authorize transitions requires_action -> authorized.
func (p *PaymentIntent) Authorize() error {
	return p.transitionTo(IntentStatusAuthorized)
}

// Capture transitions authorized -> captured.
func (p *PaymentIntent) Capture() error {
	return p.transitionTo(IntentStatusCaptured)
}

// Cancel abandons the intent before capture. Captured intents must be
// refunded, not cancelled.
func (p *PaymentIntent) Cancel() error {
	return p.transitionTo(IntentStatusCancelled)
}

// Fail marks the intent as failed (e.g. declined authorization).
func (p *PaymentIntent) Fail() error {
	return p.transitionTo(IntentStatusFailed)
}

// RegisterRefund records a refund against the captured amount. The running
// refunded-to-date ledger rejects over-refunding; a full refund moves the
// intent to the refunded terminal state, a partial one keeps it captured so
// the remainder can still be refunded.
func (p *PaymentIntent) RegisterRefund(amount Money) error {
	if p.Status != IntentStatusCaptured {
		return apperror.ErrRefundNotCaptured(string(p.Status))
	}
	if amount.Currency != p.Amount.Currency {
		return apperror.ErrCurrencyMismatch()
	}
	if !amount.IsPositive() {
		return apperror.ErrInvalidAmount()
	}

	newTotal, err := p.RefundedAmount.Add(amount)
	if err != nil {
		return apperror.InternalError(err)
	}
	if newTotal.GreaterThan(p.Amount) {
		return apperror.ErrRefundExceedsBalance()
	}

	p.RefundedAmount = newTotal
	p.UpdatedAt = time.Now().UTC()
	if p.RefundedAmount.Equals(p.Amount) {
		p.Status = IntentStatusRefunded
	}
	return nil
}

// RemainingRefundable returns the captured amount not yet refunded.
func (p *PaymentIntent) RemainingRefundable() Money {
	remaining, err := p.Amount.Sub(p.RefundedAmount)
	if err != nil {
		return Money{Amount: decimal.Zero, Currency: p.Amount.Currency}
	}
	return remaining
}

// IsCaptured gates refund eligibility.
func (p *PaymentIntent) IsCaptured() bool {
	return p.Status == IntentStatusCaptured
}

// IsTerminal returns true once no further transitions are possible.
func (p *PaymentIntent) IsTerminal() bool {
	return p.Status.IsTerminal()
}

func (p *PaymentIntent) transitionTo(target PaymentIntentStatus) error {
	if !p.Status.CanTransitionTo(target) {
		return apperror.ErrIntentTransition(string(p.Status), string(target))
	}
	p.Status = target
	p.UpdatedAt = time.Now().UTC()
	return nil
}
