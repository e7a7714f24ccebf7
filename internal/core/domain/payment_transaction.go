package domain

import (
	"time"

	"github.com/google/uuid"
)

// PaymentTransactionType represents the kind of action taken against an
// intent.
type PaymentTransactionType string

const (
	TransactionTypeAuth    PaymentTransactionType = "AUTH"
	TransactionTypeCapture PaymentTransactionType = "CAPTURE"
	TransactionTypeRefund  PaymentTransactionType = "REFUND"
	TransactionTypeVoid    PaymentTransactionType = "VOID"
)

// TransactionStatus is the outcome of the recorded action.
type TransactionStatus string

const (
	TransactionStatusSuccess TransactionStatus = "SUCCESS"
	TransactionStatusFailed  TransactionStatus = "FAILED"
)

// PaymentTransaction is an immutable audit record of one state-changing
// action on a payment intent. Rows are append-only and written in the same
// database transaction as the intent update they describe.
type PaymentTransaction struct {
	ID            uuid.UUID              `json:"id"`
	IntentID      uuid.UUID              `json:"intent_id"`
	Type          PaymentTransactionType `json:"type"`
	Amount        Money                  `json:"amount"`
	Status        TransactionStatus      `json:"status"`
	PSPReference  *string                `json:"psp_reference,omitempty"`
	FailureReason *string                `json:"failure_reason,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}

// NewPaymentTransaction builds an audit record for one intent action.
func NewPaymentTransaction(intentID uuid.UUID, txType PaymentTransactionType, amount Money, status TransactionStatus, pspReference, failureReason *string) *PaymentTransaction {
	return &PaymentTransaction{
		ID:            uuid.New(),
		IntentID:      intentID,
		Type:          txType,
		Amount:        amount,
		Status:        status,
		PSPReference:  pspReference,
		FailureReason: failureReason,
		CreatedAt:     time.Now().UTC(),
	}
}
