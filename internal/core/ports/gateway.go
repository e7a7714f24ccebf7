package ports

import "context"

// GatewayPaymentRequest is the outbound request to create a payment at the
// provider.
type GatewayPaymentRequest struct {
	IntentID  string `json:"intent_id"`
	OrderID   string `json:"order_id"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	ReturnURL string `json:"return_url,omitempty"`
}

// GatewayPaymentResponse is the provider's answer to a payment creation or
// verification call.
type GatewayPaymentResponse struct {
	TransactionID string `json:"transaction_id"`
	RedirectURL   string `json:"redirect_url,omitempty"`
	Status        string `json:"status"`
	Error         string `json:"error,omitempty"`
}

// GatewayRefundRequest is the outbound request to refund a captured payment.
type GatewayRefundRequest struct {
	TransactionID string `json:"transaction_id"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
}

// PaymentGateway is the adapter boundary to the external payment provider.
// Retries, timeouts and backoff are the adapter's concern, not the caller's.
type PaymentGateway interface {
	CreatePayment(ctx context.Context, req GatewayPaymentRequest) (*GatewayPaymentResponse, error)
	VerifyPayment(ctx context.Context, transactionID string) (*GatewayPaymentResponse, error)
	RefundPayment(ctx context.Context, req GatewayRefundRequest) (*GatewayPaymentResponse, error)
	ValidateWebhookSignature(payload []byte, signature string) bool
}
