package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"commerce-core/config"
	"commerce-core/internal/core/ports"

	"github.com/rs/zerolog"
)

// HTTPGateway implements ports.PaymentGateway against a provider's REST API.
// Outbound requests carry an HMAC-SHA256 signature of the body; inbound
// webhook signatures are verified with the same shared secret.
type HTTPGateway struct {
	baseURL    string
	secret     string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewHTTPGateway creates a gateway adapter from config.
func NewHTTPGateway(cfg config.GatewayConfig, log zerolog.Logger) *HTTPGateway {
	return &HTTPGateway{
		baseURL: cfg.BaseURL,
		secret:  cfg.Secret,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		log: log,
	}
}

// CreatePayment registers a payment with the provider.
func (g *HTTPGateway) CreatePayment(ctx context.Context, req ports.GatewayPaymentRequest) (*ports.GatewayPaymentResponse, error) {
	return g.post(ctx, "/v1/payments", req)
}

// VerifyPayment queries the provider for the current state of a transaction.
func (g *HTTPGateway) VerifyPayment(ctx context.Context, transactionID string) (*ports.GatewayPaymentResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/v1/payments/"+transactionID, nil)
	if err != nil {
		return nil, fmt.Errorf("build verify request: %w", err)
	}
	return g.do(httpReq)
}

// RefundPayment asks the provider to refund a captured transaction.
func (g *HTTPGateway) RefundPayment(ctx context.Context, req ports.GatewayRefundRequest) (*ports.GatewayPaymentResponse, error) {
	return g.post(ctx, "/v1/refunds", req)
}

// ValidateWebhookSignature verifies the provider's HMAC-SHA256 signature over
// the raw webhook payload. Constant-time comparison.
func (g *HTTPGateway) ValidateWebhookSignature(payload []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(g.secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (g *HTTPGateway) post(ctx context.Context, path string, body any) (*ports.GatewayPaymentResponse, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal gateway request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build gateway request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Signature", g.sign(raw))

	return g.do(httpReq)
}

func (g *HTTPGateway) do(httpReq *http.Request) (*ports.GatewayPaymentResponse, error) {
	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read gateway response: %w", err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		g.log.Error().
			Int("status", resp.StatusCode).
			Str("path", httpReq.URL.Path).
			Msg("gateway returned server error")
		return nil, fmt.Errorf("gateway status %d", resp.StatusCode)
	}

	var gwResp ports.GatewayPaymentResponse
	if err := json.Unmarshal(raw, &gwResp); err != nil {
		return nil, fmt.Errorf("decode gateway response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("gateway rejected request: %s", gwResp.Error)
	}
	return &gwResp, nil
}

// sign computes the lowercase hex HMAC-SHA256 of the request body.
func (g *HTTPGateway) sign(payload []byte) string {
	mac := hmac.New(sha256.New, []byte(g.secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
