package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Validation (VAL) ----

// Validation returns a request validation error.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

// ---- Resources (RES) ----

func ErrNotFound(entity string) *AppError {
	return New("RES_001", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ErrStaleAggregate signals a lost optimistic-concurrency race: the row was
// modified between load and save.
func ErrStaleAggregate(entity string) *AppError {
	return New("RES_002", fmt.Sprintf("%s was modified concurrently, retry the operation", entity), http.StatusConflict)
}

// ---- Shipment Business Logic (SHP) ----

func ErrShipmentTransition(current, target string) *AppError {
	return New("SHP_001", fmt.Sprintf("invalid shipment status transition from %q to %q", current, target), http.StatusBadRequest)
}

func ErrShipmentItemNotFound(orderItemID string) *AppError {
	return New("SHP_002", fmt.Sprintf("shipment item for order item %q not found", orderItemID), http.StatusNotFound)
}

func ErrDuplicateShipmentItem(orderItemID string) *AppError {
	return New("SHP_003", fmt.Sprintf("shipment already contains order item %q", orderItemID), http.StatusConflict)
}

func ErrInvalidQuantity() *AppError {
	return New("SHP_004", "Item quantity must be a positive integer", http.StatusBadRequest)
}

func ErrShipmentNotDeletable(current string) *AppError {
	return New("SHP_005", fmt.Sprintf("only cancelled shipments can be deleted, current status is %q", current), http.StatusBadRequest)
}

// ---- Payment Business Logic (PAY) ----

func ErrIntentTransition(current, target string) *AppError {
	return New("PAY_001", fmt.Sprintf("invalid payment intent transition from %q to %q", current, target), http.StatusBadRequest)
}

func ErrInvalidAmount() *AppError {
	return New("PAY_002", "Invalid amount", http.StatusBadRequest)
}

func ErrRefundNotCaptured(current string) *AppError {
	return New("PAY_003", fmt.Sprintf("refund requires a captured intent, current status is %q", current), http.StatusBadRequest)
}

func ErrRefundExceedsBalance() *AppError {
	return New("PAY_004", "Refund amount exceeds remaining refundable balance", http.StatusBadRequest)
}

func ErrCurrencyMismatch() *AppError {
	return New("PAY_005", "Currency does not match payment intent currency", http.StatusBadRequest)
}

// ---- Gateway (GW) ----

func ErrInvalidWebhookSignature() *AppError {
	return New("GW_001", "Invalid webhook signature", http.StatusUnauthorized)
}

func ErrUncorrelatedWebhook() *AppError {
	return New("GW_002", "Webhook event could not be correlated to a payment intent", http.StatusNotFound)
}

func ErrGatewayFailure(err error) *AppError {
	return Wrap("GW_003", "Payment gateway request failed", http.StatusBadGateway, err)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}
