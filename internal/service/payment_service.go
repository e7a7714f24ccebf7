package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"commerce-core/internal/core/domain"
	"commerce-core/internal/core/ports"
	"commerce-core/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const idempotencyTTL = 24 * time.Hour

// PaymentServiceImpl implements ports.PaymentService.
type PaymentServiceImpl struct {
	intentRepo ports.PaymentIntentRepository
	txnRepo    ports.PaymentTransactionRepository
	gateway    ports.PaymentGateway
	idemCache  ports.IdempotencyCache
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewPaymentService creates a new PaymentServiceImpl.
func NewPaymentService(
	intentRepo ports.PaymentIntentRepository,
	txnRepo ports.PaymentTransactionRepository,
	gateway ports.PaymentGateway,
	idemCache ports.IdempotencyCache,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *PaymentServiceImpl {
	return &PaymentServiceImpl{
		intentRepo: intentRepo,
		txnRepo:    txnRepo,
		gateway:    gateway,
		idemCache:  idemCache,
		transactor: transactor,
		log:        log,
	}
}

// CreatePaymentIntent registers a new intent with the provider and persists
// it. Retries carrying the same idempotency key get the original intent back,
// first from the Redis fast path, then from the database.
func (s *PaymentServiceImpl) CreatePaymentIntent(ctx context.Context, in ports.CreatePaymentIntentInput) (*domain.PaymentIntent, error) {
	amount, err := domain.NewMoney(in.Amount, in.Currency)
	if err != nil {
		return nil, apperror.Validation(err.Error())
	}

	idemKey := "idem:intent:" + in.IdempotencyKey

	// Layer 1: Redis idempotency check
	cached, err := s.idemCache.Get(ctx, idemKey)
	if err != nil {
		s.log.Warn().Err(err).Str("key", idemKey).Msg("redis idempotency check failed, falling through to DB")
	}
	if cached != nil {
		return s.unmarshalCachedIntent(cached)
	}

	// Layer 2: DB idempotency check
	existing, err := s.intentRepo.GetByIdempotencyKey(ctx, in.IdempotencyKey)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("db idempotency check: %w", err))
	}
	if existing != nil {
		return existing, nil
	}

	intent, err := domain.NewPaymentIntent(domain.NewPaymentIntentInput{
		OrderID:        in.OrderID,
		CheckoutID:     in.CheckoutID,
		Provider:       in.Provider,
		Amount:         amount,
		IdempotencyKey: in.IdempotencyKey,
		ClientSecret:   "pi_secret_" + uuid.NewString(),
		Metadata:       in.Metadata,
	})
	if err != nil {
		return nil, err
	}

	// Register with the provider before persisting so the external reference
	// lands with the initial insert.
	gwResp, err := s.gateway.CreatePayment(ctx, ports.GatewayPaymentRequest{
		IntentID: intent.ID.String(),
		OrderID:  intent.OrderID,
		Amount:   intent.Amount.Amount.String(),
		Currency: intent.Amount.Currency,
	})
	if err != nil {
		return nil, apperror.ErrGatewayFailure(fmt.Errorf("create payment: %w", err))
	}
	if gwResp.TransactionID != "" {
		ref := gwResp.TransactionID
		intent.ExternalReference = &ref
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.intentRepo.Create(ctx, dbTx, intent); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create intent: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	// Post-process: cache in Redis (best-effort)
	if respJSON, err := json.Marshal(intent); err == nil {
		if err := s.idemCache.Set(ctx, idemKey, respJSON, idempotencyTTL); err != nil {
			s.log.Warn().Err(err).Str("key", idemKey).Msg("failed to cache idempotency in redis")
		}
	}

	s.log.Info().
		Str("intent_id", intent.ID.String()).
		Str("order_id", intent.OrderID).
		Str("provider", intent.Provider).
		Str("amount", intent.Amount.String()).
		Msg("payment intent created")

	return intent, nil
}

// AuthorizePayment transitions the intent to authorized and appends an AUTH
// audit row in the same transaction.
func (s *PaymentServiceImpl) AuthorizePayment(ctx context.Context, intentID uuid.UUID, pspReference *string) (*domain.PaymentIntent, error) {
	intent, err := s.loadIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if err := intent.Authorize(); err != nil {
		return nil, err
	}
	if pspReference != nil && intent.ExternalReference == nil {
		intent.ExternalReference = pspReference
	}

	txn := domain.NewPaymentTransaction(intent.ID, domain.TransactionTypeAuth, intent.Amount, domain.TransactionStatusSuccess, pspReference, nil)
	if err := s.saveIntentWithTransaction(ctx, intent, txn); err != nil {
		return nil, err
	}

	s.log.Info().Str("intent_id", intent.ID.String()).Msg("payment authorized")
	return intent, nil
}

// CapturePayment transitions the intent to captured and appends a CAPTURE
// audit row in the same transaction.
func (s *PaymentServiceImpl) CapturePayment(ctx context.Context, intentID uuid.UUID, pspReference *string) (*domain.PaymentIntent, error) {
	intent, err := s.loadIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if err := intent.Capture(); err != nil {
		return nil, err
	}

	txn := domain.NewPaymentTransaction(intent.ID, domain.TransactionTypeCapture, intent.Amount, domain.TransactionStatusSuccess, pspReference, nil)
	if err := s.saveIntentWithTransaction(ctx, intent, txn); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("intent_id", intent.ID.String()).
		Str("amount", intent.Amount.String()).
		Msg("payment captured")
	return intent, nil
}

// RefundPayment refunds part or all of a captured intent. A nil amount means
// the full remaining balance. The refunded-to-date ledger and the REFUND audit
// row are written in one transaction.
func (s *PaymentServiceImpl) RefundPayment(ctx context.Context, in ports.RefundPaymentInput) (*domain.PaymentIntent, error) {
	intent, err := s.loadIntent(ctx, in.IntentID)
	if err != nil {
		return nil, err
	}
	if !intent.IsCaptured() {
		return nil, apperror.ErrRefundNotCaptured(string(intent.Status))
	}

	refundAmount := intent.RemainingRefundable()
	if in.Amount != nil {
		refundAmount, err = domain.NewMoney(*in.Amount, intent.Amount.Currency)
		if err != nil {
			return nil, apperror.Validation(err.Error())
		}
	}

	pspReference := in.PSPReference
	if intent.ExternalReference != nil {
		gwResp, err := s.gateway.RefundPayment(ctx, ports.GatewayRefundRequest{
			TransactionID: *intent.ExternalReference,
			Amount:        refundAmount.Amount.String(),
			Currency:      refundAmount.Currency,
		})
		if err != nil {
			return nil, apperror.ErrGatewayFailure(fmt.Errorf("refund payment: %w", err))
		}
		if pspReference == nil && gwResp.TransactionID != "" {
			ref := gwResp.TransactionID
			pspReference = &ref
		}
	}

	if err := intent.RegisterRefund(refundAmount); err != nil {
		return nil, err
	}

	txn := domain.NewPaymentTransaction(intent.ID, domain.TransactionTypeRefund, refundAmount, domain.TransactionStatusSuccess, pspReference, nil)
	if err := s.saveIntentWithTransaction(ctx, intent, txn); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("intent_id", intent.ID.String()).
		Str("refund_amount", refundAmount.String()).
		Str("refunded_total", intent.RefundedAmount.String()).
		Str("status", string(intent.Status)).
		Msg("payment refunded")
	return intent, nil
}

// CancelPayment abandons an intent before capture. A VOID audit row keeps the
// trail symmetric with the other transitions.
func (s *PaymentServiceImpl) CancelPayment(ctx context.Context, intentID uuid.UUID) (*domain.PaymentIntent, error) {
	intent, err := s.loadIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if err := intent.Cancel(); err != nil {
		return nil, err
	}

	txn := domain.NewPaymentTransaction(intent.ID, domain.TransactionTypeVoid, intent.Amount, domain.TransactionStatusSuccess, intent.ExternalReference, nil)
	if err := s.saveIntentWithTransaction(ctx, intent, txn); err != nil {
		return nil, err
	}

	s.log.Info().Str("intent_id", intent.ID.String()).Msg("payment cancelled")
	return intent, nil
}

// FailPayment marks the intent as failed and records the failure reason. The
// audit row type is deliberately picked by the step that failed rather than
// always written as CAPTURE: AUTH when the intent was never authorized,
// CAPTURE once it had been. That way the ledger names the operation that
// actually broke.
func (s *PaymentServiceImpl) FailPayment(ctx context.Context, intentID uuid.UUID, reason string) (*domain.PaymentIntent, error) {
	intent, err := s.loadIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}

	txType := domain.TransactionTypeAuth
	if intent.Status == domain.IntentStatusAuthorized {
		txType = domain.TransactionTypeCapture
	}
	if err := intent.Fail(); err != nil {
		return nil, err
	}

	var failureReason *string
	if reason != "" {
		failureReason = &reason
	}
	txn := domain.NewPaymentTransaction(intent.ID, txType, intent.Amount, domain.TransactionStatusFailed, intent.ExternalReference, failureReason)
	if err := s.saveIntentWithTransaction(ctx, intent, txn); err != nil {
		return nil, err
	}

	s.log.Warn().
		Str("intent_id", intent.ID.String()).
		Str("reason", reason).
		Msg("payment failed")
	return intent, nil
}

// GetPaymentIntent loads one intent by ID.
func (s *PaymentServiceImpl) GetPaymentIntent(ctx context.Context, intentID uuid.UUID) (*domain.PaymentIntent, error) {
	return s.loadIntent(ctx, intentID)
}

// GetPaymentIntentByOrderID loads the most recent intent for an order.
func (s *PaymentServiceImpl) GetPaymentIntentByOrderID(ctx context.Context, orderID string) (*domain.PaymentIntent, error) {
	intent, err := s.intentRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get intent by order: %w", err))
	}
	if intent == nil {
		return nil, apperror.ErrNotFound("payment intent")
	}
	return intent, nil
}

// GetPaymentTransactions returns the append-only audit trail for an intent.
func (s *PaymentServiceImpl) GetPaymentTransactions(ctx context.Context, intentID uuid.UUID) ([]domain.PaymentTransaction, error) {
	intent, err := s.loadIntent(ctx, intentID)
	if err != nil {
		return nil, err
	}
	txns, err := s.txnRepo.ListByIntentID(ctx, intent.ID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list transactions: %w", err))
	}
	return txns, nil
}

func (s *PaymentServiceImpl) loadIntent(ctx context.Context, intentID uuid.UUID) (*domain.PaymentIntent, error) {
	intent, err := s.intentRepo.GetByID(ctx, intentID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get intent: %w", err))
	}
	if intent == nil {
		return nil, apperror.ErrNotFound("payment intent")
	}
	return intent, nil
}

// saveIntentWithTransaction writes the updated intent and its audit row in one
// database transaction. The CAS update surfaces concurrent modification as a
// conflict instead of silently overwriting.
func (s *PaymentServiceImpl) saveIntentWithTransaction(ctx context.Context, intent *domain.PaymentIntent, txn *domain.PaymentTransaction) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.intentRepo.Update(ctx, dbTx, intent); err != nil {
		return err
	}
	if err := s.txnRepo.Create(ctx, dbTx, txn); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("create transaction: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

// unmarshalCachedIntent deserializes a cached intent.
func (s *PaymentServiceImpl) unmarshalCachedIntent(data []byte) (*domain.PaymentIntent, error) {
	intent := &domain.PaymentIntent{}
	if err := json.Unmarshal(data, intent); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached intent: %w", err))
	}
	return intent, nil
}
