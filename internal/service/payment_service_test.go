package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"commerce-core/internal/core/domain"
	"commerce-core/internal/core/ports"
	"commerce-core/internal/core/ports/mocks"
	"commerce-core/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type paymentTestDeps struct {
	svc        *PaymentServiceImpl
	intentRepo *mocks.MockPaymentIntentRepository
	txnRepo    *mocks.MockPaymentTransactionRepository
	gateway    *mocks.MockPaymentGateway
	idemCache  *mocks.MockIdempotencyCache
	transactor *mocks.MockDBTransactor
	ctrl       *gomock.Controller
}

func setupPaymentService(t *testing.T) *paymentTestDeps {
	ctrl := gomock.NewController(t)
	d := &paymentTestDeps{
		intentRepo: mocks.NewMockPaymentIntentRepository(ctrl),
		txnRepo:    mocks.NewMockPaymentTransactionRepository(ctrl),
		gateway:    mocks.NewMockPaymentGateway(ctrl),
		idemCache:  mocks.NewMockIdempotencyCache(ctrl),
		transactor: mocks.NewMockDBTransactor(ctrl),
		ctrl:       ctrl,
	}
	d.svc = NewPaymentService(
		d.intentRepo, d.txnRepo, d.gateway, d.idemCache,
		d.transactor, zerolog.Nop(),
	)
	return d
}

// mockTx implements pgx.Tx for testing
type mockTx struct{ pgx.Tx }

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error   { return nil }

func capturedIntent(currency, amount string) *domain.PaymentIntent {
	return &domain.PaymentIntent{
		ID:             uuid.New(),
		OrderID:        "ORDER-001",
		Provider:       "mockpay",
		Amount:         domain.MustMoney(amount, currency),
		Status:         domain.IntentStatusCaptured,
		RefundedAmount: domain.MustMoney("0", currency),
		Version:        2,
	}
}

// ==================== CreatePaymentIntent Tests ====================

func TestPaymentService_CreatePaymentIntent_Success(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}

	in := ports.CreatePaymentIntentInput{
		OrderID:        "ORDER-001",
		Provider:       "mockpay",
		Amount:         decimal.RequireFromString("99.90"),
		Currency:       "USD",
		IdempotencyKey: "idem-key-1",
	}

	d.idemCache.EXPECT().Get(ctx, "idem:intent:idem-key-1").Return(nil, nil)
	d.intentRepo.EXPECT().GetByIdempotencyKey(ctx, "idem-key-1").Return(nil, nil)
	d.gateway.EXPECT().CreatePayment(ctx, gomock.Any()).Return(&ports.GatewayPaymentResponse{
		TransactionID: "psp-tx-123",
		Status:        "pending",
	}, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.intentRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.idemCache.EXPECT().Set(ctx, "idem:intent:idem-key-1", gomock.Any(), idempotencyTTL).Return(nil)

	result, err := d.svc.CreatePaymentIntent(ctx, in)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, domain.IntentStatusRequiresAction, result.Status)
	assert.Equal(t, "ORDER-001", result.OrderID)
	require.NotNil(t, result.ExternalReference)
	assert.Equal(t, "psp-tx-123", *result.ExternalReference)
	assert.True(t, result.RefundedAmount.IsZero())
	assert.NotEmpty(t, result.ClientSecret)
}

func TestPaymentService_CreatePaymentIntent_IdempotentRedisHit(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	cached := capturedIntent("USD", "50.00")
	cachedJSON, _ := json.Marshal(cached)

	d.idemCache.EXPECT().Get(ctx, "idem:intent:idem-key-2").Return(cachedJSON, nil)

	result, err := d.svc.CreatePaymentIntent(ctx, ports.CreatePaymentIntentInput{
		OrderID:        "ORDER-001",
		Provider:       "mockpay",
		Amount:         decimal.RequireFromString("50.00"),
		Currency:       "USD",
		IdempotencyKey: "idem-key-2",
	})
	require.NoError(t, err)
	assert.Equal(t, cached.ID, result.ID)
}

func TestPaymentService_CreatePaymentIntent_IdempotentDBHit(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	existing := capturedIntent("USD", "50.00")

	d.idemCache.EXPECT().Get(ctx, "idem:intent:idem-key-3").Return(nil, nil)
	d.intentRepo.EXPECT().GetByIdempotencyKey(ctx, "idem-key-3").Return(existing, nil)

	result, err := d.svc.CreatePaymentIntent(ctx, ports.CreatePaymentIntentInput{
		OrderID:        "ORDER-001",
		Provider:       "mockpay",
		Amount:         decimal.RequireFromString("50.00"),
		Currency:       "USD",
		IdempotencyKey: "idem-key-3",
	})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, result.ID)
}

func TestPaymentService_CreatePaymentIntent_InvalidAmount(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	d.idemCache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, nil)
	d.intentRepo.EXPECT().GetByIdempotencyKey(gomock.Any(), gomock.Any()).Return(nil, nil)

	result, err := d.svc.CreatePaymentIntent(context.Background(), ports.CreatePaymentIntentInput{
		OrderID:        "ORDER-001",
		Provider:       "mockpay",
		Amount:         decimal.Zero,
		Currency:       "USD",
		IdempotencyKey: "idem-key-4",
	})
	assert.Nil(t, result)
	assertAppError(t, err, "PAY_002")
}

func TestPaymentService_CreatePaymentIntent_GatewayFailure(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	d.idemCache.EXPECT().Get(ctx, gomock.Any()).Return(nil, nil)
	d.intentRepo.EXPECT().GetByIdempotencyKey(ctx, gomock.Any()).Return(nil, nil)
	d.gateway.EXPECT().CreatePayment(ctx, gomock.Any()).Return(nil, errors.New("connection refused"))

	result, err := d.svc.CreatePaymentIntent(ctx, ports.CreatePaymentIntentInput{
		OrderID:        "ORDER-001",
		Provider:       "mockpay",
		Amount:         decimal.RequireFromString("10.00"),
		Currency:       "USD",
		IdempotencyKey: "idem-key-5",
	})
	assert.Nil(t, result)
	assertAppError(t, err, "GW_003")
}

// ==================== Authorize / Capture Tests ====================

func TestPaymentService_AuthorizePayment_Success(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	intent := capturedIntent("USD", "99.90")
	intent.Status = domain.IntentStatusRequiresAction
	ref := "psp-auth-1"

	d.intentRepo.EXPECT().GetByID(ctx, intent.ID).Return(intent, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.intentRepo.EXPECT().Update(ctx, tx, gomock.Any()).Return(nil)
	d.txnRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, txn *domain.PaymentTransaction) error {
			assert.Equal(t, domain.TransactionTypeAuth, txn.Type)
			assert.Equal(t, domain.TransactionStatusSuccess, txn.Status)
			return nil
		})

	result, err := d.svc.AuthorizePayment(ctx, intent.ID, &ref)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentStatusAuthorized, result.Status)
	require.NotNil(t, result.ExternalReference)
	assert.Equal(t, ref, *result.ExternalReference)
}

func TestPaymentService_CapturePayment_Success(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	intent := capturedIntent("USD", "99.90")
	intent.Status = domain.IntentStatusAuthorized

	d.intentRepo.EXPECT().GetByID(ctx, intent.ID).Return(intent, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.intentRepo.EXPECT().Update(ctx, tx, gomock.Any()).Return(nil)
	d.txnRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, txn *domain.PaymentTransaction) error {
			assert.Equal(t, domain.TransactionTypeCapture, txn.Type)
			return nil
		})

	result, err := d.svc.CapturePayment(ctx, intent.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentStatusCaptured, result.Status)
}

func TestPaymentService_CapturePayment_InvalidTransition(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	intent := capturedIntent("USD", "99.90")
	intent.Status = domain.IntentStatusRequiresAction

	d.intentRepo.EXPECT().GetByID(ctx, intent.ID).Return(intent, nil)

	result, err := d.svc.CapturePayment(ctx, intent.ID, nil)
	assert.Nil(t, result)
	assertAppError(t, err, "PAY_001")
}

func TestPaymentService_AuthorizePayment_NotFound(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	id := uuid.New()

	d.intentRepo.EXPECT().GetByID(ctx, id).Return(nil, nil)

	result, err := d.svc.AuthorizePayment(ctx, id, nil)
	assert.Nil(t, result)
	assertAppError(t, err, "RES_001")
}

// ==================== RefundPayment Tests ====================

func TestPaymentService_RefundPayment_Full(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	intent := capturedIntent("USD", "100.00")
	ref := "psp-tx-9"
	intent.ExternalReference = &ref

	d.intentRepo.EXPECT().GetByID(ctx, intent.ID).Return(intent, nil)
	d.gateway.EXPECT().RefundPayment(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, req ports.GatewayRefundRequest) (*ports.GatewayPaymentResponse, error) {
			assert.Equal(t, ref, req.TransactionID)
			assert.Equal(t, "USD", req.Currency)
			return &ports.GatewayPaymentResponse{TransactionID: "psp-refund-9", Status: "refunded"}, nil
		})
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.intentRepo.EXPECT().Update(ctx, tx, gomock.Any()).Return(nil)
	d.txnRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, txn *domain.PaymentTransaction) error {
			assert.Equal(t, domain.TransactionTypeRefund, txn.Type)
			require.NotNil(t, txn.PSPReference)
			assert.Equal(t, "psp-refund-9", *txn.PSPReference)
			return nil
		})

	result, err := d.svc.RefundPayment(ctx, ports.RefundPaymentInput{IntentID: intent.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.IntentStatusRefunded, result.Status)
	assert.True(t, result.RefundedAmount.Equals(result.Amount))
}

func TestPaymentService_RefundPayment_PartialKeepsCaptured(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	intent := capturedIntent("USD", "100.00")
	partial := decimal.RequireFromString("30.00")

	d.intentRepo.EXPECT().GetByID(ctx, intent.ID).Return(intent, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.intentRepo.EXPECT().Update(ctx, tx, gomock.Any()).Return(nil)
	d.txnRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)

	result, err := d.svc.RefundPayment(ctx, ports.RefundPaymentInput{IntentID: intent.ID, Amount: &partial})
	require.NoError(t, err)
	assert.Equal(t, domain.IntentStatusCaptured, result.Status)
	assert.True(t, result.RefundedAmount.Equals(domain.MustMoney("30.00", "USD")))
	assert.True(t, result.RemainingRefundable().Equals(domain.MustMoney("70.00", "USD")))
}

func TestPaymentService_RefundPayment_ExceedsBalance(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	intent := capturedIntent("USD", "100.00")
	intent.RefundedAmount = domain.MustMoney("80.00", "USD")
	over := decimal.RequireFromString("30.00")

	d.intentRepo.EXPECT().GetByID(ctx, intent.ID).Return(intent, nil)

	result, err := d.svc.RefundPayment(ctx, ports.RefundPaymentInput{IntentID: intent.ID, Amount: &over})
	assert.Nil(t, result)
	assertAppError(t, err, "PAY_004")
}

func TestPaymentService_RefundPayment_NotCaptured(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	intent := capturedIntent("USD", "100.00")
	intent.Status = domain.IntentStatusAuthorized

	d.intentRepo.EXPECT().GetByID(ctx, intent.ID).Return(intent, nil)

	result, err := d.svc.RefundPayment(ctx, ports.RefundPaymentInput{IntentID: intent.ID})
	assert.Nil(t, result)
	assertAppError(t, err, "PAY_003")
}

// ==================== Cancel / Fail Tests ====================

func TestPaymentService_CancelPayment_RecordsVoid(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	intent := capturedIntent("USD", "45.00")
	intent.Status = domain.IntentStatusAuthorized

	d.intentRepo.EXPECT().GetByID(ctx, intent.ID).Return(intent, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.intentRepo.EXPECT().Update(ctx, tx, gomock.Any()).Return(nil)
	d.txnRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, txn *domain.PaymentTransaction) error {
			assert.Equal(t, domain.TransactionTypeVoid, txn.Type)
			assert.Equal(t, domain.TransactionStatusSuccess, txn.Status)
			return nil
		})

	result, err := d.svc.CancelPayment(ctx, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentStatusCancelled, result.Status)
}

func TestPaymentService_CancelPayment_CapturedRejected(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	intent := capturedIntent("USD", "45.00")

	d.intentRepo.EXPECT().GetByID(ctx, intent.ID).Return(intent, nil)

	result, err := d.svc.CancelPayment(ctx, intent.ID)
	assert.Nil(t, result)
	assertAppError(t, err, "PAY_001")
}

func TestPaymentService_FailPayment_RecordsReason(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	intent := capturedIntent("USD", "45.00")
	intent.Status = domain.IntentStatusRequiresAction

	d.intentRepo.EXPECT().GetByID(ctx, intent.ID).Return(intent, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.intentRepo.EXPECT().Update(ctx, tx, gomock.Any()).Return(nil)
	d.txnRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, txn *domain.PaymentTransaction) error {
			assert.Equal(t, domain.TransactionTypeAuth, txn.Type)
			assert.Equal(t, domain.TransactionStatusFailed, txn.Status)
			require.NotNil(t, txn.FailureReason)
			assert.Equal(t, "card declined", *txn.FailureReason)
			return nil
		})

	result, err := d.svc.FailPayment(ctx, intent.ID, "card declined")
	require.NoError(t, err)
	assert.Equal(t, domain.IntentStatusFailed, result.Status)
}

// ==================== Query Tests ====================

func TestPaymentService_GetPaymentTransactions(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	intent := capturedIntent("USD", "45.00")
	txns := []domain.PaymentTransaction{
		{ID: uuid.New(), IntentID: intent.ID, Type: domain.TransactionTypeAuth},
		{ID: uuid.New(), IntentID: intent.ID, Type: domain.TransactionTypeCapture},
	}

	d.intentRepo.EXPECT().GetByID(ctx, intent.ID).Return(intent, nil)
	d.txnRepo.EXPECT().ListByIntentID(ctx, intent.ID).Return(txns, nil)

	result, err := d.svc.GetPaymentTransactions(ctx, intent.ID)
	require.NoError(t, err)
	assert.Len(t, result, 2)
}

func TestPaymentService_GetPaymentIntentByOrderID_NotFound(t *testing.T) {
	d := setupPaymentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.intentRepo.EXPECT().GetByOrderID(ctx, "ORDER-MISSING").Return(nil, nil)

	result, err := d.svc.GetPaymentIntentByOrderID(ctx, "ORDER-MISSING")
	assert.Nil(t, result)
	assertAppError(t, err, "RES_001")
}

// ==================== Helper ====================

func assertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, expectedCode, appErr.Code)
}
