package service

import (
	"context"
	"fmt"
	"time"

	"commerce-core/internal/core/domain"
	"commerce-core/internal/core/ports"
	"commerce-core/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const webhookEventTTL = 72 * time.Hour

// Provider event types the webhook pipeline understands.
const (
	EventPaymentAuthorized = "payment.authorized"
	EventPaymentCaptured   = "payment.captured"
	EventPaymentFailed     = "payment.failed"
)

// WebhookServiceImpl implements ports.WebhookService.
type WebhookServiceImpl struct {
	intentRepo ports.PaymentIntentRepository
	txnRepo    ports.PaymentTransactionRepository
	eventStore ports.WebhookEventStore
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewWebhookService creates a new WebhookServiceImpl.
func NewWebhookService(
	intentRepo ports.PaymentIntentRepository,
	txnRepo ports.PaymentTransactionRepository,
	eventStore ports.WebhookEventStore,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *WebhookServiceImpl {
	return &WebhookServiceImpl{
		intentRepo: intentRepo,
		txnRepo:    txnRepo,
		eventStore: eventStore,
		transactor: transactor,
		log:        log,
	}
}

// HandleProviderEvent correlates a provider callback to a payment intent and
// applies the matching transition. Replayed events and events arriving after
// the transition already happened are acknowledged without side effects, so
// the provider stops retrying. A duplicate event returns a nil intent so the
// transport layer can acknowledge it without re-emitting the intent body.
func (s *WebhookServiceImpl) HandleProviderEvent(ctx context.Context, event ports.ProviderEvent) (*domain.PaymentIntent, error) {
	intent, err := s.correlate(ctx, event)
	if err != nil {
		return nil, err
	}

	if event.EventID != "" {
		fresh, err := s.eventStore.CheckAndSet(ctx, event.Provider, event.EventID, webhookEventTTL)
		if err != nil {
			s.log.Warn().Err(err).Str("event_id", event.EventID).Msg("webhook dedup check failed, relying on state machine")
		} else if !fresh {
			s.log.Info().
				Str("event_id", event.EventID).
				Str("intent_id", intent.ID.String()).
				Msg("duplicate webhook event ignored")
			return nil, nil
		}
	}

	switch event.Type {
	case EventPaymentAuthorized:
		return s.applyAuthorized(ctx, intent, event)
	case EventPaymentCaptured:
		return s.applyCaptured(ctx, intent, event)
	case EventPaymentFailed:
		return s.applyFailed(ctx, intent, event)
	default:
		return nil, apperror.Validation("unsupported webhook event type: " + event.Type)
	}
}

// correlate resolves the intent for an event. Lookup order: provider
// transaction reference, then invoice number, then the merchant-supplied
// correlation ID which carries the intent ID itself.
func (s *WebhookServiceImpl) correlate(ctx context.Context, event ports.ProviderEvent) (*domain.PaymentIntent, error) {
	if event.TransactionID != "" {
		intent, err := s.intentRepo.GetByExternalReference(ctx, event.TransactionID)
		if err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("lookup by transaction ref: %w", err))
		}
		if intent != nil {
			return intent, nil
		}
	}

	if event.InvoiceNumber != "" {
		intent, err := s.intentRepo.GetByExternalReference(ctx, event.InvoiceNumber)
		if err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("lookup by invoice: %w", err))
		}
		if intent != nil {
			return intent, nil
		}
	}

	if event.CorrelationID != "" {
		if intentID, err := uuid.Parse(event.CorrelationID); err == nil {
			intent, err := s.intentRepo.GetByID(ctx, intentID)
			if err != nil {
				return nil, apperror.ErrDatabaseError(fmt.Errorf("lookup by correlation id: %w", err))
			}
			if intent != nil {
				return intent, nil
			}
		}
	}

	s.log.Warn().
		Str("event_id", event.EventID).
		Str("provider", event.Provider).
		Str("transaction_id", event.TransactionID).
		Msg("webhook event could not be correlated")
	return nil, apperror.ErrUncorrelatedWebhook()
}

func (s *WebhookServiceImpl) applyAuthorized(ctx context.Context, intent *domain.PaymentIntent, event ports.ProviderEvent) (*domain.PaymentIntent, error) {
	// The provider may replay after we already advanced past authorized.
	if intent.Status == domain.IntentStatusAuthorized || intent.Status == domain.IntentStatusCaptured {
		return intent, nil
	}
	if err := intent.Authorize(); err != nil {
		return nil, err
	}
	s.stampExternalReference(intent, event)

	txn := domain.NewPaymentTransaction(intent.ID, domain.TransactionTypeAuth, intent.Amount, domain.TransactionStatusSuccess, pspRef(event), nil)
	if err := s.persist(ctx, intent, txn); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("intent_id", intent.ID.String()).
		Str("event_id", event.EventID).
		Msg("webhook: payment authorized")
	return intent, nil
}

func (s *WebhookServiceImpl) applyCaptured(ctx context.Context, intent *domain.PaymentIntent, event ports.ProviderEvent) (*domain.PaymentIntent, error) {
	if intent.Status == domain.IntentStatusCaptured || intent.Status == domain.IntentStatusRefunded {
		return intent, nil
	}

	txns := make([]*domain.PaymentTransaction, 0, 2)

	// Some providers send a single captured event with no separate
	// authorization step. Record the implied AUTH so the trail stays complete.
	if intent.Status == domain.IntentStatusRequiresAction {
		if err := intent.Authorize(); err != nil {
			return nil, err
		}
		txns = append(txns, domain.NewPaymentTransaction(intent.ID, domain.TransactionTypeAuth, intent.Amount, domain.TransactionStatusSuccess, pspRef(event), nil))
	}

	if err := intent.Capture(); err != nil {
		return nil, err
	}
	s.stampExternalReference(intent, event)
	txns = append(txns, domain.NewPaymentTransaction(intent.ID, domain.TransactionTypeCapture, intent.Amount, domain.TransactionStatusSuccess, pspRef(event), nil))

	if err := s.persist(ctx, intent, txns...); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("intent_id", intent.ID.String()).
		Str("event_id", event.EventID).
		Str("amount", intent.Amount.String()).
		Msg("webhook: payment captured")
	return intent, nil
}

func (s *WebhookServiceImpl) applyFailed(ctx context.Context, intent *domain.PaymentIntent, event ports.ProviderEvent) (*domain.PaymentIntent, error) {
	if intent.Status == domain.IntentStatusFailed {
		return intent, nil
	}

	txType := domain.TransactionTypeAuth
	if intent.Status == domain.IntentStatusAuthorized {
		txType = domain.TransactionTypeCapture
	}
	if err := intent.Fail(); err != nil {
		return nil, err
	}

	var reason *string
	if event.FailureReason != "" {
		r := event.FailureReason
		reason = &r
	}
	txn := domain.NewPaymentTransaction(intent.ID, txType, intent.Amount, domain.TransactionStatusFailed, pspRef(event), reason)
	if err := s.persist(ctx, intent, txn); err != nil {
		return nil, err
	}

	s.log.Warn().
		Str("intent_id", intent.ID.String()).
		Str("event_id", event.EventID).
		Str("reason", event.FailureReason).
		Msg("webhook: payment failed")
	return intent, nil
}

func (s *WebhookServiceImpl) stampExternalReference(intent *domain.PaymentIntent, event ports.ProviderEvent) {
	if intent.ExternalReference == nil && event.TransactionID != "" {
		ref := event.TransactionID
		intent.ExternalReference = &ref
	}
}

func (s *WebhookServiceImpl) persist(ctx context.Context, intent *domain.PaymentIntent, txns ...*domain.PaymentTransaction) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.intentRepo.Update(ctx, dbTx, intent); err != nil {
		return err
	}
	for _, txn := range txns {
		if err := s.txnRepo.Create(ctx, dbTx, txn); err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("create transaction: %w", err))
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

func pspRef(event ports.ProviderEvent) *string {
	if event.TransactionID == "" {
		return nil
	}
	ref := event.TransactionID
	return &ref
}
