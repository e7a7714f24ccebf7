package postgres

import (
	"context"
	"errors"
	"fmt"

	"commerce-core/internal/core/domain"
	"commerce-core/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PaymentIntentRepo implements ports.PaymentIntentRepository.
type PaymentIntentRepo struct {
	pool Pool
}

// NewPaymentIntentRepo creates a new PaymentIntentRepo.
func NewPaymentIntentRepo(pool Pool) *PaymentIntentRepo {
	return &PaymentIntentRepo{pool: pool}
}

const intentColumns = `id, order_id, checkout_id, provider, amount, currency, status, idempotency_key,
	client_secret, external_reference, metadata, refunded_amount, version, created_at, updated_at`

// Create inserts a new payment intent within a database transaction.
func (r *PaymentIntentRepo) Create(ctx context.Context, tx pgx.Tx, p *domain.PaymentIntent) error {
	query := `INSERT INTO payment_intents (id, order_id, checkout_id, provider, amount, currency, status,
		idempotency_key, client_secret, external_reference, metadata, refunded_amount, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err := tx.Exec(ctx, query,
		p.ID, p.OrderID, p.CheckoutID, p.Provider,
		p.Amount.Amount, p.Amount.Currency, p.Status,
		p.IdempotencyKey, p.ClientSecret, p.ExternalReference, p.Metadata,
		p.RefundedAmount.Amount, p.Version, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment intent: %w", err)
	}
	return nil
}

// GetByID fetches a payment intent by UUID.
func (r *PaymentIntentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentIntent, error) {
	query := fmt.Sprintf(`SELECT %s FROM payment_intents WHERE id = $1`, intentColumns)
	return r.scanIntent(r.pool.QueryRow(ctx, query, id))
}

// GetByOrderID fetches the most recent intent for an order.
func (r *PaymentIntentRepo) GetByOrderID(ctx context.Context, orderID string) (*domain.PaymentIntent, error) {
	query := fmt.Sprintf(`SELECT %s FROM payment_intents WHERE order_id = $1 ORDER BY created_at DESC LIMIT 1`, intentColumns)
	return r.scanIntent(r.pool.QueryRow(ctx, query, orderID))
}

// GetByIdempotencyKey fetches the intent created under a client idempotency
// key, if any. This is the database layer of the duplicate-create guard.
func (r *PaymentIntentRepo) GetByIdempotencyKey(ctx context.Context, key string) (*domain.PaymentIntent, error) {
	query := fmt.Sprintf(`SELECT %s FROM payment_intents WHERE idempotency_key = $1`, intentColumns)
	return r.scanIntent(r.pool.QueryRow(ctx, query, key))
}

// GetByExternalReference fetches the intent carrying a provider-side
// reference. Used to correlate inbound webhooks.
func (r *PaymentIntentRepo) GetByExternalReference(ctx context.Context, ref string) (*domain.PaymentIntent, error) {
	query := fmt.Sprintf(`SELECT %s FROM payment_intents WHERE external_reference = $1`, intentColumns)
	return r.scanIntent(r.pool.QueryRow(ctx, query, ref))
}

// Update writes the intent with a compare-and-swap on the version column.
// A zero row count means the row was modified since it was loaded.
func (r *PaymentIntentRepo) Update(ctx context.Context, tx pgx.Tx, p *domain.PaymentIntent) error {
	query := `UPDATE payment_intents SET status = $1, external_reference = $2, metadata = $3,
		refunded_amount = $4, version = version + 1, updated_at = $5
		WHERE id = $6 AND version = $7`

	tag, err := tx.Exec(ctx, query,
		p.Status, p.ExternalReference, p.Metadata,
		p.RefundedAmount.Amount, p.UpdatedAt, p.ID, p.Version,
	)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("update payment intent: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperror.ErrStaleAggregate("payment intent")
	}
	p.Version++
	return nil
}

// scanIntent is a helper to scan a single row into a PaymentIntent. The
// amount and refunded ledger share the intent's currency column.
func (r *PaymentIntentRepo) scanIntent(row pgx.Row) (*domain.PaymentIntent, error) {
	p := &domain.PaymentIntent{}
	err := row.Scan(
		&p.ID, &p.OrderID, &p.CheckoutID, &p.Provider,
		&p.Amount.Amount, &p.Amount.Currency, &p.Status,
		&p.IdempotencyKey, &p.ClientSecret, &p.ExternalReference, &p.Metadata,
		&p.RefundedAmount.Amount, &p.Version, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan payment intent: %w", err)
	}
	p.RefundedAmount.Currency = p.Amount.Currency
	return p, nil
}
