package postgres

import (
	"context"
	"fmt"

	"commerce-core/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PaymentTransactionRepo implements ports.PaymentTransactionRepository. The
// table is append-only; there is no update or delete path.
type PaymentTransactionRepo struct {
	pool Pool
}

// NewPaymentTransactionRepo creates a new PaymentTransactionRepo.
func NewPaymentTransactionRepo(pool Pool) *PaymentTransactionRepo {
	return &PaymentTransactionRepo{pool: pool}
}

// Create inserts a new audit transaction within a database transaction.
func (r *PaymentTransactionRepo) Create(ctx context.Context, tx pgx.Tx, t *domain.PaymentTransaction) error {
	query := `INSERT INTO payment_transactions (id, intent_id, type, amount, currency, status, psp_reference, failure_reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := tx.Exec(ctx, query,
		t.ID, t.IntentID, t.Type,
		t.Amount.Amount, t.Amount.Currency, t.Status,
		t.PSPReference, t.FailureReason, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment transaction: %w", err)
	}
	return nil
}

// ListByIntentID fetches the audit trail of one intent, oldest first.
func (r *PaymentTransactionRepo) ListByIntentID(ctx context.Context, intentID uuid.UUID) ([]domain.PaymentTransaction, error) {
	query := `SELECT id, intent_id, type, amount, currency, status, psp_reference, failure_reason, created_at
		FROM payment_transactions WHERE intent_id = $1 ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, intentID)
	if err != nil {
		return nil, fmt.Errorf("list payment transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.PaymentTransaction
	for rows.Next() {
		t := domain.PaymentTransaction{}
		err := rows.Scan(
			&t.ID, &t.IntentID, &t.Type,
			&t.Amount.Amount, &t.Amount.Currency, &t.Status,
			&t.PSPReference, &t.FailureReason, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan payment transaction row: %w", err)
		}
		txns = append(txns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment transaction rows: %w", err)
	}
	return txns, nil
}
