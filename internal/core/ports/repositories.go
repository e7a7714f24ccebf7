package ports

import (
	"context"
	"time"

	"commerce-core/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ShipmentListParams holds filter + pagination for listing shipments.
type ShipmentListParams struct {
	OrderID     *string
	Status      *domain.ShipmentStatus
	Carrier     *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	SortBy      string // created_at, updated_at, shipped_at, delivered_at
	SortDesc    bool
	Limit       int
	Offset      int
}

// ShipmentRepository defines persistence operations for shipment headers.
// Methods accepting pgx.Tx run inside transaction blocks so services control
// atomicity. Update performs a compare-and-swap on the version column and
// reports a conflict when the loaded version is stale.
type ShipmentRepository interface {
	Create(ctx context.Context, tx pgx.Tx, shipment *domain.Shipment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Shipment, error)
	Update(ctx context.Context, tx pgx.Tx, shipment *domain.Shipment) error
	Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
	List(ctx context.Context, params ShipmentListParams) ([]domain.Shipment, int64, error)
}

// ShipmentItemRepository defines persistence operations for shipment items.
type ShipmentItemRepository interface {
	Create(ctx context.Context, tx pgx.Tx, item *domain.ShipmentItem) error
	ListByShipmentID(ctx context.Context, shipmentID uuid.UUID) ([]domain.ShipmentItem, error)
	Update(ctx context.Context, tx pgx.Tx, item *domain.ShipmentItem) error
	Delete(ctx context.Context, tx pgx.Tx, shipmentID uuid.UUID, orderItemID string) error
	DeleteByShipmentID(ctx context.Context, tx pgx.Tx, shipmentID uuid.UUID) error
}

// PaymentIntentRepository defines persistence operations for payment intents.
// Intents are never deleted. Update performs a compare-and-swap on the
// version column.
type PaymentIntentRepository interface {
	Create(ctx context.Context, tx pgx.Tx, intent *domain.PaymentIntent) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PaymentIntent, error)
	GetByOrderID(ctx context.Context, orderID string) (*domain.PaymentIntent, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.PaymentIntent, error)
	GetByExternalReference(ctx context.Context, ref string) (*domain.PaymentIntent, error)
	Update(ctx context.Context, tx pgx.Tx, intent *domain.PaymentIntent) error
}

// PaymentTransactionRepository defines persistence for the append-only intent
// audit trail.
type PaymentTransactionRepository interface {
	Create(ctx context.Context, tx pgx.Tx, txn *domain.PaymentTransaction) error
	ListByIntentID(ctx context.Context, intentID uuid.UUID) ([]domain.PaymentTransaction, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
