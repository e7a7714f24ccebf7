package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"commerce-core/internal/core/domain"
	"commerce-core/internal/core/ports"
	"commerce-core/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ShipmentRepo implements ports.ShipmentRepository.
type ShipmentRepo struct {
	pool Pool
}

// NewShipmentRepo creates a new ShipmentRepo.
func NewShipmentRepo(pool Pool) *ShipmentRepo {
	return &ShipmentRepo{pool: pool}
}

const shipmentColumns = `id, order_id, carrier, service, label_url, status, is_gift, gift_message,
	shipped_at, delivered_at, version, created_at, updated_at`

// Create inserts a new shipment header within a database transaction.
func (r *ShipmentRepo) Create(ctx context.Context, tx pgx.Tx, s *domain.Shipment) error {
	query := `INSERT INTO shipments (id, order_id, carrier, service, label_url, status, is_gift, gift_message,
		shipped_at, delivered_at, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := tx.Exec(ctx, query,
		s.ID, s.OrderID, s.Carrier, s.Service, s.LabelURL, s.Status,
		s.IsGift, s.GiftMessage, s.ShippedAt, s.DeliveredAt,
		s.Version, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert shipment: %w", err)
	}
	return nil
}

// GetByID fetches a shipment header by UUID. Items are loaded separately.
func (r *ShipmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Shipment, error) {
	query := fmt.Sprintf(`SELECT %s FROM shipments WHERE id = $1`, shipmentColumns)
	return r.scanShipment(r.pool.QueryRow(ctx, query, id))
}

// Update writes the header with a compare-and-swap on the version column.
// A zero row count means the row was modified since it was loaded.
func (r *ShipmentRepo) Update(ctx context.Context, tx pgx.Tx, s *domain.Shipment) error {
	query := `UPDATE shipments SET carrier = $1, service = $2, label_url = $3, status = $4,
		is_gift = $5, gift_message = $6, shipped_at = $7, delivered_at = $8,
		version = version + 1, updated_at = $9
		WHERE id = $10 AND version = $11`

	tag, err := tx.Exec(ctx, query,
		s.Carrier, s.Service, s.LabelURL, s.Status,
		s.IsGift, s.GiftMessage, s.ShippedAt, s.DeliveredAt,
		s.UpdatedAt, s.ID, s.Version,
	)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("update shipment: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return apperror.ErrStaleAggregate("shipment")
	}
	s.Version++
	return nil
}

// Delete removes a shipment header within a database transaction.
func (r *ShipmentRepo) Delete(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	tag, err := tx.Exec(ctx, `DELETE FROM shipments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete shipment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("shipment not found: %s", id)
	}
	return nil
}

// sortColumns whitelists the ORDER BY targets for List.
var sortColumns = map[string]string{
	"created_at":   "created_at",
	"updated_at":   "updated_at",
	"shipped_at":   "shipped_at",
	"delivered_at": "delivered_at",
}

// List fetches shipment headers with filtering and pagination, plus the total
// match count before the page window is applied.
func (r *ShipmentRepo) List(ctx context.Context, params ports.ShipmentListParams) ([]domain.Shipment, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	if params.OrderID != nil {
		conditions = append(conditions, fmt.Sprintf("order_id = $%d", argIdx))
		args = append(args, *params.OrderID)
		argIdx++
	}
	if params.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *params.Status)
		argIdx++
	}
	if params.Carrier != nil {
		conditions = append(conditions, fmt.Sprintf("carrier = $%d", argIdx))
		args = append(args, *params.Carrier)
		argIdx++
	}
	if params.CreatedFrom != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", argIdx))
		args = append(args, *params.CreatedFrom)
		argIdx++
	}
	if params.CreatedTo != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", argIdx))
		args = append(args, *params.CreatedTo)
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	// Count total
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM shipments %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count shipments: %w", err)
	}

	orderBy, ok := sortColumns[params.SortBy]
	if !ok {
		orderBy = "created_at"
	}
	direction := "ASC"
	if params.SortDesc {
		direction = "DESC"
	}

	dataQuery := fmt.Sprintf(`SELECT %s FROM shipments %s ORDER BY %s %s LIMIT $%d OFFSET $%d`,
		shipmentColumns, where, orderBy, direction, argIdx, argIdx+1)
	args = append(args, params.Limit, params.Offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list shipments: %w", err)
	}
	defer rows.Close()

	var shipments []domain.Shipment
	for rows.Next() {
		s := domain.Shipment{}
		err := rows.Scan(
			&s.ID, &s.OrderID, &s.Carrier, &s.Service, &s.LabelURL, &s.Status,
			&s.IsGift, &s.GiftMessage, &s.ShippedAt, &s.DeliveredAt,
			&s.Version, &s.CreatedAt, &s.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan shipment row: %w", err)
		}
		shipments = append(shipments, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate shipment rows: %w", err)
	}
	return shipments, total, nil
}

// scanShipment is a helper to scan a single row into a Shipment.
func (r *ShipmentRepo) scanShipment(row pgx.Row) (*domain.Shipment, error) {
	s := &domain.Shipment{}
	err := row.Scan(
		&s.ID, &s.OrderID, &s.Carrier, &s.Service, &s.LabelURL, &s.Status,
		&s.IsGift, &s.GiftMessage, &s.ShippedAt, &s.DeliveredAt,
		&s.Version, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan shipment: %w", err)
	}
	return s, nil
}
