package postgres

import (
	"context"
	"fmt"

	"commerce-core/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ShipmentItemRepo implements ports.ShipmentItemRepository.
type ShipmentItemRepo struct {
	pool Pool
}

// NewShipmentItemRepo creates a new ShipmentItemRepo.
func NewShipmentItemRepo(pool Pool) *ShipmentItemRepo {
	return &ShipmentItemRepo{pool: pool}
}

// Create inserts a new shipment item within a database transaction.
func (r *ShipmentItemRepo) Create(ctx context.Context, tx pgx.Tx, item *domain.ShipmentItem) error {
	query := `INSERT INTO shipment_items (id, shipment_id, order_item_id, qty, gift_wrap, gift_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		item.ID, item.ShipmentID, item.OrderItemID, item.Qty,
		item.GiftWrap, item.GiftMessage, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert shipment item: %w", err)
	}
	return nil
}

// ListByShipmentID fetches all items of one shipment in insertion order.
func (r *ShipmentItemRepo) ListByShipmentID(ctx context.Context, shipmentID uuid.UUID) ([]domain.ShipmentItem, error) {
	query := `SELECT id, shipment_id, order_item_id, qty, gift_wrap, gift_message, created_at, updated_at
		FROM shipment_items WHERE shipment_id = $1 ORDER BY created_at ASC, order_item_id ASC`

	rows, err := r.pool.Query(ctx, query, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("list shipment items: %w", err)
	}
	defer rows.Close()

	var items []domain.ShipmentItem
	for rows.Next() {
		item := domain.ShipmentItem{}
		err := rows.Scan(
			&item.ID, &item.ShipmentID, &item.OrderItemID, &item.Qty,
			&item.GiftWrap, &item.GiftMessage, &item.CreatedAt, &item.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan shipment item row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shipment item rows: %w", err)
	}
	return items, nil
}

// Update mutates the qty/gift fields of an existing item.
func (r *ShipmentItemRepo) Update(ctx context.Context, tx pgx.Tx, item *domain.ShipmentItem) error {
	query := `UPDATE shipment_items SET qty = $1, gift_wrap = $2, gift_message = $3, updated_at = $4
		WHERE shipment_id = $5 AND order_item_id = $6`

	tag, err := tx.Exec(ctx, query,
		item.Qty, item.GiftWrap, item.GiftMessage, item.UpdatedAt,
		item.ShipmentID, item.OrderItemID,
	)
	if err != nil {
		return fmt.Errorf("update shipment item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("shipment item not found: %s", item.OrderItemID)
	}
	return nil
}

// Delete removes one item by its (shipment_id, order_item_id) key.
func (r *ShipmentItemRepo) Delete(ctx context.Context, tx pgx.Tx, shipmentID uuid.UUID, orderItemID string) error {
	tag, err := tx.Exec(ctx, `DELETE FROM shipment_items WHERE shipment_id = $1 AND order_item_id = $2`, shipmentID, orderItemID)
	if err != nil {
		return fmt.Errorf("delete shipment item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("shipment item not found: %s", orderItemID)
	}
	return nil
}

// DeleteByShipmentID removes every item of a shipment.
func (r *ShipmentItemRepo) DeleteByShipmentID(ctx context.Context, tx pgx.Tx, shipmentID uuid.UUID) error {
	_, err := tx.Exec(ctx, `DELETE FROM shipment_items WHERE shipment_id = $1`, shipmentID)
	if err != nil {
		return fmt.Errorf("delete shipment items: %w", err)
	}
	return nil
}
