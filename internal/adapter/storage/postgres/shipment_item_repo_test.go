package postgres

import (
	"context"
	"testing"
	"time"

	"commerce-core/internal/core/domain"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestItem(shipmentID uuid.UUID) *domain.ShipmentItem {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.ShipmentItem{
		ID:          uuid.New(),
		ShipmentID:  shipmentID,
		OrderItemID: "item-1",
		Qty:         2,
		GiftWrap:    true,
		GiftMessage: strPtr("enjoy"),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func itemCols() []string {
	return []string{"id", "shipment_id", "order_item_id", "qty", "gift_wrap", "gift_message",
		"created_at", "updated_at"}
}

func TestShipmentItemRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewShipmentItemRepo(mock)
	item := newTestItem(uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO shipment_items").
		WithArgs(
			item.ID, item.ShipmentID, item.OrderItemID, item.Qty,
			item.GiftWrap, item.GiftMessage, item.CreatedAt, item.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), dbTx, item)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShipmentItemRepo_ListByShipmentID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewShipmentItemRepo(mock)
	shipmentID := uuid.New()
	item := newTestItem(shipmentID)

	mock.ExpectQuery("SELECT .+ FROM shipment_items WHERE shipment_id").
		WithArgs(shipmentID).
		WillReturnRows(pgxmock.NewRows(itemCols()).AddRow(
			item.ID, item.ShipmentID, item.OrderItemID, item.Qty,
			item.GiftWrap, item.GiftMessage, item.CreatedAt, item.UpdatedAt,
		))

	items, err := repo.ListByShipmentID(context.Background(), shipmentID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "item-1", items[0].OrderItemID)
	assert.Equal(t, 2, items[0].Qty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShipmentItemRepo_Update_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewShipmentItemRepo(mock)
	item := newTestItem(uuid.New())

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE shipment_items SET").
		WithArgs(
			item.Qty, item.GiftWrap, item.GiftMessage, item.UpdatedAt,
			item.ShipmentID, item.OrderItemID,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Update(context.Background(), dbTx, item)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShipmentItemRepo_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewShipmentItemRepo(mock)
	shipmentID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM shipment_items WHERE shipment_id .+ AND order_item_id").
		WithArgs(shipmentID, "item-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Delete(context.Background(), dbTx, shipmentID, "item-1")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShipmentItemRepo_DeleteByShipmentID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewShipmentItemRepo(mock)
	shipmentID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM shipment_items WHERE shipment_id").
		WithArgs(shipmentID).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.DeleteByShipmentID(context.Background(), dbTx, shipmentID)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
