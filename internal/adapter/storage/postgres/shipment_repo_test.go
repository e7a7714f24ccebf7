package postgres

import (
	"context"
	"testing"
	"time"

	"commerce-core/internal/core/domain"
	"commerce-core/internal/core/ports"
	"commerce-core/pkg/apperror"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func newTestShipment() *domain.Shipment {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.Shipment{
		ID:        uuid.New(),
		OrderID:   "ORDER-001",
		Carrier:   strPtr("ups"),
		Service:   strPtr("ground"),
		Status:    domain.ShipmentStatusCreated,
		IsGift:    false,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func shipmentCols() []string {
	return []string{"id", "order_id", "carrier", "service", "label_url", "status", "is_gift",
		"gift_message", "shipped_at", "delivered_at", "version", "created_at", "updated_at"}
}

func shipmentRow(s *domain.Shipment) *pgxmock.Rows {
	return pgxmock.NewRows(shipmentCols()).AddRow(
		s.ID, s.OrderID, s.Carrier, s.Service, s.LabelURL, s.Status,
		s.IsGift, s.GiftMessage, s.ShippedAt, s.DeliveredAt,
		s.Version, s.CreatedAt, s.UpdatedAt,
	)
}

func TestShipmentRepo_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewShipmentRepo(mock)
	s := newTestShipment()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO shipments").
		WithArgs(
			s.ID, s.OrderID, s.Carrier, s.Service, s.LabelURL, s.Status,
			s.IsGift, s.GiftMessage, s.ShippedAt, s.DeliveredAt,
			s.Version, s.CreatedAt, s.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Create(context.Background(), dbTx, s)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShipmentRepo_GetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewShipmentRepo(mock)
	s := newTestShipment()

	mock.ExpectQuery("SELECT .+ FROM shipments WHERE id").
		WithArgs(s.ID).
		WillReturnRows(shipmentRow(s))

	result, err := repo.GetByID(context.Background(), s.ID)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, s.ID, result.ID)
	assert.Equal(t, s.OrderID, result.OrderID)
	assert.Equal(t, int64(1), result.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShipmentRepo_GetByID_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewShipmentRepo(mock)

	mock.ExpectQuery("SELECT .+ FROM shipments WHERE id").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(shipmentCols()))

	result, err := repo.GetByID(context.Background(), uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShipmentRepo_Update_BumpsVersion(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewShipmentRepo(mock)
	s := newTestShipment()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE shipments SET").
		WithArgs(
			s.Carrier, s.Service, s.LabelURL, s.Status,
			s.IsGift, s.GiftMessage, s.ShippedAt, s.DeliveredAt,
			s.UpdatedAt, s.ID, int64(1),
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Update(context.Background(), dbTx, s)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), s.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShipmentRepo_Update_StaleVersion(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewShipmentRepo(mock)
	s := newTestShipment()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE shipments SET").
		WithArgs(
			s.Carrier, s.Service, s.LabelURL, s.Status,
			s.IsGift, s.GiftMessage, s.ShippedAt, s.DeliveredAt,
			s.UpdatedAt, s.ID, int64(1),
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Update(context.Background(), dbTx, s)
	require.Error(t, err)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "RES_002", appErr.Code)
	assert.Equal(t, int64(1), s.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShipmentRepo_List_WithFilters(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewShipmentRepo(mock)
	s := newTestShipment()
	status := domain.ShipmentStatusCreated

	mock.ExpectQuery("SELECT COUNT.+ FROM shipments WHERE order_id .+ AND status").
		WithArgs("ORDER-001", status).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery("SELECT .+ FROM shipments WHERE order_id .+ AND status .+ ORDER BY created_at DESC").
		WithArgs("ORDER-001", status, 20, 0).
		WillReturnRows(shipmentRow(s))

	results, total, err := repo.List(context.Background(), ports.ShipmentListParams{
		OrderID:  strPtr("ORDER-001"),
		Status:   &status,
		SortBy:   "created_at",
		SortDesc: true,
		Limit:    20,
		Offset:   0,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, results, 1)
	assert.Equal(t, s.ID, results[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShipmentRepo_List_UnknownSortFallsBack(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewShipmentRepo(mock)

	mock.ExpectQuery("SELECT COUNT.+ FROM shipments").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery(`SELECT .+ FROM shipments\s+ORDER BY created_at ASC`).
		WithArgs(10, 0).
		WillReturnRows(pgxmock.NewRows(shipmentCols()))

	_, total, err := repo.List(context.Background(), ports.ShipmentListParams{
		SortBy: "status; DROP TABLE shipments",
		Limit:  10,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestShipmentRepo_Delete(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewShipmentRepo(mock)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM shipments WHERE id").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	dbTx, err := mock.Begin(context.Background())
	require.NoError(t, err)

	err = repo.Delete(context.Background(), dbTx, id)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
