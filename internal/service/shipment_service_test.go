package service

import (
	"context"
	"testing"

	"commerce-core/internal/core/domain"
	"commerce-core/internal/core/ports"
	"commerce-core/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type shipmentTestDeps struct {
	svc          *ShipmentServiceImpl
	shipmentRepo *mocks.MockShipmentRepository
	itemRepo     *mocks.MockShipmentItemRepository
	transactor   *mocks.MockDBTransactor
	ctrl         *gomock.Controller
}

func setupShipmentService(t *testing.T) *shipmentTestDeps {
	ctrl := gomock.NewController(t)
	d := &shipmentTestDeps{
		shipmentRepo: mocks.NewMockShipmentRepository(ctrl),
		itemRepo:     mocks.NewMockShipmentItemRepository(ctrl),
		transactor:   mocks.NewMockDBTransactor(ctrl),
		ctrl:         ctrl,
	}
	d.svc = NewShipmentService(d.shipmentRepo, d.itemRepo, d.transactor, zerolog.Nop())
	return d
}

func storedShipment(status domain.ShipmentStatus) *domain.Shipment {
	s, _ := domain.NewShipment(domain.NewShipmentInput{
		OrderID: "ORDER-001",
		Items: []domain.ShipmentItemInput{
			{OrderItemID: "item-1", Qty: 2},
		},
	})
	s.Status = status
	return s
}

// ==================== CreateShipment Tests ====================

func TestShipmentService_CreateShipment_Success(t *testing.T) {
	d := setupShipmentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}

	in := ports.CreateShipmentInput{
		OrderID: "ORDER-001",
		Items: []domain.ShipmentItemInput{
			{OrderItemID: "item-1", Qty: 2},
			{OrderItemID: "item-2", Qty: 1, GiftWrap: true},
		},
	}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.shipmentRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.itemRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil).Times(2)

	result, err := d.svc.CreateShipment(ctx, in)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, domain.ShipmentStatusCreated, result.Status)
	assert.Len(t, result.Items, 2)
	assert.Equal(t, 3, result.TotalItems())
	assert.Equal(t, int64(1), result.Version)
}

func TestShipmentService_CreateShipment_DuplicateItem(t *testing.T) {
	d := setupShipmentService(t)
	defer d.ctrl.Finish()

	in := ports.CreateShipmentInput{
		OrderID: "ORDER-001",
		Items: []domain.ShipmentItemInput{
			{OrderItemID: "item-1", Qty: 1},
			{OrderItemID: "item-1", Qty: 2},
		},
	}

	result, err := d.svc.CreateShipment(context.Background(), in)
	assert.Nil(t, result)
	assertAppError(t, err, "SHP_003")
}

func TestShipmentService_CreateShipment_InvalidQuantity(t *testing.T) {
	d := setupShipmentService(t)
	defer d.ctrl.Finish()

	in := ports.CreateShipmentInput{
		OrderID: "ORDER-001",
		Items:   []domain.ShipmentItemInput{{OrderItemID: "item-1", Qty: 0}},
	}

	result, err := d.svc.CreateShipment(context.Background(), in)
	assert.Nil(t, result)
	assertAppError(t, err, "SHP_004")
}

// ==================== UpdateShipmentStatus Tests ====================

func TestShipmentService_UpdateShipmentStatus_CreatedToInTransit(t *testing.T) {
	d := setupShipmentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	shipment := storedShipment(domain.ShipmentStatusCreated)

	d.shipmentRepo.EXPECT().GetByID(ctx, shipment.ID).Return(shipment, nil)
	d.itemRepo.EXPECT().ListByShipmentID(ctx, shipment.ID).Return(shipment.Items, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.shipmentRepo.EXPECT().Update(ctx, tx, gomock.Any()).Return(nil)

	result, err := d.svc.UpdateShipmentStatus(ctx, shipment.ID, domain.ShipmentStatusInTransit)
	require.NoError(t, err)
	assert.Equal(t, domain.ShipmentStatusInTransit, result.Status)
	assert.NotNil(t, result.ShippedAt)
}

func TestShipmentService_UpdateShipmentStatus_InvalidTransition(t *testing.T) {
	d := setupShipmentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	shipment := storedShipment(domain.ShipmentStatusDelivered)

	d.shipmentRepo.EXPECT().GetByID(ctx, shipment.ID).Return(shipment, nil)
	d.itemRepo.EXPECT().ListByShipmentID(ctx, shipment.ID).Return(shipment.Items, nil)

	result, err := d.svc.UpdateShipmentStatus(ctx, shipment.ID, domain.ShipmentStatusInTransit)
	assert.Nil(t, result)
	assertAppError(t, err, "SHP_001")
}

func TestShipmentService_UpdateShipmentStatus_NotFound(t *testing.T) {
	d := setupShipmentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	id := uuid.New()

	d.shipmentRepo.EXPECT().GetByID(ctx, id).Return(nil, nil)

	result, err := d.svc.UpdateShipmentStatus(ctx, id, domain.ShipmentStatusInTransit)
	assert.Nil(t, result)
	assertAppError(t, err, "RES_001")
}

// ==================== Item Tests ====================

func TestShipmentService_AddShipmentItem_Success(t *testing.T) {
	d := setupShipmentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	shipment := storedShipment(domain.ShipmentStatusCreated)

	d.shipmentRepo.EXPECT().GetByID(ctx, shipment.ID).Return(shipment, nil)
	d.itemRepo.EXPECT().ListByShipmentID(ctx, shipment.ID).Return(shipment.Items, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.itemRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ pgx.Tx, item *domain.ShipmentItem) error {
			assert.Equal(t, "item-2", item.OrderItemID)
			assert.Equal(t, shipment.ID, item.ShipmentID)
			return nil
		})
	d.shipmentRepo.EXPECT().Update(ctx, tx, gomock.Any()).Return(nil)

	result, err := d.svc.AddShipmentItem(ctx, shipment.ID, domain.ShipmentItemInput{OrderItemID: "item-2", Qty: 3})
	require.NoError(t, err)
	assert.Len(t, result.Items, 2)
}

func TestShipmentService_AddShipmentItem_Duplicate(t *testing.T) {
	d := setupShipmentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	shipment := storedShipment(domain.ShipmentStatusCreated)

	d.shipmentRepo.EXPECT().GetByID(ctx, shipment.ID).Return(shipment, nil)
	d.itemRepo.EXPECT().ListByShipmentID(ctx, shipment.ID).Return(shipment.Items, nil)

	result, err := d.svc.AddShipmentItem(ctx, shipment.ID, domain.ShipmentItemInput{OrderItemID: "item-1", Qty: 1})
	assert.Nil(t, result)
	assertAppError(t, err, "SHP_003")
}

func TestShipmentService_RemoveShipmentItem_Success(t *testing.T) {
	d := setupShipmentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	shipment := storedShipment(domain.ShipmentStatusCreated)

	d.shipmentRepo.EXPECT().GetByID(ctx, shipment.ID).Return(shipment, nil)
	d.itemRepo.EXPECT().ListByShipmentID(ctx, shipment.ID).Return(shipment.Items, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.itemRepo.EXPECT().Delete(ctx, tx, shipment.ID, "item-1").Return(nil)
	d.shipmentRepo.EXPECT().Update(ctx, tx, gomock.Any()).Return(nil)

	result, err := d.svc.RemoveShipmentItem(ctx, shipment.ID, "item-1")
	require.NoError(t, err)
	assert.Empty(t, result.Items)
}

func TestShipmentService_RemoveShipmentItem_NotFound(t *testing.T) {
	d := setupShipmentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	shipment := storedShipment(domain.ShipmentStatusCreated)

	d.shipmentRepo.EXPECT().GetByID(ctx, shipment.ID).Return(shipment, nil)
	d.itemRepo.EXPECT().ListByShipmentID(ctx, shipment.ID).Return(shipment.Items, nil)

	result, err := d.svc.RemoveShipmentItem(ctx, shipment.ID, "item-unknown")
	assert.Nil(t, result)
	assertAppError(t, err, "SHP_002")
}

func TestShipmentService_UpdateShipmentItem_Success(t *testing.T) {
	d := setupShipmentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	shipment := storedShipment(domain.ShipmentStatusCreated)

	d.shipmentRepo.EXPECT().GetByID(ctx, shipment.ID).Return(shipment, nil)
	d.itemRepo.EXPECT().ListByShipmentID(ctx, shipment.ID).Return(shipment.Items, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.itemRepo.EXPECT().Update(ctx, tx, gomock.Any()).Return(nil)
	d.shipmentRepo.EXPECT().Update(ctx, tx, gomock.Any()).Return(nil)

	msg := "happy birthday"
	result, err := d.svc.UpdateShipmentItem(ctx, shipment.ID, "item-1", 5, true, &msg)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Items[0].Qty)
	assert.True(t, result.Items[0].GiftWrap)
}

// ==================== List / Delete Tests ====================

func TestShipmentService_ListShipments_DefaultsPageSize(t *testing.T) {
	d := setupShipmentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	d.shipmentRepo.EXPECT().List(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, params ports.ShipmentListParams) ([]domain.Shipment, int64, error) {
			assert.Equal(t, defaultPageSize, params.Limit)
			assert.Equal(t, 0, params.Offset)
			return []domain.Shipment{*storedShipment(domain.ShipmentStatusCreated)}, 1, nil
		})

	page, err := d.svc.ListShipments(ctx, ports.ShipmentListParams{Limit: 0, Offset: -5})
	require.NoError(t, err)
	assert.Len(t, page.Shipments, 1)
	assert.Equal(t, int64(1), page.Total)
}

func TestShipmentService_ListShipments_CapsPageSize(t *testing.T) {
	d := setupShipmentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	d.shipmentRepo.EXPECT().List(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, params ports.ShipmentListParams) ([]domain.Shipment, int64, error) {
			assert.Equal(t, maxPageSize, params.Limit)
			return nil, 0, nil
		})

	_, err := d.svc.ListShipments(ctx, ports.ShipmentListParams{Limit: 5000})
	require.NoError(t, err)
}

func TestShipmentService_DeleteShipment_OnlyCancelled(t *testing.T) {
	d := setupShipmentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	shipment := storedShipment(domain.ShipmentStatusInTransit)

	d.shipmentRepo.EXPECT().GetByID(ctx, shipment.ID).Return(shipment, nil)
	d.itemRepo.EXPECT().ListByShipmentID(ctx, shipment.ID).Return(shipment.Items, nil)

	err := d.svc.DeleteShipment(ctx, shipment.ID)
	assertAppError(t, err, "SHP_005")
}

func TestShipmentService_DeleteShipment_Success(t *testing.T) {
	d := setupShipmentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	shipment := storedShipment(domain.ShipmentStatusCancelled)

	d.shipmentRepo.EXPECT().GetByID(ctx, shipment.ID).Return(shipment, nil)
	d.itemRepo.EXPECT().ListByShipmentID(ctx, shipment.ID).Return(shipment.Items, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.itemRepo.EXPECT().DeleteByShipmentID(ctx, tx, shipment.ID).Return(nil)
	d.shipmentRepo.EXPECT().Delete(ctx, tx, shipment.ID).Return(nil)

	err := d.svc.DeleteShipment(ctx, shipment.ID)
	require.NoError(t, err)
}
