package service

import (
	"context"
	"fmt"

	"commerce-core/internal/core/domain"
	"commerce-core/internal/core/ports"
	"commerce-core/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ShipmentServiceImpl implements ports.ShipmentService.
type ShipmentServiceImpl struct {
	shipmentRepo ports.ShipmentRepository
	itemRepo     ports.ShipmentItemRepository
	transactor   ports.DBTransactor
	log          zerolog.Logger
}

// NewShipmentService creates a new ShipmentServiceImpl.
func NewShipmentService(
	shipmentRepo ports.ShipmentRepository,
	itemRepo ports.ShipmentItemRepository,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *ShipmentServiceImpl {
	return &ShipmentServiceImpl{
		shipmentRepo: shipmentRepo,
		itemRepo:     itemRepo,
		transactor:   transactor,
		log:          log,
	}
}

// CreateShipment persists a new shipment with its nested items atomically.
// Either the header and every item land together, or nothing does.
func (s *ShipmentServiceImpl) CreateShipment(ctx context.Context, in ports.CreateShipmentInput) (*domain.Shipment, error) {
	shipment, err := domain.NewShipment(domain.NewShipmentInput{
		OrderID:     in.OrderID,
		Carrier:     in.Carrier,
		Service:     in.Service,
		LabelURL:    in.LabelURL,
		IsGift:      in.IsGift,
		GiftMessage: in.GiftMessage,
		Items:       in.Items,
	})
	if err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.shipmentRepo.Create(ctx, dbTx, shipment); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create shipment: %w", err))
	}
	for i := range shipment.Items {
		if err := s.itemRepo.Create(ctx, dbTx, &shipment.Items[i]); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("create shipment item: %w", err))
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("shipment_id", shipment.ID.String()).
		Str("order_id", shipment.OrderID).
		Int("items", len(shipment.Items)).
		Msg("shipment created")

	return shipment, nil
}

// GetShipment loads a shipment with its items.
func (s *ShipmentServiceImpl) GetShipment(ctx context.Context, id uuid.UUID) (*domain.Shipment, error) {
	return s.loadShipment(ctx, id)
}

// UpdateShipmentStatus applies a lifecycle transition. The domain rejects any
// move not in the adjacency table before anything is written.
func (s *ShipmentServiceImpl) UpdateShipmentStatus(ctx context.Context, id uuid.UUID, target domain.ShipmentStatus) (*domain.Shipment, error) {
	shipment, err := s.loadShipment(ctx, id)
	if err != nil {
		return nil, err
	}

	from := shipment.Status
	if err := shipment.UpdateStatus(target); err != nil {
		return nil, err
	}

	if err := s.saveShipment(ctx, shipment); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("shipment_id", shipment.ID.String()).
		Str("from", string(from)).
		Str("to", string(target)).
		Msg("shipment status updated")

	return shipment, nil
}

// UpdateShipmentDetails updates the mutable header fields.
func (s *ShipmentServiceImpl) UpdateShipmentDetails(ctx context.Context, id uuid.UUID, in ports.UpdateShipmentDetailsInput) (*domain.Shipment, error) {
	shipment, err := s.loadShipment(ctx, id)
	if err != nil {
		return nil, err
	}

	shipment.SetCarrierDetails(in.Carrier, in.Service, in.LabelURL)
	if in.IsGift != nil {
		msg := shipment.GiftMessage
		if in.GiftMessage != nil {
			msg = in.GiftMessage
		}
		shipment.SetGift(*in.IsGift, msg)
	} else if in.GiftMessage != nil {
		shipment.SetGift(shipment.IsGift, in.GiftMessage)
	}

	if err := s.saveShipment(ctx, shipment); err != nil {
		return nil, err
	}
	return shipment, nil
}

// AddShipmentItem adds an item to an existing shipment. The item insert and
// the header version bump share one transaction.
func (s *ShipmentServiceImpl) AddShipmentItem(ctx context.Context, id uuid.UUID, in domain.ShipmentItemInput) (*domain.Shipment, error) {
	shipment, err := s.loadShipment(ctx, id)
	if err != nil {
		return nil, err
	}

	item, err := shipment.AddItem(in)
	if err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.itemRepo.Create(ctx, dbTx, item); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create shipment item: %w", err))
	}
	if err := s.shipmentRepo.Update(ctx, dbTx, shipment); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("shipment_id", shipment.ID.String()).
		Str("order_item_id", item.OrderItemID).
		Int("qty", item.Qty).
		Msg("shipment item added")

	return shipment, nil
}

// UpdateShipmentItem mutates qty/gift fields of one item.
func (s *ShipmentServiceImpl) UpdateShipmentItem(ctx context.Context, id uuid.UUID, orderItemID string, qty int, giftWrap bool, giftMessage *string) (*domain.Shipment, error) {
	shipment, err := s.loadShipment(ctx, id)
	if err != nil {
		return nil, err
	}

	item, err := shipment.UpdateItem(orderItemID, qty, giftWrap, giftMessage)
	if err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.itemRepo.Update(ctx, dbTx, item); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update shipment item: %w", err))
	}
	if err := s.shipmentRepo.Update(ctx, dbTx, shipment); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return shipment, nil
}

// RemoveShipmentItem removes one item. The delete and the header version bump
// share one transaction.
func (s *ShipmentServiceImpl) RemoveShipmentItem(ctx context.Context, id uuid.UUID, orderItemID string) (*domain.Shipment, error) {
	shipment, err := s.loadShipment(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := shipment.RemoveItem(orderItemID); err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.itemRepo.Delete(ctx, dbTx, shipment.ID, orderItemID); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("delete shipment item: %w", err))
	}
	if err := s.shipmentRepo.Update(ctx, dbTx, shipment); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("shipment_id", shipment.ID.String()).
		Str("order_item_id", orderItemID).
		Msg("shipment item removed")

	return shipment, nil
}

// ListShipments returns one page of shipments plus the total match count.
func (s *ShipmentServiceImpl) ListShipments(ctx context.Context, params ports.ShipmentListParams) (*ports.ShipmentPage, error) {
	if params.Limit <= 0 {
		params.Limit = defaultPageSize
	}
	if params.Limit > maxPageSize {
		params.Limit = maxPageSize
	}
	if params.Offset < 0 {
		params.Offset = 0
	}

	shipments, total, err := s.shipmentRepo.List(ctx, params)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list shipments: %w", err))
	}
	return &ports.ShipmentPage{Shipments: shipments, Total: total}, nil
}

// DeleteShipment removes a shipment and its items. Cancelled shipments are the
// only ones safe to delete; everything else is history worth keeping.
func (s *ShipmentServiceImpl) DeleteShipment(ctx context.Context, id uuid.UUID) error {
	shipment, err := s.loadShipment(ctx, id)
	if err != nil {
		return err
	}
	if shipment.Status != domain.ShipmentStatusCancelled {
		return apperror.ErrShipmentNotDeletable(string(shipment.Status))
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.itemRepo.DeleteByShipmentID(ctx, dbTx, shipment.ID); err != nil {
		return apperror.InternalError(fmt.Errorf("delete shipment items: %w", err))
	}
	if err := s.shipmentRepo.Delete(ctx, dbTx, shipment.ID); err != nil {
		return apperror.InternalError(fmt.Errorf("delete shipment: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().Str("shipment_id", shipment.ID.String()).Msg("shipment deleted")
	return nil
}

// loadShipment fetches the header and hydrates its items.
func (s *ShipmentServiceImpl) loadShipment(ctx context.Context, id uuid.UUID) (*domain.Shipment, error) {
	shipment, err := s.shipmentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get shipment: %w", err))
	}
	if shipment == nil {
		return nil, apperror.ErrNotFound("shipment")
	}

	items, err := s.itemRepo.ListByShipmentID(ctx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list shipment items: %w", err))
	}
	shipment.Items = items
	return shipment, nil
}

// saveShipment writes the header inside its own transaction.
func (s *ShipmentServiceImpl) saveShipment(ctx context.Context, shipment *domain.Shipment) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.shipmentRepo.Update(ctx, dbTx, shipment); err != nil {
		return err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}
