package domain

import (
	"time"

	"commerce-core/pkg/apperror"

	"github.com/google/uuid"
)

// ShipmentStatus represents the lifecycle state of a shipment.
type ShipmentStatus string

const (
	ShipmentStatusCreated   ShipmentStatus = "created"
	ShipmentStatusInTransit ShipmentStatus = "in_transit"
	ShipmentStatusDelivered ShipmentStatus = "delivered"
	ShipmentStatusCancelled ShipmentStatus = "cancelled"
)

// shipmentTransitions is the complete adjacency table. Any pair not listed
// here is rejected.
var shipmentTransitions = map[ShipmentStatus][]ShipmentStatus{
	ShipmentStatusCreated:   {ShipmentStatusInTransit, ShipmentStatusCancelled},
	ShipmentStatusInTransit: {ShipmentStatusDelivered, ShipmentStatusCancelled},
	ShipmentStatusDelivered: {},
	ShipmentStatusCancelled: {},
}

// CanTransitionTo reports whether the move from s to target is allowed.
func (s ShipmentStatus) CanTransitionTo(target ShipmentStatus) bool {
	for _, allowed := range shipmentTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are possible.
func (s ShipmentStatus) IsTerminal() bool {
	return len(shipmentTransitions[s]) == 0
}

// IsValid reports whether s is a known status value.
func (s ShipmentStatus) IsValid() bool {
	_, ok := shipmentTransitions[s]
	return ok
}

// ShipmentItem is one order-item-quantity pair within a shipment.
// Uniquely identified by (ShipmentID, OrderItemID).
type ShipmentItem struct {
	ID          uuid.UUID `json:"id"`
	ShipmentID  uuid.UUID `json:"shipment_id"`
	OrderItemID string    `json:"order_item_id"`
	Qty         int       `json:"qty"`
	GiftWrap    bool      `json:"gift_wrap"`
	GiftMessage *string   `json:"gift_message,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ShipmentItemInput carries the fields needed to add an item to a shipment.
type ShipmentItemInput struct {
	OrderItemID string
	Qty         int
	GiftWrap    bool
	GiftMessage *string
}

// NewShipmentItem validates and builds a shipment item.
func NewShipmentItem(shipmentID uuid.UUID, in ShipmentItemInput, now time.Time) (*ShipmentItem, error) {
	if in.OrderItemID == "" {
		return nil, apperror.Validation("orderItemId is required")
	}
	if in.Qty <= 0 {
		return nil, apperror.ErrInvalidQuantity()
	}
	return &ShipmentItem{
		ID:          uuid.New(),
		ShipmentID:  shipmentID,
		OrderItemID: in.OrderItemID,
		Qty:         in.Qty,
		GiftWrap:    in.GiftWrap,
		GiftMessage: in.GiftMessage,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Shipment is one physical shipment fulfilling part or all of an order.
// It exclusively owns its items; deleting the shipment cascades to them.
type Shipment struct {
	ID          uuid.UUID      `json:"id"`
	OrderID     string         `json:"order_id"`
	Carrier     *string        `json:"carrier,omitempty"`
	Service     *string        `json:"service,omitempty"`
	LabelURL    *string        `json:"label_url,omitempty"`
	Status      ShipmentStatus `json:"status"`
	Items       []ShipmentItem `json:"items"`
	IsGift      bool           `json:"is_gift"`
	GiftMessage *string        `json:"gift_message,omitempty"`
	ShippedAt   *time.Time     `json:"shipped_at,omitempty"`
	DeliveredAt *time.Time     `json:"delivered_at,omitempty"`
	Version     int64          `json:"-"` // optimistic concurrency counter
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// NewShipmentInput carries the fields needed to create a shipment.
type NewShipmentInput struct {
	OrderID     string
	Carrier     *string
	Service     *string
	LabelURL    *string
	IsGift      bool
	GiftMessage *string
	Items       []ShipmentItemInput
}

// NewShipment builds a shipment in the initial "created" status, with nested
// items if provided. Item validation failures reject the whole shipment.
func NewShipment(in NewShipmentInput) (*Shipment, error) {
	if in.OrderID == "" {
		return nil, apperror.Validation("orderId is required")
	}

	now := time.Now().UTC()
	s := &Shipment{
		ID:          uuid.New(),
		OrderID:     in.OrderID,
		Carrier:     in.Carrier,
		Service:     in.Service,
		LabelURL:    in.LabelURL,
		Status:      ShipmentStatusCreated,
		IsGift:      in.IsGift,
		GiftMessage: in.GiftMessage,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	for _, itemIn := range in.Items {
		item, err := NewShipmentItem(s.ID, itemIn, now)
		if err != nil {
			return nil, err
		}
		if s.findItem(itemIn.OrderItemID) != nil {
			return nil, apperror.ErrDuplicateShipmentItem(itemIn.OrderItemID)
		}
		s.Items = append(s.Items, *item)
	}

	return s, nil
}

// UpdateStatus applies a status transition. Rejected moves leave the shipment
// untouched. ShippedAt and DeliveredAt are each stamped exactly once, the
// first time the matching status is entered.
func (s *Shipment) UpdateStatus(target ShipmentStatus) error {
	if !target.IsValid() {
		return apperror.Validation("unknown shipment status: " + string(target))
	}
	if !s.Status.CanTransitionTo(target) {
		return apperror.ErrShipmentTransition(string(s.Status), string(target))
	}

	now := time.Now().UTC()
	s.Status = target
	s.UpdatedAt = now

	switch target {
	case ShipmentStatusInTransit:
		if s.ShippedAt == nil {
			s.ShippedAt = &now
		}
	case ShipmentStatusDelivered:
		if s.DeliveredAt == nil {
			s.DeliveredAt = &now
		}
	}
	return nil
}

// AddItem appends a new item to the in-memory aggregate. Duplicate
// orderItemIDs are rejected.
func (s *Shipment) AddItem(in ShipmentItemInput) (*ShipmentItem, error) {
	if s.findItem(in.OrderItemID) != nil {
		return nil, apperror.ErrDuplicateShipmentItem(in.OrderItemID)
	}
	now := time.Now().UTC()
	item, err := NewShipmentItem(s.ID, in, now)
	if err != nil {
		return nil, err
	}
	s.Items = append(s.Items, *item)
	s.UpdatedAt = now
	return item, nil
}

// RemoveItem removes the item matching orderItemID from the aggregate and
// returns it. Absent items fail with a not-found error and leave the item
// list unchanged.
func (s *Shipment) RemoveItem(orderItemID string) (*ShipmentItem, error) {
	for i := range s.Items {
		if s.Items[i].OrderItemID == orderItemID {
			removed := s.Items[i]
			s.Items = append(s.Items[:i], s.Items[i+1:]...)
			s.UpdatedAt = time.Now().UTC()
			return &removed, nil
		}
	}
	return nil, apperror.ErrShipmentItemNotFound(orderItemID)
}

// UpdateItem mutates qty/gift fields of an existing item.
func (s *Shipment) UpdateItem(orderItemID string, qty int, giftWrap bool, giftMessage *string) (*ShipmentItem, error) {
	if qty <= 0 {
		return nil, apperror.ErrInvalidQuantity()
	}
	item := s.findItem(orderItemID)
	if item == nil {
		return nil, apperror.ErrShipmentItemNotFound(orderItemID)
	}
	now := time.Now().UTC()
	item.Qty = qty
	item.GiftWrap = giftWrap
	item.GiftMessage = giftMessage
	item.UpdatedAt = now
	s.UpdatedAt = now
	return item, nil
}

// SetCarrierDetails updates the carrier/service/label fields.
func (s *Shipment) SetCarrierDetails(carrier, service, labelURL *string) {
	if carrier != nil {
		s.Carrier = carrier
	}
	if service != nil {
		s.Service = service
	}
	if labelURL != nil {
		s.LabelURL = labelURL
	}
	s.UpdatedAt = time.Now().UTC()
}

// SetGift updates the gift flag and message.
func (s *Shipment) SetGift(isGift bool, message *string) {
	s.IsGift = isGift
	s.GiftMessage = message
	s.UpdatedAt = time.Now().UTC()
}

// TotalItems returns the sum of item quantities.
func (s *Shipment) TotalItems() int {
	total := 0
	for _, item := range s.Items {
		total += item.Qty
	}
	return total
}

func (s *Shipment) findItem(orderItemID string) *ShipmentItem {
	for i := range s.Items {
		if s.Items[i].OrderItemID == orderItemID {
			return &s.Items[i]
		}
	}
	return nil
}
