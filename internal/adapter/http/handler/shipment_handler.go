package handler

import (
	"fmt"
	"strconv"
	"time"

	"commerce-core/internal/adapter/http/dto"
	"commerce-core/internal/core/domain"
	"commerce-core/internal/core/ports"
	"commerce-core/pkg/apperror"
	"commerce-core/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ShipmentHandler handles shipment lifecycle endpoints.
type ShipmentHandler struct {
	shipmentSvc ports.ShipmentService
}

// NewShipmentHandler creates a new ShipmentHandler.
func NewShipmentHandler(shipmentSvc ports.ShipmentService) *ShipmentHandler {
	return &ShipmentHandler{shipmentSvc: shipmentSvc}
}

// Create handles POST /api/v1/shipments.
func (h *ShipmentHandler) Create(c *gin.Context) {
	var req dto.CreateShipmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}
	dto.SanitizeStruct(&req)

	items := make([]domain.ShipmentItemInput, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, domain.ShipmentItemInput{
			OrderItemID: it.OrderItemID,
			Qty:         it.Qty,
			GiftWrap:    it.GiftWrap,
			GiftMessage: it.GiftMessage,
		})
	}

	shipment, err := h.shipmentSvc.CreateShipment(c.Request.Context(), ports.CreateShipmentInput{
		OrderID:     req.OrderID,
		Carrier:     req.Carrier,
		Service:     req.Service,
		LabelURL:    req.LabelURL,
		IsGift:      req.IsGift,
		GiftMessage: req.GiftMessage,
		Items:       items,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.FromShipment(shipment))
}

// Get handles GET /api/v1/shipments/:id.
func (h *ShipmentHandler) Get(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	shipment, err := h.shipmentSvc.GetShipment(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromShipment(shipment))
}

// UpdateStatus handles PATCH /api/v1/shipments/:id/status.
func (h *ShipmentHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateShipmentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}

	shipment, err := h.shipmentSvc.UpdateShipmentStatus(c.Request.Context(), id, domain.ShipmentStatus(req.Status))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromShipment(shipment))
}

// UpdateDetails handles PATCH /api/v1/shipments/:id.
func (h *ShipmentHandler) UpdateDetails(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.UpdateShipmentDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}
	dto.SanitizeStruct(&req)

	shipment, err := h.shipmentSvc.UpdateShipmentDetails(c.Request.Context(), id, ports.UpdateShipmentDetailsInput{
		Carrier:     req.Carrier,
		Service:     req.Service,
		LabelURL:    req.LabelURL,
		IsGift:      req.IsGift,
		GiftMessage: req.GiftMessage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromShipment(shipment))
}

// AddItem handles POST /api/v1/shipments/:id/items.
func (h *ShipmentHandler) AddItem(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req dto.ShipmentItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}
	dto.SanitizeStruct(&req)

	shipment, err := h.shipmentSvc.AddShipmentItem(c.Request.Context(), id, domain.ShipmentItemInput{
		OrderItemID: req.OrderItemID,
		Qty:         req.Qty,
		GiftWrap:    req.GiftWrap,
		GiftMessage: req.GiftMessage,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromShipment(shipment))
}

// UpdateItem handles PATCH /api/v1/shipments/:id/items/:orderItemId.
func (h *ShipmentHandler) UpdateItem(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	orderItemID := c.Param("orderItemId")

	var req dto.UpdateShipmentItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindingError(c, err)
		return
	}
	dto.SanitizeStruct(&req)

	shipment, err := h.shipmentSvc.UpdateShipmentItem(c.Request.Context(), id, orderItemID, req.Qty, req.GiftWrap, req.GiftMessage)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromShipment(shipment))
}

// RemoveItem handles DELETE /api/v1/shipments/:id/items/:orderItemId.
func (h *ShipmentHandler) RemoveItem(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	shipment, err := h.shipmentSvc.RemoveShipmentItem(c.Request.Context(), id, c.Param("orderItemId"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromShipment(shipment))
}

// List handles GET /api/v1/shipments.
func (h *ShipmentHandler) List(c *gin.Context) {
	params, err := parseShipmentListParams(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	page, err := h.shipmentSvc.ListShipments(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.ShipmentResponse, 0, len(page.Shipments))
	for i := range page.Shipments {
		items = append(items, dto.FromShipment(&page.Shipments[i]))
	}

	response.OK(c, dto.ShipmentListResponse{
		Items:  items,
		Total:  page.Total,
		Limit:  params.Limit,
		Offset: params.Offset,
	})
}

// Delete handles DELETE /api/v1/shipments/:id.
func (h *ShipmentHandler) Delete(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.shipmentSvc.DeleteShipment(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// parseShipmentListParams reads the list filters from query string.
func parseShipmentListParams(c *gin.Context) (ports.ShipmentListParams, error) {
	params := ports.ShipmentListParams{
		SortBy:   c.Query("sort_by"),
		SortDesc: c.Query("order") == "desc",
	}

	if v := c.Query("order_id"); v != "" {
		params.OrderID = &v
	}
	if v := c.Query("carrier"); v != "" {
		params.Carrier = &v
	}
	if v := c.Query("status"); v != "" {
		status := domain.ShipmentStatus(v)
		if !status.IsValid() {
			return params, apperror.Validation(fmt.Sprintf("unknown shipment status %q", v))
		}
		params.Status = &status
	}
	if v := c.Query("created_from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return params, apperror.Validation("created_from must be RFC3339")
		}
		params.CreatedFrom = &t
	}
	if v := c.Query("created_to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return params, apperror.Validation("created_to must be RFC3339")
		}
		params.CreatedTo = &t
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return params, apperror.Validation("limit must be a non-negative integer")
		}
		params.Limit = n
	}
	if v := c.Query("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return params, apperror.Validation("offset must be a non-negative integer")
		}
		params.Offset = n
	}

	return params, nil
}

// parseUUIDParam extracts a UUID path parameter, writing a validation error
// response on failure.
func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Error(c, apperror.Validation(fmt.Sprintf("%s must be a valid UUID", name)))
		return uuid.Nil, false
	}
	return id, true
}

// bindingError maps a gin binding failure to the error envelope. Validator
// failures carry the per-field list, everything else a plain message.
func bindingError(c *gin.Context, err error) {
	if vErrs, ok := err.(validator.ValidationErrors); ok {
		msgs := make([]string, 0, len(vErrs))
		for _, fe := range vErrs {
			msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
		}
		response.ValidationFailed(c, msgs)
		return
	}
	response.Error(c, apperror.Validation(err.Error()))
}
