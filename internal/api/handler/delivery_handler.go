package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Nakkasenp65/register-item-delivery/internal/dto"
	"github.com/Nakkasenp65/register-item-delivery/internal/service"
	"github.com/Nakkasenp65/register-item-delivery/pkg/response"
)

// DeliveryHandler delivery record endpoints
type DeliveryHandler struct {
	deliverySvc  service.DeliveryService
	maxSlipBytes int64
}

// NewDeliveryHandler creates a DeliveryHandler
func NewDeliveryHandler(deliverySvc service.DeliveryService, maxSlipBytes int64) *DeliveryHandler {
	return &DeliveryHandler{deliverySvc: deliverySvc, maxSlipBytes: maxSlipBytes}
}

// Create registers a delivery.
// POST /api/v1/deliveries
// Accepts multipart/form-data with a JSON "data" field and an optional
// "file" slip, or a plain JSON body without a slip.
func (h *DeliveryHandler) Create(c *gin.Context) {
	var (
		req  dto.CreateDeliveryRequest
		slip *dto.SlipFile
	)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		if _, err := c.MultipartForm(); err != nil {
			if !respondTooLarge(c, err) {
				response.BadRequest(c, 10001, "invalid multipart body")
			}
			return
		}
		data := c.PostForm("data")
		if data == "" {
			response.ValidationFailed(c, 10001, "data is required", "data")
			return
		}
		if err := json.Unmarshal([]byte(data), &req); err != nil {
			response.ValidationFailed(c, 10001, "data must be a JSON object", "data")
			return
		}

		var ok bool
		slip, ok = h.readSlip(c)
		if !ok {
			return
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		if !respondTooLarge(c, err) {
			response.BadRequest(c, 10001, "invalid request body")
		}
		return
	}

	if uid, ok := GetLineUserID(c); ok {
		req.LineUserID = uid
	}

	res, err := h.deliverySvc.Create(c.Request.Context(), &req, slip)
	if err != nil {
		h.handleDeliveryError(c, err)
		return
	}

	response.Created(c, res)
}

// readSlip reads the optional "file" part; nil when absent
func (h *DeliveryHandler) readSlip(c *gin.Context) (*dto.SlipFile, bool) {
	fh, err := c.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, true
	}
	if err != nil {
		response.ValidationFailed(c, 10001, "file could not be read", "file")
		return nil, false
	}
	if h.maxSlipBytes > 0 && fh.Size > h.maxSlipBytes {
		response.ValidationFailed(c, 10001, "file is too large", "file")
		return nil, false
	}

	f, err := fh.Open()
	if err != nil {
		response.ValidationFailed(c, 10001, "file could not be read", "file")
		return nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		response.ValidationFailed(c, 10001, "file could not be read", "file")
		return nil, false
	}

	return &dto.SlipFile{
		Data:        data,
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
	}, true
}

// Get
// GET /api/v1/deliveries/:id
func (h *DeliveryHandler) Get(c *gin.Context) {
	res, err := h.deliverySvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleDeliveryError(c, err)
		return
	}

	response.OK(c, res)
}

// Update partial update of contact and address fields
// PUT /api/v1/deliveries/:id
func (h *DeliveryHandler) Update(c *gin.Context) {
	var req dto.UpdateDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "invalid request body")
		return
	}

	res, err := h.deliverySvc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.handleDeliveryError(c, err)
		return
	}

	response.OK(c, res)
}

// UpdateAddress address edit by hierarchy selection
// PUT /api/v1/deliveries/:id/address
func (h *DeliveryHandler) UpdateAddress(c *gin.Context) {
	var req dto.UpdateAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "invalid request body")
		return
	}

	res, err := h.deliverySvc.UpdateAddress(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.handleDeliveryError(c, err)
		return
	}

	response.OK(c, res)
}

// Find by identifier and/or phone, newest first
// GET  /api/v1/find?line_user_id=&phone=
// POST /api/v1/find
func (h *DeliveryHandler) Find(c *gin.Context) {
	var req dto.FindDeliveryRequest
	if c.Request.Method == http.MethodPost {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, 10001, "invalid request body")
			return
		}
	} else if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "invalid query parameters")
		return
	}

	if uid, ok := GetLineUserID(c); ok {
		req.LineUserID = uid
	}

	list, err := h.deliverySvc.Find(c.Request.Context(), &req)
	if err != nil {
		h.handleDeliveryError(c, err)
		return
	}
	if len(list) == 0 {
		response.EmptyList(c, 20001, "no delivery found")
		return
	}

	response.OKList(c, list, len(list))
}

// Current the newest record for an identifier
// GET /api/v1/find/current?line_user_id=
func (h *DeliveryHandler) Current(c *gin.Context) {
	lineUserID := c.Query("line_user_id")
	if uid, ok := GetLineUserID(c); ok {
		lineUserID = uid
	}

	res, err := h.deliverySvc.GetCurrent(c.Request.Context(), lineUserID)
	if err != nil {
		h.handleDeliveryError(c, err)
		return
	}

	response.OK(c, res)
}

// UpdateStatus staff status change
// PATCH /api/v1/admin/deliveries/:id/status
func (h *DeliveryHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationFailed(c, 10001, "status must be one of pending, shipped, delivered, cancelled", "status")
		return
	}

	res, err := h.deliverySvc.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		h.handleDeliveryError(c, err)
		return
	}

	response.OK(c, res)
}

// handleDeliveryError delivery module error switch
func (h *DeliveryHandler) handleDeliveryError(c *gin.Context, err error) {
	if respondValidation(c, err) {
		return
	}

	switch {
	case errors.Is(err, service.ErrDeliveryNotFound):
		response.NotFound(c, 20001, "delivery not found")
	case errors.Is(err, service.ErrSlipRejected):
		response.ValidationFailed(c, 20002, err.Error(), "file")
	case errors.Is(err, service.ErrInvalidStatusTransition):
		response.Error(c, http.StatusConflict, 20003, "status transition not allowed")
	default:
		response.InternalError(c)
	}
}
