package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Nakkasenp65/register-item-delivery/internal/dto"
	"github.com/Nakkasenp65/register-item-delivery/internal/service"
	"github.com/Nakkasenp65/register-item-delivery/pkg/response"
)

// LocationHandler address hierarchy lookups
type LocationHandler struct {
	locationSvc service.LocationService
}

// NewLocationHandler creates a LocationHandler
func NewLocationHandler(locationSvc service.LocationService) *LocationHandler {
	return &LocationHandler{locationSvc: locationSvc}
}

// ListProvinces
// GET /api/v1/locations/provinces
func (h *LocationHandler) ListProvinces(c *gin.Context) {
	var req dto.LocationSearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "invalid query parameters")
		return
	}

	list, err := h.locationSvc.ListProvinces(c.Request.Context(), &req)
	if err != nil {
		h.handleLocationError(c, err)
		return
	}

	response.OKList(c, list, len(list))
}

// ListDistricts
// GET /api/v1/locations/provinces/:provinceId/districts
func (h *LocationHandler) ListDistricts(c *gin.Context) {
	provinceID, ok := pathID(c, "provinceId")
	if !ok {
		return
	}

	var req dto.LocationSearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "invalid query parameters")
		return
	}

	list, err := h.locationSvc.ListDistricts(c.Request.Context(), provinceID, &req)
	if err != nil {
		h.handleLocationError(c, err)
		return
	}

	response.OKList(c, list, len(list))
}

// ListSubDistricts
// GET /api/v1/locations/provinces/:provinceId/districts/:districtId/sub-districts
func (h *LocationHandler) ListSubDistricts(c *gin.Context) {
	provinceID, ok := pathID(c, "provinceId")
	if !ok {
		return
	}
	districtID, ok := pathID(c, "districtId")
	if !ok {
		return
	}

	var req dto.LocationSearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "invalid query parameters")
		return
	}

	list, err := h.locationSvc.ListSubDistricts(c.Request.Context(), provinceID, districtID, &req)
	if err != nil {
		h.handleLocationError(c, err)
		return
	}

	response.OKList(c, list, len(list))
}

// ListPostalCodes suggestions for a typed postal-code prefix
// GET /api/v1/locations/postal-codes?prefix=
func (h *LocationHandler) ListPostalCodes(c *gin.Context) {
	var req dto.PostalCodeListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "invalid query parameters")
		return
	}

	list, err := h.locationSvc.ListPostalCodesByPrefix(c.Request.Context(), &req)
	if err != nil {
		h.handleLocationError(c, err)
		return
	}

	response.OKList(c, list, len(list))
}

// ResolvePostalCode
// GET /api/v1/locations/postal-codes/resolve
func (h *LocationHandler) ResolvePostalCode(c *gin.Context) {
	var req dto.ResolvePostalCodeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ValidationFailed(c, 10001, "province_id, district_id and sub_district_id are required", "sub_district_id")
		return
	}

	res, err := h.locationSvc.ResolvePostalCode(c.Request.Context(), &req)
	if err != nil {
		h.handleLocationError(c, err)
		return
	}

	response.OK(c, res)
}

// handleLocationError location module error switch
func (h *LocationHandler) handleLocationError(c *gin.Context, err error) {
	if respondValidation(c, err) {
		return
	}
	response.InternalError(c)
}

// pathID parses a positive integer path parameter, writing 400 on failure
func pathID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		response.ValidationFailed(c, 10001, name+" must be a positive integer", name)
		return 0, false
	}
	return id, true
}
