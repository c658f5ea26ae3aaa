package handler

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/Nakkasenp65/register-item-delivery/internal/dto"
	"github.com/Nakkasenp65/register-item-delivery/internal/service"
	"github.com/Nakkasenp65/register-item-delivery/pkg/response"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportHandler staff spreadsheet export
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler creates an ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportDeliveries
// GET /api/v1/admin/deliveries/export?status=&from=&to=
func (h *ExportHandler) ExportDeliveries(c *gin.Context) {
	var req dto.ExportDeliveriesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ValidationFailed(c, 10001, "invalid export filter", "status")
		return
	}

	buf, filename, err := h.exportSvc.ExportDeliveries(c.Request.Context(), &req)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	if respondValidation(c, err) {
		return
	}
	response.InternalError(c)
}
