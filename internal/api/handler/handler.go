package handler

import "github.com/Nakkasenp65/register-item-delivery/internal/service"

// Handler aggregate entry point for all handlers
type Handler struct {
	Location *LocationHandler
	Delivery *DeliveryHandler
	Message  *MessageHandler
	Export   *ExportHandler
}

// NewHandler builds the handler aggregate; maxSlipBytes bounds a multipart slip
func NewHandler(svc *service.Service, maxSlipBytes int64) *Handler {
	return &Handler{
		Location: NewLocationHandler(svc.Location),
		Delivery: NewDeliveryHandler(svc.Delivery, maxSlipBytes),
		Message:  NewMessageHandler(svc.Message),
		Export:   NewExportHandler(svc.Export),
	}
}
