package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Nakkasenp65/register-item-delivery/internal/service"
	"github.com/Nakkasenp65/register-item-delivery/pkg/response"
)

// MessageHandler chat summary endpoints
type MessageHandler struct {
	messageSvc service.MessageService
}

// NewMessageHandler creates a MessageHandler
func NewMessageHandler(messageSvc service.MessageService) *MessageHandler {
	return &MessageHandler{messageSvc: messageSvc}
}

// Summary returns the Flex message for liff.sendMessages
// GET /api/v1/deliveries/:id/summary
func (h *MessageHandler) Summary(c *gin.Context) {
	msg, err := h.messageSvc.BuildSummary(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleMessageError(c, err)
		return
	}

	response.OK(c, msg)
}

// Push sends the summary from the server to the record's owner. Only the
// owner, identified by a verified LIFF ID token, may trigger it.
// POST /api/v1/deliveries/:id/summary/push
func (h *MessageHandler) Push(c *gin.Context) {
	caller, ok := GetLineUserID(c)
	if !ok {
		response.Unauthorized(c, 10002, "LIFF ID token required")
		return
	}

	if err := h.messageSvc.PushSummary(c.Request.Context(), c.Param("id"), caller); err != nil {
		h.handleMessageError(c, err)
		return
	}

	response.OK(c, nil)
}

func (h *MessageHandler) handleMessageError(c *gin.Context, err error) {
	if respondValidation(c, err) {
		return
	}

	switch {
	case errors.Is(err, service.ErrDeliveryNotFound):
		response.NotFound(c, 20001, "delivery not found")
	case errors.Is(err, service.ErrRecipientMismatch):
		response.Forbidden(c, 10003, "delivery belongs to another LINE user")
	case errors.Is(err, service.ErrNoRecipient):
		response.BadRequest(c, 20004, "delivery has no LINE recipient")
	case errors.Is(err, service.ErrMessagingDisabled):
		response.Error(c, http.StatusServiceUnavailable, 20005, "server-side messaging is not configured")
	default:
		response.InternalError(c)
	}
}
