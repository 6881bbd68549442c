package notification

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/calipso-dynamics/notification-api/internal/handler"
	"github.com/calipso-dynamics/notification-api/internal/model"
	"github.com/calipso-dynamics/notification-api/internal/service/notification"
	"github.com/calipso-dynamics/notification-api/internal/service/operation"
	apperr "github.com/calipso-dynamics/notification-api/pkg/errors"
)

type Handler struct {
	ops        operation.Service
	dispatcher *notification.Service
}

func NewHandler(ops operation.Service, dispatcher *notification.Service) *Handler {
	return &Handler{ops: ops, dispatcher: dispatcher}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/notifications/send", h.Send)
}

// Send creates the operation row and dispatches the fan-out, either inline
// or detached depending on async_send.
func (h *Handler) Send(c *gin.Context) {
	var req model.NotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, apperr.BadRequest(err.Error()))
		return
	}

	meta, _ := json.Marshal(map[string]any{
		"channels":          req.Channels,
		"subject":           req.Subject,
		"pdf_planned":       req.PDFHTML != nil,
		"other_attachments": len(req.OtherAttachments),
	})
	metaStr := string(meta)

	op, err := h.ops.Create(c.Request.Context(), model.OperationTypeSendNotification, req.AsyncSend, &metaStr)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	if req.AsyncSend {
		h.dispatcher.ProcessAsync(op.ID, req)
		c.JSON(http.StatusOK, model.NotificationResponse{
			Success:     true,
			OperationID: op.ID,
			Message:     "notification queued for async processing",
		})
		return
	}

	if err := h.dispatcher.Process(c.Request.Context(), op.ID, req); err != nil {
		// Terminal statuses are already persisted by the dispatcher.
		log.Error().Err(err).Str("operation_id", op.ID).Msg("notification dispatch failed")
		handler.RespondErrorForOperation(c, op.ID, err)
		return
	}

	c.JSON(http.StatusOK, model.NotificationResponse{
		Success:     true,
		OperationID: op.ID,
		Message:     "notification processed",
	})
}
