package email

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/calipso-dynamics/notification-api/internal/handler"
	"github.com/calipso-dynamics/notification-api/internal/model"
	"github.com/calipso-dynamics/notification-api/internal/service/email"
	"github.com/calipso-dynamics/notification-api/internal/service/operation"
	apperr "github.com/calipso-dynamics/notification-api/pkg/errors"
)

// Renderer produces the optional PDF attachment before the send starts.
type Renderer interface {
	Render(ctx context.Context, req model.PdfRequest) ([]byte, error)
}

type Handler struct {
	emails   *email.Service
	ops      operation.Service
	renderer Renderer
}

func NewHandler(emails *email.Service, ops operation.Service, renderer Renderer) *Handler {
	return &Handler{emails: emails, ops: ops, renderer: renderer}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	grp := r.Group("/email")
	{
		grp.POST("/send-unified", h.SendUnified)
		grp.GET("/status/:op_id", h.Status)
	}
}

type sendUnifiedResponse struct {
	Success     bool   `json:"success"`
	OperationID string `json:"operation_id"`
	Message     string `json:"message"`
}

// SendUnified creates the operation row, renders the optional PDF inline,
// then hands off to the sender (detached when async_send is set).
func (h *Handler) SendUnified(c *gin.Context) {
	var req model.SendUniversalEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, apperr.BadRequest(err.Error()))
		return
	}

	meta, _ := json.Marshal(map[string]any{
		"recipients":        len(req.Recipients),
		"subject":           req.Subject,
		"pdf_planned":       req.PDFHTML != nil,
		"other_attachments": len(req.OtherAttachments),
	})
	metaStr := string(meta)

	op, err := h.ops.Create(c.Request.Context(), model.OperationTypeSendUnifiedEmail, req.AsyncSend, &metaStr)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	attachments, err := h.buildAttachments(c.Request.Context(), &req)
	if err != nil {
		if ferr := h.ops.MarkFailed(c.Request.Context(), op.ID, err.Error()); ferr != nil {
			log.Error().Err(ferr).Str("operation_id", op.ID).Msg("failed to mark operation failed")
		}
		handler.RespondErrorForOperation(c, op.ID, err)
		return
	}

	if err := h.emails.SendUnified(c.Request.Context(), op.ID, req, attachments); err != nil {
		handler.RespondErrorForOperation(c, op.ID, err)
		return
	}

	message := "email sent"
	if req.AsyncSend {
		message = "email queued for async processing"
	}
	c.JSON(http.StatusOK, sendUnifiedResponse{
		Success:     true,
		OperationID: op.ID,
		Message:     message,
	})
}

func (h *Handler) buildAttachments(ctx context.Context, req *model.SendUniversalEmailRequest) ([]model.Attachment, error) {
	attachments := []model.Attachment{}

	if req.PDFHTML != nil {
		name := "document.pdf"
		if req.PDFAttachmentName != nil && *req.PDFAttachmentName != "" {
			name = *req.PDFAttachmentName
		}

		data, err := h.renderer.Render(ctx, model.PdfRequest{
			FileName:       name,
			HTML:           *req.PDFHTML,
			Orientation:    req.PDFOrientation,
			PageSizePreset: req.PDFPageSizePreset,
			CustomPageSize: req.PDFCustomPageSize,
			Margins:        req.PDFMargins,
			Scale:          req.PDFScale,
		})
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, model.Attachment{
			Filename:    name,
			ContentType: "application/pdf",
			Data:        data,
		})
	}

	return append(attachments, req.OtherAttachments...), nil
}

type statusResponse struct {
	Success bool                       `json:"success"`
	Status  *model.EmailStatusResponse `json:"status"`
}

// Status reports the audit-row outcome for one email operation.
func (h *Handler) Status(c *gin.Context) {
	status, err := h.emails.GetEmailStatus(c.Request.Context(), c.Param("op_id"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, statusResponse{Success: true, Status: status})
}
