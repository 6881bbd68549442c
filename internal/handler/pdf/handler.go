package pdf

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/calipso-dynamics/notification-api/internal/handler"
	"github.com/calipso-dynamics/notification-api/internal/model"
	apperr "github.com/calipso-dynamics/notification-api/pkg/errors"
)

// Renderer is the converter surface the handler needs.
type Renderer interface {
	Render(ctx context.Context, req model.PdfRequest) ([]byte, error)
}

type Handler struct {
	renderer Renderer
}

func NewHandler(renderer Renderer) *Handler {
	return &Handler{renderer: renderer}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/pdf", h.Generate)
}

// Generate renders the posted HTML and streams the PDF back inline.
func (h *Handler) Generate(c *gin.Context) {
	var req model.PdfRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, apperr.BadRequest(err.Error()))
		return
	}

	if req.Orientation != nil && !req.Orientation.Valid() {
		handler.RespondError(c, apperr.BadRequest(fmt.Sprintf("unknown orientation %q", *req.Orientation)))
		return
	}
	if req.PageSizePreset != nil && !req.PageSizePreset.Valid() {
		handler.RespondError(c, apperr.BadRequest(fmt.Sprintf("unknown page size preset %q", *req.PageSizePreset)))
		return
	}

	data, err := h.renderer.Render(c.Request.Context(), req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	name := req.FileName
	if name == "" {
		name = "document.pdf"
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", name))
	c.Data(http.StatusOK, "application/pdf", data)
}
