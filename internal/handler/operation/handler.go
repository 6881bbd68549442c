package operation

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/calipso-dynamics/notification-api/internal/handler"
	"github.com/calipso-dynamics/notification-api/internal/model"
	"github.com/calipso-dynamics/notification-api/internal/service/operation"
	apperr "github.com/calipso-dynamics/notification-api/pkg/errors"
)

type Handler struct {
	ops operation.Service
}

func NewHandler(ops operation.Service) *Handler {
	return &Handler{ops: ops}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	ops := r.Group("/operations")
	{
		ops.POST("", h.Create)
		ops.GET("", h.List)
		ops.GET("/:id", h.Get)
	}
}

// Create registers a bare operation row without triggering any processing.
func (h *Handler) Create(c *gin.Context) {
	var req model.CreateOperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.RespondError(c, apperr.BadRequest(err.Error()))
		return
	}

	op, err := h.ops.Create(c.Request.Context(), req.OperationType, req.IsAsync, req.Metadata)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.CreateOperationResponse{
		ID:      op.ID,
		Message: "operation created",
	})
}

func (h *Handler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	resp, err := h.ops.List(c.Request.Context(), page, pageSize)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Get(c *gin.Context) {
	op, err := h.ops.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, op)
}
