package handler

import (
	"github.com/gin-gonic/gin"

	apperr "github.com/calipso-dynamics/notification-api/pkg/errors"
)

// Registerer is implemented by every resource handler and consumed by the
// router when assembling the authenticated /api group.
type Registerer interface {
	RegisterRoutes(r *gin.RouterGroup)
}

// ErrorResponse is the uniform failure envelope. OperationID is set when the
// failing request already created an operation row the caller can inspect.
type ErrorResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	OperationID string `json:"operation_id,omitempty"`
}

// RespondError maps the error's application code to an HTTP status and
// writes the failure envelope.
func RespondError(c *gin.Context, err error) {
	c.JSON(apperr.StatusFor(err), ErrorResponse{
		Success: false,
		Message: err.Error(),
	})
}

// RespondErrorForOperation is RespondError with the operation id attached.
func RespondErrorForOperation(c *gin.Context, operationID string, err error) {
	c.JSON(apperr.StatusFor(err), ErrorResponse{
		Success:     false,
		Message:     err.Error(),
		OperationID: operationID,
	})
}
