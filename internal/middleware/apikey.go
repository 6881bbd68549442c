package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/calipso-dynamics/notification-api/internal/handler"
)

const HeaderAPIKey = "X-API-Key"

// APIKeyAuth guards the /api group with a single shared key. A server that
// was started without a key refuses every guarded request rather than
// running open.
func APIKeyAuth(serverKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if serverKey == "" {
			log.Error().Str("path", c.Request.URL.Path).Msg("request rejected: service API key is not configured")
			c.AbortWithStatusJSON(http.StatusInternalServerError, handler.ErrorResponse{
				Success: false,
				Message: "service API key is not configured",
			})
			return
		}

		provided := c.GetHeader(HeaderAPIKey)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(serverKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, handler.ErrorResponse{
				Success: false,
				Message: "invalid or missing API key",
			})
			return
		}

		c.Next()
	}
}
