package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	"github.com/tsdip/backend/pkg/response"
)

// APIToken guards the manager surface with a shared-secret header check.
// Requests must carry the configured token in x-api-token.
func APIToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader("x-api-token")
		if token == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			response.Forbidden(c, "API token is invalid")
			c.Abort()
			return
		}
		c.Next()
	}
}
