package middleware

import (
	"github.com/gin-gonic/gin"

	"wayfare/api/internal/apperr"
	"wayfare/api/internal/models"
	"wayfare/api/internal/service"
)

// RequireRoles gates a route on the live role attached by Auth.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := Actor(c)
		if !ok {
			abortWithError(c, apperr.Unauthorized("authentication required"))
			return
		}

		if !service.RequireRole(actor, roles...) {
			abortWithError(c, apperr.Forbidden("insufficient role"))
			return
		}

		c.Next()
	}
}
