package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"wayfare/api/internal/apperr"
	"wayfare/api/internal/service"
)

const authContextKey = "auth_context"

// Auth validates the bearer token and attaches the live auth context. Role
// and status come from the database on every request, never from the token.
func Auth(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			abortWithError(c, apperr.Unauthorized("missing bearer token"))
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		actor, err := auth.Authorize(c.Request.Context(), tokenStr)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.Set(authContextKey, actor)
		c.Next()
	}
}

// Actor returns the auth context set by Auth; the zero value means the
// request is anonymous.
func Actor(c *gin.Context) (service.AuthContext, bool) {
	val, exists := c.Get(authContextKey)
	if !exists {
		return service.AuthContext{}, false
	}
	actor, ok := val.(service.AuthContext)
	return actor, ok
}

func abortWithError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case apperr.KindUnauthorized:
		status = http.StatusUnauthorized
	case apperr.KindForbidden:
		status = http.StatusForbidden
	}

	message := "internal error"
	var appErr *apperr.Error
	if errors.As(err, &appErr) && status != http.StatusInternalServerError {
		message = appErr.Message
	}

	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{
		"code":    string(kind),
		"message": message,
	}})
}
