package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orbitcart/auth-service/internal/domain/models"
)

// RequireRole admits only callers with exactly the given role. Runs after
// Authenticate.
func RequireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := Identity(c)
		if identity == nil || identity.Role != role {
			abortForbidden(c)
			return
		}
		c.Next()
	}
}

// RequireAtLeast admits callers whose role is at or above min in the total
// order user < admin.
func RequireAtLeast(min models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := Identity(c)
		if identity == nil || !identity.Role.AtLeast(min) {
			abortForbidden(c)
			return
		}
		c.Next()
	}
}

func abortForbidden(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": gin.H{
		"code":    "FORBIDDEN",
		"message": "insufficient privileges",
	}})
}
