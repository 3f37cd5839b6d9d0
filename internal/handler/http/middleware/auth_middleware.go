package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domainErrors "github.com/orbitcart/auth-service/internal/domain/errors"
	"github.com/orbitcart/auth-service/internal/domain/models"
	"github.com/orbitcart/auth-service/internal/infrastructure/security"
	"github.com/orbitcart/auth-service/internal/service"
)

const identityKey = "auth.identity"

// Identity returns the caller resolved by Authenticate, or nil on
// unauthenticated routes.
func Identity(c *gin.Context) *models.Identity {
	value, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, ok := value.(*models.Identity)
	if !ok {
		return nil
	}
	return identity
}

// Authenticate resolves the caller from a bearer access token, falling back
// to validating the refresh cookie against the session ledger without
// rotating it. The fallback serves server-rendered flows that never held an
// access token: their backend forwards the refresh cookie explicitly on
// whatever path it calls, so the gate honors it everywhere even though the
// cookie itself is path-scoped to the auth endpoints for browsers.
func Authenticate(tokens security.TokenService, sessions *service.SessionService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			claims, err := tokens.ValidateAccessToken(token)
			if err != nil {
				abortUnauthorized(c, domainErrors.ErrInvalidToken)
				return
			}
			c.Set(identityKey, &models.Identity{
				UserID:    claims.UserID,
				Role:      claims.Role,
				SessionID: claims.SessionID,
			})
			c.Next()
			return
		}

		cookie, err := c.Cookie("refresh_token")
		if err != nil || cookie == "" {
			abortUnauthorized(c, domainErrors.ErrNoToken)
			return
		}
		identity, err := sessions.ValidateRefresh(c.Request.Context(), cookie)
		if err != nil {
			abortUnauthorized(c, err)
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return "", false
	}
	return token, true
}

func abortUnauthorized(c *gin.Context, err error) {
	c.AbortWithStatusJSON(401, gin.H{"error": gin.H{
		"code":    domainErrors.Code(err),
		"message": err.Error(),
	}})
}
