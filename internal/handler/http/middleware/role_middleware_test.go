package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/orbitcart/auth-service/internal/domain/models"
)

func runWithRole(t *testing.T, role models.Role, gate gin.HandlerFunc) int {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/gated", func(c *gin.Context) {
		c.Set(identityKey, &models.Identity{UserID: uuid.New(), Role: role})
	}, gate, func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/gated", nil))
	return w.Code
}

func TestRequireRole(t *testing.T) {
	assert.Equal(t, http.StatusOK, runWithRole(t, models.RoleAdmin, RequireRole(models.RoleAdmin)))
	assert.Equal(t, http.StatusForbidden, runWithRole(t, models.RoleUser, RequireRole(models.RoleAdmin)))
	// Exact match: an admin is not "the user role".
	assert.Equal(t, http.StatusForbidden, runWithRole(t, models.RoleAdmin, RequireRole(models.RoleUser)))
}

func TestRequireAtLeast(t *testing.T) {
	assert.Equal(t, http.StatusOK, runWithRole(t, models.RoleAdmin, RequireAtLeast(models.RoleUser)))
	assert.Equal(t, http.StatusOK, runWithRole(t, models.RoleUser, RequireAtLeast(models.RoleUser)))
	assert.Equal(t, http.StatusForbidden, runWithRole(t, models.RoleUser, RequireAtLeast(models.RoleAdmin)))
	assert.Equal(t, http.StatusForbidden, runWithRole(t, models.Role("ghost"), RequireAtLeast(models.RoleUser)))
}

func TestGateWithoutIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/gated", RequireAtLeast(models.RoleUser), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/gated", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
