package http

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	domainErrors "github.com/orbitcart/auth-service/internal/domain/errors"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"unauthorized", domainErrors.ErrInvalidCredentials, http.StatusUnauthorized},
		{"conflict", domainErrors.ErrDuplicateEmail, http.StatusConflict},
		{"not found", domainErrors.ErrUserNotFound, http.StatusNotFound},
		{"state violation", domainErrors.ErrPasswordReuse, http.StatusUnprocessableEntity},
		{"forbidden", domainErrors.ErrForbidden, http.StatusForbidden},
		{"wrapped forbidden", fmt.Errorf("revoke session: %w", domainErrors.ErrForbidden), http.StatusForbidden},
		{"wrapped invalid request", fmt.Errorf("bind payload: %w", domainErrors.ErrInvalidRequest), http.StatusBadRequest},
		{"opaque storage failure", fmt.Errorf("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, zap.NewNop(), tt.err)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestRespondErrorHidesInternalDetail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	respondError(c, zap.NewNop(), fmt.Errorf("dial tcp 10.0.0.5:5432: connection refused"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.5")
	assert.Contains(t, w.Body.String(), "INTERNAL")
}
