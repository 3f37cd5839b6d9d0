package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/orbitcart/auth-service/internal/config"
)

// AdminHandler serves the runtime-flag surface.
type AdminHandler struct {
	flags  config.FlagStore
	logger *zap.Logger
}

func NewAdminHandler(flags config.FlagStore, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{flags: flags, logger: logger}
}

type fingerprintFlagRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// SetFingerprintEnforcement toggles fingerprint checking for non-admin
// trusted devices. Propagation to other instances is eventual.
func (h *AdminHandler) SetFingerprintEnforcement(c *gin.Context) {
	var req fingerprintFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		respondBadRequest(c, "invalid flag payload")
		return
	}

	if err := h.flags.SetEnforceDeviceFingerprint(c.Request.Context(), *req.Enabled); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.logger.Info("fingerprint enforcement flag updated", zap.Bool("enabled", *req.Enabled))
	c.JSON(http.StatusOK, gin.H{"enabled": *req.Enabled})
}
