package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	domainErrors "github.com/orbitcart/auth-service/internal/domain/errors"
	"github.com/orbitcart/auth-service/internal/handler/http/middleware"
	"github.com/orbitcart/auth-service/internal/service"
)

// DeviceHandler serves the authenticated trusted-device management endpoints.
type DeviceHandler struct {
	devices *service.TrustedDeviceService
	cookies cookieWriter
	logger  *zap.Logger
}

func NewDeviceHandler(devices *service.TrustedDeviceService, cookies cookieWriter, logger *zap.Logger) *DeviceHandler {
	return &DeviceHandler{devices: devices, cookies: cookies, logger: logger}
}

func (h *DeviceHandler) List(c *gin.Context) {
	identity := middleware.Identity(c)
	devices, err := h.devices.List(c.Request.Context(), identity.UserID, deviceCookie(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"devices": devices})
}

func (h *DeviceHandler) Revoke(c *gin.Context) {
	deviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, h.logger, domainErrors.ErrDeviceNotFound)
		return
	}

	identity := middleware.Identity(c)
	if err := h.devices.Revoke(c.Request.Context(), identity.UserID, deviceID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *DeviceHandler) RevokeAll(c *gin.Context) {
	identity := middleware.Identity(c)
	if err := h.devices.RevokeAll(c.Request.Context(), identity.UserID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.cookies.clearDevice(c)
	c.Status(http.StatusNoContent)
}

// UntrustCurrent revokes the device behind the caller's own trust cookie.
func (h *DeviceHandler) UntrustCurrent(c *gin.Context) {
	cookie := deviceCookie(c)
	if cookie == "" {
		respondError(c, h.logger, domainErrors.ErrDeviceNotFound)
		return
	}

	identity := middleware.Identity(c)
	if err := h.devices.UntrustCurrent(c.Request.Context(), cookie, identity.UserID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.cookies.clearDevice(c)
	c.Status(http.StatusNoContent)
}
