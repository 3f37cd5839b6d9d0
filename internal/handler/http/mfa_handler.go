package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orbitcart/auth-service/internal/handler/http/middleware"
	"github.com/orbitcart/auth-service/internal/service"
)

// MFAHandler serves the authenticated MFA management endpoints.
type MFAHandler struct {
	mfa     *service.MFAService
	cookies cookieWriter
	logger  *zap.Logger
}

func NewMFAHandler(mfa *service.MFAService, cookies cookieWriter, logger *zap.Logger) *MFAHandler {
	return &MFAHandler{mfa: mfa, cookies: cookies, logger: logger}
}

func (h *MFAHandler) StartSetup(c *gin.Context) {
	identity := middleware.Identity(c)
	setup, err := h.mfa.StartSetup(c.Request.Context(), identity.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"challenge_id": setup.ChallengeID,
		"secret":       setup.Secret,
		"otpauth_url":  setup.OTPAuthURL,
		"expires_at":   setup.ExpiresAt,
	})
}

type activateMFARequest struct {
	ChallengeID uuid.UUID `json:"challenge_id" binding:"required"`
	Code        string    `json:"code" binding:"required,len=6,numeric"`
}

func (h *MFAHandler) Activate(c *gin.Context) {
	var req activateMFARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid activation payload")
		return
	}

	identity := middleware.Identity(c)
	backupCodes, err := h.mfa.VerifySetup(c.Request.Context(), identity.UserID, req.ChallengeID, req.Code)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"backup_codes": backupCodes})
}

type disableMFARequest struct {
	Password string `json:"password" binding:"required"`
	Code     string `json:"code" binding:"required,min=6,max=16"`
}

func (h *MFAHandler) Disable(c *gin.Context) {
	var req disableMFARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid payload")
		return
	}

	identity := middleware.Identity(c)
	if err := h.mfa.Disable(c.Request.Context(), identity.UserID, req.Password, req.Code); err != nil {
		respondError(c, h.logger, err)
		return
	}
	// Every session is dead now, including the caller's.
	h.cookies.clearRefresh(c)
	h.cookies.clearDevice(c)
	c.Status(http.StatusNoContent)
}

func (h *MFAHandler) RegenerateBackupCodes(c *gin.Context) {
	identity := middleware.Identity(c)
	backupCodes, err := h.mfa.RegenerateBackupCodes(c.Request.Context(), identity.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"backup_codes": backupCodes})
}
