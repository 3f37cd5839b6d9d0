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

// MeHandler serves the authenticated self-service endpoints: profile,
// password and session management.
type MeHandler struct {
	users    *service.UserService
	auth     *service.AuthService
	sessions *service.SessionService
	logger   *zap.Logger
}

func NewMeHandler(users *service.UserService, auth *service.AuthService, sessions *service.SessionService, logger *zap.Logger) *MeHandler {
	return &MeHandler{users: users, auth: auth, sessions: sessions, logger: logger}
}

func (h *MeHandler) GetProfile(c *gin.Context) {
	identity := middleware.Identity(c)
	profile, err := h.users.GetProfile(c.Request.Context(), identity.UserID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": profile})
}

type updateProfileRequest struct {
	FullName string  `json:"full_name" binding:"required,max=255"`
	Phone    *string `json:"phone" binding:"omitempty,max=32"`
}

func (h *MeHandler) UpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid profile payload")
		return
	}

	identity := middleware.Identity(c)
	profile, err := h.users.UpdateProfile(c.Request.Context(), identity.UserID, req.FullName, req.Phone)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": profile})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=128"`
}

func (h *MeHandler) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid password payload")
		return
	}

	identity := middleware.Identity(c)
	if err := h.auth.ChangePassword(c.Request.Context(), identity.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *MeHandler) ListSessions(c *gin.Context) {
	identity := middleware.Identity(c)
	sessions, err := h.sessions.ListSessions(c.Request.Context(), identity.UserID, identity.SessionID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (h *MeHandler) RevokeSession(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, h.logger, domainErrors.ErrNotFound)
		return
	}

	identity := middleware.Identity(c)
	if err := h.sessions.RevokeSession(c.Request.Context(), identity.UserID, sessionID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
