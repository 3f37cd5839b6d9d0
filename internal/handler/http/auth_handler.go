package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orbitcart/auth-service/internal/config"
	"github.com/orbitcart/auth-service/internal/domain/models"
	"github.com/orbitcart/auth-service/internal/handler/http/middleware"
	"github.com/orbitcart/auth-service/internal/service"
)

// AuthHandler serves the unauthenticated credential endpoints plus logout.
type AuthHandler struct {
	auth      *service.AuthService
	sessions  *service.SessionService
	mfa       *service.MFAService
	cookies   cookieWriter
	deviceTTL config.TrustedDeviceConfig
	logger    *zap.Logger
}

func NewAuthHandler(
	auth *service.AuthService,
	sessions *service.SessionService,
	mfa *service.MFAService,
	cookies cookieWriter,
	deviceTTL config.TrustedDeviceConfig,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:      auth,
		sessions:  sessions,
		mfa:       mfa,
		cookies:   cookies,
		deviceTTL: deviceTTL,
		logger:    logger,
	}
}

type registerRequest struct {
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required,min=8,max=128"`
	FullName string  `json:"full_name" binding:"required,max=255"`
	Phone    *string `json:"phone" binding:"omitempty,max=32"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid registration payload")
		return
	}

	user, err := h.auth.Register(c.Request.Context(), req.Email, req.Password, req.FullName, req.Phone)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user_id": user.ID})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Remember bool   `json:"remember"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid login payload")
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req.Email, req.Password, req.Remember,
		deviceCookie(c), requestContext(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if result.MFARequired {
		c.JSON(http.StatusOK, gin.H{
			"mfa_required": true,
			"challenge_id": result.ChallengeID,
			"method":       "totp",
			"expires_at":   result.ExpiresAt,
		})
		return
	}

	h.issueSession(c, result.Tokens, result.User)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	presented := refreshCookie(c)
	if presented == "" {
		respondBadRequest(c, "missing refresh token")
		return
	}

	tokens, err := h.sessions.Rotate(c.Request.Context(), presented, requestContext(c))
	if err != nil {
		// The chain may be dead; make the browser drop the cookie too.
		h.cookies.clearRefresh(c)
		respondError(c, h.logger, err)
		return
	}

	h.cookies.setRefresh(c, tokens.RefreshToken, int(time.Until(tokens.ExpiresAt).Seconds()))
	c.JSON(http.StatusOK, gin.H{"access_token": tokens.AccessToken})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if presented := refreshCookie(c); presented != "" {
		h.auth.Logout(c.Request.Context(), presented)
	}
	h.cookies.clearRefresh(c)
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) LogoutAll(c *gin.Context) {
	identity := middleware.Identity(c)
	if err := h.auth.LogoutAll(c.Request.Context(), identity.UserID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.cookies.clearRefresh(c)
	h.cookies.clearDevice(c)
	c.Status(http.StatusNoContent)
}

type mfaVerifyRequest struct {
	ChallengeID    uuid.UUID `json:"challenge_id" binding:"required"`
	Code           string    `json:"code" binding:"required,min=6,max=16"`
	RememberDevice bool      `json:"remember_device"`
}

func (h *AuthHandler) VerifyMFA(c *gin.Context) {
	var req mfaVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid mfa verification payload")
		return
	}

	result, err := h.mfa.VerifyLoginChallenge(c.Request.Context(), req.ChallengeID, req.Code, req.RememberDevice)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if result.DeviceCookie != "" {
		h.cookies.setDevice(c, result.DeviceCookie, int(h.deviceTTL.TTL.Seconds()))
	}
	h.issueSession(c, result.Tokens, result.User)
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid payload")
		return
	}
	if err := h.auth.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusAccepted)
}

type resetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=128"`
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid payload")
		return
	}
	if err := h.auth.ResetPassword(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusOK)
}

type verifyEmailRequest struct {
	Token string `json:"token" binding:"required"`
}

func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req verifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid payload")
		return
	}
	if err := h.auth.VerifyEmail(c.Request.Context(), req.Token); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusOK)
}

func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid payload")
		return
	}
	if err := h.auth.ResendVerification(c.Request.Context(), req.Email); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// issueSession sets the refresh cookie scoped to the session's actual expiry
// and returns the access token with the profile.
func (h *AuthHandler) issueSession(c *gin.Context, tokens *models.TokenPair, user *models.User) {
	h.cookies.setRefresh(c, tokens.RefreshToken, int(time.Until(tokens.ExpiresAt).Seconds()))
	c.JSON(http.StatusOK, gin.H{
		"access_token": tokens.AccessToken,
		"user":         user.Profile(),
	})
}

func requestContext(c *gin.Context) models.RequestContext {
	return models.RequestContext{
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	}
}
