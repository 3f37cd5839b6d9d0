package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/orbitcart/auth-service/internal/config"
	"github.com/orbitcart/auth-service/internal/domain/models"
	"github.com/orbitcart/auth-service/internal/handler/http/middleware"
	"github.com/orbitcart/auth-service/internal/infrastructure/ratelimit"
	"github.com/orbitcart/auth-service/internal/infrastructure/security"
	"github.com/orbitcart/auth-service/internal/service"
)

// RouterDeps carries everything the HTTP surface needs.
type RouterDeps struct {
	Config   *config.Config
	Logger   *zap.Logger
	Tokens   security.TokenService
	Limiter  *ratelimit.RedisRateLimiter
	Auth     *service.AuthService
	Sessions *service.SessionService
	MFA      *service.MFAService
	Devices  *service.TrustedDeviceService
	Users    *service.UserService
	Flags    config.FlagStore
	Health   *HealthHandler
}

// NewRouter builds the gin engine with the full route surface.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Logging.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		middleware.Recovery(deps.Logger),
		middleware.RequestLogger(deps.Logger),
		middleware.Metrics(),
	)
	if deps.Config.Telemetry.Tracing.Enabled {
		router.Use(middleware.Tracing(deps.Config.Telemetry.ServiceName))
	}
	if deps.Config.Server.PublicBaseURL != "" {
		router.Use(middleware.CORS(deps.Config.Server.PublicBaseURL))
	}

	cookies := newCookieWriter(deps.Config.Server)
	authHandler := NewAuthHandler(deps.Auth, deps.Sessions, deps.MFA, cookies, deps.Config.TrustedDevice, deps.Logger)
	meHandler := NewMeHandler(deps.Users, deps.Auth, deps.Sessions, deps.Logger)
	mfaHandler := NewMFAHandler(deps.MFA, cookies, deps.Logger)
	deviceHandler := NewDeviceHandler(deps.Devices, cookies, deps.Logger)
	adminHandler := NewAdminHandler(deps.Flags, deps.Logger)

	authenticated := middleware.Authenticate(deps.Tokens, deps.Sessions, deps.Logger)
	limits := deps.Config.Security.RateLimiting

	router.GET("/healthz", deps.Health.Liveness)
	router.GET("/readyz", deps.Health.Readiness)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")

	auth := v1.Group("/auth")
	{
		auth.POST("/register",
			middleware.RateLimit(deps.Limiter, "register", limits.RegisterIP, deps.Logger),
			authHandler.Register)
		auth.POST("/login",
			middleware.RateLimit(deps.Limiter, "login", limits.LoginIP, deps.Logger),
			authHandler.Login)
		auth.POST("/refresh",
			middleware.RateLimit(deps.Limiter, "refresh", limits.RefreshIP, deps.Logger),
			authHandler.Refresh)
		auth.POST("/logout", authHandler.Logout)
		auth.POST("/logout-all", authenticated, authHandler.LogoutAll)
		auth.POST("/mfa/verify",
			middleware.RateLimit(deps.Limiter, "mfa", limits.MFAVerify, deps.Logger),
			authHandler.VerifyMFA)
		auth.POST("/verify-email", authHandler.VerifyEmail)
		auth.POST("/resend-verification",
			middleware.RateLimit(deps.Limiter, "resend", limits.PasswordReset, deps.Logger),
			authHandler.ResendVerification)
		auth.POST("/forgot-password",
			middleware.RateLimit(deps.Limiter, "forgot", limits.PasswordReset, deps.Logger),
			authHandler.ForgotPassword)
		auth.POST("/reset-password",
			middleware.RateLimit(deps.Limiter, "reset", limits.PasswordReset, deps.Logger),
			authHandler.ResetPassword)
	}

	me := v1.Group("/me", authenticated)
	{
		me.GET("", meHandler.GetProfile)
		me.PATCH("", meHandler.UpdateProfile)
		me.POST("/password", meHandler.ChangePassword)
		me.GET("/sessions", meHandler.ListSessions)
		me.DELETE("/sessions/:id", meHandler.RevokeSession)

		me.POST("/mfa/setup", mfaHandler.StartSetup)
		me.POST("/mfa/activate", mfaHandler.Activate)
		me.POST("/mfa/disable", mfaHandler.Disable)
		me.POST("/mfa/backup-codes", mfaHandler.RegenerateBackupCodes)

		me.GET("/devices", deviceHandler.List)
		me.DELETE("/devices/:id", deviceHandler.Revoke)
		me.DELETE("/devices", deviceHandler.RevokeAll)
		me.POST("/devices/untrust", deviceHandler.UntrustCurrent)
	}

	admin := v1.Group("/admin", authenticated, middleware.RequireAtLeast(models.RoleAdmin))
	{
		admin.PUT("/flags/fingerprint-enforcement", adminHandler.SetFingerprintEnforcement)
	}

	return router
}
