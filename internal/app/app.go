package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/orbitcart/auth-service/internal/config"
	"github.com/orbitcart/auth-service/internal/events"
	"github.com/orbitcart/auth-service/internal/events/kafka"
	handlerhttp "github.com/orbitcart/auth-service/internal/handler/http"
	"github.com/orbitcart/auth-service/internal/infrastructure/database"
	"github.com/orbitcart/auth-service/internal/infrastructure/database/postgres"
	"github.com/orbitcart/auth-service/internal/infrastructure/flags"
	"github.com/orbitcart/auth-service/internal/infrastructure/notification"
	"github.com/orbitcart/auth-service/internal/infrastructure/ratelimit"
	"github.com/orbitcart/auth-service/internal/infrastructure/security"
	"github.com/orbitcart/auth-service/internal/service"
	"github.com/orbitcart/auth-service/internal/utils/logger"
	"github.com/orbitcart/auth-service/internal/utils/telemetry"
	"github.com/orbitcart/auth-service/migrations"
)

// App owns every long-lived resource of the service and their shutdown order.
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	pool      *pgxpool.Pool
	redis     *redis.Client
	publisher events.Publisher
	flagStore config.FlagStore
	server    *http.Server

	shutdownTracing func(context.Context) error
}

// New wires the full dependency graph.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Environment)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}

	if cfg.Database.AutoMigrate {
		databaseURL := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			cfg.Database.User, cfg.Database.Password, cfg.Database.Host,
			cfg.Database.Port, cfg.Database.DBName, cfg.Database.SSLMode)
		if err := migrations.Up(databaseURL, logger.WithComponent(log, "migrations")); err != nil {
			return nil, err
		}
	}

	pool, err := postgres.NewDBPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	// Infrastructure.
	tokens, err := security.NewHMACTokenService(cfg.JWT)
	if err != nil {
		return nil, err
	}
	passwordSvc, err := security.NewArgon2idPasswordService(cfg.Security.PasswordHash)
	if err != nil {
		return nil, err
	}
	encryption, err := security.NewAESGCMEncryptionService(cfg.MFA.TOTPEncryptionKey)
	if err != nil {
		return nil, err
	}
	totp := security.NewTOTPService(cfg.MFA.TOTPIssuerName)
	sender := notification.NewSender(cfg.Email, logger.WithComponent(log, "email"))
	limiter := ratelimit.NewRedisRateLimiter(redisClient)

	flagStore := flags.NewRedisFlagStore(redisClient,
		config.RuntimeFlags{EnforceDeviceFingerprint: cfg.TrustedDevice.EnforceFingerprintDefault},
		logger.WithComponent(log, "flags"))

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Kafka.Enabled {
		producer, err := kafka.NewProducer(cfg.Kafka, logger.WithComponent(log, "events"))
		if err != nil {
			log.Error("failed to start kafka producer, events disabled", zap.Error(err))
		} else {
			publisher = producer
		}
	}

	// Repositories.
	userRepo := database.NewPgxUserRepository(pool)
	sessionRepo := database.NewPgxSessionRepository(pool)
	deviceRepo := database.NewPgxTrustedDeviceRepository(pool)
	enrollRepo := database.NewPgxMFAEnrollmentChallengeRepository(pool)
	loginChallengeRepo := database.NewPgxMFALoginChallengeRepository(pool)
	backupRepo := database.NewPgxBackupCodeRepository(pool)
	verificationRepo := database.NewPgxVerificationTokenRepository(pool)

	// Services.
	sessions := service.NewSessionService(sessionRepo, userRepo, tokens, publisher,
		cfg.JWT, logger.WithComponent(log, "sessions"))
	devices := service.NewTrustedDeviceService(deviceRepo, tokens, flagStore,
		cfg.TrustedDevice, logger.WithComponent(log, "devices"))
	mfa := service.NewMFAService(userRepo, enrollRepo, loginChallengeRepo, backupRepo,
		sessions, devices, totp, encryption, passwordSvc, publisher,
		cfg.MFA, logger.WithComponent(log, "mfa"))
	auth := service.NewAuthService(userRepo, verificationRepo, sessions, devices, mfa,
		passwordSvc, sender, publisher, cfg.JWT, cfg.Server,
		logger.WithComponent(log, "auth"))
	users := service.NewUserService(userRepo, logger.WithComponent(log, "users"))

	router := handlerhttp.NewRouter(handlerhttp.RouterDeps{
		Config:   cfg,
		Logger:   logger.WithComponent(log, "http"),
		Tokens:   tokens,
		Limiter:  limiter,
		Auth:     auth,
		Sessions: sessions,
		MFA:      mfa,
		Devices:  devices,
		Users:    users,
		Flags:    flagStore,
		Health:   handlerhttp.NewHealthHandler(pool, redisClient, logger.WithComponent(log, "health")),
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &App{
		cfg:             cfg,
		logger:          log,
		pool:            pool,
		redis:           redisClient,
		publisher:       publisher,
		flagStore:       flagStore,
		server:          server,
		shutdownTracing: shutdownTracing,
	}, nil
}

// Run serves HTTP until SIGINT/SIGTERM, then drains within the configured
// shutdown timeout.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case sig := <-quit:
		a.logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.logger.Error("graceful shutdown failed", zap.Error(err))
	}

	if store, ok := a.flagStore.(*flags.RedisFlagStore); ok {
		store.Close()
	}
	if err := a.publisher.Close(); err != nil {
		a.logger.Warn("failed to close event publisher", zap.Error(err))
	}
	if err := a.redis.Close(); err != nil {
		a.logger.Warn("failed to close redis client", zap.Error(err))
	}
	a.pool.Close()
	if err := a.shutdownTracing(ctx); err != nil {
		a.logger.Warn("failed to flush traces", zap.Error(err))
	}

	a.logger.Info("shutdown complete")
	return nil
}
