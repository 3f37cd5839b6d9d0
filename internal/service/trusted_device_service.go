package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orbitcart/auth-service/internal/config"
	domainErrors "github.com/orbitcart/auth-service/internal/domain/errors"
	"github.com/orbitcart/auth-service/internal/domain/models"
	"github.com/orbitcart/auth-service/internal/domain/repository"
	"github.com/orbitcart/auth-service/internal/infrastructure/security"
	"github.com/orbitcart/auth-service/internal/utils/metrics"
)

// TrustedDeviceService manages the per-browser MFA-bypass capability. Device
// trust is a convenience, not a primary credential: every validation failure
// degrades silently to "ask for MFA again".
type TrustedDeviceService struct {
	deviceRepo repository.TrustedDeviceRepository
	tokens     security.TokenService
	flagStore  config.FlagStore
	cfg        config.TrustedDeviceConfig
	logger     *zap.Logger
}

func NewTrustedDeviceService(
	deviceRepo repository.TrustedDeviceRepository,
	tokens security.TokenService,
	flagStore config.FlagStore,
	cfg config.TrustedDeviceConfig,
	logger *zap.Logger,
) *TrustedDeviceService {
	return &TrustedDeviceService{
		deviceRepo: deviceRepo,
		tokens:     tokens,
		flagStore:  flagStore,
		cfg:        cfg,
		logger:     logger,
	}
}

// Issue creates a trust grant for the current browser and returns the cookie
// value "<id>.<token>".
func (s *TrustedDeviceService) Issue(ctx context.Context, userID uuid.UUID, reqCtx models.RequestContext) (string, error) {
	token, err := security.GenerateOpaqueToken(32)
	if err != nil {
		return "", fmt.Errorf("failed to mint device token: %w", err)
	}

	now := time.Now()
	device := &models.TrustedDevice{
		ID:              uuid.New(),
		UserID:          userID,
		TokenHash:       security.HashToken(token),
		FingerprintHash: security.DeviceFingerprint(reqCtx.UserAgent, reqCtx.IPAddress),
		CreatedAt:       now,
		ExpiresAt:       now.Add(s.cfg.TTL),
	}
	if err := s.deviceRepo.Create(ctx, device); err != nil {
		return "", fmt.Errorf("failed to persist trusted device: %w", err)
	}

	return device.ID.String() + "." + token, nil
}

// Validate reports whether the presented trust cookie lets userID skip MFA.
// It never returns an error: a stale, foreign or tampered cookie simply does
// not bypass. Fingerprint enforcement always applies to admins and extends
// to all roles when the runtime flag is on; a fingerprint mismatch fails
// validation without revoking the row, tolerating legitimate IP changes.
func (s *TrustedDeviceService) Validate(ctx context.Context, cookieValue string, userID uuid.UUID, role models.Role, reqCtx models.RequestContext) bool {
	if cookieValue == "" {
		return false
	}

	deviceID, token, ok := splitDeviceCookie(cookieValue)
	if !ok {
		// Not the id.token format; accept the legacy signed-payload cookie,
		// validated by signature and expiry alone.
		legacyUserID, err := s.tokens.ValidateLegacyDeviceToken(cookieValue)
		if err != nil || legacyUserID != userID {
			metrics.TrustedDeviceBypassTotal.WithLabelValues("rejected").Inc()
			return false
		}
		metrics.TrustedDeviceBypassTotal.WithLabelValues("legacy").Inc()
		return true
	}

	device, err := s.deviceRepo.FindByID(ctx, deviceID)
	if err != nil {
		metrics.TrustedDeviceBypassTotal.WithLabelValues("rejected").Inc()
		return false
	}
	if device.UserID != userID || !device.Active(time.Now()) {
		metrics.TrustedDeviceBypassTotal.WithLabelValues("rejected").Inc()
		return false
	}
	if security.HashToken(token) != device.TokenHash {
		// Stale cookie across browser profiles, not an attack signal.
		metrics.TrustedDeviceBypassTotal.WithLabelValues("rejected").Inc()
		return false
	}

	if s.fingerprintRequired(ctx, role) {
		fingerprint := security.DeviceFingerprint(reqCtx.UserAgent, reqCtx.IPAddress)
		if fingerprint != device.FingerprintHash {
			s.logger.Info("trusted device fingerprint mismatch, requiring mfa",
				zap.String("device_id", device.ID.String()),
				zap.String("user_id", userID.String()),
			)
			metrics.TrustedDeviceBypassTotal.WithLabelValues("fingerprint_mismatch").Inc()
			return false
		}
	}

	// Non-blocking touch; losing it on crash is acceptable.
	go func(id uuid.UUID) {
		touchCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.deviceRepo.TouchLastUsed(touchCtx, id, time.Now()); err != nil {
			s.logger.Debug("failed to touch trusted device", zap.Error(err))
		}
	}(device.ID)

	metrics.TrustedDeviceBypassTotal.WithLabelValues("success").Inc()
	return true
}

func (s *TrustedDeviceService) fingerprintRequired(ctx context.Context, role models.Role) bool {
	if role == models.RoleAdmin {
		return true
	}
	return s.flagStore.Snapshot(ctx).EnforceDeviceFingerprint
}

// List returns the user's active devices, marking the one backing the
// caller's own trust cookie.
func (s *TrustedDeviceService) List(ctx context.Context, userID uuid.UUID, currentCookie string) ([]models.TrustedDeviceInfo, error) {
	var currentID uuid.UUID
	if id, _, ok := splitDeviceCookie(currentCookie); ok {
		currentID = id
	}

	devices, err := s.deviceRepo.ListActiveByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	infos := make([]models.TrustedDeviceInfo, 0, len(devices))
	for _, device := range devices {
		infos = append(infos, models.TrustedDeviceInfo{
			ID:         device.ID,
			CreatedAt:  device.CreatedAt,
			LastUsedAt: device.LastUsedAt,
			ExpiresAt:  device.ExpiresAt,
			Current:    device.ID == currentID,
		})
	}
	return infos, nil
}

// Revoke revokes a single device owned by userID.
func (s *TrustedDeviceService) Revoke(ctx context.Context, userID, deviceID uuid.UUID) error {
	device, err := s.deviceRepo.FindByID(ctx, deviceID)
	if err != nil {
		return err
	}
	if device.UserID != userID {
		return domainErrors.ErrForbidden
	}
	return s.deviceRepo.Revoke(ctx, deviceID)
}

// RevokeAll revokes every device for the user.
func (s *TrustedDeviceService) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	n, err := s.deviceRepo.RevokeAllByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke trusted devices: %w", err)
	}
	if n > 0 {
		s.logger.Info("revoked all trusted devices",
			zap.String("user_id", userID.String()), zap.Int64("count", n))
	}
	return nil
}

// UntrustCurrent revokes the device backing the presented cookie.
func (s *TrustedDeviceService) UntrustCurrent(ctx context.Context, cookieValue string, userID uuid.UUID) error {
	deviceID, _, ok := splitDeviceCookie(cookieValue)
	if !ok {
		return domainErrors.ErrDeviceNotFound
	}
	return s.Revoke(ctx, userID, deviceID)
}

// splitDeviceCookie parses the "<id>.<token>" trust cookie format.
func splitDeviceCookie(cookieValue string) (uuid.UUID, string, bool) {
	idPart, token, found := strings.Cut(cookieValue, ".")
	if !found || token == "" {
		return uuid.Nil, "", false
	}
	id, err := uuid.Parse(idPart)
	if err != nil {
		return uuid.Nil, "", false
	}
	return id, token, true
}
