package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orbitcart/auth-service/internal/config"
	domainErrors "github.com/orbitcart/auth-service/internal/domain/errors"
	"github.com/orbitcart/auth-service/internal/domain/models"
	"github.com/orbitcart/auth-service/internal/domain/repository"
	"github.com/orbitcart/auth-service/internal/events"
	"github.com/orbitcart/auth-service/internal/infrastructure/security"
	"github.com/orbitcart/auth-service/internal/utils/metrics"
)

// MFASetup is the result of starting enrollment. Secret and OTPAuthURL are
// shown once for QR display and never returned again.
type MFASetup struct {
	ChallengeID uuid.UUID
	Secret      string
	OTPAuthURL  string
	ExpiresAt   time.Time
}

// MFALoginResult is a successful second-factor verification: a fresh token
// pair plus, when the caller asked to remember the device, a trust cookie.
type MFALoginResult struct {
	Tokens       *models.TokenPair
	User         *models.User
	Remember     bool
	DeviceCookie string
}

// MFAService drives the disabled → enrolling → enabled state machine and the
// login-time second-factor verification.
type MFAService struct {
	userRepo    repository.UserRepository
	enrollRepo  repository.MFAEnrollmentChallengeRepository
	loginRepo   repository.MFALoginChallengeRepository
	backupRepo  repository.BackupCodeRepository
	sessions    *SessionService
	devices     *TrustedDeviceService
	totp        security.TOTPService
	encryption  security.EncryptionService
	publisher   events.Publisher
	cfg         config.MFAConfig
	logger      *zap.Logger
	passwordSvc security.PasswordService
}

func NewMFAService(
	userRepo repository.UserRepository,
	enrollRepo repository.MFAEnrollmentChallengeRepository,
	loginRepo repository.MFALoginChallengeRepository,
	backupRepo repository.BackupCodeRepository,
	sessions *SessionService,
	devices *TrustedDeviceService,
	totp security.TOTPService,
	encryption security.EncryptionService,
	passwordSvc security.PasswordService,
	publisher events.Publisher,
	cfg config.MFAConfig,
	logger *zap.Logger,
) *MFAService {
	return &MFAService{
		userRepo:    userRepo,
		enrollRepo:  enrollRepo,
		loginRepo:   loginRepo,
		backupRepo:  backupRepo,
		sessions:    sessions,
		devices:     devices,
		totp:        totp,
		encryption:  encryption,
		passwordSvc: passwordSvc,
		publisher:   publisher,
		cfg:         cfg,
		logger:      logger,
	}
}

// StartSetup begins enrollment: a fresh secret, encrypted at rest under a
// short-lived challenge. The base32 secret and provisioning URI are returned
// transiently for QR display.
func (s *MFAService) StartSetup(ctx context.Context, userID uuid.UUID) (*MFASetup, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.MFAEnabled {
		return nil, domainErrors.ErrMFAAlreadyEnabled
	}

	secret, otpAuthURL, err := s.totp.GenerateSecret(user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate totp secret: %w", err)
	}

	encrypted, err := s.encryption.Encrypt(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt totp secret: %w", err)
	}

	now := time.Now()
	challenge := &models.MFAEnrollmentChallenge{
		ID:              uuid.New(),
		UserID:          userID,
		SecretEncrypted: encrypted,
		ExpiresAt:       now.Add(s.cfg.EnrollChallengeTTL),
		CreatedAt:       now,
	}
	if err := s.enrollRepo.Create(ctx, challenge); err != nil {
		return nil, fmt.Errorf("failed to persist enrollment challenge: %w", err)
	}

	return &MFASetup{
		ChallengeID: challenge.ID,
		Secret:      secret,
		OTPAuthURL:  otpAuthURL,
		ExpiresAt:   challenge.ExpiresAt,
	}, nil
}

// VerifySetup completes enrollment: the user proves possession of the
// authenticator, the secret moves onto the user record, backup codes are
// minted, and all previously trusted devices lose their bypass.
func (s *MFAService) VerifySetup(ctx context.Context, userID, challengeID uuid.UUID, code string) ([]string, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.MFAEnabled {
		return nil, domainErrors.ErrMFAAlreadyEnabled
	}

	challenge, err := s.enrollRepo.FindByID(ctx, challengeID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil, domainErrors.ErrInvalidChallenge
		}
		return nil, err
	}
	if challenge.UserID != userID || challenge.ConsumedAt != nil {
		return nil, domainErrors.ErrInvalidChallenge
	}
	if time.Now().After(challenge.ExpiresAt) {
		return nil, domainErrors.ErrChallengeExpired
	}

	secret, err := s.encryption.Decrypt(challenge.SecretEncrypted)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt candidate secret: %w", err)
	}

	valid, err := s.totp.ValidateCode(secret, code)
	if err != nil {
		return nil, fmt.Errorf("totp validation failed: %w", err)
	}
	if !valid {
		return nil, domainErrors.ErrInvalidCode
	}

	consumed, err := s.enrollRepo.Consume(ctx, challengeID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to consume enrollment challenge: %w", err)
	}
	if !consumed {
		return nil, domainErrors.ErrInvalidChallenge
	}

	if err := s.userRepo.SetMFA(ctx, userID, true, challenge.SecretEncrypted); err != nil {
		return nil, fmt.Errorf("failed to enable mfa: %w", err)
	}

	backupCodes, err := s.mintBackupCodes(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Enrollment invalidates prior implicit trust.
	if err := s.devices.RevokeAll(ctx, userID); err != nil {
		s.logger.Error("failed to revoke trusted devices after mfa enable",
			zap.String("user_id", userID.String()), zap.Error(err))
	}

	s.publisher.Publish(events.MFAEnabled, userID, nil)
	return backupCodes, nil
}

// Disable turns MFA off. It demands fresh proof of both the password and a
// second factor in the same call, so a stolen session alone cannot disarm
// the account. Sessions and devices are revoked before the user record flips:
// a partial failure may leave MFA still on, never off with live grants.
func (s *MFAService) Disable(ctx context.Context, userID uuid.UUID, password, code string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.MFAEnabled {
		return domainErrors.ErrMFANotEnabled
	}

	match, err := s.passwordSvc.Verify(password, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("password verification failed: %w", err)
	}
	if !match {
		return domainErrors.ErrInvalidCredentials
	}

	if ok, err := s.verifySecondFactor(ctx, user, code); err != nil {
		return err
	} else if !ok {
		return domainErrors.ErrInvalidCode
	}

	if err := s.sessions.RevokeAll(ctx, userID); err != nil {
		return err
	}
	if err := s.devices.RevokeAll(ctx, userID); err != nil {
		return err
	}
	if _, err := s.backupRepo.DeleteByUserID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete backup codes: %w", err)
	}
	if err := s.userRepo.SetMFA(ctx, userID, false, ""); err != nil {
		return fmt.Errorf("failed to disable mfa: %w", err)
	}

	metrics.SecurityRevocationsTotal.WithLabelValues("mfa_disable").Inc()
	s.publisher.Publish(events.MFADisabled, userID, nil)
	return nil
}

// RegenerateBackupCodes invalidates every unused code and mints a fresh
// batch. Old codes stop working the instant the new ones exist.
func (s *MFAService) RegenerateBackupCodes(ctx context.Context, userID uuid.UUID) ([]string, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.MFAEnabled {
		return nil, domainErrors.ErrMFANotEnabled
	}
	return s.mintBackupCodes(ctx, userID)
}

func (s *MFAService) mintBackupCodes(ctx context.Context, userID uuid.UUID) ([]string, error) {
	if _, err := s.backupRepo.InvalidateAllByUserID(ctx, userID, time.Now()); err != nil {
		return nil, fmt.Errorf("failed to invalidate old backup codes: %w", err)
	}

	count := s.cfg.BackupCodeCount
	if count <= 0 {
		count = 10
	}

	now := time.Now()
	plain := make([]string, count)
	batch := make([]*models.BackupCode, count)
	for i := 0; i < count; i++ {
		code, err := security.GenerateBackupCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate backup code: %w", err)
		}
		plain[i] = code
		batch[i] = &models.BackupCode{
			ID:        uuid.New(),
			UserID:    userID,
			CodeHash:  security.HashToken(code),
			CreatedAt: now,
		}
	}
	if err := s.backupRepo.CreateBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to store backup codes: %w", err)
	}
	return plain, nil
}

// CreateLoginChallenge records the pending second-factor step of a login,
// carrying the remember flag and client metadata through to the eventual
// session.
func (s *MFAService) CreateLoginChallenge(ctx context.Context, userID uuid.UUID, remember bool, reqCtx models.RequestContext) (*models.MFALoginChallenge, error) {
	now := time.Now()
	challenge := &models.MFALoginChallenge{
		ID:        uuid.New(),
		UserID:    userID,
		Remember:  remember,
		UserAgent: reqCtx.UserAgent,
		IPAddress: reqCtx.IPAddress,
		ExpiresAt: now.Add(s.cfg.LoginChallengeTTL),
		CreatedAt: now,
	}
	if err := s.loginRepo.Create(ctx, challenge); err != nil {
		return nil, fmt.Errorf("failed to persist login challenge: %w", err)
	}
	return challenge, nil
}

// VerifyLoginChallenge completes an MFA login. Six-digit input tries TOTP
// first; anything else is matched against backup codes. A failed code leaves
// the challenge open for retry until its own TTL; a successful one consumes
// it and issues the session the original login asked for.
func (s *MFAService) VerifyLoginChallenge(ctx context.Context, challengeID uuid.UUID, code string, rememberDevice bool) (*MFALoginResult, error) {
	challenge, err := s.loginRepo.FindByID(ctx, challengeID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil, domainErrors.ErrInvalidChallenge
		}
		return nil, err
	}
	if challenge.ConsumedAt != nil {
		return nil, domainErrors.ErrInvalidChallenge
	}
	if time.Now().After(challenge.ExpiresAt) {
		return nil, domainErrors.ErrChallengeExpired
	}

	user, err := s.userRepo.FindByID(ctx, challenge.UserID)
	if err != nil {
		return nil, domainErrors.ErrInvalidChallenge
	}
	if user.Status != models.UserStatusActive || !user.MFAEnabled {
		return nil, domainErrors.ErrInvalidChallenge
	}

	matched, method, err := s.verifyFactor(ctx, user, code)
	if err != nil {
		return nil, err
	}
	if !matched {
		metrics.MFAVerificationsTotal.WithLabelValues("failed").Inc()
		return nil, domainErrors.ErrInvalidCode
	}

	consumed, err := s.loginRepo.Consume(ctx, challengeID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to consume login challenge: %w", err)
	}
	if !consumed {
		return nil, domainErrors.ErrInvalidChallenge
	}

	reqCtx := models.RequestContext{UserAgent: challenge.UserAgent, IPAddress: challenge.IPAddress}
	tokens, err := s.sessions.CreateSession(ctx, user, challenge.Remember, reqCtx)
	if err != nil {
		return nil, err
	}

	result := &MFALoginResult{Tokens: tokens, User: user, Remember: challenge.Remember}
	if rememberDevice {
		cookie, err := s.devices.Issue(ctx, user.ID, reqCtx)
		if err != nil {
			// Trust is a convenience; the login itself already succeeded.
			s.logger.Error("failed to issue trusted device",
				zap.String("user_id", user.ID.String()), zap.Error(err))
		} else {
			result.DeviceCookie = cookie
		}
	}

	metrics.MFAVerificationsTotal.WithLabelValues(method).Inc()
	return result, nil
}

// verifySecondFactor checks a TOTP or backup code outside the login flow
// (MFA disable). Backup codes are consumed on success here too.
func (s *MFAService) verifySecondFactor(ctx context.Context, user *models.User, code string) (bool, error) {
	matched, _, err := s.verifyFactor(ctx, user, code)
	return matched, err
}

func (s *MFAService) verifyFactor(ctx context.Context, user *models.User, code string) (bool, string, error) {
	if isSixDigits(code) {
		secret, err := s.encryption.Decrypt(user.MFASecretEncrypted)
		if err != nil {
			return false, "", fmt.Errorf("failed to decrypt totp secret: %w", err)
		}
		valid, err := s.totp.ValidateCode(secret, code)
		if err != nil {
			return false, "", fmt.Errorf("totp validation failed: %w", err)
		}
		return valid, "totp", nil
	}
	matched, err := s.consumeBackupCode(ctx, user.ID, code)
	if err != nil {
		return false, "", err
	}
	return matched, "backup", nil
}

// consumeBackupCode matches the input against unused codes across the
// candidate encodings, first match wins, and consumes exactly one code.
func (s *MFAService) consumeBackupCode(ctx context.Context, userID uuid.UUID, input string) (bool, error) {
	candidates := security.CandidateEncodings(input)
	if len(candidates) == 0 {
		return false, nil
	}

	unused, err := s.backupRepo.ListUnusedByUserID(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to list backup codes: %w", err)
	}

	for _, candidate := range candidates {
		hash := security.HashToken(candidate)
		for _, code := range unused {
			if code.CodeHash != hash {
				continue
			}
			used, err := s.backupRepo.MarkUsed(ctx, code.ID, time.Now())
			if err != nil {
				return false, fmt.Errorf("failed to consume backup code: %w", err)
			}
			// A concurrent request may have spent this code first.
			return used, nil
		}
	}
	return false, nil
}

func isSixDigits(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
