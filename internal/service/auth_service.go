package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orbitcart/auth-service/internal/config"
	domainErrors "github.com/orbitcart/auth-service/internal/domain/errors"
	"github.com/orbitcart/auth-service/internal/domain/models"
	"github.com/orbitcart/auth-service/internal/domain/repository"
	"github.com/orbitcart/auth-service/internal/events"
	"github.com/orbitcart/auth-service/internal/infrastructure/notification"
	"github.com/orbitcart/auth-service/internal/infrastructure/security"
	"github.com/orbitcart/auth-service/internal/utils/metrics"
)

// LoginResult is either an issued session or a pending second-factor step,
// never both.
type LoginResult struct {
	MFARequired bool
	ChallengeID uuid.UUID
	ExpiresAt   time.Time
	Tokens      *models.TokenPair
	User        *models.User
	Remember    bool
}

// AuthService orchestrates the credential lifecycle: registration, login,
// logout, password change/reset and email verification.
type AuthService struct {
	userRepo         repository.UserRepository
	verificationRepo repository.VerificationTokenRepository
	sessions         *SessionService
	devices          *TrustedDeviceService
	mfa              *MFAService
	passwordSvc      security.PasswordService
	sender           notification.Sender
	publisher        events.Publisher
	jwtCfg           config.JWTConfig
	serverCfg        config.ServerConfig
	logger           *zap.Logger
}

func NewAuthService(
	userRepo repository.UserRepository,
	verificationRepo repository.VerificationTokenRepository,
	sessions *SessionService,
	devices *TrustedDeviceService,
	mfa *MFAService,
	passwordSvc security.PasswordService,
	sender notification.Sender,
	publisher events.Publisher,
	jwtCfg config.JWTConfig,
	serverCfg config.ServerConfig,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:         userRepo,
		verificationRepo: verificationRepo,
		sessions:         sessions,
		devices:          devices,
		mfa:              mfa,
		passwordSvc:      passwordSvc,
		sender:           sender,
		publisher:        publisher,
		jwtCfg:           jwtCfg,
		serverCfg:        serverCfg,
		logger:           logger,
	}
}

// Register creates the user and best-effort sends the verification email.
// Duplicate email and duplicate phone surface as distinct errors.
func (s *AuthService) Register(ctx context.Context, email, password, fullName string, phone *string) (*models.User, error) {
	passwordHash, err := s.passwordSvc.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &models.User{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: passwordHash,
		FullName:     fullName,
		Phone:        phone,
		Role:         models.RoleUser,
		Status:       models.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := s.sendVerification(ctx, user, models.PurposeEmailVerification); err != nil {
		s.logger.Error("failed to send verification email",
			zap.String("user_id", user.ID.String()), zap.Error(err))
	}

	s.publisher.Publish(events.UserRegistered, user.ID, map[string]string{"email": user.Email})
	return user, nil
}

// Login verifies the password and either issues a session or opens an MFA
// login challenge. "No such user" and "wrong password" are indistinguishable
// to the caller; disabled accounts and unverified emails are distinct states
// the account holder already knows about.
func (s *AuthService) Login(ctx context.Context, email, password string, remember bool, deviceCookie string, reqCtx models.RequestContext) (*LoginResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domainErrors.ErrUserNotFound) {
			metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
			return nil, domainErrors.ErrInvalidCredentials
		}
		return nil, err
	}

	match, err := s.passwordSvc.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("password verification failed: %w", err)
	}
	if !match {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, domainErrors.ErrInvalidCredentials
	}

	if user.Status != models.UserStatusActive {
		metrics.LoginAttemptsTotal.WithLabelValues("blocked").Inc()
		return nil, domainErrors.ErrUserDisabled
	}
	if user.EmailVerifiedAt == nil {
		metrics.LoginAttemptsTotal.WithLabelValues("blocked").Inc()
		return nil, domainErrors.ErrEmailNotVerified
	}

	if user.MFAEnabled && !s.devices.Validate(ctx, deviceCookie, user.ID, user.Role, reqCtx) {
		challenge, err := s.mfa.CreateLoginChallenge(ctx, user.ID, remember, reqCtx)
		if err != nil {
			return nil, err
		}
		metrics.LoginAttemptsTotal.WithLabelValues("mfa_required").Inc()
		return &LoginResult{
			MFARequired: true,
			ChallengeID: challenge.ID,
			ExpiresAt:   challenge.ExpiresAt,
			User:        user,
		}, nil
	}

	tokens, err := s.sessions.CreateSession(ctx, user, remember, reqCtx)
	if err != nil {
		return nil, err
	}
	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	return &LoginResult{Tokens: tokens, User: user, Remember: remember}, nil
}

// Logout revokes the session behind the presented refresh token. It never
// fails the caller; an already-dead token still logs out.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) {
	s.sessions.RevokeByToken(ctx, refreshToken)
}

// LogoutAll revokes every session and every trusted device for the user.
func (s *AuthService) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	if err := s.sessions.RevokeAll(ctx, userID); err != nil {
		return err
	}
	if err := s.devices.RevokeAll(ctx, userID); err != nil {
		return err
	}
	metrics.SecurityRevocationsTotal.WithLabelValues("logout_all").Inc()
	return nil
}

// ChangePassword verifies the current password, rejects a no-op change and
// forces re-authentication everywhere.
func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	match, err := s.passwordSvc.Verify(currentPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("password verification failed: %w", err)
	}
	if !match {
		return domainErrors.ErrInvalidCredentials
	}

	if err := s.applyNewPassword(ctx, user, newPassword, "password_change"); err != nil {
		return err
	}
	return nil
}

// RequestPasswordReset mails a reset link when the email is known and stays
// silent when it is not, so the endpoint never confirms account existence.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domainErrors.ErrUserNotFound) {
			return nil
		}
		return err
	}
	if user.Status != models.UserStatusActive {
		return nil
	}
	if err := s.sendVerification(ctx, user, models.PurposePasswordReset); err != nil {
		s.logger.Error("failed to send password reset email",
			zap.String("user_id", user.ID.String()), zap.Error(err))
	}
	return nil
}

// ResetPassword consumes a single-use reset token and applies the new
// password with the same revocation cascade as a password change.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	record, err := s.consumeVerification(ctx, models.PurposePasswordReset, token)
	if err != nil {
		return err
	}

	user, err := s.userRepo.FindByID(ctx, record.UserID)
	if err != nil {
		return err
	}
	return s.applyNewPassword(ctx, user, newPassword, "password_reset")
}

// applyNewPassword rejects password reuse, writes the new hash and revokes
// all sessions and trusted devices. Reuse rejection happens before any
// mutation.
func (s *AuthService) applyNewPassword(ctx context.Context, user *models.User, newPassword, trigger string) error {
	same, err := s.passwordSvc.Verify(newPassword, user.PasswordHash)
	if err != nil {
		return fmt.Errorf("password verification failed: %w", err)
	}
	if same {
		return domainErrors.ErrPasswordReuse
	}

	newHash, err := s.passwordSvc.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.UpdatePasswordHash(ctx, user.ID, newHash); err != nil {
		return err
	}

	if err := s.sessions.RevokeAll(ctx, user.ID); err != nil {
		return err
	}
	if err := s.devices.RevokeAll(ctx, user.ID); err != nil {
		return err
	}

	metrics.SecurityRevocationsTotal.WithLabelValues(trigger).Inc()
	s.publisher.Publish(events.PasswordChanged, user.ID, map[string]string{"trigger": trigger})
	return nil
}

// VerifyEmail consumes a verification token, stamps the user and revokes
// trusted devices; verification is a trust-boundary event.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	record, err := s.consumeVerification(ctx, models.PurposeEmailVerification, token)
	if err != nil {
		return err
	}

	if err := s.userRepo.MarkEmailVerified(ctx, record.UserID); err != nil {
		return err
	}
	if err := s.devices.RevokeAll(ctx, record.UserID); err != nil {
		s.logger.Error("failed to revoke trusted devices after email verification",
			zap.String("user_id", record.UserID.String()), zap.Error(err))
	}

	s.publisher.Publish(events.EmailVerified, record.UserID, nil)
	return nil
}

// ResendVerification issues a fresh verification token, invalidating the
// outstanding one. Unknown and already-verified emails are silently accepted.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domainErrors.ErrUserNotFound) {
			return nil
		}
		return err
	}
	if user.EmailVerifiedAt != nil || user.Status != models.UserStatusActive {
		return nil
	}
	if err := s.sendVerification(ctx, user, models.PurposeEmailVerification); err != nil {
		s.logger.Error("failed to resend verification email",
			zap.String("user_id", user.ID.String()), zap.Error(err))
	}
	return nil
}

// sendVerification mints a single-use token, stores its hash and mails the
// plaintext as a link. Creation invalidates any outstanding token of the same
// purpose.
func (s *AuthService) sendVerification(ctx context.Context, user *models.User, purpose models.VerificationPurpose) error {
	plain, err := security.GenerateOpaqueToken(32)
	if err != nil {
		return fmt.Errorf("failed to mint verification token: %w", err)
	}

	ttl := s.jwtCfg.EmailVerificationTTL
	if purpose == models.PurposePasswordReset {
		ttl = s.jwtCfg.PasswordResetTTL
	}

	now := time.Now()
	record := &models.VerificationToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Purpose:   purpose,
		TokenHash: security.HashToken(plain),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := s.verificationRepo.Create(ctx, record); err != nil {
		return fmt.Errorf("failed to persist verification token: %w", err)
	}

	subject, body := s.composeMail(user, purpose, plain)
	return s.sender.Send(ctx, user.Email, subject, body)
}

func (s *AuthService) composeMail(user *models.User, purpose models.VerificationPurpose, token string) (string, string) {
	base := strings.TrimRight(s.serverCfg.PublicBaseURL, "/")
	name := html.EscapeString(user.FullName)
	if purpose == models.PurposePasswordReset {
		link := fmt.Sprintf("%s/reset-password?token=%s", base, token)
		return "Reset your password",
			fmt.Sprintf("<p>Hi %s,</p><p>Reset your password using <a href=%q>this link</a>. The link expires soon and can be used once.</p>", name, link)
	}
	link := fmt.Sprintf("%s/verify-email?token=%s", base, token)
	return "Verify your email address",
		fmt.Sprintf("<p>Hi %s,</p><p>Confirm your email address using <a href=%q>this link</a>.</p>", name, link)
}

// consumeVerification resolves a plaintext token to its usable record and
// marks it used with a conditional update so two concurrent submissions of
// the same token cannot both succeed.
func (s *AuthService) consumeVerification(ctx context.Context, purpose models.VerificationPurpose, token string) (*models.VerificationToken, error) {
	record, err := s.verificationRepo.FindByTokenHash(ctx, purpose, security.HashToken(token))
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return nil, domainErrors.ErrInvalidToken
		}
		return nil, err
	}
	if !record.Usable(time.Now()) {
		return nil, domainErrors.ErrInvalidToken
	}
	used, err := s.verificationRepo.MarkUsed(ctx, record.ID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to consume verification token: %w", err)
	}
	if !used {
		return nil, domainErrors.ErrInvalidToken
	}
	return record, nil
}
