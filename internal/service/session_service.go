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

// SessionService is the session ledger: it creates, rotates and revokes
// refresh-token sessions and detects token replay.
type SessionService struct {
	sessionRepo repository.SessionRepository
	userRepo    repository.UserRepository
	tokens      security.TokenService
	publisher   events.Publisher
	cfg         config.JWTConfig
	logger      *zap.Logger
}

func NewSessionService(
	sessionRepo repository.SessionRepository,
	userRepo repository.UserRepository,
	tokens security.TokenService,
	publisher events.Publisher,
	cfg config.JWTConfig,
	logger *zap.Logger,
) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		userRepo:    userRepo,
		tokens:      tokens,
		publisher:   publisher,
		cfg:         cfg,
		logger:      logger,
	}
}

// TTLForRole is the refresh TTL policy: a pure function of (role, remember).
// Admins get the shorter pair, reflecting elevated risk.
func (s *SessionService) TTLForRole(role models.Role, remember bool) time.Duration {
	if role == models.RoleAdmin {
		if remember {
			return s.cfg.AdminRefreshTTLRemember
		}
		return s.cfg.AdminRefreshTTL
	}
	if remember {
		return s.cfg.RefreshTTLRemember
	}
	return s.cfg.RefreshTTL
}

// CreateSession opens a new rotation chain for the user and returns its first
// token pair.
func (s *SessionService) CreateSession(ctx context.Context, user *models.User, remember bool, reqCtx models.RequestContext) (*models.TokenPair, error) {
	now := time.Now()
	ttl := s.TTLForRole(user.Role, remember)
	sessionID := uuid.New()

	refreshToken, err := s.tokens.GenerateRefreshToken(user.ID, sessionID, ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to mint refresh token: %w", err)
	}

	session := &models.Session{
		ID:        sessionID,
		UserID:    user.ID,
		TokenHash: security.HashToken(refreshToken),
		UserAgent: reqCtx.UserAgent,
		IPAddress: reqCtx.IPAddress,
		Remember:  remember,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	accessToken, err := s.tokens.GenerateAccessToken(user.ID, user.Role, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to mint access token: %w", err)
	}

	return &models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		SessionID:    sessionID,
		ExpiresAt:    session.ExpiresAt,
	}, nil
}

// Rotate exchanges a presented refresh token for a fresh pair. The decoded
// claims are only a lookup hint; the ledger row is authoritative. The ledger
// is append-only, so a replayed token resolves to its own revoked row with a
// successor recorded in ReplacedBy: that is the reuse signal, and it kills
// the whole chain.
func (s *SessionService) Rotate(ctx context.Context, presented string, reqCtx models.RequestContext) (*models.TokenPair, error) {
	claims, err := s.tokens.DecodeRefreshToken(presented)
	if err != nil {
		metrics.TokenRefreshTotal.WithLabelValues("invalid").Inc()
		return nil, domainErrors.ErrInvalidSession
	}

	session, err := s.sessionRepo.FindByID(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			metrics.TokenRefreshTotal.WithLabelValues("invalid").Inc()
			return nil, domainErrors.ErrInvalidSession
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session.UserID != claims.UserID {
		metrics.TokenRefreshTotal.WithLabelValues("invalid").Inc()
		return nil, domainErrors.ErrInvalidSession
	}
	if !session.Active(time.Now()) {
		// A successor means this token was rotated away: replay or theft.
		// Rows revoked without one (logout, revoke-all) and expired rows
		// are just dead.
		if session.ReplacedBy != nil {
			return nil, s.reuseDetected(ctx, session, reqCtx)
		}
		metrics.TokenRefreshTotal.WithLabelValues("invalid").Inc()
		return nil, domainErrors.ErrInvalidSession
	}

	presentedHash := security.HashToken(presented)
	if presentedHash != session.TokenHash {
		// Live row, foreign hash: a rotation committed between our read and
		// now. The presented token is superseded all the same.
		return nil, s.reuseDetected(ctx, session, reqCtx)
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrUserNotFound) {
			return nil, domainErrors.ErrInvalidSession
		}
		return nil, fmt.Errorf("failed to load session owner: %w", err)
	}
	if user.Status != models.UserStatusActive {
		return nil, domainErrors.ErrInvalidSession
	}

	now := time.Now()
	ttl := s.TTLForRole(user.Role, session.Remember)
	nextID := uuid.New()

	refreshToken, err := s.tokens.GenerateRefreshToken(user.ID, nextID, ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to mint refresh token: %w", err)
	}

	next := &models.Session{
		ID:        nextID,
		UserID:    user.ID,
		TokenHash: security.HashToken(refreshToken),
		UserAgent: reqCtx.UserAgent,
		IPAddress: reqCtx.IPAddress,
		Remember:  session.Remember,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	rotated, err := s.sessionRepo.Rotate(ctx, session.ID, presentedHash, next)
	if err != nil {
		return nil, fmt.Errorf("failed to rotate session: %w", err)
	}
	if !rotated {
		// A concurrent rotation won the compare-and-swap; for this caller
		// the presented token is now a superseded one.
		metrics.TokenRefreshTotal.WithLabelValues("reuse").Inc()
		return nil, domainErrors.ErrTokenReuse
	}

	accessToken, err := s.tokens.GenerateAccessToken(user.ID, user.Role, nextID)
	if err != nil {
		return nil, fmt.Errorf("failed to mint access token: %w", err)
	}

	metrics.TokenRefreshTotal.WithLabelValues("success").Inc()
	return &models.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		SessionID:    nextID,
		ExpiresAt:    next.ExpiresAt,
	}, nil
}

// reuseDetected handles a replayed refresh token: it walks the replaced_by
// links from the stale row to the chain's current head, revokes the head so
// the stolen lineage dies with it, and reports the incident. The legitimate
// holder re-authenticates.
func (s *SessionService) reuseDetected(ctx context.Context, stale *models.Session, reqCtx models.RequestContext) error {
	head := stale
	for head.ReplacedBy != nil {
		next, err := s.sessionRepo.FindByID(ctx, *head.ReplacedBy)
		if err != nil {
			s.logger.Error("failed to walk rotation chain after token reuse",
				zap.String("session_id", head.ID.String()), zap.Error(err))
			break
		}
		head = next
	}
	if err := s.sessionRepo.Revoke(ctx, head.ID); err != nil {
		s.logger.Error("failed to revoke chain head after token reuse",
			zap.String("session_id", head.ID.String()), zap.Error(err))
	}
	s.logger.Warn("refresh token reuse detected",
		zap.String("presented_session_id", stale.ID.String()),
		zap.String("head_session_id", head.ID.String()),
		zap.String("user_id", stale.UserID.String()),
		zap.String("ip", reqCtx.IPAddress),
	)
	metrics.TokenRefreshTotal.WithLabelValues("reuse").Inc()
	metrics.SecurityRevocationsTotal.WithLabelValues("token_reuse").Inc()
	s.publisher.Publish(events.TokenReuse, stale.UserID, map[string]string{
		"session_id": head.ID.String(),
		"ip":         reqCtx.IPAddress,
	})
	return domainErrors.ErrTokenReuse
}

// ValidateRefresh resolves an identity from a refresh token without rotating
// it. Used by the authorization gate's cookie fallback.
func (s *SessionService) ValidateRefresh(ctx context.Context, presented string) (*models.Identity, error) {
	claims, err := s.tokens.DecodeRefreshToken(presented)
	if err != nil {
		return nil, domainErrors.ErrInvalidSession
	}

	session, err := s.sessionRepo.FindByID(ctx, claims.SessionID)
	if err != nil {
		return nil, domainErrors.ErrInvalidSession
	}
	if session.UserID != claims.UserID || !session.Active(time.Now()) {
		return nil, domainErrors.ErrInvalidSession
	}
	if security.HashToken(presented) != session.TokenHash {
		return nil, domainErrors.ErrInvalidSession
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil || user.Status != models.UserStatusActive {
		return nil, domainErrors.ErrInvalidSession
	}

	return &models.Identity{UserID: user.ID, Role: user.Role, SessionID: session.ID}, nil
}

// RevokeByToken revokes the session a refresh token points at, tolerating
// tokens that are already invalid; logout must always succeed.
func (s *SessionService) RevokeByToken(ctx context.Context, presented string) {
	claims, err := s.tokens.DecodeRefreshToken(presented)
	if err != nil {
		return
	}
	session, err := s.sessionRepo.FindByID(ctx, claims.SessionID)
	if err != nil || session.UserID != claims.UserID {
		return
	}
	if err := s.sessionRepo.Revoke(ctx, session.ID); err != nil {
		s.logger.Warn("failed to revoke session on logout",
			zap.String("session_id", session.ID.String()), zap.Error(err))
	}
}

// RevokeSession revokes one session owned by userID.
func (s *SessionService) RevokeSession(ctx context.Context, userID, sessionID uuid.UUID) error {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.UserID != userID {
		return domainErrors.ErrForbidden
	}
	return s.sessionRepo.Revoke(ctx, sessionID)
}

// RevokeAll revokes every session for the user.
func (s *SessionService) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	n, err := s.sessionRepo.RevokeAllByUserID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke sessions: %w", err)
	}
	if n > 0 {
		s.logger.Info("revoked all sessions",
			zap.String("user_id", userID.String()), zap.Int64("count", n))
	}
	return nil
}

// ListSessions returns the user's active sessions, marking the caller's own.
func (s *SessionService) ListSessions(ctx context.Context, userID, currentSessionID uuid.UUID) ([]models.SessionInfo, error) {
	sessions, err := s.sessionRepo.ListActiveByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	infos := make([]models.SessionInfo, 0, len(sessions))
	for _, session := range sessions {
		infos = append(infos, models.SessionInfo{
			ID:        session.ID,
			UserAgent: session.UserAgent,
			IPAddress: session.IPAddress,
			Current:   session.ID == currentSessionID,
			CreatedAt: session.CreatedAt,
			ExpiresAt: session.ExpiresAt,
		})
	}
	return infos, nil
}
