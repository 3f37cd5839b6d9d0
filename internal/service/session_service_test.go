package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/orbitcart/auth-service/internal/config"
	domainErrors "github.com/orbitcart/auth-service/internal/domain/errors"
	"github.com/orbitcart/auth-service/internal/domain/models"
	"github.com/orbitcart/auth-service/internal/events"
	"github.com/orbitcart/auth-service/internal/infrastructure/security"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:                  "test-secret-at-least-32-characters!",
		Issuer:                  "test-issuer",
		AccessTokenTTL:          15 * time.Minute,
		RefreshTTL:              24 * time.Hour,
		RefreshTTLRemember:      720 * time.Hour,
		AdminRefreshTTL:         8 * time.Hour,
		AdminRefreshTTLRemember: 168 * time.Hour,
		EmailVerificationTTL:    24 * time.Hour,
		PasswordResetTTL:        time.Hour,
	}
}

func newTestSessionService(t *testing.T, sessionRepo *MockSessionRepository, userRepo *MockUserRepository, publisher events.Publisher) *SessionService {
	t.Helper()
	tokens, err := security.NewHMACTokenService(testJWTConfig())
	require.NoError(t, err)
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return NewSessionService(sessionRepo, userRepo, tokens, publisher, testJWTConfig(), zap.NewNop())
}

func activeUser() *models.User {
	return &models.User{
		ID:           uuid.New(),
		Email:        "user@example.com",
		PasswordHash: "$argon2id$...",
		Role:         models.RoleUser,
		Status:       models.UserStatusActive,
	}
}

func TestTTLForRole(t *testing.T) {
	svc := newTestSessionService(t, new(MockSessionRepository), new(MockUserRepository), nil)

	tests := []struct {
		name     string
		role     models.Role
		remember bool
		want     time.Duration
	}{
		{"user short", models.RoleUser, false, 24 * time.Hour},
		{"user remember", models.RoleUser, true, 720 * time.Hour},
		{"admin short", models.RoleAdmin, false, 8 * time.Hour},
		{"admin remember", models.RoleAdmin, true, 168 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, svc.TTLForRole(tt.role, tt.remember))
		})
	}
}

func TestCreateSession(t *testing.T) {
	sessionRepo := new(MockSessionRepository)
	svc := newTestSessionService(t, sessionRepo, new(MockUserRepository), nil)
	user := activeUser()

	var stored *models.Session
	sessionRepo.On("Create", mock.Anything, mock.AnythingOfType("*models.Session")).
		Run(func(args mock.Arguments) { stored = args.Get(1).(*models.Session) }).
		Return(nil)

	pair, err := svc.CreateSession(context.Background(), user, false, models.RequestContext{UserAgent: "ua", IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	require.NotNil(t, stored)

	assert.Equal(t, user.ID, stored.UserID)
	assert.Equal(t, security.HashToken(pair.RefreshToken), stored.TokenHash)
	assert.Equal(t, stored.ID, pair.SessionID)
	assert.NotEmpty(t, pair.AccessToken)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), stored.ExpiresAt, time.Minute)
}

func TestRotateHappyPath(t *testing.T) {
	sessionRepo := new(MockSessionRepository)
	userRepo := new(MockUserRepository)
	svc := newTestSessionService(t, sessionRepo, userRepo, nil)
	user := activeUser()

	var current *models.Session
	sessionRepo.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { current = args.Get(1).(*models.Session) }).
		Return(nil)

	pair, err := svc.CreateSession(context.Background(), user, false, models.RequestContext{})
	require.NoError(t, err)

	sessionRepo.On("FindByID", mock.Anything, pair.SessionID).Return(current, nil)
	userRepo.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	sessionRepo.On("Rotate", mock.Anything, pair.SessionID, current.TokenHash, mock.AnythingOfType("*models.Session")).
		Return(true, nil)

	next, err := svc.Rotate(context.Background(), pair.RefreshToken, models.RequestContext{})
	require.NoError(t, err)
	assert.NotEqual(t, pair.SessionID, next.SessionID)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)
	sessionRepo.AssertExpectations(t)
}

func TestRotateReuseDetection(t *testing.T) {
	t.Run("superseded row revokes the chain head", func(t *testing.T) {
		sessionRepo := new(MockSessionRepository)
		userRepo := new(MockUserRepository)
		publisher := &capturingPublisher{}
		svc := newTestSessionService(t, sessionRepo, userRepo, publisher)
		user := activeUser()

		var stale *models.Session
		sessionRepo.On("Create", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { stale = args.Get(1).(*models.Session) }).
			Return(nil)

		pair, err := svc.CreateSession(context.Background(), user, false, models.RequestContext{})
		require.NoError(t, err)

		// The ledger has moved on twice since this token was issued: its row
		// is revoked with a successor recorded, and the live head is two
		// hops down the chain.
		midID := uuid.New()
		headID := uuid.New()
		revokedAt := time.Now()
		stale.RevokedAt = &revokedAt
		stale.ReplacedBy = &midID
		mid := &models.Session{ID: midID, UserID: user.ID, RevokedAt: &revokedAt, ReplacedBy: &headID}
		head := &models.Session{
			ID: headID, UserID: user.ID,
			TokenHash: security.HashToken("the-current-token"),
			ExpiresAt: time.Now().Add(time.Hour),
		}

		sessionRepo.On("FindByID", mock.Anything, pair.SessionID).Return(stale, nil)
		sessionRepo.On("FindByID", mock.Anything, midID).Return(mid, nil)
		sessionRepo.On("FindByID", mock.Anything, headID).Return(head, nil)
		sessionRepo.On("Revoke", mock.Anything, headID).Return(nil)

		_, err = svc.Rotate(context.Background(), pair.RefreshToken, models.RequestContext{IPAddress: "1.2.3.4"})
		assert.ErrorIs(t, err, domainErrors.ErrTokenReuse)

		sessionRepo.AssertCalled(t, "Revoke", mock.Anything, headID)
		assert.Contains(t, publisher.published(), events.TokenReuse)
	})

	t.Run("live row with a foreign hash is reuse too", func(t *testing.T) {
		// The window where a concurrent rotation committed between the read
		// and the hash check.
		sessionRepo := new(MockSessionRepository)
		publisher := &capturingPublisher{}
		svc := newTestSessionService(t, sessionRepo, new(MockUserRepository), publisher)
		user := activeUser()

		var current *models.Session
		sessionRepo.On("Create", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { current = args.Get(1).(*models.Session) }).
			Return(nil)

		pair, err := svc.CreateSession(context.Background(), user, false, models.RequestContext{})
		require.NoError(t, err)

		current.TokenHash = security.HashToken("a-newer-token")
		sessionRepo.On("FindByID", mock.Anything, pair.SessionID).Return(current, nil)
		sessionRepo.On("Revoke", mock.Anything, pair.SessionID).Return(nil)

		_, err = svc.Rotate(context.Background(), pair.RefreshToken, models.RequestContext{IPAddress: "1.2.3.4"})
		assert.ErrorIs(t, err, domainErrors.ErrTokenReuse)
		sessionRepo.AssertCalled(t, "Revoke", mock.Anything, pair.SessionID)
	})
}

func TestRotateConcurrentLoser(t *testing.T) {
	sessionRepo := new(MockSessionRepository)
	userRepo := new(MockUserRepository)
	svc := newTestSessionService(t, sessionRepo, userRepo, nil)
	user := activeUser()

	var current *models.Session
	sessionRepo.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { current = args.Get(1).(*models.Session) }).
		Return(nil)

	pair, err := svc.CreateSession(context.Background(), user, false, models.RequestContext{})
	require.NoError(t, err)

	sessionRepo.On("FindByID", mock.Anything, pair.SessionID).Return(current, nil)
	userRepo.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	// The compare-and-swap fails: another request rotated first.
	sessionRepo.On("Rotate", mock.Anything, pair.SessionID, current.TokenHash, mock.Anything).
		Return(false, nil)

	_, err = svc.Rotate(context.Background(), pair.RefreshToken, models.RequestContext{})
	assert.ErrorIs(t, err, domainErrors.ErrTokenReuse)
}

func TestRotateRejectsGarbageAndDeadSessions(t *testing.T) {
	sessionRepo := new(MockSessionRepository)
	svc := newTestSessionService(t, sessionRepo, new(MockUserRepository), nil)
	user := activeUser()

	t.Run("undecodable token", func(t *testing.T) {
		_, err := svc.Rotate(context.Background(), "not-a-jwt", models.RequestContext{})
		assert.ErrorIs(t, err, domainErrors.ErrInvalidSession)
	})

	t.Run("revoked session", func(t *testing.T) {
		var current *models.Session
		sessionRepo.On("Create", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { current = args.Get(1).(*models.Session) }).
			Return(nil)
		pair, err := svc.CreateSession(context.Background(), user, false, models.RequestContext{})
		require.NoError(t, err)

		revokedAt := time.Now()
		current.RevokedAt = &revokedAt
		sessionRepo.On("FindByID", mock.Anything, pair.SessionID).Return(current, nil)

		_, err = svc.Rotate(context.Background(), pair.RefreshToken, models.RequestContext{})
		assert.ErrorIs(t, err, domainErrors.ErrInvalidSession)
	})
}

func TestValidateRefresh(t *testing.T) {
	sessionRepo := new(MockSessionRepository)
	userRepo := new(MockUserRepository)
	svc := newTestSessionService(t, sessionRepo, userRepo, nil)
	user := activeUser()

	var current *models.Session
	sessionRepo.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { current = args.Get(1).(*models.Session) }).
		Return(nil)

	pair, err := svc.CreateSession(context.Background(), user, true, models.RequestContext{})
	require.NoError(t, err)

	sessionRepo.On("FindByID", mock.Anything, pair.SessionID).Return(current, nil)
	userRepo.On("FindByID", mock.Anything, user.ID).Return(user, nil)

	identity, err := svc.ValidateRefresh(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, identity.UserID)
	assert.Equal(t, pair.SessionID, identity.SessionID)
	assert.Equal(t, models.RoleUser, identity.Role)

	// Validation must not rotate.
	sessionRepo.AssertNotCalled(t, "Rotate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRevokeSessionOwnership(t *testing.T) {
	sessionRepo := new(MockSessionRepository)
	svc := newTestSessionService(t, sessionRepo, new(MockUserRepository), nil)

	owner := uuid.New()
	session := &models.Session{ID: uuid.New(), UserID: owner, ExpiresAt: time.Now().Add(time.Hour)}
	sessionRepo.On("FindByID", mock.Anything, session.ID).Return(session, nil)

	t.Run("foreign caller is rejected", func(t *testing.T) {
		err := svc.RevokeSession(context.Background(), uuid.New(), session.ID)
		assert.ErrorIs(t, err, domainErrors.ErrForbidden)
		sessionRepo.AssertNotCalled(t, "Revoke", mock.Anything, session.ID)
	})

	t.Run("owner succeeds", func(t *testing.T) {
		sessionRepo.On("Revoke", mock.Anything, session.ID).Return(nil)
		assert.NoError(t, svc.RevokeSession(context.Background(), owner, session.ID))
	})
}

func TestListSessionsMarksCurrent(t *testing.T) {
	sessionRepo := new(MockSessionRepository)
	svc := newTestSessionService(t, sessionRepo, new(MockUserRepository), nil)

	userID := uuid.New()
	currentID := uuid.New()
	otherID := uuid.New()
	sessionRepo.On("ListActiveByUserID", mock.Anything, userID).Return([]*models.Session{
		{ID: currentID, UserID: userID},
		{ID: otherID, UserID: userID},
	}, nil)

	infos, err := svc.ListSessions(context.Background(), userID, currentID)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.True(t, infos[0].Current)
	assert.False(t, infos[1].Current)
}
