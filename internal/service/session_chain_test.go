package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domainErrors "github.com/orbitcart/auth-service/internal/domain/errors"
	"github.com/orbitcart/auth-service/internal/domain/models"
	"github.com/orbitcart/auth-service/internal/domain/repository"
	"github.com/orbitcart/auth-service/internal/events"
	"github.com/orbitcart/auth-service/internal/infrastructure/security"
)

// fakeSessionLedger mirrors the postgres repository's append-only semantics
// in memory: rotation revokes the old row (recording its successor) and
// inserts a new one, never rewriting a stored hash in place.
type fakeSessionLedger struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*models.Session
}

func newFakeSessionLedger() *fakeSessionLedger {
	return &fakeSessionLedger{rows: make(map[uuid.UUID]*models.Session)}
}

func copySession(s *models.Session) *models.Session {
	out := *s
	return &out
}

func (l *fakeSessionLedger) Create(_ context.Context, session *models.Session) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows[session.ID] = copySession(session)
	return nil
}

func (l *fakeSessionLedger) FindByID(_ context.Context, id uuid.UUID) (*models.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	row, ok := l.rows[id]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return copySession(row), nil
}

func (l *fakeSessionLedger) ListActiveByUserID(_ context.Context, userID uuid.UUID) ([]*models.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	var out []*models.Session
	for _, row := range l.rows {
		if row.UserID == userID && row.Active(now) {
			out = append(out, copySession(row))
		}
	}
	return out, nil
}

func (l *fakeSessionLedger) Rotate(_ context.Context, oldID uuid.UUID, oldTokenHash string, next *models.Session) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	old, ok := l.rows[oldID]
	if !ok || old.RevokedAt != nil || old.TokenHash != oldTokenHash {
		return false, nil
	}
	now := time.Now()
	successor := next.ID
	old.RevokedAt = &now
	old.ReplacedBy = &successor
	l.rows[next.ID] = copySession(next)
	return true, nil
}

func (l *fakeSessionLedger) Revoke(_ context.Context, id uuid.UUID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if row, ok := l.rows[id]; ok && row.RevokedAt == nil {
		now := time.Now()
		row.RevokedAt = &now
	}
	return nil
}

func (l *fakeSessionLedger) RevokeAllByUserID(_ context.Context, userID uuid.UUID) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	var n int64
	for _, row := range l.rows {
		if row.UserID == userID && row.RevokedAt == nil {
			row.RevokedAt = &now
			n++
		}
	}
	return n, nil
}

func (l *fakeSessionLedger) DeleteExpired(_ context.Context) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	var n int64
	for id, row := range l.rows {
		if row.ExpiresAt.Before(now) {
			delete(l.rows, id)
			n++
		}
	}
	return n, nil
}

func (l *fakeSessionLedger) activeCount(userID uuid.UUID) int {
	rows, _ := l.ListActiveByUserID(context.Background(), userID)
	return len(rows)
}

var _ repository.SessionRepository = (*fakeSessionLedger)(nil)

func newChainService(t *testing.T, ledger *fakeSessionLedger, user *models.User, publisher events.Publisher) *SessionService {
	t.Helper()
	tokens, err := security.NewHMACTokenService(testJWTConfig())
	require.NoError(t, err)
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	userRepo := new(MockUserRepository)
	userRepo.On("FindByID", mock.Anything, user.ID).Return(user, nil)
	return NewSessionService(ledger, userRepo, tokens, publisher, testJWTConfig(), zap.NewNop())
}

func TestRotationChainSingleActiveRow(t *testing.T) {
	ledger := newFakeSessionLedger()
	user := activeUser()
	svc := newChainService(t, ledger, user, nil)
	ctx := context.Background()

	pair, err := svc.CreateSession(ctx, user, false, models.RequestContext{})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		pair, err = svc.Rotate(ctx, pair.RefreshToken, models.RequestContext{})
		require.NoError(t, err)
	}

	assert.Equal(t, 1, ledger.activeCount(user.ID), "rotation must leave exactly one live row per chain")
	identity, err := svc.ValidateRefresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, pair.SessionID, identity.SessionID)
}

func TestRotationChainReplayKillsChain(t *testing.T) {
	ledger := newFakeSessionLedger()
	user := activeUser()
	publisher := &capturingPublisher{}
	svc := newChainService(t, ledger, user, publisher)
	ctx := context.Background()

	first, err := svc.CreateSession(ctx, user, false, models.RequestContext{})
	require.NoError(t, err)

	second, err := svc.Rotate(ctx, first.RefreshToken, models.RequestContext{})
	require.NoError(t, err)
	third, err := svc.Rotate(ctx, second.RefreshToken, models.RequestContext{})
	require.NoError(t, err)

	// An attacker replays the oldest token in the chain.
	_, err = svc.Rotate(ctx, first.RefreshToken, models.RequestContext{IPAddress: "203.0.113.9"})
	assert.ErrorIs(t, err, domainErrors.ErrTokenReuse)
	assert.Contains(t, publisher.published(), events.TokenReuse)

	// The current head dies with it: the whole lineage is gone.
	assert.Equal(t, 0, ledger.activeCount(user.ID))
	_, err = svc.Rotate(ctx, third.RefreshToken, models.RequestContext{})
	assert.Error(t, err)
}

func TestRotationChainStolenTokenScenario(t *testing.T) {
	// A thief rotates the stolen token before the legitimate client does.
	// The client's failed refresh must not leave the thief with a live
	// session.
	ledger := newFakeSessionLedger()
	user := activeUser()
	svc := newChainService(t, ledger, user, nil)
	ctx := context.Background()

	victim, err := svc.CreateSession(ctx, user, false, models.RequestContext{})
	require.NoError(t, err)

	stolen, err := svc.Rotate(ctx, victim.RefreshToken, models.RequestContext{UserAgent: "thief"})
	require.NoError(t, err)

	_, err = svc.Rotate(ctx, victim.RefreshToken, models.RequestContext{UserAgent: "victim"})
	assert.ErrorIs(t, err, domainErrors.ErrTokenReuse)

	_, err = svc.Rotate(ctx, stolen.RefreshToken, models.RequestContext{UserAgent: "thief"})
	assert.Error(t, err, "the thief's session must be dead after the replay was detected")
	assert.Equal(t, 0, ledger.activeCount(user.ID))
}

func TestRotationChainLogoutIsNotReuse(t *testing.T) {
	// A row revoked without a successor (logout, revoke-all) is merely dead;
	// presenting its token is not a reuse incident.
	ledger := newFakeSessionLedger()
	user := activeUser()
	publisher := &capturingPublisher{}
	svc := newChainService(t, ledger, user, publisher)
	ctx := context.Background()

	pair, err := svc.CreateSession(ctx, user, false, models.RequestContext{})
	require.NoError(t, err)
	svc.RevokeByToken(ctx, pair.RefreshToken)

	_, err = svc.Rotate(ctx, pair.RefreshToken, models.RequestContext{})
	assert.ErrorIs(t, err, domainErrors.ErrInvalidSession)
	assert.NotContains(t, publisher.published(), events.TokenReuse)
}
