package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/orbitcart/auth-service/internal/domain/models"
	"github.com/orbitcart/auth-service/internal/events"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, id uuid.UUID, fullName string, phone *string) error {
	return m.Called(ctx, id, fullName, phone).Error(0)
}

func (m *MockUserRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

func (m *MockUserRepository) SetMFA(ctx context.Context, id uuid.UUID, enabled bool, secretEncrypted string) error {
	return m.Called(ctx, id, enabled, secretEncrypted).Error(0)
}

func (m *MockUserRepository) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type MockSessionRepository struct {
	mock.Mock
}

func (m *MockSessionRepository) Create(ctx context.Context, session *models.Session) error {
	return m.Called(ctx, session).Error(0)
}

func (m *MockSessionRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockSessionRepository) ListActiveByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Session, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Session), args.Error(1)
}

func (m *MockSessionRepository) Rotate(ctx context.Context, oldID uuid.UUID, oldTokenHash string, next *models.Session) (bool, error) {
	args := m.Called(ctx, oldID, oldTokenHash, next)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockSessionRepository) RevokeAllByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockTrustedDeviceRepository struct {
	mock.Mock
}

func (m *MockTrustedDeviceRepository) Create(ctx context.Context, device *models.TrustedDevice) error {
	return m.Called(ctx, device).Error(0)
}

func (m *MockTrustedDeviceRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.TrustedDevice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TrustedDevice), args.Error(1)
}

func (m *MockTrustedDeviceRepository) ListActiveByUserID(ctx context.Context, userID uuid.UUID) ([]*models.TrustedDevice, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TrustedDevice), args.Error(1)
}

func (m *MockTrustedDeviceRepository) TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	return m.Called(ctx, id, at).Error(0)
}

func (m *MockTrustedDeviceRepository) Revoke(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockTrustedDeviceRepository) RevokeAllByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

type MockEnrollmentChallengeRepository struct {
	mock.Mock
}

func (m *MockEnrollmentChallengeRepository) Create(ctx context.Context, challenge *models.MFAEnrollmentChallenge) error {
	return m.Called(ctx, challenge).Error(0)
}

func (m *MockEnrollmentChallengeRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.MFAEnrollmentChallenge, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MFAEnrollmentChallenge), args.Error(1)
}

func (m *MockEnrollmentChallengeRepository) Consume(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockEnrollmentChallengeRepository) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockLoginChallengeRepository struct {
	mock.Mock
}

func (m *MockLoginChallengeRepository) Create(ctx context.Context, challenge *models.MFALoginChallenge) error {
	return m.Called(ctx, challenge).Error(0)
}

func (m *MockLoginChallengeRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.MFALoginChallenge, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.MFALoginChallenge), args.Error(1)
}

func (m *MockLoginChallengeRepository) Consume(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockLoginChallengeRepository) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockBackupCodeRepository struct {
	mock.Mock
}

func (m *MockBackupCodeRepository) CreateBatch(ctx context.Context, codes []*models.BackupCode) error {
	return m.Called(ctx, codes).Error(0)
}

func (m *MockBackupCodeRepository) ListUnusedByUserID(ctx context.Context, userID uuid.UUID) ([]*models.BackupCode, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BackupCode), args.Error(1)
}

func (m *MockBackupCodeRepository) MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockBackupCodeRepository) InvalidateAllByUserID(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	args := m.Called(ctx, userID, at)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBackupCodeRepository) DeleteByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

type MockVerificationTokenRepository struct {
	mock.Mock
}

func (m *MockVerificationTokenRepository) Create(ctx context.Context, token *models.VerificationToken) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockVerificationTokenRepository) FindByTokenHash(ctx context.Context, purpose models.VerificationPurpose, tokenHash string) (*models.VerificationToken, error) {
	args := m.Called(ctx, purpose, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.VerificationToken), args.Error(1)
}

func (m *MockVerificationTokenRepository) MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	args := m.Called(ctx, id, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockVerificationTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// capturingPublisher records published events for assertions.
type capturingPublisher struct {
	mu     sync.Mutex
	events []events.EventType
}

func (p *capturingPublisher) Publish(eventType events.EventType, _ uuid.UUID, _ interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
}

func (p *capturingPublisher) Close() error { return nil }

func (p *capturingPublisher) published() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.EventType(nil), p.events...)
}

// capturingSender records outbound mail.
type capturingSender struct {
	mu       sync.Mutex
	subjects []string
	bodies   []string
}

func (s *capturingSender) Send(_ context.Context, _, subject, htmlBody string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subjects = append(s.subjects, subject)
	s.bodies = append(s.bodies, htmlBody)
	return nil
}
