package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/orbitcart/auth-service/internal/domain/models"
)

// MFAEnrollmentChallengeRepository stores pending MFA setups. Expiry is
// enforced at read time; no sweeper is required for correctness.
type MFAEnrollmentChallengeRepository interface {
	Create(ctx context.Context, challenge *models.MFAEnrollmentChallenge) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.MFAEnrollmentChallenge, error)
	// Consume marks the challenge used; returns false when it was already
	// consumed by a concurrent request.
	Consume(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

// MFALoginChallengeRepository stores pending second-factor login steps.
type MFALoginChallengeRepository interface {
	Create(ctx context.Context, challenge *models.MFALoginChallenge) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.MFALoginChallenge, error)
	Consume(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

// BackupCodeRepository stores hashed one-time recovery codes.
type BackupCodeRepository interface {
	CreateBatch(ctx context.Context, codes []*models.BackupCode) error
	ListUnusedByUserID(ctx context.Context, userID uuid.UUID) ([]*models.BackupCode, error)
	// MarkUsed consumes a single code; returns false when the code was
	// already consumed (two requests racing on the same code).
	MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	// InvalidateAllByUserID marks every unused code used, so a fresh batch
	// supersedes the old one in a single statement.
	InvalidateAllByUserID(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error)
	DeleteByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
}
