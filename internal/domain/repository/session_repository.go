package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/orbitcart/auth-service/internal/domain/models"
)

// SessionRepository is the persistence boundary for the session ledger.
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	ListActiveByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Session, error)

	// Rotate atomically revokes the old session and inserts its successor.
	// The revoke is conditional on the stored token hash still equalling
	// oldTokenHash and the row being unrevoked (a compare-and-swap); when the
	// condition fails — a concurrent rotation won the race — nothing is
	// written and Rotate returns false.
	Rotate(ctx context.Context, oldID uuid.UUID, oldTokenHash string, next *models.Session) (bool, error)

	Revoke(ctx context.Context, id uuid.UUID) error
	RevokeAllByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
}
