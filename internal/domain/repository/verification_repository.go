package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/orbitcart/auth-service/internal/domain/models"
)

// VerificationTokenRepository stores email-verification and password-reset
// tokens. Both kinds share one shape and one table.
type VerificationTokenRepository interface {
	// Create inserts the token after invalidating any outstanding token of
	// the same purpose for the user, preserving the at-most-one-outstanding
	// invariant.
	Create(ctx context.Context, token *models.VerificationToken) error
	FindByTokenHash(ctx context.Context, purpose models.VerificationPurpose, tokenHash string) (*models.VerificationToken, error)
	MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	DeleteExpired(ctx context.Context) (int64, error)
}
