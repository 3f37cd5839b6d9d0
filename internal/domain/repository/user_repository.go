package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/orbitcart/auth-service/internal/domain/models"
)

// UserRepository is the persistence boundary for user records.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// FindByEmail matches case-insensitively.
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, fullName string, phone *string) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, passwordHash string) error
	// SetMFA writes both the flag and the encrypted secret in one statement;
	// disabling clears the secret.
	SetMFA(ctx context.Context, id uuid.UUID, enabled bool, secretEncrypted string) error
	MarkEmailVerified(ctx context.Context, id uuid.UUID) error
}
