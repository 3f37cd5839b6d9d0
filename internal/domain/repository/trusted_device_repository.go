package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/orbitcart/auth-service/internal/domain/models"
)

// TrustedDeviceRepository is the persistence boundary for MFA-bypass devices.
type TrustedDeviceRepository interface {
	Create(ctx context.Context, device *models.TrustedDevice) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.TrustedDevice, error)
	ListActiveByUserID(ctx context.Context, userID uuid.UUID) ([]*models.TrustedDevice, error)
	TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error
	Revoke(ctx context.Context, id uuid.UUID) error
	RevokeAllByUserID(ctx context.Context, userID uuid.UUID) (int64, error)
}
