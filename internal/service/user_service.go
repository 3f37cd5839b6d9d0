package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orbitcart/auth-service/internal/domain/models"
	"github.com/orbitcart/auth-service/internal/domain/repository"
)

// UserService exposes the profile projection of the user record.
type UserService struct {
	userRepo repository.UserRepository
	logger   *zap.Logger
}

func NewUserService(userRepo repository.UserRepository, logger *zap.Logger) *UserService {
	return &UserService{userRepo: userRepo, logger: logger}
}

func (s *UserService) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile := user.Profile()
	return &profile, nil
}

// UpdateProfile mutates the mutable profile fields and returns the fresh
// projection. Email is immutable through this path.
func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, fullName string, phone *string) (*models.Profile, error) {
	if err := s.userRepo.UpdateProfile(ctx, userID, fullName, phone); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, userID)
}
