package services

import (
	"context"
	"errors"
	"log"

	"unilib-circ/internal/adapters/persistence/models"
	"unilib-circ/internal/adapters/persistence/repositories"
	"unilib-circ/internal/core/domain"

	"gorm.io/gorm"
)

// UserService handles member administration
type UserService struct {
	userRepo *repositories.UserRepository
}

// NewUserService creates a new user service
func NewUserService(userRepo *repositories.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// GetByID gets a user by ID
func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// List lists users with pagination
func (s *UserService) List(ctx context.Context, offset, limit int) ([]*models.User, int64, error) {
	return s.userRepo.List(ctx, offset, limit)
}

// Activate re-enables a blocked or deactivated account. Reactivation is
// always an explicit administrative decision; paying fines alone never
// unblocks an account.
func (s *UserService) Activate(ctx context.Context, id uint) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.userRepo.SetActive(ctx, id, true); err != nil {
		return err
	}
	log.Printf("✅ User %d activated", id)
	return nil
}

// Deactivate blocks an account from all new circulation activity
func (s *UserService) Deactivate(ctx context.Context, id uint) error {
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.userRepo.SetActive(ctx, id, false); err != nil {
		return err
	}
	log.Printf("🚫 User %d deactivated", id)
	return nil
}

// SetRole assigns a member role
func (s *UserService) SetRole(ctx context.Context, id uint, role string) error {
	if !domain.Role(role).IsValid() {
		return ErrInvalidRoleName
	}
	if _, err := s.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.userRepo.SetRole(ctx, id, role); err != nil {
		return err
	}
	log.Printf("✅ User %d role set to %s", id, role)
	return nil
}
