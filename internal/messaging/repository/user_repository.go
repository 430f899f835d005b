package repository

import (
	"context"

	"chathub/internal/messaging/models"

	"gorm.io/gorm"
)

// UserRepository is the read-only view of the identity subsystem's
// users table that messaging needs: participant validation and display
// names.
type UserRepository interface {
	GetByIDs(ctx context.Context, userIDs []string) ([]models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// GetByIDs returns the users matching the given ids. Callers compare
// the returned count against the requested count; a mismatch means an
// id did not resolve.
func (r *userRepository) GetByIDs(ctx context.Context, userIDs []string) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error
	return users, err
}
