package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"storefront/internal/model"
)

type ProfileRepository interface {
	// FindByID returns model.ErrNotFound when the profile row does not exist.
	FindByID(ctx context.Context, userID string) (*model.UserProfile, error)
	Create(ctx context.Context, profile *model.UserProfile) error
	// Update returns model.ErrNotFound when no row matched.
	Update(ctx context.Context, userID string, patch model.ProfilePatch, updatedAt time.Time) error
}

type profileRepoImpl struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepoImpl{
		db: db,
	}
}

func (r *profileRepoImpl) FindByID(ctx context.Context, userID string) (*model.UserProfile, error) {
	var profile model.UserProfile
	err := r.db.WithContext(ctx).
		Where("id = ?", userID).
		First(&profile).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &profile, nil
}

func (r *profileRepoImpl) Create(ctx context.Context, profile *model.UserProfile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *profileRepoImpl) Update(ctx context.Context, userID string, patch model.ProfilePatch, updatedAt time.Time) error {
	values := model.UserProfile{UpdatedAt: &updatedAt}
	cols := append(patch.Apply(&values), "updated_at")

	result := r.db.WithContext(ctx).Model(&model.UserProfile{}).
		Where("id = ?", userID).
		Select(cols).
		Updates(&values)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}
