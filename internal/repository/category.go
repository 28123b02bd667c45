package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storefront/internal/model"
)

type CategoryRepository interface {
	Seed(ctx context.Context) error
	List(ctx context.Context) ([]*model.Category, error)
	// FindByID returns model.ErrNotFound when no category has the id.
	FindByID(ctx context.Context, categoryID int64) (*model.Category, error)
	Create(ctx context.Context, category *model.Category) error
	Update(ctx context.Context, categoryID int64, name, slug string) (bool, error)
	Delete(ctx context.Context, categoryID int64) (bool, error)
}

type categoryRepoImpl struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepoImpl{
		db: db,
	}
}

func (r *categoryRepoImpl) Seed(ctx context.Context) error {
	categories := seedCategories()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "slug"}}, DoNothing: true}).
		Create(&categories).Error
}

func (r *categoryRepoImpl) List(ctx context.Context) ([]*model.Category, error) {
	var categories []*model.Category
	err := r.db.WithContext(ctx).
		Order("name asc").
		Find(&categories).Error

	if err != nil {
		return nil, err
	}

	return categories, nil
}

func (r *categoryRepoImpl) FindByID(ctx context.Context, categoryID int64) (*model.Category, error) {
	var category model.Category
	err := r.db.WithContext(ctx).
		Where("id = ?", categoryID).
		First(&category).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &category, nil
}

func (r *categoryRepoImpl) Create(ctx context.Context, category *model.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

func (r *categoryRepoImpl) Update(ctx context.Context, categoryID int64, name, slug string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Category{}).
		Where("id = ?", categoryID).
		Updates(map[string]interface{}{
			"name": name,
			"slug": slug,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *categoryRepoImpl) Delete(ctx context.Context, categoryID int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("id = ?", categoryID).
		Delete(&model.Category{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func seedCategories() []model.Category {
	return []model.Category{
		{Name: "T-shirts", Slug: "t-shirts"},
		{Name: "Shirts", Slug: "shirts"},
		{Name: "Jeans", Slug: "jeans"},
		{Name: "Shorts", Slug: "shorts"},
	}
}
