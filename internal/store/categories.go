package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jimdaga/meetup/internal/models"
	"gorm.io/gorm"
)

type categoryRepo struct {
	db *gorm.DB
}

func (r *categoryRepo) Create(ctx context.Context, category *models.Category) error {
	if err := r.db.WithContext(ctx).Create(category).Error; err != nil {
		return fmt.Errorf("failed to create category: %w", translate(err))
	}
	return nil
}

func (r *categoryRepo) GetByID(ctx context.Context, id uint) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get category %d: %w", id, translate(err))
	}
	return &category, nil
}

func (r *categoryRepo) List(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

func (r *categoryRepo) FindByIDs(ctx context.Context, ids []uint) ([]models.Category, error) {
	var categories []models.Category
	if len(ids) == 0 {
		return categories, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("name ASC").Find(&categories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	return categories, nil
}

func (r *categoryRepo) Update(ctx context.Context, category *models.Category) error {
	category.UpdatedAt = time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&models.Category{ID: category.ID}).Updates(map[string]interface{}{
		"name":       category.Name,
		"slug":       category.Slug,
		"updated_at": category.UpdatedAt,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update category %d: %w", category.ID, translate(result.Error))
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to update category %d: %w", category.ID, ErrNotFound)
	}
	return nil
}

func (r *categoryRepo) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Category{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete category %d: %w", id, translate(result.Error))
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to delete category %d: %w", id, ErrNotFound)
	}
	return nil
}
