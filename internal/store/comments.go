package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jimdaga/meetup/internal/models"
	"gorm.io/gorm"
)

type commentRepo struct {
	db *gorm.DB
}

func (r *commentRepo) Create(ctx context.Context, comment *models.EventComment) error {
	if err := r.db.WithContext(ctx).Omit("Event", "User").Create(comment).Error; err != nil {
		return fmt.Errorf("failed to create comment: %w", translate(err))
	}
	return nil
}

func (r *commentRepo) GetByID(ctx context.Context, id uint) (*models.EventComment, error) {
	var comment models.EventComment
	if err := r.db.WithContext(ctx).Preload("User").First(&comment, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get comment %d: %w", id, translate(err))
	}
	return &comment, nil
}

func (r *commentRepo) List(ctx context.Context, filter CommentFilter) ([]models.EventComment, int64, error) {
	scoped := func() *gorm.DB {
		db := r.db.WithContext(ctx).Model(&models.EventComment{})
		if filter.EventID != 0 {
			db = db.Where("event_id = ?", filter.EventID)
		}
		if filter.UserID != 0 {
			db = db.Where("user_id = ?", filter.UserID)
		}
		return db
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count comments: %w", err)
	}

	var comments []models.EventComment
	err := scoped().
		Preload("User").
		Order("created_at ASC, id ASC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&comments).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, total, nil
}

func (r *commentRepo) ListByEvent(ctx context.Context, eventID uint) ([]models.EventComment, error) {
	var comments []models.EventComment
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Preload("User").
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load comments of event %d: %w", eventID, err)
	}
	return comments, nil
}

func (r *commentRepo) UpdateContent(ctx context.Context, comment *models.EventComment) error {
	comment.UpdatedAt = time.Now().UTC()
	result := r.db.WithContext(ctx).Model(&models.EventComment{ID: comment.ID}).Updates(map[string]interface{}{
		"content":    comment.Content,
		"updated_at": comment.UpdatedAt,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update comment %d: %w", comment.ID, translate(result.Error))
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to update comment %d: %w", comment.ID, ErrNotFound)
	}
	return nil
}

func (r *commentRepo) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.EventComment{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete comment %d: %w", id, translate(result.Error))
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to delete comment %d: %w", id, ErrNotFound)
	}
	return nil
}
