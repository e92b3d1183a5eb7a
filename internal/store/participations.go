package store

import (
	"context"
	"fmt"

	"github.com/jimdaga/meetup/internal/models"
	"gorm.io/gorm"
)

type participationRepo struct {
	db *gorm.DB
}

func (r *participationRepo) Create(ctx context.Context, p *models.Participation) error {
	if err := r.db.WithContext(ctx).Omit("Event", "User").Create(p).Error; err != nil {
		return fmt.Errorf("failed to create participation: %w", translate(err))
	}
	return nil
}

func (r *participationRepo) Delete(ctx context.Context, eventID, userID uint) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Delete(&models.Participation{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete participation: %w", translate(result.Error))
	}
	return result.RowsAffected > 0, nil
}

func (r *participationRepo) Exists(ctx context.Context, eventID, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Participation{}).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check participation: %w", err)
	}
	return count > 0, nil
}

func (r *participationRepo) ListByEvent(ctx context.Context, eventID uint) ([]models.Participation, error) {
	var participations []models.Participation
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Preload("User").
		Order("created_at ASC, id ASC").
		Find(&participations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	return participations, nil
}

func (r *participationRepo) CountByEvents(ctx context.Context, eventIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(eventIDs))
	if len(eventIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		EventID uint
		Count   int64
	}
	err := r.db.WithContext(ctx).Model(&models.Participation{}).
		Select("event_id, COUNT(*) AS count").
		Where("event_id IN ?", eventIDs).
		Group("event_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count participants: %w", err)
	}
	for _, row := range rows {
		counts[row.EventID] = row.Count
	}
	return counts, nil
}

func (r *participationRepo) RegisteredAmong(ctx context.Context, userID uint, eventIDs []uint) (map[uint]bool, error) {
	registered := make(map[uint]bool)
	if len(eventIDs) == 0 {
		return registered, nil
	}

	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Participation{}).
		Where("user_id = ? AND event_id IN ?", userID, eventIDs).
		Pluck("event_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load registrations: %w", err)
	}
	for _, id := range ids {
		registered[id] = true
	}
	return registered, nil
}
