package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jimdaga/meetup/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ListOptions selects one page of upcoming events.
type ListOptions struct {
	From   time.Time
	Offset int
	Limit  int
}

type eventRepo struct {
	db *gorm.DB
}

// withRefs preloads what the event views render.
func withRefs(db *gorm.DB) *gorm.DB {
	return db.Preload("Organizer").Preload("Categories", func(db *gorm.DB) *gorm.DB {
		return db.Order("categories.name ASC")
	})
}

func (r *eventRepo) Create(ctx context.Context, event *models.Event) error {
	if err := r.db.WithContext(ctx).Omit("Organizer", "Categories").Create(event).Error; err != nil {
		return fmt.Errorf("failed to create event: %w", translate(err))
	}
	return nil
}

func (r *eventRepo) GetByID(ctx context.Context, id uint) (*models.Event, error) {
	var event models.Event
	if err := withRefs(r.db.WithContext(ctx)).First(&event, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get event %d: %w", id, translate(err))
	}
	return &event, nil
}

func (r *eventRepo) GetForUpdate(ctx context.Context, id uint) (*models.Event, error) {
	var event models.Event
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&event, id).Error
	if err != nil {
		return nil, fmt.Errorf("failed to lock event %d: %w", id, translate(err))
	}
	return &event, nil
}

func (r *eventRepo) Update(ctx context.Context, event *models.Event) error {
	event.UpdatedAt = time.Now().UTC()
	err := r.db.WithContext(ctx).Model(&models.Event{ID: event.ID}).Updates(map[string]interface{}{
		"title":            event.Title,
		"description":      event.Description,
		"date":             event.Date,
		"max_participants": event.MaxParticipants,
		"updated_at":       event.UpdatedAt,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update event %d: %w", event.ID, translate(err))
	}
	return nil
}

func (r *eventRepo) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Event{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete event %d: %w", id, translate(result.Error))
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("failed to delete event %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *eventRepo) ListUpcoming(ctx context.Context, opts ListOptions) ([]models.Event, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.Event{}).Where("date >= ?", opts.From)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count upcoming events: %w", err)
	}

	var events []models.Event
	err := withRefs(r.db.WithContext(ctx)).
		Where("date >= ?", opts.From).
		Order("date ASC, id ASC").
		Offset(opts.Offset).
		Limit(opts.Limit).
		Find(&events).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list upcoming events: %w", err)
	}
	return events, total, nil
}

func (r *eventRepo) ListByOrganizer(ctx context.Context, userID uint) ([]models.Event, error) {
	var events []models.Event
	err := withRefs(r.db.WithContext(ctx)).
		Where("organizer_id = ?", userID).
		Order("date ASC, id ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list organized events: %w", err)
	}
	return events, nil
}

func (r *eventRepo) ListByParticipant(ctx context.Context, userID uint) ([]models.Event, error) {
	var events []models.Event
	err := withRefs(r.db.WithContext(ctx)).
		Joins("JOIN events_participants ep ON ep.event_id = events.id").
		Where("ep.user_id = ?", userID).
		Order("events.date ASC, events.id ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list registered events: %w", err)
	}
	return events, nil
}

func (r *eventRepo) SetCategories(ctx context.Context, eventID uint, categoryIDs []uint) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("event_id = ?", eventID).Delete(&models.EventCategory{}).Error; err != nil {
		return fmt.Errorf("failed to clear categories of event %d: %w", eventID, translate(err))
	}
	if len(categoryIDs) == 0 {
		return nil
	}

	rows := make([]models.EventCategory, 0, len(categoryIDs))
	seen := make(map[uint]bool, len(categoryIDs))
	for _, id := range categoryIDs {
		if !seen[id] {
			seen[id] = true
			rows = append(rows, models.EventCategory{EventID: eventID, CategoryID: id})
		}
	}
	if err := db.Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to assign categories to event %d: %w", eventID, translate(err))
	}
	return nil
}
