package models

import (
	"time"
)

// Category classifies events. Name and Slug are both unique.
type Category struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:100;uniqueIndex:idx_categories_name;not null"`
	Slug      string `gorm:"size:100;uniqueIndex:idx_categories_slug;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Category) TableName() string { return "categories" }

// EventCategory assigns a category to an event. The pair is unique.
type EventCategory struct {
	ID         uint `gorm:"primaryKey"`
	EventID    uint `gorm:"not null;uniqueIndex:idx_event_categories_event_category"`
	CategoryID uint `gorm:"not null;uniqueIndex:idx_event_categories_event_category;index"`
	CreatedAt  time.Time
}

func (EventCategory) TableName() string { return "event_categories" }
