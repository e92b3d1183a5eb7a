package models

import (
	"time"
)

// EventComment is a message on an event. Replies point at their parent,
// which always belongs to the same event.
type EventComment struct {
	ID        uint      `gorm:"primaryKey"`
	EventID   uint      `gorm:"not null;index:idx_event_comments_event_created,priority:1"`
	Event     Event     `gorm:"constraint:OnDelete:CASCADE;"`
	UserID    uint      `gorm:"not null;index"`
	User      User      `gorm:"constraint:OnDelete:CASCADE;"`
	ParentID  *uint     `gorm:"index"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"index:idx_event_comments_event_created,priority:2"`
	UpdatedAt time.Time
}

func (EventComment) TableName() string { return "event_comments" }
