package models

import (
	"time"
)

// Participation records that a user is registered for an event. The
// (event_id, user_id) pair is unique.
type Participation struct {
	ID        uint  `gorm:"primaryKey"`
	EventID   uint  `gorm:"not null;uniqueIndex:idx_events_participants_event_user"`
	Event     Event `gorm:"constraint:OnDelete:CASCADE;"`
	UserID    uint  `gorm:"not null;uniqueIndex:idx_events_participants_event_user;index"`
	User      User  `gorm:"constraint:OnDelete:CASCADE;"`
	CreatedAt time.Time
}

func (Participation) TableName() string { return "events_participants" }
