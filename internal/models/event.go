package models

import (
	"time"
)

// Event is a scheduled gathering owned by its organizer. A nil
// MaxParticipants means the event has no capacity limit.
type Event struct {
	ID              uint      `gorm:"primaryKey"`
	Title           string    `gorm:"size:255;not null"`
	Description     string    `gorm:"type:text;not null"`
	Date            time.Time `gorm:"not null;index"`
	MaxParticipants *int
	OrganizerID     uint `gorm:"not null;index"`
	Organizer       User `gorm:"constraint:OnDelete:CASCADE;"`
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Participations []Participation `gorm:"constraint:OnDelete:CASCADE;"`
	Categories     []Category      `gorm:"many2many:event_categories;"`
}

func (Event) TableName() string { return "events" }

// IsFull reports whether count participants exhaust the capacity.
func (e *Event) IsFull(count int64) bool {
	return e.MaxParticipants != nil && count >= int64(*e.MaxParticipants)
}
