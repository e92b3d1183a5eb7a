package models

import (
	"time"
)

// User represents an account. Email is the login name and is unique.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Email        string `gorm:"size:255;uniqueIndex:idx_users_email;not null"`
	Name         string `gorm:"size:255;not null"`
	PasswordHash string `gorm:"size:255;not null"` // bcrypt hash, never sent to clients
	IsActive     bool   `gorm:"not null;default:true"`
	IsStaff      bool   `gorm:"not null;default:false"` // may manage categories and any comment
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// Associations
	OrganizedEvents []Event         `gorm:"foreignKey:OrganizerID;constraint:OnDelete:CASCADE;"`
	Participations  []Participation `gorm:"constraint:OnDelete:CASCADE;"`
}

func (User) TableName() string { return "users" }
