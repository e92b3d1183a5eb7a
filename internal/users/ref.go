package users

import (
	"time"

	"github.com/jimdaga/meetup/internal/models"
)

// UserRef is the public view of a user, nested in auth and event responses.
type UserRef struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func NewUserRef(u *models.User) UserRef {
	return UserRef{ID: u.ID, Email: u.Email, Name: u.Name, CreatedAt: u.CreatedAt}
}
