// Package users stores accounts and verifies credentials.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jimdaga/meetup/internal/apperr"
	"github.com/jimdaga/meetup/internal/models"
	"github.com/jimdaga/meetup/internal/store"
	emailaddress "github.com/mcnijman/go-emailaddress"
)

const maxFieldLength = 255

var (
	errInvalidCredentials = apperr.Authentication("invalid credentials")
	errDeactivated        = apperr.Authentication("account is deactivated")
)

// RegisterInput is the signup payload.
type RegisterInput struct {
	Email    string
	Name     string
	Password string
}

// Directory registers and authenticates users.
type Directory struct {
	users store.UserRepository
}

func NewDirectory(users store.UserRepository) *Directory {
	return &Directory{users: users}
}

// Register validates in, hashes the password and stores the new user.
func (d *Directory) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	fields := map[string]string{}

	email, err := NormalizeEmail(in.Email)
	if err != nil {
		fields["email"] = "enter a valid email address"
	}

	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		fields["name"] = "this field may not be blank"
	case utf8.RuneCountInString(name) > maxFieldLength:
		fields["name"] = fmt.Sprintf("ensure this field has no more than %d characters", maxFieldLength)
	}

	if utf8.RuneCountInString(in.Password) < MinPasswordLength {
		fields["password"] = fmt.Sprintf("ensure this field has at least %d characters", MinPasswordLength)
	}

	if err := apperr.Fields(fields); err != nil {
		return nil, err
	}

	if _, err := d.users.GetByEmail(ctx, email); err == nil {
		return nil, errEmailTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := d.users.Create(ctx, user); err != nil {
		// lost a race with a concurrent signup for the same address
		if errors.Is(err, store.ErrDuplicate) {
			return nil, errEmailTaken
		}
		return nil, err
	}

	return user, nil
}

var errEmailTaken = apperr.FieldError("email", "user with this email already exists")

// Authenticate checks the credentials and records the login time.
func (d *Directory) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	normalized, err := NormalizeEmail(email)
	if err != nil || password == "" {
		return nil, errInvalidCredentials
	}

	user, err := d.users.GetByEmail(ctx, normalized)
	if errors.Is(err, store.ErrNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	ok, err := CheckPassword(user.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errInvalidCredentials
	}
	if !user.IsActive {
		return nil, errDeactivated
	}

	if err := d.users.TouchLastLogin(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Get returns the user with the given id.
func (d *Directory) Get(ctx context.Context, id uint) (*models.User, error) {
	user, err := d.users.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// NormalizeEmail trims the address, checks its syntax and lower-cases the
// domain part. The local part keeps its case.
func NormalizeEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > maxFieldLength {
		return "", fmt.Errorf("invalid email address")
	}

	addr, err := emailaddress.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid email address: %w", err)
	}

	return addr.LocalPart + "@" + strings.ToLower(addr.Domain), nil
}
