package users

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jimdaga/meetup/internal/apperr"
	"github.com/jimdaga/meetup/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	ctx := context.Background()
	mem := storetest.NewMemory()
	dir := NewDirectory(mem.Users())

	user, err := dir.Register(ctx, RegisterInput{Email: "  Alice@Example.COM ", Name: " Alice ", Password: "secret1"})
	require.NoError(t, err)

	assert.NotZero(t, user.ID)
	assert.Equal(t, "Alice@example.com", user.Email)
	assert.Equal(t, "Alice", user.Name)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "secret1", user.PasswordHash)

	ok, err := CheckPassword(user.PasswordHash, "secret1")
	require.NoError(t, err)
	assert.True(t, ok)

	t.Run("duplicate email", func(t *testing.T) {
		_, err := dir.Register(ctx, RegisterInput{Email: "Alice@example.com", Name: "Other", Password: "secret2"})
		var appErr *apperr.Error
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, apperr.KindValidation, appErr.Kind)
		assert.Contains(t, appErr.Fields, "email")
	})
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{"short password", RegisterInput{Email: "a@example.com", Name: "A", Password: "12345"}, "password"},
		{"invalid email", RegisterInput{Email: "not-an-email", Name: "A", Password: "secret1"}, "email"},
		{"blank email", RegisterInput{Email: "   ", Name: "A", Password: "secret1"}, "email"},
		{"blank name", RegisterInput{Email: "a@example.com", Name: "  ", Password: "secret1"}, "name"},
		{"long name", RegisterInput{Email: "a@example.com", Name: strings.Repeat("n", 256), Password: "secret1"}, "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem := storetest.NewMemory()
			_, err := NewDirectory(mem.Users()).Register(context.Background(), tt.in)

			var appErr *apperr.Error
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperr.KindValidation, appErr.Kind)
			assert.Contains(t, appErr.Fields, tt.field)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	mem := storetest.NewMemory()
	dir := NewDirectory(mem.Users())

	alice, err := dir.Register(ctx, RegisterInput{Email: "alice@example.com", Name: "Alice", Password: "secret1"})
	require.NoError(t, err)

	t.Run("success records last login", func(t *testing.T) {
		user, err := dir.Authenticate(ctx, "alice@EXAMPLE.com", "secret1")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, user.ID)

		stored, err := mem.Users().GetByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.NotNil(t, stored.LastLoginAt)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := dir.Authenticate(ctx, "alice@example.com", "wrong-password")
		assert.Equal(t, apperr.KindAuthentication, apperr.KindOf(err))
		assert.EqualError(t, err, "invalid credentials")
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := dir.Authenticate(ctx, "nobody@example.com", "secret1")
		assert.EqualError(t, err, "invalid credentials")
	})

	t.Run("deactivated", func(t *testing.T) {
		mem.SetActive(alice.ID, false)
		defer mem.SetActive(alice.ID, true)

		_, err := dir.Authenticate(ctx, "alice@example.com", "secret1")
		assert.Equal(t, apperr.KindAuthentication, apperr.KindOf(err))
		assert.EqualError(t, err, "account is deactivated")
	})

	t.Run("store failure", func(t *testing.T) {
		mem.Err = errors.New("connection refused")
		defer func() { mem.Err = nil }()

		_, err := dir.Authenticate(ctx, "alice@example.com", "secret1")
		assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	})
}

func TestGet(t *testing.T) {
	mem := storetest.NewMemory()
	dir := NewDirectory(mem.Users())

	_, err := dir.Get(context.Background(), 42)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestNormalizeEmail(t *testing.T) {
	got, err := NormalizeEmail(" John.Doe@Example.ORG ")
	require.NoError(t, err)
	assert.Equal(t, "John.Doe@example.org", got)

	_, err = NormalizeEmail("missing-at.example.org")
	assert.Error(t, err)
}
