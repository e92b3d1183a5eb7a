package auth

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/meetup/internal/api"
	"github.com/jimdaga/meetup/internal/apperr"
	"github.com/jimdaga/meetup/internal/models"
)

const currentUserKey = "current_user"

var errNoCredentials = apperr.Authentication("authentication credentials were not provided")

// UserLoader loads the account a token refers to.
type UserLoader interface {
	Get(ctx context.Context, id uint) (*models.User, error)
}

// RequireAuth is a middleware that ensures the request carries a valid
// bearer access token for an active user
func RequireAuth(tokens *Tokens, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok, err := bearerToken(c)
		if err == nil && !ok {
			err = errNoCredentials
		}
		if err != nil {
			api.RespondError(c, err)
			return
		}

		user, err := resolveUser(c.Request.Context(), tokens, users, token)
		if err != nil {
			api.RespondError(c, err)
			return
		}

		// User is authenticated - set context values for downstream handlers
		c.Set(currentUserKey, user)
		c.Next()
	}
}

// OptionalAuth lets anonymous requests through. A token that is present
// but invalid is still rejected.
func OptionalAuth(tokens *Tokens, users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok, err := bearerToken(c)
		if err != nil {
			api.RespondError(c, err)
			return
		}
		if !ok {
			c.Next()
			return
		}

		user, err := resolveUser(c.Request.Context(), tokens, users, token)
		if err != nil {
			api.RespondError(c, err)
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the authenticated user, or nil for anonymous requests.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*models.User)
	return user
}

func bearerToken(c *gin.Context) (string, bool, error) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return "", false, nil
	}

	scheme, token, found := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false, apperr.Authentication("authorization header must be: Bearer <token>")
	}
	return token, true, nil
}

func resolveUser(ctx context.Context, tokens *Tokens, users UserLoader, token string) (*models.User, error) {
	userID, err := tokens.ParseAccess(token)
	if err != nil {
		return nil, err
	}

	user, err := users.Get(ctx, userID)
	if apperr.KindOf(err) == apperr.KindNotFound {
		return nil, apperr.Authentication("user not found")
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperr.Authentication("user is inactive")
	}
	return user, nil
}
