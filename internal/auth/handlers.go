package auth

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/meetup/internal/api"
	"github.com/jimdaga/meetup/internal/users"
)

// authResponse is returned by signup and login.
type authResponse struct {
	User   users.UserRef `json:"user"`
	Tokens TokenPair     `json:"tokens"`
}

type signupRequest struct {
	Email    string `json:"email" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

// HandleSignup creates an account and returns it with a token pair
func HandleSignup(dir *users.Directory, tokens *Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req signupRequest
		if err := api.BindJSON(c, &req); err != nil {
			api.RespondError(c, err)
			return
		}

		user, err := dir.Register(c.Request.Context(), users.RegisterInput{
			Email:    req.Email,
			Name:     req.Name,
			Password: req.Password,
		})
		if err != nil {
			api.RespondError(c, err)
			return
		}

		pair, err := tokens.IssuePair(user)
		if err != nil {
			api.RespondError(c, err)
			return
		}

		slog.InfoContext(c.Request.Context(), "User signed up", "user_id", user.ID)
		c.JSON(http.StatusCreated, authResponse{User: users.NewUserRef(user), Tokens: pair})
	}
}

// HandleLogin checks the credentials and returns a token pair
func HandleLogin(dir *users.Directory, tokens *Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := api.BindJSON(c, &req); err != nil {
			api.RespondError(c, err)
			return
		}

		user, err := dir.Authenticate(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			api.RespondError(c, err)
			return
		}

		pair, err := tokens.IssuePair(user)
		if err != nil {
			api.RespondError(c, err)
			return
		}

		slog.InfoContext(c.Request.Context(), "User authenticated", "user_id", user.ID)
		c.JSON(http.StatusOK, authResponse{User: users.NewUserRef(user), Tokens: pair})
	}
}

// HandleMe returns the authenticated user. Mount behind RequireAuth.
func HandleMe(c *gin.Context) {
	user := CurrentUser(c)
	if user == nil {
		api.RespondError(c, errNoCredentials)
		return
	}
	c.JSON(http.StatusOK, users.NewUserRef(user))
}

// HandleRefresh exchanges a refresh token for a new access token
func HandleRefresh(tokens *Tokens) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req refreshRequest
		if err := api.BindJSON(c, &req); err != nil {
			api.RespondError(c, err)
			return
		}

		access, err := tokens.Refresh(req.Refresh)
		if err != nil {
			api.RespondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"access": access})
	}
}
