// Package server assembles the gin engine and runs the HTTP server.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jimdaga/meetup/internal/api"
	"github.com/jimdaga/meetup/internal/apperr"
	"github.com/jimdaga/meetup/internal/auth"
	"github.com/jimdaga/meetup/internal/categories"
	"github.com/jimdaga/meetup/internal/comments"
	"github.com/jimdaga/meetup/internal/config"
	"github.com/jimdaga/meetup/internal/events"
	"github.com/jimdaga/meetup/internal/health"
	"github.com/jimdaga/meetup/internal/logging"
	"github.com/jimdaga/meetup/internal/users"
)

// Deps are the collaborators the routes are wired to.
type Deps struct {
	Config     *config.Config
	Logger     *slog.Logger
	Users      *users.Directory
	Tokens     *auth.Tokens
	Events     *events.Service
	Categories *categories.Service
	Comments   *comments.Service
	Health     health.Checker
}

// NewRouter builds the gin engine with middleware and all routes.
func NewRouter(d Deps) *gin.Engine {
	if d.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// both /path/ and /path are registered explicitly
	r.RedirectTrailingSlash = false

	r.Use(gin.Recovery())
	r.Use(logging.Middleware(d.Logger))
	if mw := corsMiddleware(d.Config); mw != nil {
		r.Use(mw)
	}
	r.Use(timeout(d.Config.RequestTimeout))

	r.NoRoute(func(c *gin.Context) {
		api.RespondError(c, apperr.NotFound("not found"))
	})

	r.GET("/health", gin.WrapF(health.Handler(d.Health)))

	requireAuth := auth.RequireAuth(d.Tokens, d.Users)
	optionalAuth := auth.OptionalAuth(d.Tokens, d.Users)

	authGroup := r.Group("/api/auth")
	handle(authGroup, http.MethodPost, "/signup/", auth.HandleSignup(d.Users, d.Tokens))
	handle(authGroup, http.MethodPost, "/login/", auth.HandleLogin(d.Users, d.Tokens))
	handle(authGroup, http.MethodGet, "/me/", requireAuth, auth.HandleMe)
	handle(authGroup, http.MethodPost, "/token/refresh/", auth.HandleRefresh(d.Tokens))

	eventsGroup := r.Group("/api/events")
	handle(eventsGroup, http.MethodGet, "/", optionalAuth, events.HandleList(d.Events))
	handle(eventsGroup, http.MethodPost, "/", requireAuth, events.HandleCreate(d.Events))
	handle(eventsGroup, http.MethodGet, "/my_organized/", requireAuth, events.HandleMyOrganized(d.Events))
	handle(eventsGroup, http.MethodGet, "/my_registered/", requireAuth, events.HandleMyRegistered(d.Events))
	handle(eventsGroup, http.MethodGet, "/:id/", optionalAuth, events.HandleGet(d.Events))
	handle(eventsGroup, http.MethodPut, "/:id/", requireAuth, events.HandleUpdate(d.Events, false))
	handle(eventsGroup, http.MethodPatch, "/:id/", requireAuth, events.HandleUpdate(d.Events, true))
	handle(eventsGroup, http.MethodDelete, "/:id/", requireAuth, events.HandleDelete(d.Events))
	handle(eventsGroup, http.MethodPost, "/:id/register/", requireAuth, events.HandleRegister(d.Events))
	handle(eventsGroup, http.MethodPost, "/:id/cancel_registration/", requireAuth, events.HandleCancel(d.Events))
	handle(eventsGroup, http.MethodGet, "/:id/comments/", requireAuth, comments.HandleEventComments(d.Comments))

	categoriesGroup := r.Group("/api/categories")
	handle(categoriesGroup, http.MethodGet, "/", categories.HandleList(d.Categories))
	handle(categoriesGroup, http.MethodPost, "/", requireAuth, categories.HandleCreate(d.Categories))
	handle(categoriesGroup, http.MethodGet, "/:id/", categories.HandleGet(d.Categories))
	handle(categoriesGroup, http.MethodPut, "/:id/", requireAuth, categories.HandleUpdate(d.Categories, false))
	handle(categoriesGroup, http.MethodPatch, "/:id/", requireAuth, categories.HandleUpdate(d.Categories, true))
	handle(categoriesGroup, http.MethodDelete, "/:id/", requireAuth, categories.HandleDelete(d.Categories))

	commentsGroup := r.Group("/api/comments", requireAuth)
	handle(commentsGroup, http.MethodGet, "/", comments.HandleList(d.Comments))
	handle(commentsGroup, http.MethodPost, "/", comments.HandleCreate(d.Comments))
	handle(commentsGroup, http.MethodGet, "/:id/", comments.HandleGet(d.Comments))
	handle(commentsGroup, http.MethodPut, "/:id/", comments.HandleUpdate(d.Comments, false))
	handle(commentsGroup, http.MethodPatch, "/:id/", comments.HandleUpdate(d.Comments, true))
	handle(commentsGroup, http.MethodDelete, "/:id/", comments.HandleDelete(d.Comments))
	handle(commentsGroup, http.MethodGet, "/:id/replies/", comments.HandleReplies(d.Comments))

	return r
}

// handle registers path with and without its trailing slash.
func handle(g *gin.RouterGroup, method, path string, handlers ...gin.HandlerFunc) {
	g.Handle(method, path, handlers...)
	if trimmed := strings.TrimSuffix(path, "/"); trimmed != path {
		g.Handle(method, trimmed, handlers...)
	}
}

// corsMiddleware allows every origin in development when no list is set.
// Without a list outside development no CORS headers are sent.
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")

	switch {
	case len(cfg.CORSAllowedOrigins) > 0:
		corsCfg.AllowOrigins = cfg.CORSAllowedOrigins
	case !cfg.IsProduction():
		corsCfg.AllowAllOrigins = true
	default:
		return nil
	}
	return cors.New(corsCfg)
}

// timeout bounds the request context. Handlers see the deadline through
// c.Request.Context().
func timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
