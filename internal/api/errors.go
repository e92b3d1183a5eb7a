// Package api holds HTTP helpers shared by the handlers: the error body,
// request binding and pagination links.
package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/meetup/internal/apperr"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// RespondError writes err as a JSON error response and aborts the chain.
// Internal errors are logged and replaced by a generic message.
func RespondError(c *gin.Context, err error) {
	_ = c.Error(err)

	status := apperr.Status(err)
	if status == http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "Request failed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"error", err,
		)
		c.AbortWithStatusJSON(status, ErrorBody{Error: "internal server error"})
		return
	}

	body := ErrorBody{Error: err.Error()}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		body.Error = appErr.Message
		body.Fields = appErr.Fields
	}
	c.AbortWithStatusJSON(status, body)
}
