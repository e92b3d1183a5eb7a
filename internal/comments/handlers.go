package comments

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/meetup/internal/api"
	"github.com/jimdaga/meetup/internal/apperr"
	"github.com/jimdaga/meetup/internal/auth"
)

type createRequest struct {
	Event   uint   `json:"event" binding:"required"`
	Parent  *uint  `json:"parent"`
	Content string `json:"content" binding:"required"`
}

type updateRequest struct {
	Content *string `json:"content"`
}

func pathID(c *gin.Context, notFound error) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil || id == 0 {
		return 0, notFound
	}
	return uint(id), nil
}

// queryID reads an optional numeric filter such as ?event=3.
func queryID(c *gin.Context, name string) (uint, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 0)
	if err != nil {
		return 0, apperr.FieldError(name, "a valid integer is required")
	}
	return uint(id), nil
}

func respondPage(c *gin.Context, page *Page) {
	c.JSON(http.StatusOK, api.NewPageBody(c, page.Count, page.Number, page.Size, page.Results))
}

// HandleList returns a page of comments, optionally filtered by ?event= and ?user=
func HandleList(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter Filter
		var err error
		if filter.EventID, err = queryID(c, "event"); err != nil {
			api.RespondError(c, err)
			return
		}
		if filter.UserID, err = queryID(c, "user"); err != nil {
			api.RespondError(c, err)
			return
		}
		page, err := api.ParsePage(c)
		if err != nil {
			api.RespondError(c, err)
			return
		}

		out, err := svc.List(c.Request.Context(), filter, page, api.ParsePageSize(c, DefaultPageSize, MaxPageSize))
		if err != nil {
			api.RespondError(c, err)
			return
		}
		respondPage(c, out)
	}
}

// HandleEventComments returns a page of the comments on one event
func HandleEventComments(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c, errEventNotFound)
		if err != nil {
			api.RespondError(c, err)
			return
		}
		page, err := api.ParsePage(c)
		if err != nil {
			api.RespondError(c, err)
			return
		}

		out, err := svc.ListForEvent(c.Request.Context(), id, page, api.ParsePageSize(c, DefaultPageSize, MaxPageSize))
		if err != nil {
			api.RespondError(c, err)
			return
		}
		respondPage(c, out)
	}
}

func HandleGet(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c, errCommentNotFound)
		if err != nil {
			api.RespondError(c, err)
			return
		}
		out, err := svc.Get(c.Request.Context(), id)
		if err != nil {
			api.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// HandleCreate posts a comment as the current user
func HandleCreate(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createRequest
		if err := api.BindJSON(c, &req); err != nil {
			api.RespondError(c, err)
			return
		}
		out, err := svc.Create(c.Request.Context(), auth.CurrentUser(c), CreateInput{
			EventID:  req.Event,
			ParentID: req.Parent,
			Content:  req.Content,
		})
		if err != nil {
			api.RespondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, out)
	}
}

// HandleUpdate serves PUT (content required) and PATCH.
func HandleUpdate(svc *Service, partial bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c, errCommentNotFound)
		if err != nil {
			api.RespondError(c, err)
			return
		}
		var req updateRequest
		if err := api.BindJSON(c, &req); err != nil {
			api.RespondError(c, err)
			return
		}
		if !partial && req.Content == nil {
			api.RespondError(c, apperr.FieldError("content", "this field is required"))
			return
		}
		out, err := svc.Update(c.Request.Context(), auth.CurrentUser(c), id, req.Content)
		if err != nil {
			api.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func HandleDelete(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c, errCommentNotFound)
		if err != nil {
			api.RespondError(c, err)
			return
		}
		if err := svc.Delete(c.Request.Context(), auth.CurrentUser(c), id); err != nil {
			api.RespondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// HandleReplies returns the reply tree below a comment
func HandleReplies(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := pathID(c, errCommentNotFound)
		if err != nil {
			api.RespondError(c, err)
			return
		}
		out, err := svc.Replies(c.Request.Context(), id)
		if err != nil {
			api.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}
