package categories

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/meetup/internal/api"
	"github.com/jimdaga/meetup/internal/apperr"
	"github.com/jimdaga/meetup/internal/auth"
)

type categoryRequest struct {
	Name *string `json:"name"`
	Slug *string `json:"slug"`
}

func (r categoryRequest) toInput(partial bool) (Input, error) {
	if !partial {
		fields := map[string]string{}
		if r.Name == nil {
			fields["name"] = "this field is required"
		}
		if r.Slug == nil {
			fields["slug"] = "this field is required"
		}
		if err := apperr.Fields(fields); err != nil {
			return Input{}, err
		}
	}
	return Input{Name: r.Name, Slug: r.Slug}, nil
}

func categoryID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil || id == 0 {
		return 0, errCategoryNotFound
	}
	return uint(id), nil
}

// HandleList returns every category
func HandleList(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svc.List(c.Request.Context())
		if err != nil {
			api.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// HandleGet returns one category
func HandleGet(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := categoryID(c)
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

func HandleCreate(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req categoryRequest
		if err := api.BindJSON(c, &req); err != nil {
			api.RespondError(c, err)
			return
		}
		in, err := req.toInput(false)
		if err != nil {
			api.RespondError(c, err)
			return
		}
		out, err := svc.Create(c.Request.Context(), auth.CurrentUser(c), in)
		if err != nil {
			api.RespondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, out)
	}
}

// HandleUpdate serves PUT (name and slug required) and PATCH.
func HandleUpdate(svc *Service, partial bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := categoryID(c)
		if err != nil {
			api.RespondError(c, err)
			return
		}
		var req categoryRequest
		if err := api.BindJSON(c, &req); err != nil {
			api.RespondError(c, err)
			return
		}
		in, err := req.toInput(partial)
		if err != nil {
			api.RespondError(c, err)
			return
		}
		out, err := svc.Update(c.Request.Context(), auth.CurrentUser(c), id, in)
		if err != nil {
			api.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

func HandleDelete(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := categoryID(c)
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
