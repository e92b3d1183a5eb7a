package events

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jimdaga/meetup/internal/api"
	"github.com/jimdaga/meetup/internal/apperr"
	"github.com/jimdaga/meetup/internal/auth"
)

// Accepted date layouts. Dates without a zone are read as UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// eventRequest is the body of create and update requests. Pointers tell
// missing fields apart from empty ones.
type eventRequest struct {
	Title           *string     `json:"title"`
	Description     *string     `json:"description"`
	Date            *string     `json:"date"`
	MaxParticipants nullableInt `json:"max_participants"`
	CategoryIDs     *[]uint     `json:"category_ids"`
}

// nullableInt tells an absent field from an explicit null.
type nullableInt struct {
	Set   bool
	Value *int
}

func (n *nullableInt) UnmarshalJSON(data []byte) error {
	n.Set = true
	if string(data) == "null" {
		n.Value = nil
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

func (r eventRequest) toUpdate(partial bool) (UpdateInput, error) {
	fields := map[string]string{}
	if !partial {
		for name, missing := range map[string]bool{
			"title":       r.Title == nil,
			"description": r.Description == nil,
			"date":        r.Date == nil,
		} {
			if missing {
				fields[name] = "this field is required"
			}
		}
	}

	in := UpdateInput{
		Title:              r.Title,
		Description:        r.Description,
		SetMaxParticipants: r.MaxParticipants.Set,
		MaxParticipants:    r.MaxParticipants.Value,
		SetCategories:      r.CategoryIDs != nil,
	}
	if r.CategoryIDs != nil {
		in.CategoryIDs = *r.CategoryIDs
	}
	if r.Date != nil {
		date, err := parseDate(*r.Date)
		if err != nil {
			fields["date"] = "datetime has wrong format, use ISO 8601"
		} else {
			in.Date = &date
		}
	}

	if err := apperr.Fields(fields); err != nil {
		return UpdateInput{}, err
	}
	return in, nil
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	var err error
	for _, layout := range dateLayouts {
		var t time.Time
		if t, err = time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}

func eventID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 0)
	if err != nil || id == 0 {
		return 0, errEventNotFound
	}
	return uint(id), nil
}

// HandleList returns a page of upcoming events
func HandleList(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := api.ParsePage(c)
		if err != nil {
			api.RespondError(c, err)
			return
		}

		result, err := svc.List(c.Request.Context(), auth.CurrentUser(c), page)
		if err != nil {
			api.RespondError(c, err)
			return
		}

		c.JSON(http.StatusOK, api.NewPageBody(c, result.Count, result.Number, PageSize, result.Results))
	}
}

// HandleCreate creates an event organized by the current user
func HandleCreate(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req eventRequest
		if err := api.BindJSON(c, &req); err != nil {
			api.RespondError(c, err)
			return
		}
		in, err := req.toUpdate(false)
		if err != nil {
			api.RespondError(c, err)
			return
		}

		out, err := svc.Create(c.Request.Context(), auth.CurrentUser(c), CreateInput{
			Title:           *in.Title,
			Description:     *in.Description,
			Date:            *in.Date,
			MaxParticipants: in.MaxParticipants,
			CategoryIDs:     in.CategoryIDs,
		})
		if err != nil {
			api.RespondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, out)
	}
}

// HandleGet returns one event
func HandleGet(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := eventID(c)
		if err != nil {
			api.RespondError(c, err)
			return
		}

		out, err := svc.Get(c.Request.Context(), auth.CurrentUser(c), id)
		if err != nil {
			api.RespondError(c, err)
			return
		}

		c.JSON(http.StatusOK, out)
	}
}

// HandleUpdate serves PUT (all fields required) and PATCH (partial).
func HandleUpdate(svc *Service, partial bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := eventID(c)
		if err != nil {
			api.RespondError(c, err)
			return
		}

		var req eventRequest
		if err := api.BindJSON(c, &req); err != nil {
			api.RespondError(c, err)
			return
		}
		in, err := req.toUpdate(partial)
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

// HandleDelete removes an event
func HandleDelete(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := eventID(c)
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

// HandleRegister registers the current user for an event
func HandleRegister(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := eventID(c)
		if err != nil {
			api.RespondError(c, err)
			return
		}

		out, err := svc.Register(c.Request.Context(), auth.CurrentUser(c), id)
		if err != nil {
			api.RespondError(c, err)
			return
		}

		c.JSON(http.StatusOK, out)
	}
}

// HandleCancel cancels the current user's registration
func HandleCancel(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := eventID(c)
		if err != nil {
			api.RespondError(c, err)
			return
		}

		out, err := svc.Cancel(c.Request.Context(), auth.CurrentUser(c), id)
		if err != nil {
			api.RespondError(c, err)
			return
		}

		c.JSON(http.StatusOK, out)
	}
}

// HandleMyOrganized lists the events the current user organizes
func HandleMyOrganized(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svc.MyOrganized(c.Request.Context(), auth.CurrentUser(c))
		if err != nil {
			api.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// HandleMyRegistered lists the events the current user is registered for
func HandleMyRegistered(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svc.MyRegistered(c.Request.Context(), auth.CurrentUser(c))
		if err != nil {
			api.RespondError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}
