// Package events runs the event catalog, the registration rules and the
// per-user event views.
package events

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jimdaga/meetup/internal/apperr"
	"github.com/jimdaga/meetup/internal/models"
	"github.com/jimdaga/meetup/internal/store"
)

// PageSize is the number of events per list page.
const PageSize = 20

const maxTitleLength = 255

var (
	errEventNotFound = apperr.NotFound("event not found")
	errNotOrganizer  = apperr.Permission("you do not have permission to perform this action")
)

// CreateInput holds the fields of a new event. A nil MaxParticipants means
// no capacity limit.
type CreateInput struct {
	Title           string
	Description     string
	Date            time.Time
	MaxParticipants *int
	CategoryIDs     []uint
}

// UpdateInput holds the fields to change. Nil fields are left untouched.
// MaxParticipants and CategoryIDs are applied only when their Set flag is on,
// so that a limit can be removed and categories cleared.
type UpdateInput struct {
	Title              *string
	Description        *string
	Date               *time.Time
	SetMaxParticipants bool
	MaxParticipants    *int
	SetCategories      bool
	CategoryIDs        []uint
}

// Page is one page of upcoming events.
type Page struct {
	Count   int64
	Number  int
	Results []Summary
}

// Service implements the event operations on top of a store.Store.
type Service struct {
	store store.Store
	now   func() time.Time
}

func NewService(s store.Store) *Service {
	return &Service{store: s, now: time.Now}
}

// Create stores a new event organized by organizer.
func (s *Service) Create(ctx context.Context, organizer *models.User, in CreateInput) (*Detail, error) {
	fields := map[string]string{}
	title := s.checkTitle(in.Title, fields)
	description := s.checkDescription(in.Description, fields)
	s.checkDate(in.Date, fields)
	s.checkCapacity(in.MaxParticipants, fields)
	if err := apperr.Fields(fields); err != nil {
		return nil, err
	}

	var out *Detail
	err := s.store.WithinTx(ctx, func(repos store.Repositories) error {
		assigned, err := resolveCategories(ctx, repos, in.CategoryIDs)
		if err != nil {
			return err
		}

		event := &models.Event{
			Title:           title,
			Description:     description,
			Date:            in.Date.UTC(),
			MaxParticipants: in.MaxParticipants,
			OrganizerID:     organizer.ID,
		}
		if err := repos.Events().Create(ctx, event); err != nil {
			return err
		}
		if len(assigned) > 0 {
			if err := repos.Events().SetCategories(ctx, event.ID, in.CategoryIDs); err != nil {
				return err
			}
		}
		event.Organizer = *organizer
		event.Categories = assigned

		out, err = detail(ctx, repos, organizer, event)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// List returns the given 1-based page of events that have not started yet,
// soonest first.
func (s *Service) List(ctx context.Context, viewer *models.User, page int) (*Page, error) {
	if page < 1 {
		return nil, apperr.ErrInvalidPage
	}

	offset := (page - 1) * PageSize
	list, total, err := s.store.Events().ListUpcoming(ctx, store.ListOptions{
		From:   s.now().UTC(),
		Offset: offset,
		Limit:  PageSize,
	})
	if err != nil {
		return nil, err
	}
	if page > 1 && int64(offset) >= total {
		return nil, apperr.ErrInvalidPage
	}

	results, err := summaries(ctx, s.store, viewer, list)
	if err != nil {
		return nil, err
	}
	return &Page{Count: total, Number: page, Results: results}, nil
}

// Get returns the event as seen by viewer, which may be nil.
func (s *Service) Get(ctx context.Context, viewer *models.User, id uint) (*Detail, error) {
	event, err := s.store.Events().GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return detail(ctx, s.store, viewer, event)
}

// Update changes the supplied fields. Only the organizer may update.
func (s *Service) Update(ctx context.Context, actor *models.User, id uint, in UpdateInput) (*Detail, error) {
	var out *Detail
	err := s.store.WithinTx(ctx, func(repos store.Repositories) error {
		event, err := repos.Events().GetForUpdate(ctx, id)
		if err != nil {
			return notFound(err)
		}
		if event.OrganizerID != actor.ID {
			return errNotOrganizer
		}

		fields := map[string]string{}
		if in.Title != nil {
			event.Title = s.checkTitle(*in.Title, fields)
		}
		if in.Description != nil {
			event.Description = s.checkDescription(*in.Description, fields)
		}
		if in.Date != nil {
			s.checkDate(*in.Date, fields)
			event.Date = in.Date.UTC()
		}
		if in.SetMaxParticipants {
			s.checkCapacity(in.MaxParticipants, fields)
			event.MaxParticipants = in.MaxParticipants
		}
		if err := apperr.Fields(fields); err != nil {
			return err
		}

		if in.SetCategories {
			if _, err := resolveCategories(ctx, repos, in.CategoryIDs); err != nil {
				return err
			}
			if err := repos.Events().SetCategories(ctx, id, in.CategoryIDs); err != nil {
				return err
			}
		}
		if err := repos.Events().Update(ctx, event); err != nil {
			return err
		}

		updated, err := repos.Events().GetByID(ctx, id)
		if err != nil {
			return err
		}
		out, err = detail(ctx, repos, actor, updated)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the event and its participations. Only the organizer may delete.
func (s *Service) Delete(ctx context.Context, actor *models.User, id uint) error {
	return s.store.WithinTx(ctx, func(repos store.Repositories) error {
		event, err := repos.Events().GetForUpdate(ctx, id)
		if err != nil {
			return notFound(err)
		}
		if event.OrganizerID != actor.ID {
			return errNotOrganizer
		}
		return notFound(repos.Events().Delete(ctx, id))
	})
}

func (s *Service) checkTitle(raw string, fields map[string]string) string {
	title := strings.TrimSpace(raw)
	switch {
	case title == "":
		fields["title"] = "this field may not be blank"
	case utf8.RuneCountInString(title) > maxTitleLength:
		fields["title"] = fmt.Sprintf("ensure this field has no more than %d characters", maxTitleLength)
	}
	return title
}

func (s *Service) checkDescription(raw string, fields map[string]string) string {
	description := strings.TrimSpace(raw)
	if description == "" {
		fields["description"] = "this field may not be blank"
	}
	return description
}

func (s *Service) checkDate(date time.Time, fields map[string]string) {
	if !date.After(s.now()) {
		fields["date"] = "event date must be in the future"
	}
}

func (s *Service) checkCapacity(max *int, fields map[string]string) {
	if max != nil && *max < 1 {
		fields["max_participants"] = "maximum participants must be at least 1"
	}
}

// resolveCategories loads the categories behind ids and fails on the first
// id that does not exist.
func resolveCategories(ctx context.Context, repos store.Repositories, ids []uint) ([]models.Category, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	found, err := repos.Categories().FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	known := make(map[uint]bool, len(found))
	for _, c := range found {
		known[c.ID] = true
	}
	for _, id := range ids {
		if !known[id] {
			return nil, apperr.FieldError("category_ids", fmt.Sprintf("invalid pk %q - object does not exist", strconv.FormatUint(uint64(id), 10)))
		}
	}
	return found, nil
}

// notFound maps store.ErrNotFound to the client-facing event error and
// passes everything else through.
func notFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return errEventNotFound
	}
	return err
}
