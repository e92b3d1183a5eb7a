// Package comments runs threaded discussions on events. Comments are read
// by any signed-in user and changed only by their author or staff.
package comments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jimdaga/meetup/internal/apperr"
	"github.com/jimdaga/meetup/internal/models"
	"github.com/jimdaga/meetup/internal/store"
)

const (
	// DefaultPageSize and MaxPageSize bound the page_size query parameter.
	DefaultPageSize = 20
	MaxPageSize     = 100

	// MaxDepth is the number of ancestors no reply may reach.
	MaxDepth = 10
)

var (
	errCommentNotFound = apperr.NotFound("comment not found")
	errEventNotFound   = apperr.NotFound("event not found")
	errNotAuthor       = apperr.Permission("you do not have permission to perform this action")
)

// Filter narrows a comment listing. Zero IDs match everything.
type Filter struct {
	EventID uint
	UserID  uint
}

type CreateInput struct {
	EventID  uint
	ParentID *uint
	Content  string
}

// Page is one page of comments, oldest first.
type Page struct {
	Count   int64
	Number  int
	Size    int
	Results []View
}

type Service struct {
	store store.Store
}

func NewService(s store.Store) *Service {
	return &Service{store: s}
}

// List returns the given 1-based page of comments matching filter.
func (s *Service) List(ctx context.Context, filter Filter, page, size int) (*Page, error) {
	if page < 1 {
		return nil, apperr.ErrInvalidPage
	}

	offset := (page - 1) * size
	list, total, err := s.store.Comments().List(ctx, store.CommentFilter{
		EventID: filter.EventID,
		UserID:  filter.UserID,
		Offset:  offset,
		Limit:   size,
	})
	if err != nil {
		return nil, err
	}
	if page > 1 && int64(offset) >= total {
		return nil, apperr.ErrInvalidPage
	}

	threads := map[uint]*thread{}
	results := make([]View, 0, len(list))
	for i := range list {
		t, err := s.threadOf(ctx, s.store, threads, list[i].EventID)
		if err != nil {
			return nil, err
		}
		results = append(results, t.view(&list[i]))
	}
	return &Page{Count: total, Number: page, Size: size, Results: results}, nil
}

// ListForEvent is List restricted to one event that must exist.
func (s *Service) ListForEvent(ctx context.Context, eventID uint, page, size int) (*Page, error) {
	if _, err := s.store.Events().GetByID(ctx, eventID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errEventNotFound
		}
		return nil, err
	}
	return s.List(ctx, Filter{EventID: eventID}, page, size)
}

func (s *Service) Get(ctx context.Context, id uint) (*View, error) {
	c, t, err := s.load(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	v := t.view(c)
	return &v, nil
}

// Create posts a comment by author. A reply must target a comment of the
// same event and stay shallower than MaxDepth.
func (s *Service) Create(ctx context.Context, author *models.User, in CreateInput) (*View, error) {
	fields := map[string]string{}
	content := checkContent(in.Content, fields)
	if err := apperr.Fields(fields); err != nil {
		return nil, err
	}

	var out *View
	err := s.store.WithinTx(ctx, func(repos store.Repositories) error {
		if _, err := repos.Events().GetByID(ctx, in.EventID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.FieldError("event", "event does not exist")
			}
			return err
		}

		t, err := s.threadOf(ctx, repos, nil, in.EventID)
		if err != nil {
			return err
		}
		if in.ParentID != nil {
			if err := checkParent(ctx, repos, t, in); err != nil {
				return err
			}
		}

		comment := &models.EventComment{
			EventID:  in.EventID,
			UserID:   author.ID,
			ParentID: in.ParentID,
			Content:  content,
		}
		if err := repos.Comments().Create(ctx, comment); err != nil {
			return err
		}
		comment.User = *author

		t.byID[comment.ID] = comment
		if comment.ParentID != nil {
			t.children[*comment.ParentID] = append(t.children[*comment.ParentID], comment)
		}
		v := t.view(comment)
		out = &v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update replaces the content. A nil content leaves the comment unchanged.
func (s *Service) Update(ctx context.Context, actor *models.User, id uint, content *string) (*View, error) {
	var out *View
	err := s.store.WithinTx(ctx, func(repos store.Repositories) error {
		c, t, err := s.load(ctx, repos, id)
		if err != nil {
			return err
		}
		if !canModify(actor, c) {
			return errNotAuthor
		}

		if content != nil {
			fields := map[string]string{}
			c.Content = checkContent(*content, fields)
			if err := apperr.Fields(fields); err != nil {
				return err
			}
			if err := repos.Comments().UpdateContent(ctx, c); err != nil {
				return notFound(err)
			}
		}

		v := t.view(c)
		out = &v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the comment together with all of its replies.
func (s *Service) Delete(ctx context.Context, actor *models.User, id uint) error {
	return s.store.WithinTx(ctx, func(repos store.Repositories) error {
		c, err := repos.Comments().GetByID(ctx, id)
		if err != nil {
			return notFound(err)
		}
		if !canModify(actor, c) {
			return errNotAuthor
		}
		return notFound(repos.Comments().Delete(ctx, id))
	})
}

// Replies returns the reply tree below the comment.
func (s *Service) Replies(ctx context.Context, id uint) ([]Reply, error) {
	c, t, err := s.load(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	return t.replies(c.ID), nil
}

// load returns the comment with the thread of its event. The comment points
// into the thread.
func (s *Service) load(ctx context.Context, repos store.Repositories, id uint) (*models.EventComment, *thread, error) {
	c, err := repos.Comments().GetByID(ctx, id)
	if err != nil {
		return nil, nil, notFound(err)
	}
	t, err := s.threadOf(ctx, repos, nil, c.EventID)
	if err != nil {
		return nil, nil, err
	}
	if inThread, ok := t.byID[c.ID]; ok {
		return inThread, t, nil
	}
	return c, t, nil
}

// threadOf loads the thread of an event, reusing cache when it is non-nil.
func (s *Service) threadOf(ctx context.Context, repos store.Repositories, cache map[uint]*thread, eventID uint) (*thread, error) {
	if t, ok := cache[eventID]; ok {
		return t, nil
	}
	list, err := repos.Comments().ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load thread: %w", err)
	}
	t := newThread(list)
	if cache != nil {
		cache[eventID] = t
	}
	return t, nil
}

func checkParent(ctx context.Context, repos store.Repositories, t *thread, in CreateInput) error {
	parent, ok := t.byID[*in.ParentID]
	if !ok {
		if _, err := repos.Comments().GetByID(ctx, *in.ParentID); err == nil {
			return apperr.FieldError("parent", "parent comment must belong to the same event")
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		return apperr.FieldError("parent", "parent comment does not exist")
	}
	if t.depth(parent.ID)+1 >= MaxDepth {
		return apperr.FieldError("parent", fmt.Sprintf("reply depth cannot exceed %d levels", MaxDepth))
	}
	return nil
}

func checkContent(raw string, fields map[string]string) string {
	content := strings.TrimSpace(raw)
	if content == "" {
		fields["content"] = "this field may not be blank"
	}
	return content
}

func canModify(actor *models.User, c *models.EventComment) bool {
	return actor.IsStaff || c.UserID == actor.ID
}

func notFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return errCommentNotFound
	}
	return err
}
