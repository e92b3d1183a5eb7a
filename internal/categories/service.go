// Package categories manages the taxonomy events are classified by.
// Anyone may read it; only staff may change it.
package categories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gosimple/slug"
	"github.com/jimdaga/meetup/internal/apperr"
	"github.com/jimdaga/meetup/internal/models"
	"github.com/jimdaga/meetup/internal/store"
)

const maxLength = 100

var (
	errCategoryNotFound = apperr.NotFound("category not found")
	errNotStaff         = apperr.Permission("you do not have permission to perform this action")
)

// View is the client representation of a category.
type View struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func NewView(c *models.Category) View {
	return View{ID: c.ID, Name: c.Name, Slug: c.Slug}
}

// Views converts a list of categories, never returning nil.
func Views(list []models.Category) []View {
	out := make([]View, 0, len(list))
	for i := range list {
		out = append(out, NewView(&list[i]))
	}
	return out
}

// Input holds category fields. Nil fields are left untouched on update.
type Input struct {
	Name *string
	Slug *string
}

// Slugify derives a slug from a category name.
func Slugify(name string) string {
	return slug.Make(name)
}

type Service struct {
	repo store.CategoryRepository
}

func NewService(repo store.CategoryRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context) ([]View, error) {
	list, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return Views(list), nil
}

func (s *Service) Get(ctx context.Context, id uint) (*View, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	v := NewView(c)
	return &v, nil
}

// Create adds a category. Both name and slug are required.
func (s *Service) Create(ctx context.Context, actor *models.User, in Input) (*View, error) {
	if !actor.IsStaff {
		return nil, errNotStaff
	}

	fields := map[string]string{}
	if in.Name == nil {
		fields["name"] = "this field is required"
	}
	if in.Slug == nil {
		fields["slug"] = "this field is required"
	}
	if err := apperr.Fields(fields); err != nil {
		return nil, err
	}

	c := &models.Category{}
	if err := s.apply(ctx, c, in); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, duplicate(err)
	}
	v := NewView(c)
	return &v, nil
}

// Update changes the supplied fields.
func (s *Service) Update(ctx context.Context, actor *models.User, id uint, in Input) (*View, error) {
	if !actor.IsStaff {
		return nil, errNotStaff
	}

	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if err := s.apply(ctx, c, in); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, duplicate(notFound(err))
	}
	v := NewView(c)
	return &v, nil
}

// Delete removes the category and unassigns it from every event.
func (s *Service) Delete(ctx context.Context, actor *models.User, id uint) error {
	if !actor.IsStaff {
		return errNotStaff
	}
	return notFound(s.repo.Delete(ctx, id))
}

// apply validates in and copies it onto c. Name and slug must stay unique.
func (s *Service) apply(ctx context.Context, c *models.Category, in Input) error {
	fields := map[string]string{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		switch {
		case name == "":
			fields["name"] = "this field may not be blank"
		case utf8.RuneCountInString(name) > maxLength:
			fields["name"] = fmt.Sprintf("ensure this field has no more than %d characters", maxLength)
		}
		c.Name = name
	}
	if in.Slug != nil {
		value := strings.TrimSpace(*in.Slug)
		switch {
		case value == "":
			fields["slug"] = "this field may not be blank"
		case len(value) > maxLength:
			fields["slug"] = fmt.Sprintf("ensure this field has no more than %d characters", maxLength)
		case !slug.IsSlug(value):
			fields["slug"] = "enter a valid slug consisting of lowercase letters, numbers or hyphens"
		}
		c.Slug = value
	}
	if len(fields) > 0 {
		return apperr.Fields(fields)
	}

	existing, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.ID == c.ID {
			continue
		}
		if other.Name == c.Name {
			fields["name"] = "category with this name already exists"
		}
		if other.Slug == c.Slug {
			fields["slug"] = "category with this slug already exists"
		}
	}
	return apperr.Fields(fields)
}

func notFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return errCategoryNotFound
	}
	return err
}

// duplicate covers a concurrent writer taking the name or slug after apply checked it.
func duplicate(err error) error {
	if errors.Is(err, store.ErrDuplicate) {
		return apperr.Validation("category with this name or slug already exists")
	}
	return err
}
