package database

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jimdaga/meetup/internal/categories"
	"github.com/jimdaga/meetup/internal/models"
	"github.com/jimdaga/meetup/internal/users"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed seed/dev.yaml
var defaultSeed []byte

// SeedFixture describes development data.
type SeedFixture struct {
	Users      []SeedUser     `yaml:"users"`
	Categories []SeedCategory `yaml:"categories"`
	Events     []SeedEvent    `yaml:"events"`
}

type SeedUser struct {
	Email    string `yaml:"email"`
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
	Staff    bool   `yaml:"staff"`
}

// SeedCategory gets a slug derived from its name when none is given.
type SeedCategory struct {
	Name string `yaml:"name"`
	Slug string `yaml:"slug"`
}

type SeedEvent struct {
	Title           string        `yaml:"title"`
	Description     string        `yaml:"description"`
	Organizer       string        `yaml:"organizer"`
	StartsIn        time.Duration `yaml:"starts_in"`
	MaxParticipants *int          `yaml:"max_participants"`
	Categories      []string      `yaml:"categories"` // slugs
	Participants    []string      `yaml:"participants"`
	Comments        []SeedComment `yaml:"comments"`
}

// SeedComment is a top-level comment and its direct replies.
type SeedComment struct {
	Author  string        `yaml:"author"`
	Content string        `yaml:"content"`
	Replies []SeedComment `yaml:"replies"`
}

// ParseSeedFixture decodes a fixture, rejecting unknown keys so typos fail loudly.
// A nil or empty input selects the embedded default fixture.
func ParseSeedFixture(data []byte) (*SeedFixture, error) {
	if len(data) == 0 {
		data = defaultSeed
	}

	var fx SeedFixture
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&fx); err != nil {
		return nil, fmt.Errorf("failed to parse seed fixture: %w", err)
	}

	if len(fx.Users) == 0 {
		return nil, fmt.Errorf("seed fixture has no users")
	}
	known := make(map[string]bool, len(fx.Users))
	for _, u := range fx.Users {
		if u.Email == "" || u.Password == "" {
			return nil, fmt.Errorf("seed user missing email or password")
		}
		known[u.Email] = true
	}
	slugs := make(map[string]bool, len(fx.Categories))
	for i := range fx.Categories {
		c := &fx.Categories[i]
		if c.Name == "" {
			return nil, fmt.Errorf("seed category missing name")
		}
		if c.Slug == "" {
			c.Slug = categories.Slugify(c.Name)
		}
		slugs[c.Slug] = true
	}

	for _, e := range fx.Events {
		if !known[e.Organizer] {
			return nil, fmt.Errorf("seed event %q: unknown organizer %q", e.Title, e.Organizer)
		}
		for _, slug := range e.Categories {
			if !slugs[slug] {
				return nil, fmt.Errorf("seed event %q: unknown category %q", e.Title, slug)
			}
		}
		if e.MaxParticipants != nil && len(e.Participants) > *e.MaxParticipants {
			return nil, fmt.Errorf("seed event %q: more participants than max_participants", e.Title)
		}
		if err := checkSeedComments(e.Comments, known); err != nil {
			return nil, fmt.Errorf("seed event %q: %w", e.Title, err)
		}
		for _, p := range e.Participants {
			if !known[p] {
				return nil, fmt.Errorf("seed event %q: unknown participant %q", e.Title, p)
			}
			if p == e.Organizer {
				return nil, fmt.Errorf("seed event %q: organizer cannot participate", e.Title)
			}
		}
	}

	return &fx, nil
}

func checkSeedComments(list []SeedComment, known map[string]bool) error {
	for _, c := range list {
		if !known[c.Author] {
			return fmt.Errorf("unknown comment author %q", c.Author)
		}
		if err := checkSeedComments(c.Replies, known); err != nil {
			return err
		}
	}
	return nil
}

// SeedDevData populates the database with development test data.
// Idempotent: skips if the first fixture user already exists.
func SeedDevData(db *gorm.DB, fx *SeedFixture) error {
	var existing models.User
	err := db.Where("email = ?", fx.Users[0].Email).First(&existing).Error
	if err == nil {
		slog.Info("Seed data already exists, skipping")
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check seed data: %w", err)
	}

	now := time.Now().UTC()
	var participations, comments int

	err = db.Transaction(func(tx *gorm.DB) error {
		byEmail := make(map[string]uint, len(fx.Users))
		for _, su := range fx.Users {
			hash, err := users.HashPassword(su.Password)
			if err != nil {
				return err
			}
			user := models.User{
				Email:        su.Email,
				Name:         su.Name,
				PasswordHash: hash,
				IsActive:     true,
				IsStaff:      su.Staff,
			}
			if err := tx.Create(&user).Error; err != nil {
				return fmt.Errorf("failed to seed user %s: %w", su.Email, err)
			}
			byEmail[su.Email] = user.ID
		}

		bySlug := make(map[string]uint, len(fx.Categories))
		for _, sc := range fx.Categories {
			category := models.Category{Name: sc.Name, Slug: sc.Slug}
			if err := tx.Create(&category).Error; err != nil {
				return fmt.Errorf("failed to seed category %s: %w", sc.Slug, err)
			}
			bySlug[sc.Slug] = category.ID
		}

		for _, se := range fx.Events {
			event := models.Event{
				Title:           se.Title,
				Description:     se.Description,
				Date:            now.Add(se.StartsIn).Truncate(time.Minute),
				MaxParticipants: se.MaxParticipants,
				OrganizerID:     byEmail[se.Organizer],
			}
			if err := tx.Omit("Organizer", "Categories").Create(&event).Error; err != nil {
				return fmt.Errorf("failed to seed event %q: %w", se.Title, err)
			}
			for _, slug := range se.Categories {
				link := models.EventCategory{EventID: event.ID, CategoryID: bySlug[slug]}
				if err := tx.Create(&link).Error; err != nil {
					return fmt.Errorf("failed to seed event category: %w", err)
				}
			}
			n, err := seedComments(tx, event.ID, nil, se.Comments, byEmail)
			if err != nil {
				return err
			}
			comments += n
			for _, email := range se.Participants {
				p := models.Participation{EventID: event.ID, UserID: byEmail[email]}
				if err := tx.Create(&p).Error; err != nil {
					return fmt.Errorf("failed to seed participation: %w", err)
				}
				participations++
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("Seeded dev data",
		"users", len(fx.Users),
		"events", len(fx.Events),
		"participations", participations,
		"categories", len(fx.Categories),
		"comments", comments,
	)
	return nil
}

func seedComments(tx *gorm.DB, eventID uint, parentID *uint, list []SeedComment, byEmail map[string]uint) (int, error) {
	n := 0
	for _, sc := range list {
		comment := models.EventComment{
			EventID:  eventID,
			UserID:   byEmail[sc.Author],
			ParentID: parentID,
			Content:  sc.Content,
		}
		if err := tx.Omit("Event", "User").Create(&comment).Error; err != nil {
			return n, fmt.Errorf("failed to seed comment: %w", err)
		}
		replies, err := seedComments(tx, eventID, &comment.ID, sc.Replies, byEmail)
		if err != nil {
			return n, err
		}
		n += 1 + replies
	}
	return n, nil
}
