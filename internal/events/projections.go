package events

import (
	"context"
	"fmt"
	"time"

	"github.com/jimdaga/meetup/internal/categories"
	"github.com/jimdaga/meetup/internal/models"
	"github.com/jimdaga/meetup/internal/store"
	"github.com/jimdaga/meetup/internal/users"
)

// Summary is the list view of an event as seen by one viewer.
type Summary struct {
	ID                uint              `json:"id"`
	Title             string            `json:"title"`
	Description       string            `json:"description"`
	Date              time.Time         `json:"date"`
	Organizer         users.UserRef     `json:"organizer"`
	Categories        []categories.View `json:"categories"`
	MaxParticipants   *int              `json:"max_participants"`
	ParticipantsCount int64             `json:"participants_count"`
	IsFull            bool              `json:"is_full"`
	IsRegistered      bool              `json:"is_registered"`
}

// Detail adds the participant list and timestamps to Summary.
type Detail struct {
	Summary
	Participants []users.UserRef `json:"participants"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func newSummary(e *models.Event, count int64, registered bool) Summary {
	return Summary{
		ID:                e.ID,
		Title:             e.Title,
		Description:       e.Description,
		Date:              e.Date,
		Organizer:         users.NewUserRef(&e.Organizer),
		Categories:        categories.Views(e.Categories),
		MaxParticipants:   e.MaxParticipants,
		ParticipantsCount: count,
		IsFull:            e.IsFull(count),
		IsRegistered:      registered,
	}
}

// detail builds the Detail of e for viewer. e must have its organizer and
// categories loaded.
func detail(ctx context.Context, repos store.Repositories, viewer *models.User, e *models.Event) (*Detail, error) {
	participations, err := repos.Participations().ListByEvent(ctx, e.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load participants: %w", err)
	}

	participants := make([]users.UserRef, 0, len(participations))
	registered := false
	for i := range participations {
		participants = append(participants, users.NewUserRef(&participations[i].User))
		if viewer != nil && participations[i].UserID == viewer.ID {
			registered = true
		}
	}

	return &Detail{
		Summary:      newSummary(e, int64(len(participants)), registered),
		Participants: participants,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}, nil
}

// summaries builds the Summary of every event with two aggregate queries.
func summaries(ctx context.Context, repos store.Repositories, viewer *models.User, list []models.Event) ([]Summary, error) {
	out := make([]Summary, 0, len(list))
	if len(list) == 0 {
		return out, nil
	}

	ids := make([]uint, len(list))
	for i := range list {
		ids[i] = list[i].ID
	}

	counts, err := repos.Participations().CountByEvents(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to count participants: %w", err)
	}

	registered := map[uint]bool{}
	if viewer != nil {
		if registered, err = repos.Participations().RegisteredAmong(ctx, viewer.ID, ids); err != nil {
			return nil, fmt.Errorf("failed to load registrations: %w", err)
		}
	}

	for i := range list {
		out = append(out, newSummary(&list[i], counts[list[i].ID], registered[list[i].ID]))
	}
	return out, nil
}
