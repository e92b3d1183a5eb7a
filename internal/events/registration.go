package events

import (
	"context"
	"errors"

	"github.com/jimdaga/meetup/internal/apperr"
	"github.com/jimdaga/meetup/internal/models"
	"github.com/jimdaga/meetup/internal/store"
)

// Register adds user to the participants of the event. The event row stays
// locked until commit so that concurrent registrations cannot overfill it.
func (s *Service) Register(ctx context.Context, user *models.User, eventID uint) (*Detail, error) {
	var out *Detail
	err := s.store.WithinTx(ctx, func(repos store.Repositories) error {
		event, err := repos.Events().GetForUpdate(ctx, eventID)
		if err != nil {
			return notFound(err)
		}
		if event.OrganizerID == user.ID {
			return apperr.ErrSelfRegistration
		}

		exists, err := repos.Participations().Exists(ctx, eventID, user.ID)
		if err != nil {
			return err
		}
		if exists {
			return apperr.ErrAlreadyRegistered
		}

		if event.MaxParticipants != nil {
			counts, err := repos.Participations().CountByEvents(ctx, []uint{eventID})
			if err != nil {
				return err
			}
			if event.IsFull(counts[eventID]) {
				return apperr.ErrEventFull
			}
		}

		err = repos.Participations().Create(ctx, &models.Participation{EventID: eventID, UserID: user.ID})
		if errors.Is(err, store.ErrDuplicate) {
			// a concurrent request registered first
			return apperr.ErrAlreadyRegistered
		}
		if err != nil {
			return err
		}

		loaded, err := repos.Events().GetByID(ctx, eventID)
		if err != nil {
			return err
		}
		out, err = detail(ctx, repos, user, loaded)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Cancel removes user from the participants of the event.
func (s *Service) Cancel(ctx context.Context, user *models.User, eventID uint) (*Detail, error) {
	var out *Detail
	err := s.store.WithinTx(ctx, func(repos store.Repositories) error {
		event, err := repos.Events().GetByID(ctx, eventID)
		if err != nil {
			return notFound(err)
		}

		removed, err := repos.Participations().Delete(ctx, eventID, user.ID)
		if err != nil {
			return err
		}
		if !removed {
			return apperr.ErrNotRegistered
		}

		out, err = detail(ctx, repos, user, event)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MyOrganized lists every event user organizes, past ones included.
func (s *Service) MyOrganized(ctx context.Context, user *models.User) ([]Summary, error) {
	list, err := s.store.Events().ListByOrganizer(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return summaries(ctx, s.store, user, list)
}

// MyRegistered lists every event user is registered for, past ones included.
func (s *Service) MyRegistered(ctx context.Context, user *models.User) ([]Summary, error) {
	list, err := s.store.Events().ListByParticipant(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return summaries(ctx, s.store, user, list)
}
