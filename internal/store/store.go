// Package store persists users, events, participations, categories and
// comments through gorm.
package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jimdaga/meetup/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write hits a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
)

const uniqueViolation = "23505"

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	TouchLastLogin(ctx context.Context, user *models.User) error
}

type EventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id uint) (*models.Event, error)
	// GetForUpdate loads the event and locks its row until the transaction ends.
	GetForUpdate(ctx context.Context, id uint) (*models.Event, error)
	Update(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, id uint) error
	ListUpcoming(ctx context.Context, opts ListOptions) ([]models.Event, int64, error)
	ListByOrganizer(ctx context.Context, userID uint) ([]models.Event, error)
	ListByParticipant(ctx context.Context, userID uint) ([]models.Event, error)
	// SetCategories replaces the categories assigned to the event.
	SetCategories(ctx context.Context, eventID uint, categoryIDs []uint) error
}

type ParticipationRepository interface {
	Create(ctx context.Context, p *models.Participation) error
	// Delete removes the (event, user) pair and reports whether a row existed.
	Delete(ctx context.Context, eventID, userID uint) (bool, error)
	Exists(ctx context.Context, eventID, userID uint) (bool, error)
	ListByEvent(ctx context.Context, eventID uint) ([]models.Participation, error)
	CountByEvents(ctx context.Context, eventIDs []uint) (map[uint]int64, error)
	RegisteredAmong(ctx context.Context, userID uint, eventIDs []uint) (map[uint]bool, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, category *models.Category) error
	GetByID(ctx context.Context, id uint) (*models.Category, error)
	// List returns every category ordered by name.
	List(ctx context.Context) ([]models.Category, error)
	// FindByIDs returns the categories that exist among ids, ordered by name.
	FindByIDs(ctx context.Context, ids []uint) ([]models.Category, error)
	Update(ctx context.Context, category *models.Category) error
	Delete(ctx context.Context, id uint) error
}

// CommentFilter selects one page of comments. Zero IDs match everything.
type CommentFilter struct {
	EventID uint
	UserID  uint
	Offset  int
	Limit   int
}

type CommentRepository interface {
	Create(ctx context.Context, comment *models.EventComment) error
	// GetByID loads the comment with its author.
	GetByID(ctx context.Context, id uint) (*models.EventComment, error)
	List(ctx context.Context, filter CommentFilter) ([]models.EventComment, int64, error)
	// ListByEvent returns the whole thread of an event, oldest first.
	ListByEvent(ctx context.Context, eventID uint) ([]models.EventComment, error)
	UpdateContent(ctx context.Context, comment *models.EventComment) error
	// Delete removes the comment and, through the parent key, its replies.
	Delete(ctx context.Context, id uint) error
}

// Repositories groups the repositories bound to one connection or transaction.
type Repositories interface {
	Users() UserRepository
	Events() EventRepository
	Participations() ParticipationRepository
	Categories() CategoryRepository
	Comments() CommentRepository
}

// Store is Repositories plus transactions.
type Store interface {
	Repositories
	// WithinTx runs fn in a transaction. Returning an error rolls it back.
	WithinTx(ctx context.Context, fn func(Repositories) error) error
}

// GormStore implements Store on a gorm connection.
type GormStore struct {
	db *gorm.DB
}

func New(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Users() UserRepository {
	return &userRepo{db: s.db}
}

func (s *GormStore) Events() EventRepository {
	return &eventRepo{db: s.db}
}

func (s *GormStore) Participations() ParticipationRepository {
	return &participationRepo{db: s.db}
}

func (s *GormStore) Categories() CategoryRepository {
	return &categoryRepo{db: s.db}
}

func (s *GormStore) Comments() CommentRepository {
	return &commentRepo{db: s.db}
}

func (s *GormStore) WithinTx(ctx context.Context, fn func(Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}

// translate maps driver errors onto ErrNotFound and ErrDuplicate.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}
