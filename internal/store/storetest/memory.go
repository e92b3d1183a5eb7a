// Package storetest provides an in-memory store.Store for tests.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jimdaga/meetup/internal/models"
	"github.com/jimdaga/meetup/internal/store"
)

var _ store.Store = (*Memory)(nil)

type state struct {
	users           map[uint]models.User
	events          map[uint]models.Event
	participations  []models.Participation
	categories      map[uint]models.Category
	eventCategories []models.EventCategory
	comments        map[uint]models.EventComment
	nextID          uint
}

func (s state) clone() state {
	c := state{
		users:           make(map[uint]models.User, len(s.users)),
		events:          make(map[uint]models.Event, len(s.events)),
		participations:  append([]models.Participation(nil), s.participations...),
		categories:      make(map[uint]models.Category, len(s.categories)),
		eventCategories: append([]models.EventCategory(nil), s.eventCategories...),
		comments:        make(map[uint]models.EventComment, len(s.comments)),
		nextID:          s.nextID,
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.events {
		c.events[k] = v
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.comments {
		c.comments[k] = v
	}
	return c
}

// Memory mimics the postgres schema: unique emails, unique (event, user)
// participations, unique category names and slugs, and cascading deletes. Transactions are serialized and
// rolled back by restoring a snapshot.
type Memory struct {
	mu   sync.Mutex
	txMu sync.Mutex
	s    state

	// Err, when set, is returned by every repository call.
	Err error
	// BeforeCreateParticipation runs before the uniqueness check of a
	// participation insert; tests use it to simulate a concurrent writer.
	BeforeCreateParticipation func(m *Memory, p *models.Participation)
}

func NewMemory() *Memory {
	return &Memory{s: state{
		users:      map[uint]models.User{},
		events:     map[uint]models.Event{},
		categories: map[uint]models.Category{},
		comments:   map[uint]models.EventComment{},
	}}
}

func (m *Memory) Users() store.UserRepository                   { return memUsers{m} }
func (m *Memory) Events() store.EventRepository                 { return memEvents{m} }
func (m *Memory) Participations() store.ParticipationRepository { return memParticipations{m} }
func (m *Memory) Categories() store.CategoryRepository          { return memCategories{m} }
func (m *Memory) Comments() store.CommentRepository             { return memComments{m} }

func (m *Memory) WithinTx(ctx context.Context, fn func(store.Repositories) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapshot := m.s.clone()
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.s = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

// InsertParticipation adds a row directly, bypassing hooks. It must not be
// called while m.mu is held.
func (m *Memory) InsertParticipation(eventID, userID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s.nextID++
	m.s.participations = append(m.s.participations, models.Participation{
		ID: m.s.nextID, EventID: eventID, UserID: userID, CreatedAt: time.Now().UTC(),
	})
}

// ParticipationCount returns the number of participation rows.
func (m *Memory) ParticipationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.s.participations)
}

// SetStaff flips a user's staff flag.
func (m *Memory) SetStaff(userID uint, staff bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.s.users[userID]
	u.IsStaff = staff
	m.s.users[userID] = u
}

// CommentCount returns the number of comment rows.
func (m *Memory) CommentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.s.comments)
}

// SetActive flips a user's active flag.
func (m *Memory) SetActive(userID uint, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.s.users[userID]
	u.IsActive = active
	m.s.users[userID] = u
}

// DeleteUser removes a user with the same cascades as the schema.
func (m *Memory) DeleteUser(userID uint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.s.users, userID)
	for id, e := range m.s.events {
		if e.OrganizerID == userID {
			m.deleteEventLocked(id)
		}
	}
	kept := m.s.participations[:0]
	for _, p := range m.s.participations {
		if p.UserID != userID {
			kept = append(kept, p)
		}
	}
	m.s.participations = kept
	for id, c := range m.s.comments {
		if c.UserID == userID {
			m.deleteCommentLocked(id)
		}
	}
}

func (m *Memory) deleteEventLocked(id uint) {
	delete(m.s.events, id)
	kept := m.s.participations[:0]
	for _, p := range m.s.participations {
		if p.EventID != id {
			kept = append(kept, p)
		}
	}
	m.s.participations = kept

	links := m.s.eventCategories[:0]
	for _, ec := range m.s.eventCategories {
		if ec.EventID != id {
			links = append(links, ec)
		}
	}
	m.s.eventCategories = links

	for cid, c := range m.s.comments {
		if c.EventID == id {
			delete(m.s.comments, cid)
		}
	}
}

// deleteCommentLocked removes a comment and every reply below it.
func (m *Memory) deleteCommentLocked(id uint) {
	if _, ok := m.s.comments[id]; !ok {
		return
	}
	delete(m.s.comments, id)
	for cid, c := range m.s.comments {
		if c.ParentID != nil && *c.ParentID == id {
			m.deleteCommentLocked(cid)
		}
	}
}

// withRefs attaches the organizer and the categories, as the gorm preloads do.
func (m *Memory) withRefs(e models.Event) models.Event {
	e.Organizer = m.s.users[e.OrganizerID]
	e.Categories = nil
	for _, ec := range m.s.eventCategories {
		if ec.EventID == e.ID {
			e.Categories = append(e.Categories, m.s.categories[ec.CategoryID])
		}
	}
	sortCategories(e.Categories)
	return e
}

func sortCategories(categories []models.Category) {
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].Name < categories[j].Name
	})
}

func sortEvents(events []models.Event) {
	sort.Slice(events, func(i, j int) bool {
		if !events[i].Date.Equal(events[j].Date) {
			return events[i].Date.Before(events[j].Date)
		}
		return events[i].ID < events[j].ID
	})
}

type memUsers struct{ m *Memory }

func (r memUsers) Create(ctx context.Context, user *models.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return r.m.Err
	}
	for _, u := range r.m.s.users {
		if u.Email == user.Email {
			return fmt.Errorf("failed to create user: %w", store.ErrDuplicate)
		}
	}
	r.m.s.nextID++
	now := time.Now().UTC()
	user.ID = r.m.s.nextID
	user.CreatedAt, user.UpdatedAt = now, now
	r.m.s.users[user.ID] = *user
	return nil
}

func (r memUsers) GetByID(ctx context.Context, id uint) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return nil, r.m.Err
	}
	u, ok := r.m.s.users[id]
	if !ok {
		return nil, fmt.Errorf("failed to get user %d: %w", id, store.ErrNotFound)
	}
	return &u, nil
}

func (r memUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return nil, r.m.Err
	}
	for _, u := range r.m.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("failed to get user by email: %w", store.ErrNotFound)
}

func (r memUsers) TouchLastLogin(ctx context.Context, user *models.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return r.m.Err
	}
	now := time.Now().UTC()
	u := r.m.s.users[user.ID]
	u.LastLoginAt = &now
	r.m.s.users[user.ID] = u
	user.LastLoginAt = &now
	return nil
}

type memEvents struct{ m *Memory }

func (r memEvents) Create(ctx context.Context, event *models.Event) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return r.m.Err
	}
	if _, ok := r.m.s.users[event.OrganizerID]; !ok {
		return fmt.Errorf("failed to create event: organizer %d does not exist", event.OrganizerID)
	}
	r.m.s.nextID++
	now := time.Now().UTC()
	event.ID = r.m.s.nextID
	event.CreatedAt, event.UpdatedAt = now, now
	stored := *event
	stored.Organizer = models.User{}
	stored.Categories = nil
	r.m.s.events[event.ID] = stored
	return nil
}

func (r memEvents) GetByID(ctx context.Context, id uint) (*models.Event, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return nil, r.m.Err
	}
	e, ok := r.m.s.events[id]
	if !ok {
		return nil, fmt.Errorf("failed to get event %d: %w", id, store.ErrNotFound)
	}
	e = r.m.withRefs(e)
	return &e, nil
}

func (r memEvents) GetForUpdate(ctx context.Context, id uint) (*models.Event, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return nil, r.m.Err
	}
	e, ok := r.m.s.events[id]
	if !ok {
		return nil, fmt.Errorf("failed to lock event %d: %w", id, store.ErrNotFound)
	}
	return &e, nil
}

func (r memEvents) Update(ctx context.Context, event *models.Event) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return r.m.Err
	}
	stored, ok := r.m.s.events[event.ID]
	if !ok {
		return fmt.Errorf("failed to update event %d: %w", event.ID, store.ErrNotFound)
	}
	event.UpdatedAt = time.Now().UTC()
	stored.Title = event.Title
	stored.Description = event.Description
	stored.Date = event.Date
	stored.MaxParticipants = event.MaxParticipants
	stored.UpdatedAt = event.UpdatedAt
	r.m.s.events[event.ID] = stored
	return nil
}

func (r memEvents) Delete(ctx context.Context, id uint) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return r.m.Err
	}
	if _, ok := r.m.s.events[id]; !ok {
		return fmt.Errorf("failed to delete event %d: %w", id, store.ErrNotFound)
	}
	r.m.deleteEventLocked(id)
	return nil
}

func (r memEvents) ListUpcoming(ctx context.Context, opts store.ListOptions) ([]models.Event, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return nil, 0, r.m.Err
	}
	var all []models.Event
	for _, e := range r.m.s.events {
		if !e.Date.Before(opts.From) {
			all = append(all, r.m.withRefs(e))
		}
	}
	sortEvents(all)

	total := int64(len(all))
	if opts.Offset >= len(all) {
		return []models.Event{}, total, nil
	}
	end := opts.Offset + opts.Limit
	if opts.Limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[opts.Offset:end], total, nil
}

func (r memEvents) ListByOrganizer(ctx context.Context, userID uint) ([]models.Event, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return nil, r.m.Err
	}
	var out []models.Event
	for _, e := range r.m.s.events {
		if e.OrganizerID == userID {
			out = append(out, r.m.withRefs(e))
		}
	}
	sortEvents(out)
	return out, nil
}

func (r memEvents) ListByParticipant(ctx context.Context, userID uint) ([]models.Event, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return nil, r.m.Err
	}
	var out []models.Event
	for _, p := range r.m.s.participations {
		if p.UserID == userID {
			out = append(out, r.m.withRefs(r.m.s.events[p.EventID]))
		}
	}
	sortEvents(out)
	return out, nil
}

func (r memEvents) SetCategories(ctx context.Context, eventID uint, categoryIDs []uint) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return r.m.Err
	}
	for _, id := range categoryIDs {
		if _, ok := r.m.s.categories[id]; !ok {
			return fmt.Errorf("failed to assign categories to event %d: category %d does not exist", eventID, id)
		}
	}

	links := r.m.s.eventCategories[:0]
	for _, ec := range r.m.s.eventCategories {
		if ec.EventID != eventID {
			links = append(links, ec)
		}
	}
	seen := make(map[uint]bool, len(categoryIDs))
	for _, id := range categoryIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		r.m.s.nextID++
		links = append(links, models.EventCategory{
			ID: r.m.s.nextID, EventID: eventID, CategoryID: id, CreatedAt: time.Now().UTC(),
		})
	}
	r.m.s.eventCategories = links
	return nil
}

type memParticipations struct{ m *Memory }

func (r memParticipations) Create(ctx context.Context, p *models.Participation) error {
	if hook := r.m.BeforeCreateParticipation; hook != nil {
		hook(r.m, p)
	}

	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return r.m.Err
	}
	for _, existing := range r.m.s.participations {
		if existing.EventID == p.EventID && existing.UserID == p.UserID {
			return fmt.Errorf("failed to create participation: %w", store.ErrDuplicate)
		}
	}
	r.m.s.nextID++
	p.ID = r.m.s.nextID
	p.CreatedAt = time.Now().UTC()
	r.m.s.participations = append(r.m.s.participations, models.Participation{
		ID: p.ID, EventID: p.EventID, UserID: p.UserID, CreatedAt: p.CreatedAt,
	})
	return nil
}

func (r memParticipations) Delete(ctx context.Context, eventID, userID uint) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return false, r.m.Err
	}
	for i, p := range r.m.s.participations {
		if p.EventID == eventID && p.UserID == userID {
			r.m.s.participations = append(r.m.s.participations[:i], r.m.s.participations[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r memParticipations) Exists(ctx context.Context, eventID, userID uint) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return false, r.m.Err
	}
	for _, p := range r.m.s.participations {
		if p.EventID == eventID && p.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r memParticipations) ListByEvent(ctx context.Context, eventID uint) ([]models.Participation, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return nil, r.m.Err
	}
	var out []models.Participation
	for _, p := range r.m.s.participations {
		if p.EventID == eventID {
			p.User = r.m.s.users[p.UserID]
			out = append(out, p)
		}
	}
	return out, nil
}

func (r memParticipations) CountByEvents(ctx context.Context, eventIDs []uint) (map[uint]int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return nil, r.m.Err
	}
	wanted := make(map[uint]bool, len(eventIDs))
	for _, id := range eventIDs {
		wanted[id] = true
	}
	counts := make(map[uint]int64, len(eventIDs))
	for _, p := range r.m.s.participations {
		if wanted[p.EventID] {
			counts[p.EventID]++
		}
	}
	return counts, nil
}

func (r memParticipations) RegisteredAmong(ctx context.Context, userID uint, eventIDs []uint) (map[uint]bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return nil, r.m.Err
	}
	wanted := make(map[uint]bool, len(eventIDs))
	for _, id := range eventIDs {
		wanted[id] = true
	}
	registered := make(map[uint]bool)
	for _, p := range r.m.s.participations {
		if p.UserID == userID && wanted[p.EventID] {
			registered[p.EventID] = true
		}
	}
	return registered, nil
}

type memCategories struct{ m *Memory }

func (r memCategories) uniqueLocked(c *models.Category) error {
	for _, existing := range r.m.s.categories {
		if existing.ID != c.ID && (existing.Name == c.Name || existing.Slug == c.Slug) {
			return store.ErrDuplicate
		}
	}
	return nil
}

func (r memCategories) Create(ctx context.Context, category *models.Category) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return r.m.Err
	}
	if err := r.uniqueLocked(category); err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	r.m.s.nextID++
	now := time.Now().UTC()
	category.ID = r.m.s.nextID
	category.CreatedAt, category.UpdatedAt = now, now
	r.m.s.categories[category.ID] = *category
	return nil
}

func (r memCategories) GetByID(ctx context.Context, id uint) (*models.Category, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return nil, r.m.Err
	}
	c, ok := r.m.s.categories[id]
	if !ok {
		return nil, fmt.Errorf("failed to get category %d: %w", id, store.ErrNotFound)
	}
	return &c, nil
}

func (r memCategories) List(ctx context.Context) ([]models.Category, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return nil, r.m.Err
	}
	out := make([]models.Category, 0, len(r.m.s.categories))
	for _, c := range r.m.s.categories {
		out = append(out, c)
	}
	sortCategories(out)
	return out, nil
}

func (r memCategories) FindByIDs(ctx context.Context, ids []uint) ([]models.Category, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return nil, r.m.Err
	}
	var out []models.Category
	seen := make(map[uint]bool, len(ids))
	for _, id := range ids {
		if c, ok := r.m.s.categories[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, c)
		}
	}
	sortCategories(out)
	return out, nil
}

func (r memCategories) Update(ctx context.Context, category *models.Category) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return r.m.Err
	}
	stored, ok := r.m.s.categories[category.ID]
	if !ok {
		return fmt.Errorf("failed to update category %d: %w", category.ID, store.ErrNotFound)
	}
	if err := r.uniqueLocked(category); err != nil {
		return fmt.Errorf("failed to update category %d: %w", category.ID, err)
	}
	category.UpdatedAt = time.Now().UTC()
	stored.Name = category.Name
	stored.Slug = category.Slug
	stored.UpdatedAt = category.UpdatedAt
	r.m.s.categories[category.ID] = stored
	return nil
}

func (r memCategories) Delete(ctx context.Context, id uint) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return r.m.Err
	}
	if _, ok := r.m.s.categories[id]; !ok {
		return fmt.Errorf("failed to delete category %d: %w", id, store.ErrNotFound)
	}
	delete(r.m.s.categories, id)
	links := r.m.s.eventCategories[:0]
	for _, ec := range r.m.s.eventCategories {
		if ec.CategoryID != id {
			links = append(links, ec)
		}
	}
	r.m.s.eventCategories = links
	return nil
}

type memComments struct{ m *Memory }

func (r memComments) withUser(c models.EventComment) models.EventComment {
	c.User = r.m.s.users[c.UserID]
	return c
}

func sortComments(comments []models.EventComment) {
	sort.Slice(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.Before(comments[j].CreatedAt)
		}
		return comments[i].ID < comments[j].ID
	})
}

func (r memComments) Create(ctx context.Context, comment *models.EventComment) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return r.m.Err
	}
	if _, ok := r.m.s.events[comment.EventID]; !ok {
		return fmt.Errorf("failed to create comment: event %d does not exist", comment.EventID)
	}
	if _, ok := r.m.s.users[comment.UserID]; !ok {
		return fmt.Errorf("failed to create comment: user %d does not exist", comment.UserID)
	}
	if comment.ParentID != nil {
		if _, ok := r.m.s.comments[*comment.ParentID]; !ok {
			return fmt.Errorf("failed to create comment: parent %d does not exist", *comment.ParentID)
		}
	}
	r.m.s.nextID++
	now := time.Now().UTC()
	comment.ID = r.m.s.nextID
	comment.CreatedAt, comment.UpdatedAt = now, now
	stored := *comment
	stored.User = models.User{}
	stored.Event = models.Event{}
	r.m.s.comments[comment.ID] = stored
	return nil
}

func (r memComments) GetByID(ctx context.Context, id uint) (*models.EventComment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return nil, r.m.Err
	}
	c, ok := r.m.s.comments[id]
	if !ok {
		return nil, fmt.Errorf("failed to get comment %d: %w", id, store.ErrNotFound)
	}
	c = r.withUser(c)
	return &c, nil
}

func (r memComments) List(ctx context.Context, filter store.CommentFilter) ([]models.EventComment, int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return nil, 0, r.m.Err
	}
	var all []models.EventComment
	for _, c := range r.m.s.comments {
		if filter.EventID != 0 && c.EventID != filter.EventID {
			continue
		}
		if filter.UserID != 0 && c.UserID != filter.UserID {
			continue
		}
		all = append(all, r.withUser(c))
	}
	sortComments(all)

	total := int64(len(all))
	if filter.Offset >= len(all) {
		return []models.EventComment{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if filter.Limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[filter.Offset:end], total, nil
}

func (r memComments) ListByEvent(ctx context.Context, eventID uint) ([]models.EventComment, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return nil, r.m.Err
	}
	var out []models.EventComment
	for _, c := range r.m.s.comments {
		if c.EventID == eventID {
			out = append(out, r.withUser(c))
		}
	}
	sortComments(out)
	return out, nil
}

func (r memComments) UpdateContent(ctx context.Context, comment *models.EventComment) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return r.m.Err
	}
	stored, ok := r.m.s.comments[comment.ID]
	if !ok {
		return fmt.Errorf("failed to update comment %d: %w", comment.ID, store.ErrNotFound)
	}
	comment.UpdatedAt = time.Now().UTC()
	stored.Content = comment.Content
	stored.UpdatedAt = comment.UpdatedAt
	r.m.s.comments[comment.ID] = stored
	return nil
}

func (r memComments) Delete(ctx context.Context, id uint) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.Err != nil {
		return r.m.Err
	}
	if _, ok := r.m.s.comments[id]; !ok {
		return fmt.Errorf("failed to delete comment %d: %w", id, store.ErrNotFound)
	}
	r.m.deleteCommentLocked(id)
	return nil
}
