package store_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jimdaga/meetup/internal/database"
	"github.com/jimdaga/meetup/internal/models"
	"github.com/jimdaga/meetup/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

var (
	containerOnce sync.Once
	containerDSN  string
	containerErr  error
)

// openTestDB connects to TEST_DATABASE_URL, or to a throwaway postgres
// container when the variable is unset. Tables are truncated per test.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping PostgreSQL store test in short mode")
	}

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		testcontainers.SkipIfProviderIsNotHealthy(t)
		containerOnce.Do(func() {
			containerDSN, containerErr = startPostgres(context.Background())
		})
		if containerErr != nil {
			t.Skipf("Skipping PostgreSQL store test: %v", containerErr)
		}
		dsn = containerDSN
	}

	db, err := database.Init(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	require.NoError(t, database.RunMigrations(db))
	require.NoError(t, db.Exec("TRUNCATE event_comments, event_categories, categories, events_participants, events, users RESTART IDENTITY CASCADE").Error)

	return db
}

// The container is left for the testcontainers reaper to remove after the run.
func startPostgres(ctx context.Context) (string, error) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "meetup",
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to start container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return "", fmt.Errorf("failed to get container port: %w", err)
	}

	return fmt.Sprintf("postgres://test:test@%s:%s/meetup?sslmode=disable", host, port.Port()), nil
}

func createUser(t *testing.T, s *store.GormStore, email string) *models.User {
	t.Helper()
	u := &models.User{Email: email, Name: email, PasswordHash: "x", IsActive: true}
	require.NoError(t, s.Users().Create(context.Background(), u))
	return u
}

func createEvent(t *testing.T, s *store.GormStore, organizer *models.User, title string, date time.Time) *models.Event {
	t.Helper()
	e := &models.Event{Title: title, Description: "d", Date: date, OrganizerID: organizer.ID}
	require.NoError(t, s.Events().Create(context.Background(), e))
	return e
}

func TestUserRepository(t *testing.T) {
	s := store.New(openTestDB(t))
	ctx := context.Background()

	alice := createUser(t, s, "alice@example.com")

	t.Run("GetByEmail", func(t *testing.T) {
		got, err := s.Users().GetByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, got.ID)
		assert.True(t, got.IsActive)
	})

	t.Run("duplicate email", func(t *testing.T) {
		err := s.Users().Create(ctx, &models.User{Email: "alice@example.com", Name: "A", PasswordHash: "x"})
		assert.ErrorIs(t, err, store.ErrDuplicate)
	})

	t.Run("missing user", func(t *testing.T) {
		_, err := s.Users().GetByID(ctx, 9999)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("TouchLastLogin", func(t *testing.T) {
		require.NoError(t, s.Users().TouchLastLogin(ctx, alice))
		got, err := s.Users().GetByID(ctx, alice.ID)
		require.NoError(t, err)
		require.NotNil(t, got.LastLoginAt)
	})
}

func TestEventRepositoryListing(t *testing.T) {
	s := store.New(openTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	alice := createUser(t, s, "alice@example.com")
	bob := createUser(t, s, "bob@example.com")

	past := createEvent(t, s, alice, "past", now.Add(-48*time.Hour))
	later := createEvent(t, s, alice, "later", now.Add(72*time.Hour))
	soon := createEvent(t, s, bob, "soon", now.Add(24*time.Hour))

	events, total, err := s.Events().ListUpcoming(ctx, store.ListOptions{From: now, Limit: 20})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, events, 2)
	assert.Equal(t, soon.ID, events[0].ID)
	assert.Equal(t, later.ID, events[1].ID)
	assert.Equal(t, "bob@example.com", events[0].Organizer.Email)

	page2, total, err := s.Events().ListUpcoming(ctx, store.ListOptions{From: now, Offset: 1, Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, page2, 1)
	assert.Equal(t, later.ID, page2[0].ID)

	organized, err := s.Events().ListByOrganizer(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, organized, 2)
	assert.Equal(t, past.ID, organized[0].ID)

	require.NoError(t, s.Participations().Create(ctx, &models.Participation{EventID: past.ID, UserID: bob.ID}))
	registered, err := s.Events().ListByParticipant(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, registered, 1)
	assert.Equal(t, past.ID, registered[0].ID)
}

func TestEventRepositoryUpdateDelete(t *testing.T) {
	s := store.New(openTestDB(t))
	ctx := context.Background()

	alice := createUser(t, s, "alice@example.com")
	e := createEvent(t, s, alice, "title", time.Now().Add(time.Hour))
	created := e.UpdatedAt

	e.Title = "renamed"
	require.NoError(t, s.Events().Update(ctx, e))

	got, err := s.Events().GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	assert.False(t, got.UpdatedAt.Before(created))

	require.NoError(t, s.Events().Delete(ctx, e.ID))
	assert.ErrorIs(t, s.Events().Delete(ctx, e.ID), store.ErrNotFound)
	_, err = s.Events().GetByID(ctx, e.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestParticipationRepository(t *testing.T) {
	s := store.New(openTestDB(t))
	ctx := context.Background()

	alice := createUser(t, s, "alice@example.com")
	bob := createUser(t, s, "bob@example.com")
	carol := createUser(t, s, "carol@example.com")
	e := createEvent(t, s, alice, "meetup", time.Now().Add(time.Hour))
	other := createEvent(t, s, alice, "other", time.Now().Add(2*time.Hour))

	require.NoError(t, s.Participations().Create(ctx, &models.Participation{EventID: e.ID, UserID: bob.ID}))
	require.NoError(t, s.Participations().Create(ctx, &models.Participation{EventID: e.ID, UserID: carol.ID}))

	err := s.Participations().Create(ctx, &models.Participation{EventID: e.ID, UserID: bob.ID})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	exists, err := s.Participations().Exists(ctx, e.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	list, err := s.Participations().ListByEvent(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "bob@example.com", list[0].User.Email)

	counts, err := s.Participations().CountByEvents(ctx, []uint{e.ID, other.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, counts[e.ID])
	assert.EqualValues(t, 0, counts[other.ID])

	registered, err := s.Participations().RegisteredAmong(ctx, bob.ID, []uint{e.ID, other.ID})
	require.NoError(t, err)
	assert.True(t, registered[e.ID])
	assert.False(t, registered[other.ID])

	removed, err := s.Participations().Delete(ctx, e.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Participations().Delete(ctx, e.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestConcurrentDuplicateRegistration(t *testing.T) {
	s := store.New(openTestDB(t))
	ctx := context.Background()

	alice := createUser(t, s, "alice@example.com")
	bob := createUser(t, s, "bob@example.com")
	e := createEvent(t, s, alice, "meetup", time.Now().Add(time.Hour))

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.WithinTx(ctx, func(r store.Repositories) error {
				return r.Participations().Create(ctx, &models.Participation{EventID: e.ID, UserID: bob.ID})
			})
		}(i)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, store.ErrDuplicate):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, dup)
}

func TestCascadeOnUserDelete(t *testing.T) {
	db := openTestDB(t)
	s := store.New(db)
	ctx := context.Background()

	alice := createUser(t, s, "alice@example.com")
	bob := createUser(t, s, "bob@example.com")
	e := createEvent(t, s, alice, "meetup", time.Now().Add(time.Hour))
	require.NoError(t, s.Participations().Create(ctx, &models.Participation{EventID: e.ID, UserID: bob.ID}))

	require.NoError(t, db.Delete(&models.User{}, alice.ID).Error)

	_, err := s.Events().GetByID(ctx, e.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	var remaining int64
	require.NoError(t, db.Model(&models.Participation{}).Count(&remaining).Error)
	assert.Zero(t, remaining)
}

func TestEventCapacityColumn(t *testing.T) {
	s := store.New(openTestDB(t))
	ctx := context.Background()

	alice := createUser(t, s, "alice@example.com")
	limit := 2
	e := &models.Event{Title: "small", Description: "d", Date: time.Now().Add(time.Hour), OrganizerID: alice.ID, MaxParticipants: &limit}
	require.NoError(t, s.Events().Create(ctx, e))

	got, err := s.Events().GetForUpdate(ctx, e.ID)
	require.NoError(t, err)
	require.NotNil(t, got.MaxParticipants)
	assert.Equal(t, 2, *got.MaxParticipants)

	got.MaxParticipants = nil
	require.NoError(t, s.Events().Update(ctx, got))
	got, err = s.Events().GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.Nil(t, got.MaxParticipants)
}

func TestCategoryRepository(t *testing.T) {
	db := openTestDB(t)
	s := store.New(db)
	ctx := context.Background()

	music := &models.Category{Name: "Music", Slug: "music"}
	tech := &models.Category{Name: "Technology", Slug: "technology"}
	require.NoError(t, s.Categories().Create(ctx, tech))
	require.NoError(t, s.Categories().Create(ctx, music))

	t.Run("duplicate slug", func(t *testing.T) {
		err := s.Categories().Create(ctx, &models.Category{Name: "Other", Slug: "music"})
		assert.ErrorIs(t, err, store.ErrDuplicate)
	})

	list, err := s.Categories().List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Music", list[0].Name)

	found, err := s.Categories().FindByIDs(ctx, []uint{tech.ID, 9999})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, tech.ID, found[0].ID)

	alice := createUser(t, s, "alice@example.com")
	e := createEvent(t, s, alice, "meetup", time.Now().Add(time.Hour))
	require.NoError(t, s.Events().SetCategories(ctx, e.ID, []uint{tech.ID, music.ID, tech.ID}))

	got, err := s.Events().GetByID(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, got.Categories, 2)
	assert.Equal(t, "music", got.Categories[0].Slug)

	require.NoError(t, s.Events().SetCategories(ctx, e.ID, []uint{tech.ID}))
	got, err = s.Events().GetByID(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, got.Categories, 1)

	require.NoError(t, s.Categories().Delete(ctx, tech.ID))
	assert.ErrorIs(t, s.Categories().Delete(ctx, tech.ID), store.ErrNotFound)

	var links int64
	require.NoError(t, db.Model(&models.EventCategory{}).Count(&links).Error)
	assert.Zero(t, links)
}

func TestCommentRepository(t *testing.T) {
	db := openTestDB(t)
	s := store.New(db)
	ctx := context.Background()

	alice := createUser(t, s, "alice@example.com")
	bob := createUser(t, s, "bob@example.com")
	e := createEvent(t, s, alice, "meetup", time.Now().Add(time.Hour))

	root := &models.EventComment{EventID: e.ID, UserID: bob.ID, Content: "question"}
	require.NoError(t, s.Comments().Create(ctx, root))
	reply := &models.EventComment{EventID: e.ID, UserID: alice.ID, ParentID: &root.ID, Content: "answer"}
	require.NoError(t, s.Comments().Create(ctx, reply))

	got, err := s.Comments().GetByID(ctx, reply.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.User.Email)
	require.NotNil(t, got.ParentID)
	assert.Equal(t, root.ID, *got.ParentID)

	page, total, err := s.Comments().List(ctx, store.CommentFilter{UserID: bob.ID, Limit: 20})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, page, 1)
	assert.Equal(t, root.ID, page[0].ID)

	thread, err := s.Comments().ListByEvent(ctx, e.ID)
	require.NoError(t, err)
	require.Len(t, thread, 2)
	assert.Equal(t, root.ID, thread[0].ID)

	reply.Content = "edited"
	require.NoError(t, s.Comments().UpdateContent(ctx, reply))
	got, err = s.Comments().GetByID(ctx, reply.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Content)

	require.NoError(t, s.Comments().Delete(ctx, root.ID))
	_, err = s.Comments().GetByID(ctx, reply.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, s.Comments().Delete(ctx, root.ID), store.ErrNotFound)

	require.NoError(t, s.Comments().Create(ctx, &models.EventComment{EventID: e.ID, UserID: bob.ID, Content: "again"}))
	require.NoError(t, s.Events().Delete(ctx, e.ID))
	var remaining int64
	require.NoError(t, db.Model(&models.EventComment{}).Count(&remaining).Error)
	assert.Zero(t, remaining)
}

func TestWithinTxRollsBack(t *testing.T) {
	s := store.New(openTestDB(t))
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(r store.Repositories) error {
		if err := r.Users().Create(ctx, &models.User{Email: "tx@example.com", Name: "tx", PasswordHash: "x"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.Users().GetByEmail(ctx, "tx@example.com")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
