package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var start = time.Date(2030, 1, 10, 10, 0, 0, 0, time.UTC)

func TestSessionRepositorySaveAssignsIDAndCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()

	session := &model.Session{TutorID: "t1", StartTime: start, DurationMinutes: 60, Status: model.SessionStatusScheduled}
	require.NoError(t, repo.Save(ctx, session))
	require.NotEmpty(t, session.ID)

	session.Title = "changed after save"

	stored, err := repo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Title)

	stored.DurationMinutes = 5
	again, err := repo.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 60, again.DurationMinutes)
}

func TestSessionRepositoryGetMissing(t *testing.T) {
	session, err := NewSessionRepository().GetByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestSessionRepositoryListForUser(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()
	student := "s1"

	mk := func(id, tutor string, studentID *string, offset time.Duration, status model.SessionStatus) {
		require.NoError(t, repo.Save(ctx, &model.Session{
			ID: id, TutorID: tutor, StudentID: studentID,
			StartTime: start.Add(offset), DurationMinutes: 60, Status: status,
		}))
	}
	mk("a", "t1", nil, 0, model.SessionStatusScheduled)
	mk("b", "t2", &student, 2*time.Hour, model.SessionStatusScheduled)
	mk("c", "t2", &student, 4*time.Hour, model.SessionStatusCancelledByStudent)
	mk("d", "t1", nil, 48*time.Hour, model.SessionStatusScheduled)

	tutorSessions, err := repo.ListForUser(ctx, "t1", start, start.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, tutorSessions, 1)
	assert.Equal(t, "a", tutorSessions[0].ID)

	studentSessions, err := repo.ListForUser(ctx, student, start, start.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, studentSessions, 1)
	assert.Equal(t, "b", studentSessions[0].ID)

	total, cancelled, err := repo.CountByTutor(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, 0, cancelled)
}

func TestSessionRepositoryConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = repo.Save(ctx, &model.Session{
				ID:              fmt.Sprintf("s%d", i%5),
				TutorID:         "t1",
				StartTime:       start.Add(time.Duration(i) * time.Hour),
				DurationMinutes: i + 1,
			})
			_, _ = repo.ListByTutor(ctx, "t1")
		}(i)
	}
	wg.Wait()

	sessions, err := repo.ListByTutor(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, sessions, 5)
	for _, s := range sessions {
		// поля одной записи всегда из одного Save
		assert.Equal(t, start.Add(time.Duration(s.DurationMinutes-1)*time.Hour), s.StartTime)
	}
}

func TestAvailabilityRepositoryListsOverlappingInOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewAvailabilityRepository()

	late := &model.AvailabilitySlot{TutorID: "t1", StartTime: start.Add(5 * time.Hour), EndTime: start.Add(6 * time.Hour)}
	early := &model.AvailabilitySlot{TutorID: "t1", StartTime: start, EndTime: start.Add(2 * time.Hour)}
	other := &model.AvailabilitySlot{TutorID: "t2", StartTime: start, EndTime: start.Add(2 * time.Hour)}
	require.NoError(t, repo.Create(ctx, late))
	require.NoError(t, repo.Create(ctx, early))
	require.NoError(t, repo.Create(ctx, other))

	slots, err := repo.ListByTutor(ctx, "t1", start.Add(-time.Hour), start.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, early.ID, slots[0].ID)
	assert.Equal(t, late.ID, slots[1].ID)

	slots, err = repo.ListByTutor(ctx, "t1", start.Add(2*time.Hour), start.Add(5*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestUserAndRatingRepositories(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepository()
	tg := int64(42)

	require.NoError(t, users.Create(ctx, &model.User{ID: "t1", Name: "Anna", IsTutor: true, Subjects: []string{"Math"}, TelegramID: &tg}))
	require.NoError(t, users.Create(ctx, &model.User{ID: "t2", Name: "Ivan", IsTutor: true, Subjects: []string{"Physics"}}))
	require.NoError(t, users.Create(ctx, &model.User{ID: "s1", Name: "Petr"}))

	tutors, err := users.ListTutorsBySubject(ctx, " math ")
	require.NoError(t, err)
	require.Len(t, tutors, 1)
	assert.Equal(t, "t1", tutors[0].ID)

	byTg, err := users.GetByTelegramID(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, byTg)
	assert.Equal(t, "Anna", byTg.Name)

	ratings := NewRatingRepository()
	avg, err := ratings.AverageByTutor(ctx, "t1")
	require.NoError(t, err)
	assert.Zero(t, avg)

	require.NoError(t, ratings.Create(ctx, &model.Rating{TutorID: "t1", Score: 4}))
	require.NoError(t, ratings.Create(ctx, &model.Rating{TutorID: "t1", Score: 5}))
	avg, err = ratings.AverageByTutor(ctx, "t1")
	require.NoError(t, err)
	assert.InDelta(t, 4.5, avg, 1e-9)
}
