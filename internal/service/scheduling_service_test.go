package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishAvailabilityValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.scheduling.PublishAvailability(ctx, "tutor", "x", "", now.Add(-time.Hour), 60)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.scheduling.PublishAvailability(ctx, "tutor", "x", "", now.Add(4*time.Minute), 60)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.scheduling.PublishAvailability(ctx, "tutor", "x", "", at(10, 0), 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	session, err := f.scheduling.PublishAvailability(ctx, "tutor", "x", "", now.Add(MinLeadTime), 30)
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, model.SessionStatusScheduled, session.Status)
	assert.Nil(t, session.StudentID)
}

func TestPublishAvailabilityConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.publish(t, at(10, 0), 60)

	_, err := f.scheduling.PublishAvailability(ctx, "tutor", "x", "", at(10, 30), 60)
	assert.ErrorIs(t, err, ErrSchedulingConflict)

	// касание концов не конфликт
	_, err = f.scheduling.PublishAvailability(ctx, "tutor", "x", "", at(11, 0), 60)
	assert.NoError(t, err)
	_, err = f.scheduling.PublishAvailability(ctx, "tutor", "x", "", at(9, 0), 60)
	assert.NoError(t, err)

	// другой учитель в то же время не конфликтует
	_, err = f.scheduling.PublishAvailability(ctx, "other", "x", "", at(10, 0), 60)
	assert.NoError(t, err)
}

func TestPublishIgnoresCancelledSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.publish(t, at(10, 0), 60)

	_, err := f.scheduling.Cancel(ctx, session.ID, "tutor")
	require.NoError(t, err)

	_, err = f.scheduling.PublishAvailability(ctx, "tutor", "x", "", at(10, 0), 60)
	assert.NoError(t, err)
}

func TestReserve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.publish(t, at(10, 0), 60)

	_, err := f.scheduling.Reserve(ctx, "missing", "student")
	assert.ErrorIs(t, err, ErrNotFound)

	booked, err := f.scheduling.Reserve(ctx, session.ID, "student")
	require.NoError(t, err)
	assert.True(t, booked.HasStudent("student"))
	assert.Equal(t, model.SessionStatusScheduled, booked.Status)

	confirmations := f.notifier.byType(model.NotificationBookingConfirmed)
	require.Len(t, confirmations, 2)
	assert.ElementsMatch(t, []string{"tutor", "student"}, []string{confirmations[0].UserID, confirmations[1].UserID})
	assert.Contains(t, confirmations[0].Message, "Anna")
	assert.Equal(t, model.NotificationBookingConfirmed.Priority(), confirmations[0].Priority)

	_, err = f.scheduling.Reserve(ctx, session.ID, "student2")
	assert.ErrorIs(t, err, ErrAlreadyBooked)

	stored, err := f.scheduling.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, stored.HasStudent("student"))
}

func TestReserveCancelledSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.publish(t, at(10, 0), 60)

	_, err := f.scheduling.Cancel(ctx, session.ID, "tutor")
	require.NoError(t, err)

	_, err = f.scheduling.Reserve(ctx, session.ID, "student")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentReserveExactlyOneWins(t *testing.T) {
	f := newFixture(t)
	session := f.publish(t, at(10, 0), 60)

	const n = 32
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		winners  []string
		rejected int
		other    []error
	)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			studentID := fmt.Sprintf("student-%d", i)
			_, err := f.scheduling.Reserve(context.Background(), session.ID, studentID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, studentID)
			case errors.Is(err, ErrAlreadyBooked):
				rejected++
			default:
				other = append(other, err)
			}
		}(i)
	}
	wg.Wait()

	require.Empty(t, other)
	require.Len(t, winners, 1)
	assert.Equal(t, n-1, rejected)

	stored, err := f.scheduling.GetByID(context.Background(), session.ID)
	require.NoError(t, err)
	assert.True(t, stored.HasStudent(winners[0]))
}

func TestRescheduleExcludesItself(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.publish(t, at(10, 0), 60)
	_, err := f.scheduling.Reserve(ctx, session.ID, "student")
	require.NoError(t, err)

	// пересекается только со своим прежним интервалом
	moved, err := f.scheduling.Reschedule(ctx, session.ID, "student", at(10, 30), 0)
	require.NoError(t, err)
	assert.Equal(t, at(10, 30), moved.StartTime)
	assert.Equal(t, 60, moved.DurationMinutes)

	stored, err := f.scheduling.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, at(10, 30), stored.StartTime)

	rescheduled := f.notifier.byType(model.NotificationSessionRescheduled)
	assert.Len(t, rescheduled, 2)
}

func TestRescheduleRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.publish(t, at(10, 0), 60)
	f.publish(t, at(12, 0), 60)
	_, err := f.scheduling.Reserve(ctx, session.ID, "student")
	require.NoError(t, err)

	_, err = f.scheduling.Reschedule(ctx, "missing", "tutor", at(14, 0), 60)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.scheduling.Reschedule(ctx, session.ID, "tutor", now.Add(time.Minute), 60)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.scheduling.Reschedule(ctx, session.ID, "stranger", at(14, 0), 60)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	_, err = f.scheduling.Reschedule(ctx, session.ID, "tutor", at(11, 30), 60)
	assert.ErrorIs(t, err, ErrSchedulingConflict)

	// неудачные вызовы не меняют хранилище
	stored, err := f.scheduling.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, at(10, 0), stored.StartTime)
	assert.Equal(t, 60, stored.DurationMinutes)
	assert.Empty(t, f.notifier.byType(model.NotificationSessionRescheduled))

	moved, err := f.scheduling.Reschedule(ctx, session.ID, "tutor", at(13, 0), 90)
	require.NoError(t, err)
	assert.Equal(t, 90, moved.DurationMinutes)
	assert.Equal(t, at(14, 30), moved.EndTime())
}

func TestRescheduleOpenSessionByStudentDenied(t *testing.T) {
	f := newFixture(t)
	session := f.publish(t, at(10, 0), 60)

	_, err := f.scheduling.Reschedule(context.Background(), session.ID, "student", at(14, 0), 60)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestCancelByRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.publish(t, at(10, 0), 60)
	second := f.publish(t, at(12, 0), 60)
	for _, s := range []*model.Session{first, second} {
		_, err := f.scheduling.Reserve(ctx, s.ID, "student")
		require.NoError(t, err)
	}

	_, err := f.scheduling.Cancel(ctx, first.ID, "stranger")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	cancelled, err := f.scheduling.Cancel(ctx, first.ID, "student")
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusCancelledByStudent, cancelled.Status)

	cancelled, err = f.scheduling.Cancel(ctx, second.ID, "tutor")
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusCancelledByTutor, cancelled.Status)

	notes := f.notifier.byType(model.NotificationSessionCancelled)
	require.Len(t, notes, 4)
	assert.Equal(t, 1, notes[0].Priority)
}

func TestCancelTwiceIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.publish(t, at(10, 0), 60)

	_, err := f.scheduling.Cancel(ctx, session.ID, "tutor")
	require.NoError(t, err)

	_, err = f.scheduling.Cancel(ctx, session.ID, "tutor")
	assert.ErrorIs(t, err, ErrNotFound)

	stored, err := f.scheduling.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusCancelledByTutor, stored.Status)
	assert.Len(t, f.notifier.byType(model.NotificationSessionCancelled), 1)
}

func TestAgendaForSkipsCancelled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	keep := f.publish(t, at(10, 0), 60)
	drop := f.publish(t, at(12, 0), 60)

	_, err := f.scheduling.Cancel(ctx, drop.ID, "tutor")
	require.NoError(t, err)

	agenda, err := f.scheduling.AgendaFor(ctx, "tutor")
	require.NoError(t, err)
	require.Len(t, agenda, 1)
	assert.True(t, agenda[0].Equal(keep))
}

func TestCompleteFinished(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	booked := f.publish(t, at(10, 0), 60)
	open := f.publish(t, at(12, 0), 60)
	_, err := f.scheduling.Reserve(ctx, booked.ID, "student")
	require.NoError(t, err)

	f.scheduling.nowF = func() time.Time { return at(18, 0) }
	count, err := f.scheduling.CompleteFinished(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	stored, err := f.scheduling.GetByID(ctx, booked.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusCompleted, stored.Status)

	stored, err = f.scheduling.GetByID(ctx, open.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusScheduled, stored.Status)

	_, err = f.scheduling.Cancel(ctx, booked.ID, "student")
	assert.ErrorIs(t, err, ErrNotFound)
}
