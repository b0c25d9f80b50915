package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository/memory"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// now фиксированное "сейчас" для тестов: накануне занятий из примеров
var now = time.Date(2025, 1, 9, 12, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return time.Date(2025, 1, 10, hour, minute, 0, 0, time.UTC)
}

func fixedClock() time.Time { return now }

type recordingNotifier struct {
	mu    sync.Mutex
	items []model.Notification
}

func (n *recordingNotifier) Enqueue(userID string, notificationType model.NotificationType, message string, priority int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, model.Notification{UserID: userID, Type: notificationType, Message: message, Priority: priority})
}

func (n *recordingNotifier) byType(notificationType model.NotificationType) []model.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	var out []model.Notification
	for _, item := range n.items {
		if item.Type == notificationType {
			out = append(out, item)
		}
	}
	return out
}

type fixture struct {
	sessions     *memory.SessionRepository
	availability *memory.AvailabilityRepository
	users        *memory.UserRepository
	notifier     *recordingNotifier
	scheduling   *SchedulingService
	finder       *RescheduleFinder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)

	f := &fixture{
		sessions:     memory.NewSessionRepository(),
		availability: memory.NewAvailabilityRepository(),
		users:        memory.NewUserRepository(),
		notifier:     &recordingNotifier{},
	}

	ctx := context.Background()
	require.NoError(t, f.users.Create(ctx, &model.User{ID: "tutor", Name: "Anna", IsTutor: true, Subjects: []string{"Math"}}))
	require.NoError(t, f.users.Create(ctx, &model.User{ID: "student", Name: "Petr"}))

	f.scheduling = NewSchedulingService(f.sessions, f.users, f.notifier, logger)
	f.scheduling.nowF = fixedClock

	f.finder = NewRescheduleFinder(f.sessions, f.availability, DefaultFinderConfig(), logger)
	f.finder.nowF = fixedClock

	return f
}

func (f *fixture) publish(t *testing.T, start time.Time, minutes int) *model.Session {
	t.Helper()
	session, err := f.scheduling.PublishAvailability(context.Background(), "tutor", "Algebra", "", start, minutes)
	require.NoError(t, err)
	return session
}

func (f *fixture) slot(t *testing.T, start, end time.Time) {
	t.Helper()
	require.NoError(t, f.availability.Create(context.Background(), &model.AvailabilitySlot{TutorID: "tutor", StartTime: start, EndTime: end}))
}
