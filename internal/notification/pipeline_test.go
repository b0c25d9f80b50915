package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository/memory"
	"github.com/Freeeeeet/tutor_scheduler/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var _ service.Notifier = (*Pipeline)(nil)

type recordingDeliverer struct {
	mu        sync.Mutex
	delivered []model.Notification
	err       error
}

func (d *recordingDeliverer) Deliver(_ context.Context, n model.Notification) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.delivered = append(d.delivered, n)
	return nil
}

func (d *recordingDeliverer) users() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.delivered))
	for _, n := range d.delivered {
		out = append(out, n.UserID)
	}
	return out
}

func newTestPipeline(t *testing.T) (*Pipeline, *PreferenceStore, *recordingDeliverer) {
	t.Helper()
	prefs := NewPreferenceStore()
	deliverer := &recordingDeliverer{}
	return NewPipeline(prefs, deliverer, DefaultConfig(), zaptest.NewLogger(t)), prefs, deliverer
}

func TestPipelineDeliversByPriority(t *testing.T) {
	p, _, deliverer := newTestPipeline(t)
	ctx := context.Background()

	p.EnqueueDefault("confirmed", model.NotificationBookingConfirmed, "ok")
	p.EnqueueDefault("waitlisted", model.NotificationWaitlisted, "wait")
	p.EnqueueDefault("cancelled", model.NotificationSessionCancelled, "bye")
	p.EnqueueDefault("rescheduled", model.NotificationSessionRescheduled, "moved")

	// до переупорядочивания доставлять нечего
	assert.False(t, p.DeliverNext(ctx))

	assert.Equal(t, 4, p.Reorder())
	for p.DeliverNext(ctx) {
	}

	assert.Equal(t, []string{"cancelled", "rescheduled", "confirmed", "waitlisted"}, deliverer.users())
	assert.Equal(t, Stats{Enqueued: 4, Delivered: 4}, p.Stats())
}

func TestPipelineExplicitPriorityWins(t *testing.T) {
	p, _, deliverer := newTestPipeline(t)

	p.Enqueue("late", model.NotificationSessionCancelled, "", 9)
	p.Enqueue("urgent", model.NotificationWaitlisted, "", 1)
	p.Reorder()

	require.True(t, p.DeliverNext(context.Background()))
	assert.Equal(t, []string{"urgent"}, deliverer.users())
	assert.Equal(t, 1, p.Stats().Pending)
}

func TestPipelineZeroPriorityIsMostUrgent(t *testing.T) {
	p, _, deliverer := newTestPipeline(t)
	ctx := context.Background()

	p.Enqueue("prio1", model.NotificationSessionCancelled, "", 1)
	p.Enqueue("prio0", model.NotificationWaitlisted, "", 0)
	p.Enqueue("negative", model.NotificationBookingConfirmed, "", -1)
	p.Reorder()

	for p.DeliverNext(ctx) {
	}
	assert.Equal(t, []string{"negative", "prio0", "prio1"}, deliverer.users())
}

func TestPipelineDropsWhenDisabled(t *testing.T) {
	p, prefs, deliverer := newTestPipeline(t)
	ctx := context.Background()
	prefs.SetEnabled("muted", false)

	p.Enqueue("muted", model.NotificationSessionCancelled, "", 0)
	p.Enqueue("listener", model.NotificationBookingConfirmed, "", 0)
	p.Reorder()

	assert.True(t, p.DeliverNext(ctx))
	assert.True(t, p.DeliverNext(ctx))
	assert.False(t, p.DeliverNext(ctx))

	assert.Equal(t, []string{"listener"}, deliverer.users())
	stats := p.Stats()
	assert.EqualValues(t, 1, stats.Dropped)
	assert.EqualValues(t, 1, stats.Delivered)
	assert.Zero(t, stats.Pending)
}

func TestPipelineFailedDeliveryIsNotRetried(t *testing.T) {
	p, _, deliverer := newTestPipeline(t)
	deliverer.err = errors.New("boom")

	p.Enqueue("u", model.NotificationBookingConfirmed, "", 0)
	p.Reorder()

	assert.True(t, p.DeliverNext(context.Background()))
	assert.False(t, p.DeliverNext(context.Background()))
	assert.EqualValues(t, 1, p.Stats().Failed)
}

func TestPipelineEnqueueFromManyGoroutines(t *testing.T) {
	p, _, deliverer := newTestPipeline(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Enqueue("u", model.NotificationBookingConfirmed, "", 0)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, p.Reorder())
	for p.DeliverNext(context.Background()) {
	}
	assert.Len(t, deliverer.users(), 50)
}

func TestPipelineBackgroundStages(t *testing.T) {
	prefs := NewPreferenceStore()
	deliverer := &recordingDeliverer{}
	p := NewPipeline(prefs, deliverer, Config{ReorderInterval: 5 * time.Millisecond, DeliverInterval: 5 * time.Millisecond}, zaptest.NewLogger(t))

	p.Start(context.Background())
	p.Start(context.Background())

	p.Enqueue("a", model.NotificationBookingConfirmed, "", 0)
	p.Enqueue("b", model.NotificationSessionCancelled, "", 0)

	assert.Eventually(t, func() bool {
		return len(deliverer.users()) == 2
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, p.Stop())
	require.NoError(t, p.Stop())

	p.Enqueue("c", model.NotificationBookingConfirmed, "", 0)
	time.Sleep(30 * time.Millisecond)
	assert.Len(t, deliverer.users(), 2)
	assert.Equal(t, 1, p.Stats().Intake)
}

func TestPipelineStopsOnContextCancel(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	ctx, cancel := context.WithCancel(context.Background())

	p.Start(ctx)
	cancel()

	done := make(chan error, 1)
	go func() {
		done <- p.Stop()
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not stop after context cancel")
	}
}

type fakeSender struct {
	params []*bot.SendMessageParams
}

func (s *fakeSender) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	s.params = append(s.params, params)
	return &models.Message{}, nil
}

func TestTelegramDelivererFallsBackWithoutChat(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserRepository()
	telegramID := int64(4242)
	require.NoError(t, users.Create(ctx, &model.User{ID: "linked", TelegramID: &telegramID}))
	require.NoError(t, users.Create(ctx, &model.User{ID: "offline"}))

	sender := &fakeSender{}
	fallback := &recordingDeliverer{}
	d := NewTelegramDeliverer(sender, users, fallback, zaptest.NewLogger(t))

	require.NoError(t, d.Deliver(ctx, model.Notification{UserID: "linked", Message: "hello"}))
	require.NoError(t, d.Deliver(ctx, model.Notification{UserID: "offline", Message: "hi"}))
	require.NoError(t, d.Deliver(ctx, model.Notification{UserID: "unknown", Message: "hi"}))

	require.Len(t, sender.params, 1)
	assert.Equal(t, telegramID, sender.params[0].ChatID)
	assert.Equal(t, "hello", sender.params[0].Text)
	assert.Equal(t, []string{"offline", "unknown"}, fallback.users())
}
