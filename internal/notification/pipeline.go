package notification

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Config периоды фоновых стадий конвейера
type Config struct {
	ReorderInterval time.Duration
	DeliverInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		ReorderInterval: time.Second,
		DeliverInterval: 2 * time.Second,
	}
}

// Stats счётчики конвейера с момента создания
type Stats struct {
	Enqueued  int64
	Delivered int64
	Dropped   int64 // уведомления выключены у получателя
	Failed    int64 // ошибка доставщика, повторов нет
	Intake    int
	Pending   int
}

// Pipeline приём -> переупорядочивание по приоритету -> доставка.
// Доставка не более одного раза, без гарантий сохранности при перезапуске.
type Pipeline struct {
	intake    *IntakeQueue
	queue     *PriorityQueue
	prefs     PreferenceChecker
	deliverer Deliverer
	cfg       Config
	logger    *zap.Logger

	enqueued  atomic.Int64
	delivered atomic.Int64
	dropped   atomic.Int64
	failed    atomic.Int64

	mu       sync.Mutex
	group    *errgroup.Group
	stopChan chan struct{}
}

func NewPipeline(prefs PreferenceChecker, deliverer Deliverer, cfg Config, logger *zap.Logger) *Pipeline {
	defaults := DefaultConfig()
	if cfg.ReorderInterval <= 0 {
		cfg.ReorderInterval = defaults.ReorderInterval
	}
	if cfg.DeliverInterval <= 0 {
		cfg.DeliverInterval = defaults.DeliverInterval
	}

	return &Pipeline{
		intake:    NewIntakeQueue(),
		queue:     NewPriorityQueue(),
		prefs:     prefs,
		deliverer: deliverer,
		cfg:       cfg,
		logger:    logger,
	}
}

// Enqueue принимает уведомление к доставке. Никогда не блокирует.
// Приоритет сохраняется как есть, меньше значит срочнее.
func (p *Pipeline) Enqueue(userID string, notificationType model.NotificationType, message string, priority int) {
	p.intake.Push(model.Notification{
		UserID:   userID,
		Type:     notificationType,
		Message:  message,
		Priority: priority,
	})
	p.enqueued.Add(1)
}

// EnqueueDefault ставит уведомление с приоритетом по умолчанию для его типа
func (p *Pipeline) EnqueueDefault(userID string, notificationType model.NotificationType, message string) {
	p.Enqueue(userID, notificationType, message, notificationType.Priority())
}

// Reorder переносит всё из очереди приёма в очередь по приоритету
func (p *Pipeline) Reorder() int {
	moved := p.intake.Drain(p.queue.Push)
	if moved > 0 {
		p.logger.Debug("Notifications reordered", zap.Int("moved", moved), zap.Int("pending", p.queue.Len()))
	}
	return moved
}

// DeliverNext доставляет одно самое срочное уведомление.
// Возвращает false, если доставлять было нечего.
func (p *Pipeline) DeliverNext(ctx context.Context) bool {
	n, ok := p.queue.Pop()
	if !ok {
		return false
	}

	if !p.prefs.NotificationsEnabled(ctx, n.UserID) {
		p.dropped.Add(1)
		p.logger.Debug("Notification dropped, disabled by user",
			zap.String("user_id", n.UserID),
			zap.String("type", string(n.Type)),
		)
		return true
	}

	if err := p.deliverer.Deliver(ctx, n); err != nil {
		p.failed.Add(1)
		p.logger.Error("Failed to deliver notification",
			zap.String("user_id", n.UserID),
			zap.String("type", string(n.Type)),
			zap.Error(err),
		)
		return true
	}

	p.delivered.Add(1)
	return true
}

func (p *Pipeline) Stats() Stats {
	return Stats{
		Enqueued:  p.enqueued.Load(),
		Delivered: p.delivered.Load(),
		Dropped:   p.dropped.Load(),
		Failed:    p.failed.Load(),
		Intake:    p.intake.Len(),
		Pending:   p.queue.Len(),
	}
}

// Start запускает обе фоновые стадии. Повторный вызов без Stop ничего не делает.
func (p *Pipeline) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.group != nil {
		return
	}

	p.logger.Info("Starting notification pipeline",
		zap.Duration("reorder_interval", p.cfg.ReorderInterval),
		zap.Duration("deliver_interval", p.cfg.DeliverInterval),
	)

	stop := make(chan struct{})
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return p.runTask(gctx, stop, "reorder", p.cfg.ReorderInterval, func(context.Context) { p.Reorder() })
	})
	group.Go(func() error {
		return p.runTask(gctx, stop, "deliver", p.cfg.DeliverInterval, func(ctx context.Context) { p.DeliverNext(ctx) })
	})

	p.group = group
	p.stopChan = stop
}

// Stop останавливает стадии и ждёт их завершения. Недоставленное остаётся в очередях.
// Возвращает ошибку контекста, если он был отменён.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	group, stop := p.group, p.stopChan
	p.group, p.stopChan = nil, nil
	p.mu.Unlock()

	if group == nil {
		return nil
	}

	p.logger.Info("Stopping notification pipeline")
	close(stop)

	err := group.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		p.logger.Warn("Notification pipeline stopped with error", zap.Error(err))
	}
	return err
}

func (p *Pipeline) runTask(ctx context.Context, stop <-chan struct{}, name string, interval time.Duration, tick func(context.Context)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tick(ctx)
		case <-stop:
			p.logger.Info("Pipeline task stopped", zap.String("task", name))
			// nil, если контекст не отменён
			return ctx.Err()
		case <-ctx.Done():
			p.logger.Info("Pipeline task cancelled", zap.String("task", name))
			return ctx.Err()
		}
	}
}
