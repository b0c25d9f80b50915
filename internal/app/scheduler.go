package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// SessionCompleter завершает прошедшие занятия
type SessionCompleter interface {
	CompleteFinished(ctx context.Context) (int, error)
}

// Scheduler управляет фоновыми задачами обслуживания
type Scheduler struct {
	completer SessionCompleter
	interval  time.Duration
	logger    *zap.Logger

	started  atomic.Bool
	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

func NewScheduler(completer SessionCompleter, interval time.Duration, logger *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}

	return &Scheduler{
		completer: completer,
		interval:  interval,
		logger:    logger,
		stopChan:  make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	s.logger.Info("Starting background scheduler", zap.Duration("interval", s.interval))

	go s.runCompletionTask(ctx)
}

// Stop останавливает фоновые задачи и ждёт их завершения
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping background scheduler")
		close(s.stopChan)
	})
	if s.started.Load() {
		<-s.done
	}
}

func (s *Scheduler) runCompletionTask(ctx context.Context) {
	defer close(s.done)

	// Первый запуск сразу при старте
	s.completeSessions(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.completeSessions(ctx)
		case <-s.stopChan:
			s.logger.Info("Session completion task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Session completion task cancelled")
			return
		}
	}
}

func (s *Scheduler) completeSessions(ctx context.Context) {
	completed, err := s.completer.CompleteFinished(ctx)
	if err != nil {
		s.logger.Error("Failed to complete finished sessions", zap.Error(err))
		return
	}

	if completed > 0 {
		s.logger.Info("Finished sessions completed", zap.Int("count", completed))
	}
}
