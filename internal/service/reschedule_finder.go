package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
	"go.uber.org/zap"
)

// FinderConfig параметры поиска времени для переноса
type FinderConfig struct {
	Horizon time.Duration // насколько вперёд искать
	Step    time.Duration // шаг перебора начала внутри слота
}

// DefaultFinderConfig неделя вперёд с шагом 30 минут
func DefaultFinderConfig() FinderConfig {
	return FinderConfig{
		Horizon: 7 * 24 * time.Hour,
		Step:    30 * time.Minute,
	}
}

type RescheduleFinder struct {
	sessionRepo      repository.SessionRepository
	availabilityRepo repository.AvailabilityRepository
	cfg              FinderConfig
	nowF             func() time.Time
	logger           *zap.Logger
}

func NewRescheduleFinder(
	sessionRepo repository.SessionRepository,
	availabilityRepo repository.AvailabilityRepository,
	cfg FinderConfig,
	logger *zap.Logger,
) *RescheduleFinder {
	defaults := DefaultFinderConfig()
	if cfg.Horizon <= 0 {
		cfg.Horizon = defaults.Horizon
	}
	if cfg.Step <= 0 {
		cfg.Step = defaults.Step
	}

	return &RescheduleFinder{
		sessionRepo:      sessionRepo,
		availabilityRepo: availabilityRepo,
		cfg:              cfg,
		nowF:             time.Now,
		logger:           logger,
	}
}

// FindCandidates подбирает окна для переноса занятия внутри слотов доступности учителя.
// Окна не пересекаются ни с занятиями учителя, ни с занятиями студента (кроме самого
// переносимого занятия). Порядок: по слотам, внутри слота по времени. Хранилища не меняются.
func (f *RescheduleFinder) FindCandidates(ctx context.Context, sessionID string) ([]model.SuggestedWindow, error) {
	session, err := f.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil || session.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	if session.DurationMinutes <= 0 {
		return nil, fmt.Errorf("%w: session %s has no duration", ErrInvalidInput, sessionID)
	}

	now := f.nowF()
	from, to := now, now.Add(f.cfg.Horizon)

	tutorBusy, err := f.sessionRepo.ListForUser(ctx, session.TutorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("get tutor sessions: %w", err)
	}

	var studentBusy []*model.Session
	if session.StudentID != nil {
		studentBusy, err = f.sessionRepo.ListForUser(ctx, *session.StudentID, from, to)
		if err != nil {
			return nil, fmt.Errorf("get student sessions: %w", err)
		}
	}

	busy := model.NewSessionSet(tutorBusy, studentBusy)
	busy.Remove(session)

	slots, err := f.availabilityRepo.ListByTutor(ctx, session.TutorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("get tutor availability: %w", err)
	}

	duration := time.Duration(session.DurationMinutes) * time.Minute
	earliest := now.Add(MinLeadTime)

	var suggestions []model.SuggestedWindow
	for _, slot := range slots {
		for start := slot.StartTime; !start.Add(duration).After(slot.EndTime); start = start.Add(f.cfg.Step) {
			if start.Before(earliest) {
				continue
			}

			end := start.Add(duration)
			if end.After(to) {
				// занятость за горизонтом не загружена
				break
			}
			if busy.AnyConflict(start, end) {
				continue
			}

			suggestions = append(suggestions, model.SuggestedWindow{StartTime: start, EndTime: end})
		}
	}

	f.logger.Debug("Reschedule candidates found",
		zap.String("session_id", sessionID),
		zap.Int("slots", len(slots)),
		zap.Int("busy", len(busy)),
		zap.Int("suggestions", len(suggestions)),
	)

	return suggestions, nil
}
