package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
	"go.uber.org/zap"
)

const (
	// compatibilityWindow период, по которому оценивается совместимость расписаний
	compatibilityWindow = 14 * 24 * time.Hour
	// compatibilitySaturation число слотов, при котором индекс достигает 1
	compatibilitySaturation = 30.0
)

type AvailabilityService struct {
	availabilityRepo repository.AvailabilityRepository
	nowF             func() time.Time
	logger           *zap.Logger
}

func NewAvailabilityService(availabilityRepo repository.AvailabilityRepository, logger *zap.Logger) *AvailabilityService {
	return &AvailabilityService{
		availabilityRepo: availabilityRepo,
		nowF:             time.Now,
		logger:           logger,
	}
}

// PublishSlot публикует блок доступности учителя
func (s *AvailabilityService) PublishSlot(ctx context.Context, tutorID string, start, end time.Time) (*model.AvailabilitySlot, error) {
	if tutorID == "" {
		return nil, fmt.Errorf("%w: tutor is required", ErrInvalidInput)
	}
	if !end.After(start) {
		return nil, fmt.Errorf("%w: end time must be after start time", ErrInvalidInput)
	}

	slot := &model.AvailabilitySlot{
		TutorID:   tutorID,
		StartTime: start,
		EndTime:   end,
	}

	if err := s.availabilityRepo.Create(ctx, slot); err != nil {
		return nil, fmt.Errorf("create availability slot: %w", err)
	}

	s.logger.Info("Availability slot published",
		zap.String("slot_id", slot.ID),
		zap.String("tutor_id", tutorID),
		zap.Time("start_time", start),
		zap.Time("end_time", end),
	)

	return slot, nil
}

// ListSlots возвращает слоты учителя, пересекающие [from, to)
func (s *AvailabilityService) ListSlots(ctx context.Context, tutorID string, from, to time.Time) ([]model.AvailabilitySlot, error) {
	return s.availabilityRepo.ListByTutor(ctx, tutorID, from, to)
}

// HasAvailabilityWithin проверяет есть ли у учителя слоты в ближайшие d
func (s *AvailabilityService) HasAvailabilityWithin(ctx context.Context, tutorID string, d time.Duration) (bool, error) {
	now := s.nowF()
	slots, err := s.availabilityRepo.ListByTutor(ctx, tutorID, now, now.Add(d))
	if err != nil {
		return false, fmt.Errorf("get tutor availability: %w", err)
	}
	return len(slots) > 0, nil
}

// CompatibilityIndex оценивает совместимость расписаний в [0, 1].
// Пока считается по количеству слотов учителя на две недели вперёд.
// TODO: сравнивать с предпочтительными часами студента, когда профиль начнёт их хранить.
func (s *AvailabilityService) CompatibilityIndex(ctx context.Context, tutorID, studentID string) (float64, error) {
	now := s.nowF()
	slots, err := s.availabilityRepo.ListByTutor(ctx, tutorID, now, now.Add(compatibilityWindow))
	if err != nil {
		return 0, fmt.Errorf("get tutor availability: %w", err)
	}

	return math.Min(1, float64(len(slots))/compatibilitySaturation), nil
}
