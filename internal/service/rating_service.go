package service

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
)

// RatingService агрегирует оценки и статистику отмен учителя
type RatingService struct {
	ratingRepo  repository.RatingRepository
	sessionRepo repository.SessionRepository
}

func NewRatingService(ratingRepo repository.RatingRepository, sessionRepo repository.SessionRepository) *RatingService {
	return &RatingService{
		ratingRepo:  ratingRepo,
		sessionRepo: sessionRepo,
	}
}

// AverageRating средняя оценка учителя, 0 если оценок нет
func (s *RatingService) AverageRating(ctx context.Context, tutorID string) (float64, error) {
	avg, err := s.ratingRepo.AverageByTutor(ctx, tutorID)
	if err != nil {
		return 0, fmt.Errorf("get average rating: %w", err)
	}
	return avg, nil
}

// CancellationRate доля занятий, отменённых самим учителем, в [0, 1]
func (s *RatingService) CancellationRate(ctx context.Context, tutorID string) (float64, error) {
	total, cancelled, err := s.sessionRepo.CountByTutor(ctx, tutorID)
	if err != nil {
		return 0, fmt.Errorf("count tutor sessions: %w", err)
	}
	if total == 0 {
		return 0, nil
	}
	return float64(cancelled) / float64(total), nil
}
