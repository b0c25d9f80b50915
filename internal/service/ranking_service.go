package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
	"go.uber.org/zap"
)

// Веса итогового рейтинга учителя
const (
	WeightRating        = 0.5
	WeightCompatibility = 0.4
	WeightCancellation  = 0.1
)

// DefaultRankingLookahead учителя без слотов в этом окне в рейтинг не попадают
const DefaultRankingLookahead = 72 * time.Hour

// RatingAggregator поставляет оценки и долю отмен учителя
type RatingAggregator interface {
	AverageRating(ctx context.Context, tutorID string) (float64, error)
	CancellationRate(ctx context.Context, tutorID string) (float64, error)
}

// AvailabilityChecker поставляет признак свежей доступности и индекс совместимости
type AvailabilityChecker interface {
	HasAvailabilityWithin(ctx context.Context, tutorID string, d time.Duration) (bool, error)
	CompatibilityIndex(ctx context.Context, tutorID, studentID string) (float64, error)
}

// TutorScore учитель и его балл в рамках одного ранжирования
type TutorScore struct {
	Tutor *model.User `json:"tutor"`
	Score float64     `json:"score"`
}

type RankingService struct {
	userRepo     repository.UserRepository
	ratings      RatingAggregator
	availability AvailabilityChecker
	lookahead    time.Duration
	logger       *zap.Logger
}

func NewRankingService(
	userRepo repository.UserRepository,
	ratings RatingAggregator,
	availability AvailabilityChecker,
	lookahead time.Duration,
	logger *zap.Logger,
) *RankingService {
	if lookahead <= 0 {
		lookahead = DefaultRankingLookahead
	}

	return &RankingService{
		userRepo:     userRepo,
		ratings:      ratings,
		availability: availability,
		lookahead:    lookahead,
		logger:       logger,
	}
}

// TopTutors возвращает до n лучших учителей предмета для студента.
// n <= 0 означает без ограничения. Равные баллы упорядочиваются по ID учителя.
func (s *RankingService) TopTutors(ctx context.Context, studentID, subject string, n int) ([]TutorScore, error) {
	tutors, err := s.userRepo.ListTutorsBySubject(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("get tutors by subject: %w", err)
	}

	scored := make([]TutorScore, 0, len(tutors))
	for _, tutor := range tutors {
		// Фильтр до подсчёта балла: без ближайших слотов учитель не интересен
		available, err := s.availability.HasAvailabilityWithin(ctx, tutor.ID, s.lookahead)
		if err != nil {
			return nil, fmt.Errorf("check availability of %s: %w", tutor.ID, err)
		}
		if !available {
			continue
		}

		score, err := s.score(ctx, tutor.ID, studentID)
		if err != nil {
			return nil, err
		}
		scored = append(scored, TutorScore{Tutor: tutor, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score == scored[j].Score {
			return scored[i].Tutor.ID < scored[j].Tutor.ID
		}
		return scored[i].Score > scored[j].Score
	})

	if n > 0 && len(scored) > n {
		scored = scored[:n]
	}

	s.logger.Debug("Tutors ranked",
		zap.String("student_id", studentID),
		zap.String("subject", subject),
		zap.Int("candidates", len(tutors)),
		zap.Int("returned", len(scored)),
	)

	return scored, nil
}

func (s *RankingService) score(ctx context.Context, tutorID, studentID string) (float64, error) {
	avg, err := s.ratings.AverageRating(ctx, tutorID)
	if err != nil {
		return 0, fmt.Errorf("get average rating of %s: %w", tutorID, err)
	}
	cancellation, err := s.ratings.CancellationRate(ctx, tutorID)
	if err != nil {
		return 0, fmt.Errorf("get cancellation rate of %s: %w", tutorID, err)
	}
	compatibility, err := s.availability.CompatibilityIndex(ctx, tutorID, studentID)
	if err != nil {
		return 0, fmt.Errorf("get compatibility of %s: %w", tutorID, err)
	}

	return Score(avg, compatibility, cancellation), nil
}

// Score считает балл учителя; compatibility и cancellationRate нормированы в [0, 1]
func Score(avgRating, compatibility, cancellationRate float64) float64 {
	score := WeightRating*(avgRating/model.MaxRatingScore) +
		WeightCompatibility*compatibility -
		WeightCancellation*cancellationRate
	return math.Max(0, score)
}
