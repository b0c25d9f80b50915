package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
	"github.com/google/uuid"
)

type RatingRepository struct {
	mu      sync.RWMutex
	byTutor map[string][]model.Rating
}

func NewRatingRepository() *RatingRepository {
	return &RatingRepository{byTutor: make(map[string][]model.Rating)}
}

var _ repository.RatingRepository = (*RatingRepository)(nil)

func (r *RatingRepository) Create(_ context.Context, rating *model.Rating) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rating.ID == "" {
		rating.ID = uuid.NewString()
	}
	rating.CreatedAt = time.Now()
	r.byTutor[rating.TutorID] = append(r.byTutor[rating.TutorID], *rating)
	return nil
}

func (r *RatingRepository) AverageByTutor(_ context.Context, tutorID string) (float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ratings := r.byTutor[tutorID]
	if len(ratings) == 0 {
		return 0, nil
	}

	sum := 0
	for _, rating := range ratings {
		sum += rating.Score
	}
	return float64(sum) / float64(len(ratings)), nil
}
