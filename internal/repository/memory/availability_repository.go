package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
	"github.com/google/uuid"
)

type AvailabilityRepository struct {
	mu      sync.RWMutex
	byTutor map[string][]model.AvailabilitySlot
}

func NewAvailabilityRepository() *AvailabilityRepository {
	return &AvailabilityRepository{byTutor: make(map[string][]model.AvailabilitySlot)}
}

var _ repository.AvailabilityRepository = (*AvailabilityRepository)(nil)

func (r *AvailabilityRepository) Create(_ context.Context, slot *model.AvailabilitySlot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = time.Now()
	}

	slots := append(r.byTutor[slot.TutorID], *slot)
	sort.SliceStable(slots, func(i, j int) bool {
		return slots[i].StartTime.Before(slots[j].StartTime)
	})
	r.byTutor[slot.TutorID] = slots
	return nil
}

func (r *AvailabilityRepository) ListByTutor(_ context.Context, tutorID string, from, to time.Time) ([]model.AvailabilitySlot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []model.AvailabilitySlot
	for _, slot := range r.byTutor[tutorID] {
		if slot.Overlaps(from, to) {
			out = append(out, slot)
		}
	}
	return out, nil
}
