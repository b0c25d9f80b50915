// Package memory содержит потокобезопасные реализации репозиториев в памяти.
// Используются в тестах и при запуске без DB_DSN.
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

type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
	nowF     func() time.Time
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		sessions: make(map[string]*model.Session),
		nowF:     time.Now,
	}
}

var _ repository.SessionRepository = (*SessionRepository)(nil)

// Save сохраняет копию занятия
func (r *SessionRepository) Save(_ context.Context, session *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.nowF()
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	if existing, ok := r.sessions[session.ID]; ok {
		session.CreatedAt = existing.CreatedAt
	} else {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	r.sessions[session.ID] = session.Clone()
	return nil
}

func (r *SessionRepository) GetByID(_ context.Context, id string) (*model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	return session.Clone(), nil
}

func (r *SessionRepository) ListByTutor(_ context.Context, tutorID string) ([]*model.Session, error) {
	return r.filter(func(s *model.Session) bool {
		return s.TutorID == tutorID && !s.IsCancelled()
	}), nil
}

func (r *SessionRepository) ListForUser(_ context.Context, userID string, from, to time.Time) ([]*model.Session, error) {
	return r.filter(func(s *model.Session) bool {
		return s.Involves(userID) && !s.IsCancelled() && s.ConflictsWith(from, to)
	}), nil
}

func (r *SessionRepository) ListBookedEndedBefore(_ context.Context, t time.Time) ([]*model.Session, error) {
	return r.filter(func(s *model.Session) bool {
		return s.Status == model.SessionStatusScheduled && s.IsBooked() && !s.EndTime().After(t)
	}), nil
}

func (r *SessionRepository) CountByTutor(_ context.Context, tutorID string) (int, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total, cancelled int
	for _, s := range r.sessions {
		if s.TutorID != tutorID {
			continue
		}
		total++
		if s.Status == model.SessionStatusCancelledByTutor {
			cancelled++
		}
	}
	return total, cancelled, nil
}

// filter возвращает копии подходящих занятий, отсортированные по началу и ID
func (r *SessionRepository) filter(match func(*model.Session) bool) []*model.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*model.Session
	for _, s := range r.sessions {
		if match(s) {
			out = append(out, s.Clone())
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID < out[j].ID
		}
		return out[i].StartTime.Before(out[j].StartTime)
	})
	return out
}
