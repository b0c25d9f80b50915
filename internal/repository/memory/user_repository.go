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

type UserRepository struct {
	mu    sync.RWMutex
	users map[string]model.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]model.User)}
}

var _ repository.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = time.Now()
	r.users[user.ID] = copyUser(user)
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	out := copyUser(&user)
	return &out, nil
}

func (r *UserRepository) GetByTelegramID(_ context.Context, telegramID int64) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if user.TelegramID != nil && *user.TelegramID == telegramID {
			out := copyUser(&user)
			return &out, nil
		}
	}
	return nil, nil
}

func (r *UserRepository) ListTutorsBySubject(_ context.Context, subject string) ([]*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*model.User
	for _, user := range r.users {
		if user.IsTutor && user.Teaches(subject) {
			u := copyUser(&user)
			out = append(out, &u)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *UserRepository) AddSubject(_ context.Context, userID, subject string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return nil, nil
	}
	user.IsTutor = true
	if !user.Teaches(subject) {
		user.Subjects = append(user.Subjects, subject)
		sort.Strings(user.Subjects)
	}
	r.users[userID] = copyUser(&user)

	out := copyUser(&user)
	return &out, nil
}

func copyUser(user *model.User) model.User {
	out := *user
	out.Subjects = append([]string(nil), user.Subjects...)
	if user.TelegramID != nil {
		id := *user.TelegramID
		out.TelegramID = &id
	}
	return out
}
