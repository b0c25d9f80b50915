package notification

import (
	"context"
	"sync"
)

// PreferenceChecker отвечает, хочет ли пользователь получать уведомления
type PreferenceChecker interface {
	NotificationsEnabled(ctx context.Context, userID string) bool
}

// PreferenceStore хранит настройки в памяти. Неизвестный пользователь получает уведомления.
type PreferenceStore struct {
	mu       sync.RWMutex
	disabled map[string]bool
}

func NewPreferenceStore() *PreferenceStore {
	return &PreferenceStore{disabled: make(map[string]bool)}
}

func (s *PreferenceStore) NotificationsEnabled(_ context.Context, userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.disabled[userID]
}

// SetEnabled включает или выключает уведомления пользователя
func (s *PreferenceStore) SetEnabled(userID string, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if enabled {
		delete(s.disabled, userID)
		return
	}
	s.disabled[userID] = true
}
