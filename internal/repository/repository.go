package repository

import (
	"context"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
)

// SessionRepository хранилище занятий.
// Реализации возвращают копии: изменения полей видны только после Save.
type SessionRepository interface {
	// Save создаёт или обновляет занятие; пустой ID назначается при первом сохранении
	Save(ctx context.Context, session *model.Session) error
	// GetByID возвращает nil, nil если занятия нет
	GetByID(ctx context.Context, id string) (*model.Session, error)
	// ListByTutor возвращает неотменённые занятия учителя
	ListByTutor(ctx context.Context, tutorID string) ([]*model.Session, error)
	// ListForUser возвращает неотменённые занятия, где пользователь учитель или студент
	// и которые пересекают [from, to)
	ListForUser(ctx context.Context, userID string, from, to time.Time) ([]*model.Session, error)
	// ListBookedEndedBefore возвращает запланированные занятия со студентом, закончившиеся до t
	ListBookedEndedBefore(ctx context.Context, t time.Time) ([]*model.Session, error)
	// CountByTutor возвращает общее число занятий учителя и число отменённых им самим
	CountByTutor(ctx context.Context, tutorID string) (total, cancelledByTutor int, err error)
}

// AvailabilityRepository хранилище опубликованных слотов доступности
type AvailabilityRepository interface {
	Create(ctx context.Context, slot *model.AvailabilitySlot) error
	// ListByTutor возвращает слоты учителя, пересекающие [from, to), по возрастанию начала
	ListByTutor(ctx context.Context, tutorID string, from, to time.Time) ([]model.AvailabilitySlot, error)
}

// UserRepository внешнее хранилище профилей
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	ListTutorsBySubject(ctx context.Context, subject string) ([]*model.User, error)
	// AddSubject делает пользователя учителем предмета, nil если пользователя нет
	AddSubject(ctx context.Context, userID, subject string) (*model.User, error)
}

// RatingRepository хранилище оценок
type RatingRepository interface {
	Create(ctx context.Context, rating *model.Rating) error
	// AverageByTutor возвращает среднюю оценку, 0 если оценок нет
	AverageByTutor(ctx context.Context, tutorID string) (float64, error)
}
