package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
	"go.uber.org/zap"
)

// MinLeadTime минимальный запас до начала занятия при создании и переносе
const MinLeadTime = 5 * time.Minute

// Notifier принимает уведомления к асинхронной доставке. Enqueue не блокирует.
type Notifier interface {
	Enqueue(userID string, notificationType model.NotificationType, message string, priority int)
}

type SchedulingService struct {
	sessionRepo repository.SessionRepository
	userRepo    repository.UserRepository
	notifier    Notifier
	locks       *keyedMutex
	nowF        func() time.Time
	logger      *zap.Logger
}

func NewSchedulingService(
	sessionRepo repository.SessionRepository,
	userRepo repository.UserRepository,
	notifier Notifier,
	logger *zap.Logger,
) *SchedulingService {
	return &SchedulingService{
		sessionRepo: sessionRepo,
		userRepo:    userRepo,
		notifier:    notifier,
		locks:       newKeyedMutex(),
		nowF:        time.Now,
		logger:      logger,
	}
}

// PublishAvailability создаёт свободное занятие учителя
func (s *SchedulingService) PublishAvailability(ctx context.Context, tutorID, title, description string, start time.Time, durationMinutes int) (*model.Session, error) {
	if start.Before(s.nowF().Add(MinLeadTime)) {
		return nil, fmt.Errorf("%w: session must start at least %s from now", ErrInvalidInput, MinLeadTime)
	}
	if durationMinutes <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", ErrInvalidInput)
	}

	unlock := s.locks.Lock(tutorID)
	defer unlock()

	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	conflict, err := s.hasTutorConflict(ctx, tutorID, start, end, nil)
	if err != nil {
		return nil, err
	}
	if conflict {
		s.logger.Debug("Publish rejected by conflict",
			zap.String("tutor_id", tutorID),
			zap.Time("start_time", start))
		return nil, fmt.Errorf("%w: tutor already has a session at this time", ErrSchedulingConflict)
	}

	session := &model.Session{
		Title:           title,
		Description:     description,
		TutorID:         tutorID,
		StudentID:       nil, // Свободная запись
		StartTime:       start,
		DurationMinutes: durationMinutes,
		Status:          model.SessionStatusScheduled,
	}

	if err := s.sessionRepo.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.logger.Info("Availability published",
		zap.String("session_id", session.ID),
		zap.String("tutor_id", tutorID),
		zap.Time("start_time", start),
		zap.Int("duration_minutes", durationMinutes),
	)

	return session, nil
}

// Reserve записывает студента на свободное занятие
func (s *SchedulingService) Reserve(ctx context.Context, sessionID, studentID string) (*model.Session, error) {
	session, err := s.getActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(session.TutorID)
	defer unlock()

	// Перечитываем под блокировкой: конкурентная запись могла успеть раньше
	session, err = s.getActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if session.IsBooked() {
		s.logger.Debug("Reserve rejected, session already booked",
			zap.String("session_id", sessionID),
			zap.String("student_id", studentID))
		return nil, fmt.Errorf("%w: session %s", ErrAlreadyBooked, sessionID)
	}

	session.StudentID = &studentID

	if err := s.sessionRepo.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.logger.Info("Session reserved",
		zap.String("session_id", sessionID),
		zap.String("tutor_id", session.TutorID),
		zap.String("student_id", studentID),
	)

	msg := fmt.Sprintf("Запись подтверждена: «%s» %s, %s и %s",
		session.Title, formatTime(session.StartTime),
		s.displayName(ctx, session.TutorID), s.displayName(ctx, studentID))
	s.notifyParticipants(session, model.NotificationBookingConfirmed, msg)

	return session, nil
}

// Reschedule переносит занятие. Переносить может учитель или записанный студент.
// newDurationMinutes <= 0 сохраняет текущую длительность.
func (s *SchedulingService) Reschedule(ctx context.Context, sessionID, actorID string, newStart time.Time, newDurationMinutes int) (*model.Session, error) {
	session, err := s.getActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if newStart.Before(s.nowF().Add(MinLeadTime)) {
		return nil, fmt.Errorf("%w: cannot reschedule to less than %s from now", ErrInvalidInput, MinLeadTime)
	}

	duration := session.DurationMinutes
	if newDurationMinutes > 0 {
		duration = newDurationMinutes
	}
	if duration <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", ErrInvalidInput)
	}

	if !session.Involves(actorID) {
		s.logger.Warn("Reschedule denied",
			zap.String("session_id", sessionID),
			zap.String("actor_id", actorID))
		return nil, fmt.Errorf("%w: user %s cannot reschedule session %s", ErrPermissionDenied, actorID, sessionID)
	}

	unlock := s.locks.Lock(session.TutorID)
	defer unlock()

	session, err = s.getActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Involves(actorID) {
		return nil, fmt.Errorf("%w: user %s cannot reschedule session %s", ErrPermissionDenied, actorID, sessionID)
	}
	if newDurationMinutes <= 0 {
		duration = session.DurationMinutes
	}

	newEnd := newStart.Add(time.Duration(duration) * time.Minute)
	conflict, err := s.hasTutorConflict(ctx, session.TutorID, newStart, newEnd, session)
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, fmt.Errorf("%w: new time overlaps another session of the tutor", ErrSchedulingConflict)
	}

	oldStart := session.StartTime
	session.StartTime = newStart
	session.DurationMinutes = duration

	if err := s.sessionRepo.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.logger.Info("Session rescheduled",
		zap.String("session_id", sessionID),
		zap.String("actor_id", actorID),
		zap.Time("old_start_time", oldStart),
		zap.Time("new_start_time", newStart),
		zap.Int("duration_minutes", duration),
	)

	msg := fmt.Sprintf("Занятие «%s» перенесено с %s на %s (%s)",
		session.Title, formatTime(oldStart), formatTime(newStart), s.displayName(ctx, actorID))
	s.notifyParticipants(session, model.NotificationSessionRescheduled, msg)

	return session, nil
}

// Cancel отменяет занятие. Статус зависит от того, кто отменил.
func (s *SchedulingService) Cancel(ctx context.Context, sessionID, actorID string) (*model.Session, error) {
	session, err := s.getActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(session.TutorID)
	defer unlock()

	// Повторная отмена видит терминальный статус и получает ErrNotFound
	session, err = s.getActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	switch {
	case session.TutorID == actorID:
		session.Status = model.SessionStatusCancelledByTutor
	case session.HasStudent(actorID):
		session.Status = model.SessionStatusCancelledByStudent
	default:
		s.logger.Warn("Cancel denied",
			zap.String("session_id", sessionID),
			zap.String("actor_id", actorID))
		return nil, fmt.Errorf("%w: user %s cannot cancel session %s", ErrPermissionDenied, actorID, sessionID)
	}

	if err := s.sessionRepo.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.logger.Info("Session cancelled",
		zap.String("session_id", sessionID),
		zap.String("actor_id", actorID),
		zap.String("status", string(session.Status)),
	)

	msg := fmt.Sprintf("Занятие «%s» %s отменено (%s)",
		session.Title, formatTime(session.StartTime), s.displayName(ctx, actorID))
	s.notifyParticipants(session, model.NotificationSessionCancelled, msg)

	return session, nil
}

// AgendaFor возвращает неотменённые занятия учителя
func (s *SchedulingService) AgendaFor(ctx context.Context, tutorID string) ([]*model.Session, error) {
	sessions, err := s.sessionRepo.ListByTutor(ctx, tutorID)
	if err != nil {
		return nil, fmt.Errorf("get tutor agenda: %w", err)
	}
	return sessions, nil
}

// UpcomingFor возвращает неотменённые занятия пользователя (учителя или студента) на ближайшие d
func (s *SchedulingService) UpcomingFor(ctx context.Context, userID string, d time.Duration) ([]*model.Session, error) {
	now := s.nowF()
	return s.SessionsFor(ctx, userID, now, now.Add(d))
}

// SessionsFor возвращает неотменённые занятия пользователя, пересекающие [from, to)
func (s *SchedulingService) SessionsFor(ctx context.Context, userID string, from, to time.Time) ([]*model.Session, error) {
	sessions, err := s.sessionRepo.ListForUser(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("get user sessions: %w", err)
	}
	return sessions, nil
}

// GetByID получает занятие по ID
func (s *SchedulingService) GetByID(ctx context.Context, sessionID string) (*model.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	return session, nil
}

// CompleteFinished закрывает прошедшие занятия со студентом.
// Вызывается периодически из фонового планировщика.
func (s *SchedulingService) CompleteFinished(ctx context.Context) (int, error) {
	finished, err := s.sessionRepo.ListBookedEndedBefore(ctx, s.nowF())
	if err != nil {
		return 0, fmt.Errorf("get finished sessions: %w", err)
	}

	count := 0
	for _, candidate := range finished {
		done, err := s.completeOne(ctx, candidate)
		if err != nil {
			s.logger.Warn("Failed to complete session",
				zap.String("session_id", candidate.ID),
				zap.Error(err))
			continue
		}
		if done {
			count++
		}
	}

	return count, nil
}

func (s *SchedulingService) completeOne(ctx context.Context, candidate *model.Session) (bool, error) {
	unlock := s.locks.Lock(candidate.TutorID)
	defer unlock()

	session, err := s.sessionRepo.GetByID(ctx, candidate.ID)
	if err != nil {
		return false, err
	}
	// Могли отменить или перенести, пока ждали блокировку
	if session == nil || session.Status != model.SessionStatusScheduled || !session.IsBooked() ||
		session.EndTime().After(s.nowF()) {
		return false, nil
	}

	session.Status = model.SessionStatusCompleted
	if err := s.sessionRepo.Save(ctx, session); err != nil {
		return false, err
	}

	s.logger.Debug("Session completed", zap.String("session_id", session.ID))
	return true, nil
}

// getActive получает занятие, которое ещё может менять состояние
func (s *SchedulingService) getActive(ctx context.Context, sessionID string) (*model.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	if session.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: session %s is %s", ErrNotFound, sessionID, session.Status)
	}
	return session, nil
}

// hasTutorConflict проверяет пересечение [start, end) с занятиями учителя, кроме exclude
func (s *SchedulingService) hasTutorConflict(ctx context.Context, tutorID string, start, end time.Time, exclude *model.Session) (bool, error) {
	existing, err := s.sessionRepo.ListByTutor(ctx, tutorID)
	if err != nil {
		return false, fmt.Errorf("get tutor sessions: %w", err)
	}

	busy := model.NewSessionSet(existing)
	busy.Remove(exclude)

	return busy.AnyConflict(start, end), nil
}

func (s *SchedulingService) notifyParticipants(session *model.Session, notificationType model.NotificationType, message string) {
	if s.notifier == nil {
		return
	}

	priority := notificationType.Priority()
	s.notifier.Enqueue(session.TutorID, notificationType, message, priority)
	if session.StudentID != nil && *session.StudentID != session.TutorID {
		s.notifier.Enqueue(*session.StudentID, notificationType, message, priority)
	}
}

// displayName возвращает имя из профиля или ID, если профиль недоступен
func (s *SchedulingService) displayName(ctx context.Context, userID string) string {
	if s.userRepo == nil {
		return userID
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		s.logger.Debug("Profile lookup failed", zap.String("user_id", userID), zap.Error(err))
		return userID
	}
	if user == nil || user.Name == "" {
		return userID
	}
	return user.Name
}

func formatTime(t time.Time) string {
	return t.Format("02.01.2006 15:04")
}
