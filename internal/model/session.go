package model

import "time"

type SessionStatus string

const (
	SessionStatusScheduled          SessionStatus = "scheduled"            // Запланировано
	SessionStatusCompleted          SessionStatus = "completed"            // Проведено
	SessionStatusCancelledByStudent SessionStatus = "cancelled_by_student" // Отменено студентом
	SessionStatusCancelledByTutor   SessionStatus = "cancelled_by_tutor"   // Отменено учителем
)

// IsTerminal проверяет что из статуса нет переходов
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s.IsCancelled()
}

func (s SessionStatus) IsCancelled() bool {
	return s == SessionStatusCancelledByStudent || s == SessionStatusCancelledByTutor
}

// Session занятие учителя. Без студента это открытая запись.
//
// Равенство сессий определяется только по ID (см. Equal): при переносе
// время и статус меняются на месте, а исключать сессию из множества
// занятых интервалов нужно по идентичности.
type Session struct {
	ID              string        `json:"id"` // назначается при первом сохранении
	Title           string        `json:"title"`
	Description     string        `json:"description"`
	TutorID         string        `json:"tutor_id"`
	StudentID       *string       `json:"student_id"` // nil - свободная запись
	StartTime       time.Time     `json:"start_time"`
	DurationMinutes int           `json:"duration_minutes"`
	Status          SessionStatus `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// EndTime возвращает время окончания занятия
func (s *Session) EndTime() time.Time {
	return s.StartTime.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// IsBooked проверяет что к занятию привязан студент
func (s *Session) IsBooked() bool {
	return s.StudentID != nil
}

func (s *Session) IsCancelled() bool {
	return s.Status.IsCancelled()
}

// HasStudent проверяет что userID - записанный студент
func (s *Session) HasStudent(userID string) bool {
	return s.StudentID != nil && *s.StudentID == userID
}

// Involves проверяет что пользователь участвует в занятии
func (s *Session) Involves(userID string) bool {
	return s.TutorID == userID || s.HasStudent(userID)
}

// Equal сравнивает сессии по ID. Несохранённая сессия (пустой ID) не равна ни одной.
func (s *Session) Equal(other *Session) bool {
	if s == nil || other == nil {
		return false
	}
	if s == other {
		return true
	}
	return s.ID != "" && s.ID == other.ID
}

// Clone возвращает независимую копию сессии
func (s *Session) Clone() *Session {
	c := *s
	if s.StudentID != nil {
		studentID := *s.StudentID
		c.StudentID = &studentID
	}
	return &c
}

// Overlaps проверяет пересечение полуоткрытых интервалов [aStart, aEnd) и [bStart, bEnd).
// Касание концов (aEnd == bStart) пересечением не считается.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// ConflictsWith проверяет пересечение занятия с интервалом [start, end)
func (s *Session) ConflictsWith(start, end time.Time) bool {
	return Overlaps(s.StartTime, s.EndTime(), start, end)
}

// SessionSet множество занятий с идентичностью по ID
type SessionSet map[string]*Session

// NewSessionSet собирает множество из нескольких списков, дубликаты по ID схлопываются
func NewSessionSet(lists ...[]*Session) SessionSet {
	set := make(SessionSet)
	for _, list := range lists {
		for _, s := range list {
			set.Add(s)
		}
	}
	return set
}

func (set SessionSet) Add(s *Session) {
	if s == nil || s.ID == "" {
		return
	}
	set[s.ID] = s
}

// Remove удаляет занятие по идентичности, независимо от его текущих полей
func (set SessionSet) Remove(s *Session) {
	if s == nil {
		return
	}
	delete(set, s.ID)
}

// AnyConflict проверяет пересекается ли хоть одно занятие с [start, end)
func (set SessionSet) AnyConflict(start, end time.Time) bool {
	for _, s := range set {
		if s.ConflictsWith(start, end) {
			return true
		}
	}
	return false
}
