package model

import "time"

// AvailabilitySlot опубликованный учителем блок времени.
// Передаётся по значению и после создания не меняется; внутри слота
// может поместиться несколько непересекающихся занятий.
type AvailabilitySlot struct {
	ID        string    `json:"id"`
	TutorID   string    `json:"tutor_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	CreatedAt time.Time `json:"created_at"`
}

// Overlaps проверяет пересечение слота с [from, to)
func (s AvailabilitySlot) Overlaps(from, to time.Time) bool {
	return Overlaps(s.StartTime, s.EndTime, from, to)
}

// Contains проверяет что [start, end) целиком внутри слота
func (s AvailabilitySlot) Contains(start, end time.Time) bool {
	return !start.Before(s.StartTime) && !end.After(s.EndTime)
}
