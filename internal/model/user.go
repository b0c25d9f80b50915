package model

import "time"

// User профиль учителя или студента. Ядро использует только ID, имя и контакты.
type User struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	TelegramID *int64    `json:"telegram_id"` // nil - нет привязки к Telegram
	IsTutor    bool      `json:"is_tutor"`
	Subjects   []string  `json:"subjects"` // предметы учителя
	CreatedAt  time.Time `json:"created_at"`
}

// Teaches проверяет что учитель ведёт предмет (без учёта регистра)
func (u *User) Teaches(subject string) bool {
	for _, s := range u.Subjects {
		if equalFold(s, subject) {
			return true
		}
	}
	return false
}
