package model

type NotificationType string

const (
	NotificationBookingConfirmed   NotificationType = "booking_confirmed"
	NotificationWaitlisted         NotificationType = "waitlisted"
	NotificationSessionRescheduled NotificationType = "session_rescheduled"
	NotificationSessionCancelled   NotificationType = "session_cancelled"
)

// Priority возвращает приоритет по умолчанию для типа (меньше - срочнее)
func (t NotificationType) Priority() int {
	switch t {
	case NotificationSessionCancelled:
		return 1
	case NotificationSessionRescheduled:
		return 2
	case NotificationBookingConfirmed:
		return 3
	default:
		return 4
	}
}

// Notification уведомление пользователю. Доставляется не более одного раза.
type Notification struct {
	UserID   string           `json:"user_id"`
	Type     NotificationType `json:"type"`
	Message  string           `json:"message"`
	Priority int              `json:"priority"`
}
