package controller

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
	"github.com/Freeeeeet/tutor_scheduler/internal/service"
	"go.uber.org/zap"
)

const (
	dateTimeLayout = "2006-01-02 15:04"
	displayLayout  = "02.01.2006 15:04"

	agendaHorizon  = 14 * 24 * time.Hour
	maxSuggestions = 10
	topTutorsLimit = 5
)

const helpText = "📚 Справка по командам:\n\n" +
	"/start - Регистрация\n" +
	"/agenda - Мои занятия на две недели\n" +
	"/book <id> - Записаться на занятие\n" +
	"/cancel <id> - Отменить занятие\n" +
	"/move <id> <ГГГГ-ММ-ДД ЧЧ:ММ> [минуты] - Перенести занятие\n" +
	"/suggest <id> - Свободное время для переноса\n" +
	"/top <предмет> - Лучшие учителя по предмету\n" +
	"/week - Расписание недели картинкой\n" +
	"/notify on|off - Включить или выключить уведомления\n\n" +
	"Для учителей:\n" +
	"/teach <предмет> - Стать учителем предмета\n" +
	"/publish <ГГГГ-ММ-ДД ЧЧ:ММ> <минуты> [название] - Новое занятие\n" +
	"/slot <ГГГГ-ММ-ДД ЧЧ:ММ> <ЧЧ:ММ> - Окно доступности"

const tutorOnlyText = "⛔ Команда только для учителей. Сначала укажите предмет: /teach <предмет>"

// PreferenceSetter меняет настройку уведомлений пользователя
type PreferenceSetter interface {
	SetEnabled(userID string, enabled bool)
}

// Commands команды бота без привязки к Telegram: принимают пользователя и аргументы, возвращают текст ответа
type Commands struct {
	scheduling   *service.SchedulingService
	finder       *service.RescheduleFinder
	ranking      *service.RankingService
	availability *service.AvailabilityService
	userRepo     repository.UserRepository
	prefs        PreferenceSetter
	location     *time.Location
	nowF         func() time.Time
	logger       *zap.Logger
}

func NewCommands(
	scheduling *service.SchedulingService,
	finder *service.RescheduleFinder,
	ranking *service.RankingService,
	availability *service.AvailabilityService,
	userRepo repository.UserRepository,
	prefs PreferenceSetter,
	location *time.Location,
	logger *zap.Logger,
) *Commands {
	if location == nil {
		location = time.UTC
	}

	return &Commands{
		scheduling:   scheduling,
		finder:       finder,
		ranking:      ranking,
		availability: availability,
		userRepo:     userRepo,
		prefs:        prefs,
		location:     location,
		nowF:         time.Now,
		logger:       logger,
	}
}

// Register создаёт пользователя при первом /start
func (c *Commands) Register(ctx context.Context, telegramID int64, name string) string {
	user, err := c.userRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		c.logger.Error("Failed to get user", zap.Int64("telegram_id", telegramID), zap.Error(err))
		return "❌ Произошла ошибка при регистрации. Попробуйте позже."
	}

	if user == nil {
		user = &model.User{Name: name, TelegramID: &telegramID}
		if err := c.userRepo.Create(ctx, user); err != nil {
			c.logger.Error("Failed to register user", zap.Int64("telegram_id", telegramID), zap.Error(err))
			return "❌ Произошла ошибка при регистрации. Попробуйте позже."
		}
		c.logger.Info("User registered", zap.String("user_id", user.ID), zap.Int64("telegram_id", telegramID))
	}

	greeting := user.Name
	if greeting == "" {
		greeting = "друг"
	}
	return fmt.Sprintf("👋 Привет, %s!\n\nВаш ID: %s\n\n%s", greeting, user.ID, helpText)
}

// WeekImage рисует текущую неделю пользователя.
// Если картинки нет, возвращает текст ответа.
func (c *Commands) WeekImage(ctx context.Context, telegramID int64) ([]byte, string) {
	var image []byte
	text := c.Dispatch(ctx, telegramID, "", func(ctx context.Context, user *model.User, _ string) string {
		now := c.nowF().In(c.location)
		week := weekOf(now)

		sessions, err := c.scheduling.SessionsFor(ctx, user.ID, week.start, week.end)
		if err != nil {
			return c.errorText("week", err)
		}

		var slots []model.AvailabilitySlot
		if user.IsTutor {
			if slots, err = c.availability.ListSlots(ctx, user.ID, week.start, week.end); err != nil {
				return c.errorText("week", err)
			}
		}

		if image, err = RenderWeek(now, sessions, slots); err != nil {
			return c.errorText("week", err)
		}
		return fmt.Sprintf("🗓 Неделя с %s: занятий %d", week.start.Format("02.01"), len(sessions))
	})
	return image, text
}

// Dispatch находит пользователя по Telegram ID и выполняет команду
func (c *Commands) Dispatch(ctx context.Context, telegramID int64, text string, fn commandFunc) string {
	user, err := c.userRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		c.logger.Error("Failed to get user", zap.Int64("telegram_id", telegramID), zap.Error(err))
		return "❌ Произошла ошибка. Попробуйте позже."
	}
	if user == nil {
		return "Сначала зарегистрируйтесь: /start"
	}

	return fn(ctx, user, commandArgs(text))
}

func (c *Commands) Agenda(ctx context.Context, user *model.User, _ string) string {
	sessions, err := c.scheduling.UpcomingFor(ctx, user.ID, agendaHorizon)
	if err != nil {
		return c.errorText("agenda", err)
	}
	if len(sessions) == 0 {
		return "📭 Занятий на ближайшие две недели нет."
	}

	var sb strings.Builder
	sb.WriteString("📅 Ваши занятия:\n")
	for _, s := range sessions {
		sb.WriteString("\n")
		sb.WriteString(c.formatSession(s, user.ID))
	}
	return sb.String()
}

func (c *Commands) Book(ctx context.Context, user *model.User, args string) string {
	sessionID, ok := firstArg(args)
	if !ok {
		return "Укажите ID занятия: /book <id>"
	}

	session, err := c.scheduling.Reserve(ctx, sessionID, user.ID)
	if err != nil {
		return c.errorText("book", err)
	}
	return fmt.Sprintf("✅ Вы записаны на «%s» %s", session.Title, c.formatTime(session.StartTime))
}

func (c *Commands) Cancel(ctx context.Context, user *model.User, args string) string {
	sessionID, ok := firstArg(args)
	if !ok {
		return "Укажите ID занятия: /cancel <id>"
	}

	session, err := c.scheduling.Cancel(ctx, sessionID, user.ID)
	if err != nil {
		return c.errorText("cancel", err)
	}
	return fmt.Sprintf("❌ Занятие «%s» %s отменено", session.Title, c.formatTime(session.StartTime))
}

func (c *Commands) Move(ctx context.Context, user *model.User, args string) string {
	fields := strings.Fields(args)
	if len(fields) < 3 || len(fields) > 4 {
		return "Формат: /move <id> <ГГГГ-ММ-ДД ЧЧ:ММ> [минуты]"
	}

	start, err := c.parseTime(fields[1] + " " + fields[2])
	if err != nil {
		return "⚠️ Не удалось разобрать время, нужен формат ГГГГ-ММ-ДД ЧЧ:ММ"
	}

	// 0 - оставить текущую длительность
	minutes := 0
	if len(fields) == 4 {
		if minutes, err = strconv.Atoi(fields[3]); err != nil {
			return "⚠️ Длительность должна быть числом минут"
		}
	}

	session, err := c.scheduling.Reschedule(ctx, fields[0], user.ID, start, minutes)
	if err != nil {
		return c.errorText("move", err)
	}
	return fmt.Sprintf("🔁 Занятие «%s» перенесено на %s (%d мин)",
		session.Title, c.formatTime(session.StartTime), session.DurationMinutes)
}

func (c *Commands) Suggest(ctx context.Context, user *model.User, args string) string {
	sessionID, ok := firstArg(args)
	if !ok {
		return "Укажите ID занятия: /suggest <id>"
	}

	session, err := c.scheduling.GetByID(ctx, sessionID)
	if err != nil {
		return c.errorText("suggest", err)
	}
	if !session.Involves(user.ID) {
		return c.errorText("suggest", service.ErrPermissionDenied)
	}

	windows, err := c.finder.FindCandidates(ctx, sessionID)
	if err != nil {
		return c.errorText("suggest", err)
	}
	if len(windows) == 0 {
		return "😔 Свободного времени для переноса не найдено."
	}

	var sb strings.Builder
	sb.WriteString("🔍 Можно перенести на:\n")
	for i, w := range windows {
		if i == maxSuggestions {
			fmt.Fprintf(&sb, "\n...и ещё %d", len(windows)-maxSuggestions)
			break
		}
		fmt.Fprintf(&sb, "\n• %s - %s", c.formatTime(w.StartTime), w.EndTime.In(c.location).Format("15:04"))
	}
	return sb.String()
}

func (c *Commands) Top(ctx context.Context, user *model.User, args string) string {
	subject := strings.TrimSpace(args)
	if subject == "" {
		return "Укажите предмет: /top <предмет>"
	}

	top, err := c.ranking.TopTutors(ctx, user.ID, subject, topTutorsLimit)
	if err != nil {
		return c.errorText("top", err)
	}
	if len(top) == 0 {
		return fmt.Sprintf("😔 Нет свободных учителей по предмету «%s».", subject)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "⭐ Учителя по предмету «%s»:\n", subject)
	for i, ts := range top {
		name := ts.Tutor.Name
		if name == "" {
			name = ts.Tutor.ID
		}
		fmt.Fprintf(&sb, "\n%d. %s (%.2f)", i+1, name, ts.Score)
	}
	return sb.String()
}

// Teach отмечает пользователя учителем предмета
func (c *Commands) Teach(ctx context.Context, user *model.User, args string) string {
	subject := strings.TrimSpace(args)
	if subject == "" {
		return "Укажите предмет: /teach <предмет>"
	}

	updated, err := c.userRepo.AddSubject(ctx, user.ID, subject)
	if err != nil {
		return c.errorText("teach", err)
	}
	if updated == nil {
		return c.errorText("teach", service.ErrNotFound)
	}

	c.logger.Info("Tutor subject added", zap.String("user_id", user.ID), zap.String("subject", subject))
	return fmt.Sprintf("🎓 Вы ведёте: %s", strings.Join(updated.Subjects, ", "))
}

func (c *Commands) Publish(ctx context.Context, user *model.User, args string) string {
	if !user.IsTutor {
		return tutorOnlyText
	}

	fields := strings.Fields(args)
	if len(fields) < 3 {
		return "Формат: /publish <ГГГГ-ММ-ДД ЧЧ:ММ> <минуты> [название]"
	}

	start, err := c.parseTime(fields[0] + " " + fields[1])
	if err != nil {
		return "⚠️ Не удалось разобрать время, нужен формат ГГГГ-ММ-ДД ЧЧ:ММ"
	}
	minutes, err := strconv.Atoi(fields[2])
	if err != nil {
		return "⚠️ Длительность должна быть числом минут"
	}

	title := strings.Join(fields[3:], " ")
	if title == "" {
		title = "Занятие"
	}

	session, err := c.scheduling.PublishAvailability(ctx, user.ID, title, "", start, minutes)
	if err != nil {
		return c.errorText("publish", err)
	}
	return fmt.Sprintf("➕ Занятие «%s» %s опубликовано\nID: %s", session.Title, c.formatTime(session.StartTime), session.ID)
}

func (c *Commands) Slot(ctx context.Context, user *model.User, args string) string {
	if !user.IsTutor {
		return tutorOnlyText
	}

	fields := strings.Fields(args)
	if len(fields) != 3 {
		return "Формат: /slot <ГГГГ-ММ-ДД ЧЧ:ММ> <ЧЧ:ММ>"
	}

	start, err := c.parseTime(fields[0] + " " + fields[1])
	if err != nil {
		return "⚠️ Не удалось разобрать время, нужен формат ГГГГ-ММ-ДД ЧЧ:ММ"
	}
	end, err := c.parseTime(fields[0] + " " + fields[2])
	if err != nil {
		return "⚠️ Не удалось разобрать время окончания, нужен формат ЧЧ:ММ"
	}

	slot, err := c.availability.PublishSlot(ctx, user.ID, start, end)
	if err != nil {
		return c.errorText("slot", err)
	}
	return fmt.Sprintf("🗓 Окно %s - %s добавлено", c.formatTime(slot.StartTime), slot.EndTime.In(c.location).Format("15:04"))
}

func (c *Commands) Notify(_ context.Context, user *model.User, args string) string {
	switch strings.ToLower(strings.TrimSpace(args)) {
	case "on":
		c.prefs.SetEnabled(user.ID, true)
		return "🔔 Уведомления включены"
	case "off":
		c.prefs.SetEnabled(user.ID, false)
		return "🔕 Уведомления выключены"
	default:
		return "Формат: /notify on|off"
	}
}

// errorText переводит ошибки сервисов в сообщение пользователю
func (c *Commands) errorText(command string, err error) string {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return "🤷 Занятие не найдено или уже неактивно."
	case errors.Is(err, service.ErrAlreadyBooked):
		return "⛔ На это занятие уже записан другой студент."
	case errors.Is(err, service.ErrPermissionDenied):
		return "⛔ Это не ваше занятие."
	case errors.Is(err, service.ErrSchedulingConflict):
		return "⚠️ Это время пересекается с другим занятием учителя."
	case errors.Is(err, service.ErrInvalidInput):
		return "⚠️ Некорректные данные: время должно быть минимум через 5 минут, длительность больше нуля."
	default:
		c.logger.Error("Command failed", zap.String("command", command), zap.Error(err))
		return "❌ Произошла ошибка. Попробуйте позже."
	}
}

func (c *Commands) formatSession(s *model.Session, viewerID string) string {
	role := "учитель"
	if s.TutorID != viewerID {
		role = "студент"
	}

	state := "свободно"
	switch {
	case s.Status == model.SessionStatusCompleted:
		state = "проведено"
	case s.IsBooked():
		state = "забронировано"
	}

	return fmt.Sprintf("• %s (%d мин) «%s», %s, %s\n  ID: %s",
		c.formatTime(s.StartTime), s.DurationMinutes, s.Title, role, state, s.ID)
}

func (c *Commands) formatTime(t time.Time) string {
	return t.In(c.location).Format(displayLayout)
}

func (c *Commands) parseTime(value string) (time.Time, error) {
	return time.ParseInLocation(dateTimeLayout, value, c.location)
}

// commandArgs отрезает саму команду (в т.ч. /cmd@botname)
func commandArgs(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexAny(text, " \t\n"); idx >= 0 {
		return strings.TrimSpace(text[idx:])
	}
	return ""
}

func firstArg(args string) (string, bool) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return "", false
	}
	return fields[0], true
}
