package controller

import (
	"bytes"
	"context"
	"strings"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// commandFunc обрабатывает команду от зарегистрированного пользователя и возвращает текст ответа
type commandFunc func(ctx context.Context, user *model.User, args string) string

type BotController struct {
	bot      *bot.Bot
	commands *Commands
	logger   *zap.Logger
}

func NewBotController(botInstance *bot.Bot, commands *Commands, logger *zap.Logger) *BotController {
	return &BotController{
		bot:      botInstance,
		commands: commands,
		logger:   logger,
	}
}

// RegisterHandlers регистрирует все обработчики команд
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, c.handleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, c.handleHelp)

	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/agenda", bot.MatchTypeExact, c.handle(c.commands.Agenda))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/week", bot.MatchTypeExact, c.handleWeek)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/book", bot.MatchTypePrefix, c.handle(c.commands.Book))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/cancel", bot.MatchTypePrefix, c.handle(c.commands.Cancel))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/move", bot.MatchTypePrefix, c.handle(c.commands.Move))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/suggest", bot.MatchTypePrefix, c.handle(c.commands.Suggest))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/top", bot.MatchTypePrefix, c.handle(c.commands.Top))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/teach", bot.MatchTypePrefix, c.handle(c.commands.Teach))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/publish", bot.MatchTypePrefix, c.handle(c.commands.Publish))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/slot", bot.MatchTypePrefix, c.handle(c.commands.Slot))
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/notify", bot.MatchTypePrefix, c.handle(c.commands.Notify))

	return c.setCommands(ctx)
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "start", Description: "🚀 Регистрация"},
		{Command: "help", Description: "❓ Справка по командам"},
		{Command: "agenda", Description: "📅 Мои занятия"},
		{Command: "week", Description: "🗓 Неделя картинкой"},
		{Command: "book", Description: "✅ Записаться: /book <id>"},
		{Command: "cancel", Description: "❌ Отменить: /cancel <id>"},
		{Command: "move", Description: "🔁 Перенести: /move <id> <дата время> [мин]"},
		{Command: "suggest", Description: "🔍 Варианты переноса: /suggest <id>"},
		{Command: "top", Description: "⭐ Лучшие учителя: /top <предмет>"},
		{Command: "teach", Description: "🎓 Стать учителем: /teach <предмет>"},
		{Command: "publish", Description: "➕ Новое занятие (учитель)"},
		{Command: "slot", Description: "🗓 Окно доступности (учитель)"},
		{Command: "notify", Description: "🔔 Уведомления: /notify on|off"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})
	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("✅ Bot commands menu set")
	return nil
}

// Start запускает бота, блокирует до отмены ctx
func (c *BotController) Start(ctx context.Context) error {
	c.logger.Info("Starting bot...")
	c.bot.Start(ctx)
	return nil
}

func (c *BotController) handle(fn commandFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.Message == nil || update.Message.From == nil {
			return
		}

		reply := c.commands.Dispatch(ctx, update.Message.From.ID, update.Message.Text, fn)
		c.reply(ctx, b, update, reply)
	}
}

func (c *BotController) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	from := update.Message.From
	name := strings.TrimSpace(from.FirstName + " " + from.LastName)
	c.reply(ctx, b, update, c.commands.Register(ctx, from.ID, name))
}

func (c *BotController) handleWeek(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	image, text := c.commands.WeekImage(ctx, update.Message.From.ID)
	if image == nil {
		c.reply(ctx, b, update, text)
		return
	}

	_, err := b.SendPhoto(ctx, &bot.SendPhotoParams{
		ChatID:  update.Message.Chat.ID,
		Photo:   &models.InputFileUpload{Filename: "week.png", Data: bytes.NewReader(image)},
		Caption: text,
	})
	if err != nil {
		c.logger.Error("Failed to send week image", zap.Error(err))
		c.reply(ctx, b, update, text)
	}
}

func (c *BotController) handleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	c.reply(ctx, b, update, helpText)
}

func (c *BotController) reply(ctx context.Context, b *bot.Bot, update *models.Update, text string) {
	_, err := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   text,
	})
	if err != nil {
		c.logger.Error("Failed to send reply",
			zap.Int64("chat_id", update.Message.Chat.ID),
			zap.Error(err))
	}
}
