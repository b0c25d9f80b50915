package notification

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/tutor_scheduler/internal/model"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// Deliverer доставляет одно уведомление получателю
type Deliverer interface {
	Deliver(ctx context.Context, n model.Notification) error
}

// LogDeliverer пишет уведомления в лог
type LogDeliverer struct {
	logger *zap.Logger
}

func NewLogDeliverer(logger *zap.Logger) *LogDeliverer {
	return &LogDeliverer{logger: logger}
}

func (d *LogDeliverer) Deliver(_ context.Context, n model.Notification) error {
	d.logger.Info("Notification delivered",
		zap.String("user_id", n.UserID),
		zap.String("type", string(n.Type)),
		zap.Int("priority", n.Priority),
		zap.String("message", n.Message),
	)
	return nil
}

// MessageSender часть *bot.Bot, нужная для отправки сообщений
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// TelegramDeliverer отправляет уведомления в Telegram.
// Пользователи без привязанного Telegram обслуживаются fallback-доставщиком.
type TelegramDeliverer struct {
	sender   MessageSender
	userRepo repository.UserRepository
	fallback Deliverer
	logger   *zap.Logger
}

func NewTelegramDeliverer(sender MessageSender, userRepo repository.UserRepository, fallback Deliverer, logger *zap.Logger) *TelegramDeliverer {
	return &TelegramDeliverer{
		sender:   sender,
		userRepo: userRepo,
		fallback: fallback,
		logger:   logger,
	}
}

func (d *TelegramDeliverer) Deliver(ctx context.Context, n model.Notification) error {
	user, err := d.userRepo.GetByID(ctx, n.UserID)
	if err != nil {
		return fmt.Errorf("get recipient: %w", err)
	}

	if user == nil || user.TelegramID == nil {
		d.logger.Debug("Recipient has no telegram chat, using fallback", zap.String("user_id", n.UserID))
		return d.fallback.Deliver(ctx, n)
	}

	_, err = d.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: *user.TelegramID,
		Text:   n.Message,
	})
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	d.logger.Info("Notification sent to telegram",
		zap.String("user_id", n.UserID),
		zap.Int64("telegram_id", *user.TelegramID),
		zap.String("type", string(n.Type)),
	)
	return nil
}
