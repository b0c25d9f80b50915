package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Freeeeeet/tutor_scheduler/internal/app"
	"github.com/Freeeeeet/tutor_scheduler/internal/config"
	"github.com/Freeeeeet/tutor_scheduler/internal/controller"
	"github.com/Freeeeeet/tutor_scheduler/internal/notification"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository"
	"github.com/Freeeeeet/tutor_scheduler/internal/repository/memory"
	"github.com/Freeeeeet/tutor_scheduler/internal/service"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	logger.Info("Starting tutor scheduler",
		zap.String("environment", cfg.Environment),
		zap.Bool("postgres", cfg.UsePostgres()),
		zap.Bool("telegram", cfg.TelegramToken != ""),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Scheduler stopped with error", zap.Error(err))
	}

	logger.Info("Tutor scheduler stopped")
}

type stores struct {
	sessions     repository.SessionRepository
	availability repository.AvailabilityRepository
	users        repository.UserRepository
	ratings      repository.RatingRepository
	close        func()
}

func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	if !cfg.UsePostgres() {
		logger.Warn("DB_DSN is not set, using in-memory stores")
		return &stores{
			sessions:     memory.NewSessionRepository(),
			availability: memory.NewAvailabilityRepository(),
			users:        memory.NewUserRepository(),
			ratings:      memory.NewRatingRepository(),
			close:        func() {},
		}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.GetDBDSN())
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	defer migrator.Close()

	if err := migrator.Run(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &stores{
		sessions:     repository.NewSessionRepository(pool),
		availability: repository.NewAvailabilityRepository(pool),
		users:        repository.NewUserRepository(pool),
		ratings:      repository.NewRatingRepository(pool),
		close:        pool.Close,
	}, nil
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	var botInstance *bot.Bot
	var deliverer notification.Deliverer = notification.NewLogDeliverer(logger)
	if cfg.TelegramToken != "" {
		botInstance, err = bot.New(cfg.TelegramToken)
		if err != nil {
			return fmt.Errorf("create telegram bot: %w", err)
		}
		deliverer = notification.NewTelegramDeliverer(botInstance, st.users, deliverer, logger)
	}

	prefs := notification.NewPreferenceStore()
	pipeline := notification.NewPipeline(prefs, deliverer, notification.Config{
		ReorderInterval: cfg.NotifyReorderInterval,
		DeliverInterval: cfg.NotifyDeliverInterval,
	}, logger)

	scheduling := service.NewSchedulingService(st.sessions, st.users, pipeline, logger)
	finder := service.NewRescheduleFinder(st.sessions, st.availability, service.FinderConfig{
		Horizon: cfg.RescheduleHorizon,
		Step:    cfg.RescheduleStep,
	}, logger)
	availability := service.NewAvailabilityService(st.availability, logger)
	ratings := service.NewRatingService(st.ratings, st.sessions)
	ranking := service.NewRankingService(st.users, ratings, availability, cfg.RankingLookahead, logger)

	pipeline.Start(ctx)
	defer pipeline.Stop()

	housekeeping := app.NewScheduler(scheduling, cfg.HousekeepingInterval, logger)
	housekeeping.Start(ctx)
	defer housekeeping.Stop()

	if botInstance == nil {
		logger.Info("TELEGRAM_TOKEN is not set, running without bot commands")
		<-ctx.Done()
		return nil
	}

	commands := controller.NewCommands(scheduling, finder, ranking, availability, st.users, prefs, time.Local, logger)
	botController := controller.NewBotController(botInstance, commands, logger)
	if err := botController.RegisterHandlers(ctx); err != nil {
		return fmt.Errorf("register bot handlers: %w", err)
	}

	return botController.Start(ctx)
}
