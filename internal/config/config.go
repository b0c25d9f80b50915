package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	TelegramToken  string `mapstructure:"TELEGRAM_TOKEN"`
	DBDSN          string `mapstructure:"DB_DSN"`
	Environment    string `mapstructure:"ENV"`
	MigrationsPath string `mapstructure:"MIGRATIONS_PATH"`

	NotifyReorderInterval time.Duration `mapstructure:"NOTIFY_REORDER_INTERVAL"`
	NotifyDeliverInterval time.Duration `mapstructure:"NOTIFY_DELIVER_INTERVAL"`
	RescheduleHorizon     time.Duration `mapstructure:"RESCHEDULE_HORIZON"`
	RescheduleStep        time.Duration `mapstructure:"RESCHEDULE_STEP"`
	RankingLookahead      time.Duration `mapstructure:"RANKING_LOOKAHEAD"`
	HousekeepingInterval  time.Duration `mapstructure:"HOUSEKEEPING_INTERVAL"`
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	return FromEnv()
}

// FromEnv читает конфигурацию только из переменных окружения
func FromEnv() (*Config, error) {
	cfg := &Config{
		DBDSN:          os.Getenv("DB_DSN"),
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		Environment:    getEnv("ENV", "development"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
	}

	durations := []struct {
		key   string
		def   time.Duration
		field *time.Duration
	}{
		{"NOTIFY_REORDER_INTERVAL", time.Second, &cfg.NotifyReorderInterval},
		{"NOTIFY_DELIVER_INTERVAL", 2 * time.Second, &cfg.NotifyDeliverInterval},
		{"RESCHEDULE_HORIZON", 7 * 24 * time.Hour, &cfg.RescheduleHorizon},
		{"RESCHEDULE_STEP", 30 * time.Minute, &cfg.RescheduleStep},
		{"RANKING_LOOKAHEAD", 72 * time.Hour, &cfg.RankingLookahead},
		{"HOUSEKEEPING_INTERVAL", time.Hour, &cfg.HousekeepingInterval},
	}

	for _, d := range durations {
		value, err := getDuration(d.key, d.def)
		if err != nil {
			return nil, err
		}
		*d.field = value
	}

	return cfg, nil
}

// UsePostgres без DB_DSN используются хранилища в памяти
func (c *Config) UsePostgres() bool {
	return c.DBDSN != ""
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}

func getEnv(key, def string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}

	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, raw)
	}
	return value, nil
}
