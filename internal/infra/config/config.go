package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию бота.
type AppConfig struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	Port        int    `envconfig:"PORT" default:"8080"`
	MetricsAddr string `envconfig:"METRICS_ADDR"`

	Telegram struct {
		Token          string `envconfig:"TG_BOT_TOKEN" required:"true"`
		WebhookURL     string `envconfig:"TG_WEBHOOK_URL"`
		AdminIDs       string `envconfig:"ADMIN_IDS"`
		NotificationID int64  `envconfig:"NOTIFICATION_CHANNEL_ID"`
	} `envconfig:""`

	Store struct {
		Driver     string `envconfig:"STORE_DRIVER" default:"file"`
		Dir        string `envconfig:"STORE_DIR" default:"./data"`
		SQLitePath string `envconfig:"SQLITE_PATH" default:"./data/bot.db"`
	} `envconfig:""`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr  string        `envconfig:"REDIS_ADDR"`
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"24h"`

	Limits struct {
		PageSize     int `envconfig:"PAGE_SIZE" default:"5"`
		BroadcastRPS int `envconfig:"BROADCAST_RPS" default:"20"`
	} `envconfig:""`

	Queues struct {
		Broadcast string `envconfig:"BROADCAST_QUEUE_KEY" default:"broadcast_jobs"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
