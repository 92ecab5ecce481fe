package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
)

type Config struct {
	TelegramToken string `env:"TELEGRAM_TOKEN,required"`

	// Subscription gate: users must be members of both before the catalog opens.
	ChannelID  int64  `env:"CHANNEL_ID,required"`
	GroupID    int64  `env:"GROUP_ID,required"`
	ChannelURL string `env:"CHANNEL_URL,required"`
	GroupURL   string `env:"GROUP_URL,required"`

	// Orders channel for fulfillment staff, 0 disables notifications.
	AdminChannelID int64 `env:"ADMIN_CHANNEL_ID"`

	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	DBHost            string        `env:"DB_HOST,required"`
	DBPort            int           `env:"DB_PORT,required"`
	DBUser            string        `env:"DB_USER,required"`
	DBPassword        string        `env:"DB_PASSWORD,required"`
	DBName            string        `env:"DB_NAME,required"`
	DBMaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
	DBConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"2m"`

	PaymentBaseURL      string        `env:"PAYMENT_BASE_URL,required"`
	PaymentAPIKey       string        `env:"PAYMENT_API_KEY,required"`
	PaymentCurrency     string        `env:"PAYMENT_CURRENCY" envDefault:"RUB"`
	PaymentPollInterval time.Duration `env:"PAYMENT_POLL_INTERVAL" envDefault:"10s"`
	HTTPRequestTimeout  time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`

	FulfillmentLedgerPath string `env:"FULFILLMENT_LEDGER_PATH" envDefault:"orders.xlsx"`

	CategoriesPerPage    int `env:"CATEGORIES_PER_PAGE" envDefault:"5"`
	SubcategoriesPerPage int `env:"SUBCATEGORIES_PER_PAGE" envDefault:"5"`
	ProductsPerPage      int `env:"PRODUCTS_PER_PAGE" envDefault:"3"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
