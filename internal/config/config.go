package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	// Database
	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME" envDefault:"sellerdesk"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	// Auth
	JWTSecret       string        `env:"JWT_SECRET"`
	JWTAccessExpiry time.Duration `env:"JWT_ACCESS_EXPIRY" envDefault:"15m"`
	SessionExpiry   time.Duration `env:"SESSION_EXPIRY" envDefault:"168h"`
	GoogleClientID  string        `env:"GOOGLE_CLIENT_ID"`

	// Shopee Open Platform
	ShopeePartnerID   int64  `env:"SHOPEE_PARTNER_ID"`
	ShopeePartnerKey  string `env:"SHOPEE_PARTNER_KEY"`
	ShopeeBaseURL     string `env:"SHOPEE_BASE_URL" envDefault:"https://partner.shopeemobile.com"`
	ShopeeRedirectURL string `env:"SHOPEE_REDIRECT_URL"`
	// ShopeePushURL must match the callback URL registered in the Shopee
	// console; it is part of the push signature base string.
	ShopeePushURL string `env:"SHOPEE_PUSH_URL"`

	// Redis (webhook dedup)
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Kafka (domain events; empty list disables publishing)
	KafkaBrokers    []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaEventTopic string   `env:"KAFKA_EVENT_TOPIC" envDefault:"sellerdesk.events"`

	// Background jobs (cron specs with seconds field)
	TokenRefreshSpec   string        `env:"TOKEN_REFRESH_SPEC" envDefault:"0 0/30 * * * *"`
	WebhookRetrySpec   string        `env:"WEBHOOK_RETRY_SPEC" envDefault:"0 * * * * *"`
	TokenRefreshWindow time.Duration `env:"TOKEN_REFRESH_WINDOW" envDefault:"1h"`

	// Server
	Port        string `env:"PORT" envDefault:"8080"`
	CORSOrigins string `env:"CORS_ORIGINS" envDefault:"*"`
	Environment string `env:"APP_ENV" envDefault:"development"`

	// Error reporting (disabled when the DSN is empty)
	SentryDSN string `env:"SENTRY_DSN"`
}

// Load reads .env when present, then parses the environment. A missing .env
// is fine in production.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}
