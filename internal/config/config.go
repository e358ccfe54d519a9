package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultJWTSecret = "change-me-jwt-secret"

	StoreSQL   = "sql"
	StoreMongo = "mongo"

	MailSMTP = "smtp"
	MailLog  = "log"
)

type Config struct {
	AppEnv   string `mapstructure:"APP_ENV"`
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	StoreDriver   string `mapstructure:"STORE_DRIVER"`
	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`

	RedisAddr       string        `mapstructure:"REDIS_ADDR"`
	RedisPassword   string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB         int           `mapstructure:"REDIS_DB"`
	IdempotencyTTL  time.Duration `mapstructure:"IDEMPOTENCY_TTL"`
	RateLimitPerMin int           `mapstructure:"RATE_LIMIT_PER_MIN"`

	JWTSecret          string        `mapstructure:"JWT_SECRET"`
	JWTTTL             time.Duration `mapstructure:"JWT_TTL"`
	SessionCookieName  string        `mapstructure:"SESSION_COOKIE_NAME"`
	CORSAllowedOrigins string        `mapstructure:"CORS_ALLOWED_ORIGINS"`

	PaymentPageBaseURL string `mapstructure:"PAYMENT_PAGE_BASE_URL"`
	MailDriver         string `mapstructure:"MAIL_DRIVER"`
	SMTPHost           string `mapstructure:"SMTP_HOST"`
	SMTPPort           int    `mapstructure:"SMTP_PORT"`
	SMTPUsername       string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword       string `mapstructure:"SMTP_PASSWORD"`
	MailFrom           string `mapstructure:"MAIL_FROM"`

	OutboxEmbedded     bool          `mapstructure:"OUTBOX_EMBEDDED"`
	OutboxPollInterval time.Duration `mapstructure:"OUTBOX_POLL_INTERVAL"`
	OutboxBatchSize    int           `mapstructure:"OUTBOX_BATCH_SIZE"`
	OutboxMaxAttempts  int           `mapstructure:"OUTBOX_MAX_ATTEMPTS"`
	OutboxBaseBackoff  time.Duration `mapstructure:"OUTBOX_BASE_BACKOFF"`
	OutboxSendTimeout  time.Duration `mapstructure:"OUTBOX_SEND_TIMEOUT"`
	OutboxStaleAfter   time.Duration `mapstructure:"OUTBOX_STALE_AFTER"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("LOG_LEVEL", "")

	v.SetDefault("STORE_DRIVER", StoreSQL)
	v.SetDefault("DATABASE_URL", "bookingdesk.db")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "bookingdesk")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("IDEMPOTENCY_TTL", "24h")
	v.SetDefault("RATE_LIMIT_PER_MIN", 120)

	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_TTL", "24h")
	v.SetDefault("SESSION_COOKIE_NAME", "session")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")

	v.SetDefault("PAYMENT_PAGE_BASE_URL", "http://localhost:3000/payment")
	v.SetDefault("MAIL_DRIVER", MailLog)
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("MAIL_FROM", "no-reply@bookingdesk.local")

	v.SetDefault("OUTBOX_EMBEDDED", true)
	v.SetDefault("OUTBOX_POLL_INTERVAL", "2s")
	v.SetDefault("OUTBOX_BATCH_SIZE", 20)
	v.SetDefault("OUTBOX_MAX_ATTEMPTS", 8)
	v.SetDefault("OUTBOX_BASE_BACKOFF", "5s")
	v.SetDefault("OUTBOX_SEND_TIMEOUT", "10s")
	v.SetDefault("OUTBOX_STALE_AFTER", "5m")
}

// Load reads an optional .env file, an optional config.yaml and the process
// environment, in increasing order of precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.AppEnv = strings.ToLower(strings.TrimSpace(cfg.AppEnv))
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	cfg.MailDriver = strings.ToLower(strings.TrimSpace(cfg.MailDriver))

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.StoreDriver != StoreSQL && cfg.StoreDriver != StoreMongo {
		return fmt.Errorf("STORE_DRIVER must be one of: sql, mongo")
	}
	if cfg.StoreDriver == StoreSQL && strings.TrimSpace(cfg.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.StoreDriver == StoreMongo && strings.TrimSpace(cfg.MongoURI) == "" {
		return fmt.Errorf("MONGO_URI must not be empty")
	}
	if cfg.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if cfg.MailDriver != MailSMTP && cfg.MailDriver != MailLog {
		return fmt.Errorf("MAIL_DRIVER must be one of: smtp, log")
	}
	if cfg.MailDriver == MailSMTP && cfg.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST must be set when MAIL_DRIVER=smtp")
	}
	if cfg.OutboxPollInterval <= 0 {
		return fmt.Errorf("OUTBOX_POLL_INTERVAL must be > 0")
	}
	if cfg.OutboxBatchSize <= 0 {
		return fmt.Errorf("OUTBOX_BATCH_SIZE must be > 0")
	}
	if cfg.OutboxMaxAttempts <= 0 {
		return fmt.Errorf("OUTBOX_MAX_ATTEMPTS must be > 0")
	}
	if cfg.OutboxBaseBackoff <= 0 || cfg.OutboxSendTimeout <= 0 {
		return fmt.Errorf("OUTBOX_BASE_BACKOFF and OUTBOX_SEND_TIMEOUT must be > 0")
	}

	if IsProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if cfg.MailDriver != MailSMTP {
			return fmt.Errorf("in prod/release MAIL_DRIVER must be smtp")
		}
	}

	return nil
}

func IsProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}
