package app

import (
	"context"
	"time"

	"bookingdesk/internal/config"
	"bookingdesk/internal/modules/notification"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// NewRedis returns nil when REDIS_ADDR is unset. An unreachable server is
// logged, not fatal: the middleware built on it fails open.
func NewRedis(ctx context.Context, cfg *config.Config, log *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		log.Info("redis disabled, idempotency and rate limiting are off")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Warn("redis ping failed", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	} else {
		log.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
	}
	return client
}

func NewMailer(cfg *config.Config, log *zap.Logger) notification.Mailer {
	if cfg.MailDriver == config.MailSMTP {
		return notification.NewSMTPMailer(notification.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
	}
	return notification.NewLogMailer(log)
}

func WorkerConfig(cfg *config.Config) notification.WorkerConfig {
	return notification.WorkerConfig{
		PollInterval: cfg.OutboxPollInterval,
		BatchSize:    cfg.OutboxBatchSize,
		MaxAttempts:  cfg.OutboxMaxAttempts,
		BaseBackoff:  cfg.OutboxBaseBackoff,
		SendTimeout:  cfg.OutboxSendTimeout,
		StaleAfter:   cfg.OutboxStaleAfter,
	}
}

// NewOutboxWorker assembles the dispatcher and poller over stores.
func NewOutboxWorker(cfg *config.Config, stores *Stores, log *zap.Logger) (*notification.Worker, error) {
	renderer, err := notification.NewRenderer(cfg.PaymentPageBaseURL)
	if err != nil {
		return nil, err
	}
	dispatcher := notification.NewDispatcher(
		stores.Bookings,
		stores.Businesses,
		stores.Customers,
		renderer,
		NewMailer(cfg, log),
		log,
	)
	return notification.NewWorker(stores.Outbox, dispatcher, WorkerConfig(cfg), log), nil
}
