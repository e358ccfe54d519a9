package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookingdesk/internal/app"
	"bookingdesk/internal/config"
	"bookingdesk/internal/middleware"
	"bookingdesk/internal/modules/booking"
	"bookingdesk/internal/modules/realtime"
	"bookingdesk/internal/pkg/jwt"
	"bookingdesk/internal/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zlog, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	if config.IsProdLike(cfg.AppEnv) {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, zlog); err != nil {
		zlog.Fatal("api stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, zlog *zap.Logger) error {
	stores, err := app.OpenStores(ctx, cfg, zlog)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := stores.Close(closeCtx); err != nil {
			zlog.Warn("close store", zap.Error(err))
		}
	}()

	jwtSvc := jwt.New(cfg.JWTSecret, cfg.JWTTTL)
	hub := realtime.NewHub(zlog)
	defer hub.Close()

	bookingSvc := booking.NewService(stores.Bookings, stores.Businesses, hub, zlog)

	deps := app.RouterDeps{
		Config:   cfg,
		Log:      zlog,
		JWT:      jwtSvc,
		Bookings: booking.NewHandler(bookingSvc, zlog),
		Realtime: realtime.NewHandler(hub, jwtSvc, cfg.CORSAllowedOrigins, zlog),
		Ping:     stores.Ping,
	}
	if rdb := app.NewRedis(ctx, cfg, zlog); rdb != nil {
		defer func() { _ = rdb.Close() }()
		deps.Idempotency = middleware.NewRedisIdempotencyStore(rdb)
		deps.Counter = middleware.NewRedisCounter(rdb)
	}

	workerDone := make(chan struct{})
	if cfg.OutboxEmbedded {
		worker, err := app.NewOutboxWorker(cfg, stores, zlog)
		if err != nil {
			return err
		}
		go func() {
			defer close(workerDone)
			_ = worker.Run(ctx)
		}()
	} else {
		close(workerDone)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           app.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		zlog.Info("http server listening", zap.String("addr", cfg.HTTPAddr), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	zlog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Warn("http shutdown", zap.Error(err))
	}
	<-workerDone
	return nil
}
