package app

import (
	"context"
	"net/http"
	"time"

	"bookingdesk/internal/config"
	"bookingdesk/internal/middleware"
	"bookingdesk/internal/modules/booking"
	"bookingdesk/internal/modules/realtime"
	"bookingdesk/internal/pkg/jwt"
	"bookingdesk/internal/pkg/logger"
	"bookingdesk/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type RouterDeps struct {
	Config   *config.Config
	Log      *zap.Logger
	JWT      *jwt.Service
	Bookings *booking.Handler
	Realtime *realtime.Handler

	// Nil disables the matching middleware.
	Idempotency middleware.IdempotencyStore
	Counter     middleware.Counter

	Ping func(ctx context.Context) error
}

func NewRouter(d RouterDeps) *gin.Engine {
	log := logger.OrNop(d.Log)

	r := gin.New()
	r.Use(middleware.ErrorLogger(log))
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.CORS(d.Config.CORSAllowedOrigins))

	r.GET("/healthz", healthz(d.Ping))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	if d.Realtime != nil {
		d.Realtime.RegisterRoutes(v1)
	}

	protected := v1.Group("")
	protected.Use(middleware.ActorAuth(d.JWT, d.Config.SessionCookieName))
	if d.Counter != nil && d.Config.RateLimitPerMin > 0 {
		protected.Use(middleware.RateLimit(d.Counter, d.Config.RateLimitPerMin, log))
	}

	var createMW []gin.HandlerFunc
	if d.Idempotency != nil {
		createMW = append(createMW, middleware.Idempotency(d.Idempotency, d.Config.IdempotencyTTL, log))
	}
	d.Bookings.RegisterRoutes(protected, createMW...)

	return r
}

func healthz(ping func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				response.Error(c, http.StatusServiceUnavailable, "UNAVAILABLE", "Storage unreachable")
				return
			}
		}
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	}
}
