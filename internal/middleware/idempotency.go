package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bookingdesk/internal/pkg/logger"
	"bookingdesk/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	idempotencyLockTTL   = 10 * time.Second
	idempotencyPending   = "PROCESSING"
)

// IdempotencyStore keeps the first response recorded for a key.
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Save(ctx context.Context, key, value string, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

type RedisIdempotencyStore struct {
	client *redis.Client
}

func NewRedisIdempotencyStore(client *redis.Client) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{client: client}
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *RedisIdempotencyStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, idempotencyPending, ttl).Result()
}

func (s *RedisIdempotencyStore) Save(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

type storedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

type bodyRecorder struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency replays the stored response for a repeated Idempotency-Key
// instead of running the handler again. Keys are scoped per actor. Requests
// without the header pass through. If the store is unreachable the request is
// served without protection.
func Idempotency(store IdempotencyStore, ttl time.Duration, log *zap.Logger) gin.HandlerFunc {
	log = logger.OrNop(log)
	return func(c *gin.Context) {
		key := c.GetHeader(headerIdempotencyKey)
		if key == "" || store == nil {
			c.Next()
			return
		}

		idemKey := fmt.Sprintf("idempotency:%s:%s", c.GetString(ContextActorID), key)
		ctx := c.Request.Context()

		val, found, err := store.Get(ctx, idemKey)
		if err != nil {
			log.Warn("idempotency store unavailable", zap.Error(err))
			c.Next()
			return
		}
		if found {
			if val == idempotencyPending {
				response.AbortError(c, http.StatusConflict, "CONCURRENT_REQUEST", "A request with this key is in progress")
				return
			}
			var stored storedResponse
			if err := json.Unmarshal([]byte(val), &stored); err == nil {
				c.Header("X-Idempotency-Hit", "true")
				c.Data(stored.Status, "application/json; charset=utf-8", stored.Body)
				c.Abort()
				return
			}
		}

		acquired, err := store.Reserve(ctx, idemKey, idempotencyLockTTL)
		if err != nil {
			log.Warn("idempotency store unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !acquired {
			response.AbortError(c, http.StatusConflict, "CONCURRENT_REQUEST", "A request with this key is in progress")
			return
		}

		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		// Only final outcomes are remembered; a 5xx may succeed on retry.
		status := rec.Status()
		if status >= http.StatusInternalServerError || rec.buf.Len() == 0 {
			if err := store.Release(context.WithoutCancel(ctx), idemKey); err != nil {
				log.Warn("idempotency key not released", zap.String("key", idemKey), zap.Error(err))
			}
			return
		}

		raw, err := json.Marshal(storedResponse{Status: status, Body: rec.buf.Bytes()})
		if err != nil {
			return
		}
		if err := store.Save(context.WithoutCancel(ctx), idemKey, string(raw), ttl); err != nil {
			log.Warn("idempotency response not stored", zap.String("key", idemKey), zap.Error(err))
		}
	}
}
