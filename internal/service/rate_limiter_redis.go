package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Ventana deslizante sobre un sorted set: score = instante en ms.
// Una solicitud rechazada no ocupa lugar en la ventana.
const slidingWindowScript = `
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", now - window)
if redis.call("ZCARD", KEYS[1]) >= limit then
  return 0
end
redis.call("ZADD", KEYS[1], now, ARGV[4])
redis.call("PEXPIRE", KEYS[1], window)
return 1
`

const redisLimiterTimeout = 500 * time.Millisecond

type scriptRunner interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

type redisRateLimiter struct {
	client scriptRunner
	logger *zap.Logger
	window time.Duration
	max    int
	now    func() time.Time
}

// NewRedisRateLimiter comparte la ventana entre instancias de la API.
// Devuelve nil sin cliente.
func NewRedisRateLimiter(client *redis.Client, logger *zap.Logger, window time.Duration, max int) RateLimiter {
	if client == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if window < time.Millisecond {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &redisRateLimiter{
		client: client,
		logger: logger,
		window: window,
		max:    max,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Allow deja pasar si Redis no responde.
func (l *redisRateLimiter) Allow(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisLimiterTimeout)
	defer cancel()

	allowed, err := l.client.Eval(ctx, slidingWindowScript, []string{"ratelimit:" + key},
		l.now().UnixMilli(), l.window.Milliseconds(), l.max, uuid.NewString(),
	).Int()
	if err != nil {
		l.logger.Warn("rate limiter unavailable, allowing request", zap.String("key", key), zap.Error(err))
		return true
	}
	return allowed == 1
}
