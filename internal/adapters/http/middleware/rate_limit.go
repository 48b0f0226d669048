// Package middleware - Rate Limiting middleware.
//
// Защита от abuse через ограничение количества запросов.
// Token Bucket на golang.org/x/time/rate, по одному limiter на ключ, in-memory.
package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/Haleralex/catalog/internal/adapters/http/common"
)

// RateLimitConfig - конфигурация для rate limiting.
type RateLimitConfig struct {
	// Requests per window (и размер burst)
	Limit int
	// Time window
	Window time.Duration
	// KeyFunc - функция для определения ключа лимитирования
	// По умолчанию - IP адрес
	KeyFunc func(*gin.Context) string
	// OnLimitReached - callback при достижении лимита
	OnLimitReached func(*gin.Context)
}

// DefaultRateLimitConfig - конфигурация по умолчанию.
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		Limit:  100,         // 100 запросов
		Window: time.Minute, // в минуту
		KeyFunc: func(c *gin.Context) string { // по IP
			return c.ClientIP()
		},
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter хранит limiter на каждый ключ.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	config   *RateLimitConfig
	every    rate.Limit
}

func newRateLimiter(config *RateLimitConfig) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*visitor),
		config:   config,
		every:    rate.Every(config.Window / time.Duration(config.Limit)),
	}

	// Запускаем cleanup goroutine
	go rl.cleanup()

	return rl
}

func (rl *rateLimiter) get(key string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.every, rl.config.Limit)}
		rl.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

// allow проверяет, разрешён ли запрос.
// Возвращает остаток токенов и время до следующего токена.
func (rl *rateLimiter) allow(key string) (bool, int, time.Duration) {
	now := time.Now()
	limiter := rl.get(key, now)

	reservation := limiter.ReserveN(now, 1)
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return false, 0, delay
	}

	tokens := limiter.TokensAt(now)
	remaining := int(math.Max(0, math.Floor(tokens)))
	refill := time.Duration((1 - (tokens - math.Floor(tokens))) * float64(rl.config.Window/time.Duration(rl.config.Limit)))
	return true, remaining, refill
}

// cleanup удаляет ключи, не встречавшиеся дольше двух окон.
func (rl *rateLimiter) cleanup() {
	ticker := time.NewTicker(rl.config.Window * 2)
	defer ticker.Stop()

	for range ticker.C {
		rl.mu.Lock()
		now := time.Now()
		for key, v := range rl.visitors {
			if now.Sub(v.lastSeen) > rl.config.Window*2 {
				delete(rl.visitors, key)
			}
		}
		rl.mu.Unlock()
	}
}

// RateLimit middleware для ограничения количества запросов.
//
// Алгоритм: Token Bucket
// - Каждый IP/ключ имеет bucket на Limit токенов, пополняется за Window
// - При пустом bucket возвращается 429 Too Many Requests
// - Добавляет заголовки X-RateLimit-* для клиента
//
// Headers:
// - X-RateLimit-Limit: Максимум запросов
// - X-RateLimit-Remaining: Оставшееся количество
// - X-RateLimit-Reset: Время следующего токена (Unix timestamp)
// - Retry-After: Секунд до следующего токена (при 429)
func RateLimit(config *RateLimitConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	if config.KeyFunc == nil {
		config.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	if config.Limit <= 0 {
		config.Limit = 1
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}

	limiter := newRateLimiter(config)

	return func(c *gin.Context) {
		key := config.KeyFunc(c)
		allowed, remaining, retryAfter := limiter.allow(key)

		c.Header("X-RateLimit-Limit", strconv.Itoa(config.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(retryAfter).Unix(), 10))

		if !allowed {
			retrySeconds := int(math.Ceil(retryAfter.Seconds()))
			if retrySeconds < 1 {
				retrySeconds = 1
			}
			c.Header("Retry-After", strconv.Itoa(retrySeconds))

			if config.OnLimitReached != nil {
				config.OnLimitReached(c)
			}

			common.TooManyRequestsResponse(c, retrySeconds)
			return
		}

		c.Next()
	}
}

// ============================================
// Endpoint-specific rate limiters
// ============================================

// WriteRateLimit - более строгий лимит для изменяющих запросов.
//
// По пользователю, если Auth уже отработал, иначе по IP.
func WriteRateLimit(limit int, window time.Duration) gin.HandlerFunc {
	return RateLimit(&RateLimitConfig{
		Limit:  limit,
		Window: window,
		KeyFunc: func(c *gin.Context) string {
			if userID := GetAuthUserID(c); userID != "" {
				return "user:" + userID
			}
			return "ip:" + c.ClientIP()
		},
	})
}
