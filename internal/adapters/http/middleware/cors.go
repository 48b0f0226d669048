package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
)

// CORSConfig - разрешения cross-origin для API каталога.
type CORSConfig struct {
	AllowedOrigins   []string // "*" - любой origin (только не production)
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int // секунды кеширования preflight
}

// DefaultCORSConfig - конфигурация для development: любой origin, без credentials.
//
// Методы совпадают с маршрутами /api/v1/products (PUT нет, обновление - PATCH).
// Клиенту открыты id запроса и Content-Language локализованных сообщений.
func DefaultCORSConfig() *CORSConfig {
	return &CORSConfig{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Accept-Language",
			"Authorization",
			"Content-Type",
			RequestIDHeader,
			CorrelationIDHeader,
		},
		ExposedHeaders: []string{
			RequestIDHeader,
			CorrelationIDHeader,
			"Content-Language",
			"Location",
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
			"X-RateLimit-Reset",
		},
		MaxAge: 86400,
	}
}

// ProductionCORSConfig - только перечисленные origins, с credentials.
func ProductionCORSConfig(allowedOrigins []string) *CORSConfig {
	config := DefaultCORSConfig()
	config.AllowedOrigins = allowedOrigins
	config.AllowCredentials = true
	return config
}

// CORS встраивает go-chi/cors в цепочку gin.
//
// Preflight (OPTIONS с Access-Control-Request-Method) обрабатывается целиком
// здесь и завершается 204. Запрещённый origin, метод или заголовок оставляет
// ответ без Access-Control-Allow-Origin: решение принимает браузер.
func CORS(config *CORSConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultCORSConfig()
	}

	policy := cors.New(cors.Options{
		AllowedOrigins:   config.AllowedOrigins,
		AllowedMethods:   config.AllowedMethods,
		AllowedHeaders:   config.AllowedHeaders,
		ExposedHeaders:   config.ExposedHeaders,
		AllowCredentials: config.AllowCredentials,
		MaxAge:           config.MaxAge,
	})

	return func(c *gin.Context) {
		passed := false
		policy.Handler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			passed = true
		})).ServeHTTP(c.Writer, c.Request)

		// go-chi/cors не пропускает preflight дальше
		if !passed {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
