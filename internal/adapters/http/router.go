// Package http - Router configuration for REST API.
//
// Router собирает все handlers и middleware в единую точку входа.
//
// Pattern: Composition Root
// - Все зависимости собираются здесь
// - ProductHandler получает только ProductsService
// - Middleware применяется к соответствующим группам routes
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Haleralex/catalog/internal/adapters/http/common"
	"github.com/Haleralex/catalog/internal/adapters/http/handlers"
	"github.com/Haleralex/catalog/internal/adapters/http/middleware"
)

// ============================================
// Router Configuration
// ============================================

// RouterConfig - конфигурация роутера.
type RouterConfig struct {
	// Logger для middleware
	Logger *slog.Logger
	// Version приложения
	Version string
	// BuildTime время сборки
	BuildTime string
	// Environment (development, staging, production)
	Environment string
	// AllowedOrigins для CORS (production)
	AllowedOrigins []string
	// Culture сопоставляет Accept-Language с поддерживаемыми культурами
	Culture middleware.CultureMatcher
	// AuthTokenValidator - функция валидации токена.
	// nil - изменяющие запросы не требуют авторизации.
	AuthTokenValidator func(token string) (*middleware.AuthClaims, error)
	// WriteRoles - роли, которым разрешены изменения (пусто - любая роль)
	WriteRoles []string
	// RateLimit - глобальный лимит по IP (nil - без лимита)
	RateLimit *middleware.RateLimitConfig
	// WriteRateLimit - изменяющих запросов в минуту на пользователя (0 - без отдельного лимита)
	WriteRateLimit int
	// Tracing включает otelgin (спан на каждый запрос, глобальный TracerProvider)
	Tracing bool
	// ServiceName для спанов otelgin
	ServiceName string
}

// DefaultRouterConfig - конфигурация по умолчанию для development.
func DefaultRouterConfig() *RouterConfig {
	return &RouterConfig{
		Logger:         slog.Default(),
		Version:        "dev",
		BuildTime:      "unknown",
		Environment:    "development",
		AllowedOrigins: []string{"*"},
		RateLimit:      middleware.DefaultRateLimitConfig(),
	}
}

// ============================================
// Router Builder
// ============================================

// RouterBuilder - builder для создания роутера.
//
// Pattern: Builder
// - Позволяет пошагово настроить роутер
// - Проще тестировать
type RouterBuilder struct {
	config   *RouterConfig
	products handlers.ProductService
	deps     []handlers.Dependency
}

// NewRouterBuilder создаёт новый builder.
func NewRouterBuilder(config *RouterConfig) *RouterBuilder {
	if config == nil {
		config = DefaultRouterConfig()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &RouterBuilder{
		config: config,
	}
}

// WithProducts добавляет сервис продуктов.
func (b *RouterBuilder) WithProducts(products handlers.ProductService) *RouterBuilder {
	b.products = products
	return b
}

// WithDependencies добавляет зависимости для readiness probe.
func (b *RouterBuilder) WithDependencies(deps ...handlers.Dependency) *RouterBuilder {
	b.deps = append(b.deps, deps...)
	return b
}

// Build создаёт сконфигурированный Gin Engine.
func (b *RouterBuilder) Build() *gin.Engine {
	// Настраиваем режим Gin
	if b.config.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Создаём router без default middleware
	router := gin.New()

	handlers.SetupValidator()

	// ============================================
	// Global Middleware
	// ============================================

	// 1. Recovery - должен быть первым
	router.Use(middleware.Recovery(&middleware.RecoveryConfig{
		Logger:           b.config.Logger,
		EnableStackTrace: b.config.Environment != "production",
	}))

	// 2. Tracing - спан запроса должен быть в context до логирования
	if b.config.Tracing {
		router.Use(otelgin.Middleware(b.serviceName()))
	}

	// 3. Request ID
	router.Use(middleware.RequestID())

	// 4. CORS
	if b.config.Environment == "production" {
		router.Use(middleware.CORS(middleware.ProductionCORSConfig(b.config.AllowedOrigins)))
	} else {
		router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	}

	// 5. Culture - до Logging, чтобы культура попала в лог запроса
	if b.config.Culture != nil {
		router.Use(middleware.Culture(b.config.Culture))
	}

	// 6. Logging
	router.Use(middleware.Logging(&middleware.LoggingConfig{
		Logger:    b.config.Logger,
		SkipPaths: []string{"/health", "/live", "/ready", "/metrics"},
	}))

	// 7. Rate Limiting (global)
	if b.config.RateLimit != nil {
		router.Use(middleware.RateLimit(b.config.RateLimit))
	}

	// 8. Metrics (Prometheus)
	router.Use(middleware.Metrics())

	// ============================================
	// Metrics Endpoint (no auth)
	// ============================================

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ============================================
	// Health Check Routes (no auth)
	// ============================================

	healthHandler := handlers.NewHealthHandler(
		b.config.Version,
		b.config.BuildTime,
		b.deps...,
	)
	healthHandler.RegisterRoutes(router)

	// ============================================
	// API v1 Routes
	// ============================================

	v1 := router.Group("/api/v1")

	if b.products != nil {
		productHandler := handlers.NewProductHandler(b.products)
		productHandler.RegisterRoutes(v1, b.writeMiddleware()...)
	}

	// ============================================
	// 404 Handler
	// ============================================

	router.NoRoute(func(c *gin.Context) {
		common.Error(c, http.StatusNotFound, &common.APIError{
			Code:    common.ErrCodeNotFound,
			Message: "Endpoint not found",
			Details: map[string]interface{}{
				"path":   c.Request.URL.Path,
				"method": c.Request.Method,
			},
		})
	})

	return router
}

func (b *RouterBuilder) serviceName() string {
	if b.config.ServiceName != "" {
		return b.config.ServiceName
	}
	return "catalog"
}

// writeMiddleware - цепочка для POST/PATCH/DELETE: Auth, роль, лимит на пользователя.
// Чтение каталога всегда публичное.
func (b *RouterBuilder) writeMiddleware() []gin.HandlerFunc {
	var chain []gin.HandlerFunc

	if b.config.AuthTokenValidator != nil {
		chain = append(chain, middleware.Auth(&middleware.AuthConfig{
			TokenValidator: b.config.AuthTokenValidator,
		}))
		if len(b.config.WriteRoles) > 0 {
			chain = append(chain, middleware.RequireRole(b.config.WriteRoles...))
		}
	}

	if b.config.WriteRateLimit > 0 {
		chain = append(chain, middleware.WriteRateLimit(b.config.WriteRateLimit, time.Minute))
	}

	return chain
}

// ============================================
// Quick Setup Functions
// ============================================

// NewRouter создаёт роутер с базовой конфигурацией (для простых случаев).
func NewRouter(config *RouterConfig, products handlers.ProductService, deps ...handlers.Dependency) *gin.Engine {
	return NewRouterBuilder(config).WithProducts(products).WithDependencies(deps...).Build()
}
