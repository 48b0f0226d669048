// Package handlers - Health check handlers.
//
// Health checks позволяют оркестраторам (Kubernetes, Docker Swarm)
// проверять состояние приложения.
//
// Два типа health checks:
// - Liveness: Приложение работает? (если нет - restart)
// - Readiness: Приложение готово принимать трафик? (если нет - no traffic)
package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// checkTimeout - таймаут одной проверки зависимости.
const checkTimeout = 2 * time.Second

// ============================================
// Dependencies
// ============================================

// Pinger - зависимость, доступность которой проверяет readiness probe.
// Реализуют: postgres.UnitOfWorkFactory, memory.Store, natsrelay.ConnPinger.
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatsReporter - зависимость, отдающая статистику в detailed health.
type StatsReporter interface {
	Stats() map[string]string
}

// Dependency - именованная зависимость приложения.
type Dependency struct {
	Name  string
	Check Pinger
}

// ============================================
// Health Check Handler
// ============================================

// HealthHandler обрабатывает health check запросы.
type HealthHandler struct {
	deps      []Dependency
	version   string
	buildTime string
	startTime time.Time
}

// NewHealthHandler создаёт новый HealthHandler.
func NewHealthHandler(version, buildTime string, deps ...Dependency) *HealthHandler {
	return &HealthHandler{
		deps:      deps,
		version:   version,
		buildTime: buildTime,
		startTime: time.Now(),
	}
}

// ============================================
// Response Types
// ============================================

// HealthResponse - ответ health check.
type HealthResponse struct {
	Status    string            `json:"status"`           // "healthy", "unhealthy"
	Version   string            `json:"version"`          // Версия приложения
	BuildTime string            `json:"build_time"`       // Время сборки
	Uptime    string            `json:"uptime"`           // Время работы
	Timestamp time.Time         `json:"timestamp"`        // Текущее время
	Checks    map[string]string `json:"checks,omitempty"` // Детали проверок
}

// ReadinessResponse - ответ readiness check.
type ReadinessResponse struct {
	Ready     bool              `json:"ready"`
	Checks    map[string]string `json:"checks"`
	Timestamp time.Time         `json:"timestamp"`
}

// check пингует все зависимости. verbose добавляет текст ошибки.
func (h *HealthHandler) check(ctx context.Context, verbose bool) (map[string]string, bool) {
	checks := make(map[string]string, len(h.deps))
	allReady := true

	for _, dep := range h.deps {
		if dep.Check == nil {
			checks[dep.Name] = "not configured"
			continue
		}

		pingCtx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := dep.Check.Ping(pingCtx)
		cancel()

		switch {
		case err == nil:
			checks[dep.Name] = "healthy"
		case verbose:
			checks[dep.Name] = "unhealthy: " + err.Error()
			allReady = false
		default:
			checks[dep.Name] = "unhealthy"
			allReady = false
		}
	}

	return checks, allReady
}

// ============================================
// HTTP Handlers
// ============================================

// Health возвращает базовый health статус.
//
// @Summary Health check
// @Description Basic health check endpoint (liveness probe)
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		BuildTime: h.buildTime,
		Uptime:    h.uptime(),
		Timestamp: time.Now().UTC(),
	})
}

// Ready проверяет готовность приложения.
//
// @Summary Readiness check
// @Description Readiness probe - checks all dependencies
// @Tags Health
// @Produce json
// @Success 200 {object} ReadinessResponse
// @Failure 503 {object} ReadinessResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	checks, allReady := h.check(c.Request.Context(), true)

	statusCode := http.StatusOK
	if !allReady {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, ReadinessResponse{
		Ready:     allReady,
		Checks:    checks,
		Timestamp: time.Now().UTC(),
	})
}

// Live возвращает статус "живости" приложения.
//
// @Summary Liveness check
// @Description Simple liveness probe
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

// DetailedHealth возвращает детальную информацию о состоянии.
//
// Статистика добавляется только от здоровых зависимостей, реализующих StatsReporter.
//
// @Summary Detailed health check
// @Description Detailed health information including connection pool stats
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health/detailed [get]
func (h *HealthHandler) DetailedHealth(c *gin.Context) {
	checks, allReady := h.check(c.Request.Context(), false)

	for _, dep := range h.deps {
		reporter, ok := dep.Check.(StatsReporter)
		if !ok || checks[dep.Name] != "healthy" {
			continue
		}
		for k, v := range reporter.Stats() {
			checks[k] = v
		}
	}

	status := "healthy"
	if !allReady {
		status = "unhealthy"
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:    status,
		Version:   h.version,
		BuildTime: h.buildTime,
		Uptime:    h.uptime(),
		Timestamp: time.Now().UTC(),
		Checks:    checks,
	})
}

// Dependencies возвращает имена зарегистрированных зависимостей (отсортированные).
func (h *HealthHandler) Dependencies() []string {
	names := make([]string, 0, len(h.deps))
	for _, dep := range h.deps {
		names = append(names, dep.Name)
	}
	sort.Strings(names)
	return names
}

func (h *HealthHandler) uptime() string {
	return time.Since(h.startTime).Round(time.Second).String()
}

// RegisterRoutes регистрирует health check маршруты.
//
// Routes:
// - GET /health          - Basic health check
// - GET /health/detailed - Detailed health with pool stats
// - GET /ready           - Readiness probe
// - GET /live            - Liveness probe
func (h *HealthHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)
	router.GET("/health/detailed", h.DetailedHealth)
	router.GET("/ready", h.Ready)
	router.GET("/live", h.Live)
}
