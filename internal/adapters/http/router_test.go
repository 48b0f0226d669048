package http

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Haleralex/catalog/internal/adapters/http/handlers"
	"github.com/Haleralex/catalog/internal/adapters/http/middleware"
	"github.com/Haleralex/catalog/internal/application/services"
	"github.com/Haleralex/catalog/internal/application/validation"
	"github.com/Haleralex/catalog/internal/infrastructure/persistence/memory"
	"github.com/Haleralex/catalog/internal/pkg/localization"
	"github.com/Haleralex/catalog/internal/pkg/operation"
)

const (
	routerSecret = "router-test-secret-32-bytes-long"
	routerIssuer = "catalog"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

// newTestRouter собирает полный стек над засеянным memory каталогом.
func newTestRouter(t *testing.T, cfg *RouterConfig, deps ...handlers.Dependency) *gin.Engine {
	t.Helper()

	store := memory.NewStore()
	require.NoError(t, memory.Seed(context.Background(), store))

	loc := localization.MustNew("en")
	if cfg.Culture == nil {
		cfg.Culture = loc
	}
	svc := services.NewProductsService(store, validation.New(loc), loc)

	return NewRouter(cfg, svc, append([]handlers.Dependency{{Name: "database", Check: store}}, deps...)...)
}

func securedConfig() *RouterConfig {
	cfg := DefaultRouterConfig()
	cfg.AuthTokenValidator = middleware.NewJWTAuthenticator(routerSecret, routerIssuer).Validate
	cfg.WriteRoles = []string{"editor"}
	return cfg
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	token, err := middleware.NewJWTAuthenticator(routerSecret, routerIssuer).
		Issue(operation.UserDetails{ID: "7", Name: "Catalog Editor", Username: "editor"}, role, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func call(router *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

const newProductBody = `{
	"name": "Road Bottle Cage",
	"product_number": "BC-R205",
	"standard_cost": 3.3623,
	"list_price": 8.99,
	"sell_start_date": "2024-07-01T00:00:00Z"
}`

// ============================================
// Configuration
// ============================================

func TestDefaultRouterConfig(t *testing.T) {
	cfg := DefaultRouterConfig()

	assert.NotNil(t, cfg.Logger)
	assert.Equal(t, "dev", cfg.Version)
	assert.Equal(t, "unknown", cfg.BuildTime)
	assert.Equal(t, "development", cfg.Environment)
	assert.Contains(t, cfg.AllowedOrigins, "*")
	assert.Nil(t, cfg.AuthTokenValidator)
}

func TestNewRouterBuilder_NilConfig(t *testing.T) {
	builder := NewRouterBuilder(nil)

	require.NotNil(t, builder)
	assert.Equal(t, "development", builder.config.Environment)
}

func TestRouterBuilder_WriteMiddleware(t *testing.T) {
	tests := []struct {
		name string
		cfg  func() *RouterConfig
		want int
	}{
		{"Open", DefaultRouterConfig, 0},
		{"AuthOnly", func() *RouterConfig {
			cfg := securedConfig()
			cfg.WriteRoles = nil
			return cfg
		}, 1},
		{"AuthAndRole", securedConfig, 2},
		{"AuthRoleAndLimit", func() *RouterConfig {
			cfg := securedConfig()
			cfg.WriteRateLimit = 30
			return cfg
		}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, NewRouterBuilder(tt.cfg()).writeMiddleware(), tt.want)
		})
	}
}

// ============================================
// Infrastructure endpoints
// ============================================

func TestRouter_HealthEndpoints(t *testing.T) {
	router := newTestRouter(t, DefaultRouterConfig())

	for _, path := range []string{"/health", "/health/detailed", "/ready", "/live"} {
		t.Run(path, func(t *testing.T) {
			assert.Equal(t, http.StatusOK, call(router, http.MethodGet, path, "", nil).Code)
		})
	}
}

func TestRouter_ReadyReportsFailedDependency(t *testing.T) {
	router := newTestRouter(t, DefaultRouterConfig(), handlers.Dependency{Name: "nats", Check: failingPinger{}})

	w := call(router, http.MethodGet, "/ready", "", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"healthy"`)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, DefaultRouterConfig())

	call(router, http.MethodGet, "/api/v1/products/680", "", nil)
	w := call(router, http.MethodGet, "/metrics", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `catalog_http_requests_total{method="GET",path="/api/v1/products/:id",status="200"}`)
}

func TestRouter_404Handler(t *testing.T) {
	router := newTestRouter(t, DefaultRouterConfig())

	w := call(router, http.MethodGet, "/nonexistent", "", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Endpoint not found")
	assert.Contains(t, w.Body.String(), "NOT_FOUND")
}

func TestRouter_RequestID(t *testing.T) {
	router := newTestRouter(t, DefaultRouterConfig())

	w := call(router, http.MethodGet, "/health", "", nil)

	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_CORS_Development(t *testing.T) {
	router := newTestRouter(t, DefaultRouterConfig())

	w := call(router, http.MethodOptions, "/api/v1/products", "", map[string]string{
		"Origin":                        "http://localhost:3000",
		"Access-Control-Request-Method": "POST",
	})

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_CORS_Production(t *testing.T) {
	cfg := DefaultRouterConfig()
	cfg.Environment = "production"
	cfg.AllowedOrigins = []string{"https://example.com"}
	router := newTestRouter(t, cfg)
	t.Cleanup(func() { gin.SetMode(gin.TestMode) })

	w := call(router, http.MethodOptions, "/health", "", map[string]string{
		"Origin":                        "https://example.com",
		"Access-Control-Request-Method": "GET",
	})

	assert.Equal(t, "https://example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

// ============================================
// Products API through the full middleware stack
// ============================================

func TestRouter_Products_LocalizedNotFound(t *testing.T) {
	router := newTestRouter(t, DefaultRouterConfig())

	tests := []struct {
		name     string
		headers  map[string]string
		path     string
		language string
		message  string
	}{
		{"English", nil, "/api/v1/products/1", "en", "Product 1 was not found"},
		{"AcceptLanguage", map[string]string{"Accept-Language": "ru-RU,ru;q=0.9"}, "/api/v1/products/1", "ru", "Продукт 1 не найден"},
		{"QueryCulture", nil, "/api/v1/products/1?culture=ru", "ru", "Продукт 1 не найден"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := call(router, http.MethodGet, tt.path, "", tt.headers)

			assert.Equal(t, http.StatusNotFound, w.Code)
			assert.Equal(t, tt.language, w.Header().Get("Content-Language"))
			assert.Contains(t, w.Body.String(), tt.message)
		})
	}
}

func TestRouter_Products_ReadsArePublic(t *testing.T) {
	router := newTestRouter(t, securedConfig())

	assert.Equal(t, http.StatusOK, call(router, http.MethodGet, "/api/v1/products", "", nil).Code)
	assert.Equal(t, http.StatusOK, call(router, http.MethodGet, "/api/v1/products/707", "", nil).Code)
}

func TestRouter_Products_WritesRequireEditor(t *testing.T) {
	router := newTestRouter(t, securedConfig())

	t.Run("NoToken", func(t *testing.T) {
		w := call(router, http.MethodPost, "/api/v1/products", newProductBody, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("WrongRole", func(t *testing.T) {
		w := call(router, http.MethodDelete, "/api/v1/products/771", "", map[string]string{"Authorization": bearer(t, "viewer")})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Editor", func(t *testing.T) {
		w := call(router, http.MethodPost, "/api/v1/products", newProductBody, map[string]string{"Authorization": bearer(t, "editor")})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		assert.NotEmpty(t, w.Header().Get("Location"))
	})

	t.Run("DeleteThenGone", func(t *testing.T) {
		auth := map[string]string{"Authorization": bearer(t, "editor")}

		assert.Equal(t, http.StatusNoContent, call(router, http.MethodDelete, "/api/v1/products/771", "", auth).Code)
		assert.Equal(t, http.StatusNotFound, call(router, http.MethodGet, "/api/v1/products/771", "", nil).Code)
	})
}

func TestRouter_Products_WriteRateLimit(t *testing.T) {
	cfg := securedConfig()
	cfg.WriteRateLimit = 1
	router := newTestRouter(t, cfg)
	auth := map[string]string{"Authorization": bearer(t, "editor")}

	first := call(router, http.MethodPatch, "/api/v1/products/707", `{"color":"Blue"}`, auth)
	second := call(router, http.MethodPatch, "/api/v1/products/707", `{"color":"Green"}`, auth)

	assert.Equal(t, http.StatusNoContent, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))

	// Чтение не попадает под лимит записи
	assert.Equal(t, http.StatusOK, call(router, http.MethodGet, "/api/v1/products/707", "", nil).Code)
}

func TestRouter_Tracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prevTP, prevProp := otel.GetTracerProvider(), otel.GetTextMapPropagator()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetTextMapPropagator(prevProp)
		_ = tp.Shutdown(context.Background())
	})

	cfg := DefaultRouterConfig()
	cfg.Tracing = true
	router := newTestRouter(t, cfg)

	const traceID = "4bf92f3577b34da6a3ce929d0e0e4736"
	w := call(router, http.MethodGet, "/api/v1/products/707", "", map[string]string{
		"traceparent": "00-" + traceID + "-00f067aa0ba902b7-01",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var names []string
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
		assert.Equal(t, traceID, span.SpanContext().TraceID().String(), "span %s joins the caller's trace", span.Name())
	}
	assert.Contains(t, names, "ProductsService.get_product_by_id")
	assert.Len(t, names, 2)
}
