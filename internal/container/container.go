// Package container - Dependency Injection container for the application.
//
// Container управляет жизненным циклом всех зависимостей:
// - Создание (storage, сервисы, HTTP, outbox relay)
// - Доступ (getters)
// - Закрытие (cleanup)
//
// Pattern: Composition Root
// - Все зависимости собираются в одном месте
// - Хранилище выбирается конфигурацией (postgres / memory)
// - Relay публикует только на лидере (Redis), если redis_url задан
// - Легко заменять реализации через ContainerBuilder
package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/redis/go-redis/v9"

	"github.com/Haleralex/catalog/internal/adapters/http"
	"github.com/Haleralex/catalog/internal/adapters/http/handlers"
	"github.com/Haleralex/catalog/internal/adapters/http/middleware"
	"github.com/Haleralex/catalog/internal/application/ports"
	"github.com/Haleralex/catalog/internal/application/services"
	"github.com/Haleralex/catalog/internal/application/validation"
	"github.com/Haleralex/catalog/internal/config"
	"github.com/Haleralex/catalog/internal/infrastructure/leader"
	"github.com/Haleralex/catalog/internal/infrastructure/messaging/natsrelay"
	"github.com/Haleralex/catalog/internal/infrastructure/persistence/memory"
	"github.com/Haleralex/catalog/internal/infrastructure/persistence/postgres"
	"github.com/Haleralex/catalog/internal/pkg/localization"
	"github.com/Haleralex/catalog/internal/pkg/logger"
	"github.com/Haleralex/catalog/internal/pkg/tracing"
)

// ============================================
// Container
// ============================================

// Container - DI контейнер приложения.
type Container struct {
	config *config.Config
	logger *slog.Logger

	// Infrastructure
	pool    *pgxpool.Pool
	store   *memory.Store
	factory ports.UnitOfWorkFactory
	health  handlers.Pinger
	nc      *nats.Conn
	redis   *redis.Client

	// Observability
	shutdownTracing tracing.ShutdownFunc

	// Application
	localizer *localization.Localizer
	validator *validation.Validator
	products  *services.ProductsService
	auth      *middleware.JWTAuthenticator

	// Background
	relay   *natsrelay.Relay
	elector *leader.Elector

	// HTTP
	httpServer *http.Server
}

// New создаёт новый контейнер с заданной конфигурацией.
func New(cfg *config.Config) *Container {
	return &Container{
		config: cfg,
	}
}

// ============================================
// Initialization
// ============================================

// Initialize инициализирует все зависимости.
func (c *Container) Initialize(ctx context.Context) error {
	c.logger = c.initLogger()
	c.logger.Info("Initializing application container...")

	// 1. Tracing
	if err := c.initTracing(ctx); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	// 2. Storage
	if err := c.initStorage(ctx); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.logger.Info("Storage ready", slog.String("driver", c.config.Database.Driver))

	// 3. Services
	if err := c.initServices(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	c.logger.Info("Services initialized")

	// 4. Outbox relay
	if err := c.initRelay(ctx); err != nil {
		c.closeInfrastructure()
		return fmt.Errorf("failed to initialize outbox relay: %w", err)
	}

	// 5. HTTP Server
	c.initHTTPServer()
	c.logger.Info("HTTP server initialized")

	c.logger.Info("Container initialization complete")
	return nil
}

// initLogger инициализирует логгер и делает его логгером по умолчанию.
func (c *Container) initLogger() *slog.Logger {
	cfg := logger.DefaultConfig()
	cfg.Level = c.config.Log.Level
	cfg.Format = c.config.Log.Format
	cfg.AddSource = c.config.Log.AddSource
	cfg.Output = os.Stdout

	l := logger.New(cfg)
	slog.SetDefault(l)
	return l
}

// initTracing регистрирует глобальный TracerProvider, если трассировка включена.
func (c *Container) initTracing(ctx context.Context) error {
	shutdown, err := tracing.Setup(ctx, tracingConfig(c.config))
	if err != nil {
		return err
	}
	c.shutdownTracing = shutdown
	if c.config.Tracing.Enabled {
		c.logger.Info("Tracing enabled",
			slog.String("endpoint", c.config.Tracing.Endpoint),
			slog.Float64("sample_ratio", c.config.Tracing.SampleRatio),
		)
	}
	return nil
}

// initStorage открывает хранилище по Database.Driver.
func (c *Container) initStorage(ctx context.Context) error {
	if c.config.Database.IsMemory() {
		return c.useStore(ctx, memory.NewStore())
	}

	pool, err := postgres.NewConnectionPool(ctx, postgresConfig(&c.config.Database))
	if err != nil {
		return err
	}
	c.usePool(pool)
	return nil
}

func (c *Container) useStore(ctx context.Context, store *memory.Store) error {
	if c.config.Database.Seed {
		if err := memory.Seed(ctx, store); err != nil {
			return fmt.Errorf("failed to seed catalog: %w", err)
		}
		c.logger.Info("Demo catalog seeded")
	}
	c.store = store
	c.factory = store
	c.health = store
	return nil
}

func (c *Container) usePool(pool *pgxpool.Pool) {
	factory := postgres.NewUnitOfWorkFactoryWithIsolation(pool, isolationLevel(c.config.Database.Isolation))
	c.pool = pool
	c.factory = factory
	c.health = factory
}

// initServices собирает localizer, validator и ProductsService.
func (c *Container) initServices() error {
	loc, err := localization.New(c.config.Localization.DefaultCulture)
	if err != nil {
		return err
	}
	c.localizer = loc
	c.validator = validation.New(loc)
	c.products = services.NewProductsService(c.factory, c.validator, loc,
		services.WithLogger(c.logger),
	)

	if c.config.Auth.RequireOnWrite {
		c.auth = middleware.NewJWTAuthenticator(c.config.Auth.JWTSecret, c.config.Auth.JWTIssuer)
	}
	return nil
}

// initRelay подключается к NATS и создаёт relay, если outbox включён.
func (c *Container) initRelay(ctx context.Context) error {
	if !c.config.Outbox.Enabled {
		return nil
	}

	nc, err := natsrelay.Connect(c.config.Outbox.NatsURL, c.logger)
	if err != nil {
		return err
	}

	var pub natsrelay.Publisher = natsrelay.NewCorePublisher(nc)
	if c.config.Outbox.Stream != "" {
		js, err := jetstream.New(nc)
		if err != nil {
			nc.Close()
			return fmt.Errorf("failed to create JetStream context: %w", err)
		}
		if err := natsrelay.EnsureStream(ctx, js, c.config.Outbox.Stream, c.config.Outbox.SubjectPrefix); err != nil {
			nc.Close()
			return err
		}
		pub = natsrelay.NewStreamPublisher(js)
	}
	pub = natsrelay.NewBreakerPublisher(pub, natsrelay.DefaultBreakerConfig(),
		c.logger.With(slog.String("component", "outbox_breaker")))

	c.nc = nc
	c.relay = natsrelay.New(c.factory, pub, natsrelay.Config{
		SubjectPrefix: c.config.Outbox.SubjectPrefix,
		BatchSize:     c.config.Outbox.BatchSize,
		PollInterval:  c.config.Outbox.PollInterval,
		MaxAttempts:   c.config.Outbox.MaxAttempts,
		Detached:      c.config.Database.IsMemory(), // memory: один писатель, не держим его на время NATS
	}, c.logger.With(slog.String("component", "outbox_relay")))

	if err := c.initElector(); err != nil {
		return err
	}

	c.logger.Info("Outbox relay configured",
		slog.String("nats_url", nc.ConnectedUrlRedacted()),
		slog.String("stream", c.config.Outbox.Stream),
		slog.Bool("detached", c.config.Database.IsMemory()),
	)
	return nil
}

// initElector подключает relay к выбору лидера через Redis.
// Без redis_url relay публикует из каждого экземпляра.
func (c *Container) initElector() error {
	if c.config.Outbox.RedisURL == "" {
		return nil
	}

	opts, err := redis.ParseURL(c.config.Outbox.RedisURL)
	if err != nil {
		return fmt.Errorf("invalid redis url: %w", err)
	}

	c.redis = redis.NewClient(opts)
	c.elector = leader.New(c.redis, leader.Config{
		LockName: c.config.Outbox.LeaderLock,
		TTL:      c.config.Outbox.LeaderTTL,
	}, c.logger.With(slog.String("component", "leader")))
	c.relay.WithGate(c.elector)

	c.logger.Info("Outbox relay leader election configured",
		slog.String("redis", opts.Addr),
		slog.String("instance_id", c.elector.InstanceID()),
	)
	return nil
}

// initHTTPServer инициализирует router и HTTP сервер.
func (c *Container) initHTTPServer() {
	routerConfig := &http.RouterConfig{
		Logger:         c.logger,
		Version:        c.config.App.Version,
		BuildTime:      c.config.App.BuildTime,
		Environment:    c.config.App.Environment,
		AllowedOrigins: c.config.CORS.AllowedOrigins,
		Culture:        c.localizer,
		WriteRoles:     c.config.Auth.WriteRoles,
		Tracing:        c.config.Tracing.Enabled,
		ServiceName:    c.config.App.Name,
	}
	if c.auth != nil {
		routerConfig.AuthTokenValidator = c.auth.Validate
	}
	if c.config.RateLimit.Enabled {
		routerConfig.RateLimit = &middleware.RateLimitConfig{
			Limit:  c.config.RateLimit.RequestsPerMinute,
			Window: time.Minute,
		}
		routerConfig.WriteRateLimit = c.config.RateLimit.WritesPerMinute
	}

	router := http.NewRouter(routerConfig, c.products, c.dependencies()...)

	serverConfig := &http.ServerConfig{
		Host:            c.config.Server.Host,
		Port:            c.config.Server.Port,
		ReadTimeout:     c.config.Server.ReadTimeout,
		WriteTimeout:    c.config.Server.WriteTimeout,
		IdleTimeout:     c.config.Server.IdleTimeout,
		ShutdownTimeout: c.config.Server.ShutdownTimeout,
		Logger:          c.logger,
	}

	c.httpServer = http.NewServer(serverConfig, router)
}

// dependencies - проверки для /ready и /health/detailed.
func (c *Container) dependencies() []handlers.Dependency {
	deps := []handlers.Dependency{{Name: "database", Check: c.health}}
	if c.nc != nil {
		deps = append(deps, handlers.Dependency{Name: "nats", Check: natsrelay.NewConnPinger(c.nc)})
	}
	if c.redis != nil {
		deps = append(deps, handlers.Dependency{Name: "redis", Check: leader.NewPinger(c.redis)})
	}
	return deps
}

// tracingConfig переносит настройки трассировки и описание сервиса.
func tracingConfig(cfg *config.Config) tracing.Config {
	return tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.App.Name,
		Version:     cfg.App.Version,
		Environment: cfg.App.Environment,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
	}
}

// postgresConfig переносит настройки БД в конфигурацию пула.
func postgresConfig(db *config.DatabaseConfig) postgres.Config {
	return postgres.Config{
		Host:             db.Host,
		Port:             db.Port,
		Database:         db.Database,
		User:             db.User,
		Password:         db.Password,
		SSLMode:          db.SSLMode,
		MaxConns:         db.MaxConnections,
		MinConns:         db.MinConnections,
		MaxConnLifetime:  db.MaxConnLifetime,
		MaxConnIdleTime:  db.MaxConnIdleTime,
		ConnectTimeout:   db.ConnectTimeout,
		StatementTimeout: db.StatementTimeout,
	}
}

// isolationLevel переводит значение из конфигурации в pgx.TxIsoLevel.
func isolationLevel(name string) pgx.TxIsoLevel {
	switch name {
	case "repeatable_read":
		return pgx.RepeatableRead
	case "serializable":
		return pgx.Serializable
	default:
		return pgx.ReadCommitted
	}
}

// ============================================
// Getters
// ============================================

// Config возвращает конфигурацию.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger возвращает логгер.
func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// Pool возвращает пул соединений к БД (nil для memory).
func (c *Container) Pool() *pgxpool.Pool {
	return c.pool
}

// UnitOfWorkFactory возвращает фабрику Unit of Work выбранного хранилища.
func (c *Container) UnitOfWorkFactory() ports.UnitOfWorkFactory {
	return c.factory
}

// ProductsService возвращает сервис каталога.
func (c *Container) ProductsService() *services.ProductsService {
	return c.products
}

// Authenticator возвращает JWT authenticator (nil, если запись открыта).
func (c *Container) Authenticator() *middleware.JWTAuthenticator {
	return c.auth
}

// Relay возвращает outbox relay (nil, если outbox выключен).
func (c *Container) Relay() *natsrelay.Relay {
	return c.relay
}

// Elector возвращает участника выборов лидера (nil без redis_url).
func (c *Container) Elector() *leader.Elector {
	return c.elector
}

// HTTPServer возвращает HTTP сервер.
func (c *Container) HTTPServer() *http.Server {
	return c.httpServer
}

// ============================================
// Run
// ============================================

// Run запускает HTTP сервер и relay до отмены ctx.
func (c *Container) Run(ctx context.Context) error {
	c.logger.Info("Starting Catalog API Server",
		slog.String("version", c.config.App.Version),
		slog.String("environment", c.config.App.Environment),
		slog.String("address", c.config.Server.Address()),
	)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	electorDone := make(chan error, 1)
	if c.elector != nil {
		go func() {
			electorDone <- c.elector.Run(runCtx)
		}()
	} else {
		electorDone <- nil
	}

	relayDone := make(chan error, 1)
	if c.relay != nil {
		go func() {
			relayDone <- c.relay.Run(runCtx)
		}()
	} else {
		relayDone <- nil
	}

	err := c.httpServer.RunWithContext(runCtx)
	cancel()

	return errors.Join(err, <-relayDone, <-electorDone)
}

// ============================================
// Shutdown
// ============================================

// Shutdown выполняет graceful shutdown всех компонентов.
func (c *Container) Shutdown(ctx context.Context) error {
	c.logger.Info("Shutting down container...")

	var errs []error

	// 1. HTTP Server
	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("HTTP server shutdown: %w", err))
		}
	}

	// 2. NATS + Redis + Database
	c.closeInfrastructure()

	// 3. Tracing: сбросить оставшиеся спаны
	if c.shutdownTracing != nil {
		if err := c.shutdownTracing(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracing shutdown: %w", err))
		}
		c.shutdownTracing = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	c.logger.Info("Container shutdown complete")
	return nil
}

func (c *Container) closeInfrastructure() {
	if c.nc != nil {
		if err := c.nc.Drain(); err != nil {
			c.logger.Warn("NATS drain failed", slog.String("error", err.Error()))
			c.nc.Close()
		}
		c.nc = nil
		c.logger.Info("NATS connection closed")
	}

	if c.redis != nil {
		if err := c.redis.Close(); err != nil {
			c.logger.Warn("Redis close failed", slog.String("error", err.Error()))
		}
		c.redis = nil
		c.logger.Info("Redis connection closed")
	}

	if c.pool != nil {
		c.pool.Close()
		c.pool = nil
		c.logger.Info("Database connection closed")
	}
}

// ============================================
// Builder Pattern (Alternative)
// ============================================

// ContainerBuilder - builder для создания контейнера с кастомными компонентами.
type ContainerBuilder struct {
	cfg    *config.Config
	logger *slog.Logger
	pool   *pgxpool.Pool
	store  *memory.Store
}

// NewBuilder создаёт новый builder.
func NewBuilder(cfg *config.Config) *ContainerBuilder {
	return &ContainerBuilder{
		cfg: cfg,
	}
}

// WithLogger устанавливает кастомный логгер.
func (b *ContainerBuilder) WithLogger(logger *slog.Logger) *ContainerBuilder {
	b.logger = logger
	return b
}

// WithPool устанавливает готовый пул соединений (integration tests).
func (b *ContainerBuilder) WithPool(pool *pgxpool.Pool) *ContainerBuilder {
	b.pool = pool
	return b
}

// WithStore устанавливает готовое in-memory хранилище.
func (b *ContainerBuilder) WithStore(store *memory.Store) *ContainerBuilder {
	b.store = store
	return b
}

// Build создаёт контейнер.
func (b *ContainerBuilder) Build(ctx context.Context) (*Container, error) {
	c := New(b.cfg)

	if b.logger != nil {
		c.logger = b.logger
	} else {
		c.logger = c.initLogger()
	}

	if err := c.initTracing(ctx); err != nil {
		return nil, err
	}

	switch {
	case b.pool != nil:
		c.usePool(b.pool)
	case b.store != nil:
		if err := c.useStore(ctx, b.store); err != nil {
			return nil, err
		}
	default:
		if err := c.initStorage(ctx); err != nil {
			return nil, err
		}
	}

	if err := c.initServices(); err != nil {
		c.closeInfrastructure()
		return nil, err
	}
	if err := c.initRelay(ctx); err != nil {
		c.closeInfrastructure()
		return nil, err
	}
	c.initHTTPServer()

	return c, nil
}
