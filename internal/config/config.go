// Package config - Application configuration management.
//
// Использует Viper для:
// - Загрузки из YAML файлов
// - Переменных окружения (префикс CATALOG_)
// - Значений по умолчанию
//
// Порядок приоритета (от высшего к низшему):
// 1. Environment variables
// 2. Config file
// 3. Default values
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix - префикс переменных окружения (CATALOG_DATABASE_HOST и т.д.).
const EnvPrefix = "CATALOG"

const defaultJWTSecret = "change-me-in-production"

// Драйверы хранилища.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// ============================================
// Main Configuration
// ============================================

// Config - главная структура конфигурации приложения.
type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Auth         AuthConfig         `mapstructure:"auth"`
	CORS         CORSConfig         `mapstructure:"cors"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Log          LogConfig          `mapstructure:"log"`
	Localization LocalizationConfig `mapstructure:"localization"`
	Outbox       OutboxConfig       `mapstructure:"outbox"`
	Tracing      TracingConfig      `mapstructure:"tracing"`
}

// ============================================
// App Configuration
// ============================================

// AppConfig - конфигурация приложения.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"` // development, staging, production
	BuildTime   string `mapstructure:"build_time"`
}

// IsDevelopment возвращает true если окружение development.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction возвращает true если окружение production.
func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

// ============================================
// Server Configuration
// ============================================

// ServerConfig - конфигурация HTTP сервера.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Address возвращает полный адрес сервера.
func (c *ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ============================================
// Database Configuration
// ============================================

// DatabaseConfig - конфигурация хранилища.
type DatabaseConfig struct {
	Driver           string        `mapstructure:"driver"` // postgres, memory
	Host             string        `mapstructure:"host"`
	Port             int           `mapstructure:"port"`
	User             string        `mapstructure:"user"`
	Password         string        `mapstructure:"password"`
	Database         string        `mapstructure:"database"`
	SSLMode          string        `mapstructure:"ssl_mode"`
	MaxConnections   int32         `mapstructure:"max_connections"`
	MinConnections   int32         `mapstructure:"min_connections"`
	MaxConnLifetime  time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `mapstructure:"max_conn_idle_time"`
	ConnectTimeout   time.Duration `mapstructure:"connect_timeout"`
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
	Isolation        string        `mapstructure:"isolation"` // read_committed, repeatable_read, serializable
	Seed             bool          `mapstructure:"seed"`      // memory: засеять демо-каталог
}

// DSN возвращает URL подключения к PostgreSQL (golang-migrate, psql).
func (c *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

// IsMemory возвращает true для in-memory хранилища.
func (c *DatabaseConfig) IsMemory() bool {
	return c.Driver == DriverMemory
}

// ============================================
// Auth Configuration
// ============================================

// AuthConfig - конфигурация аутентификации.
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTIssuer      string        `mapstructure:"jwt_issuer"`
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
	RequireOnWrite bool          `mapstructure:"require_on_write"` // POST/PATCH/DELETE только с токеном
	WriteRoles     []string      `mapstructure:"write_roles"`      // пусто - любая роль
}

// ============================================
// CORS Configuration
// ============================================

// CORSConfig - конфигурация CORS.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ============================================
// Rate Limit Configuration
// ============================================

// RateLimitConfig - конфигурация rate limiting.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	WritesPerMinute   int  `mapstructure:"writes_per_minute"` // на пользователя, 0 - без лимита
}

// ============================================
// Log Configuration
// ============================================

// LogConfig - конфигурация логирования.
type LogConfig struct {
	Level     string `mapstructure:"level"`  // debug, info, warn, error
	Format    string `mapstructure:"format"` // json, text
	AddSource bool   `mapstructure:"add_source"`
}

// ============================================
// Localization Configuration
// ============================================

// LocalizationConfig - культура сообщений по умолчанию.
type LocalizationConfig struct {
	DefaultCulture string `mapstructure:"default_culture"` // en, ru
}

// ============================================
// Outbox Relay Configuration
// ============================================

// OutboxConfig - конфигурация relay outbox -> NATS.
type OutboxConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	NatsURL       string        `mapstructure:"nats_url"`
	Stream        string        `mapstructure:"stream"` // пусто - core NATS, иначе JetStream
	SubjectPrefix string        `mapstructure:"subject_prefix"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	BatchSize     int           `mapstructure:"batch_size"`
	MaxAttempts   int           `mapstructure:"max_attempts"`
	// Выбор лидера между репликами (пусто - relay работает на каждой реплике)
	RedisURL   string        `mapstructure:"redis_url"`
	LeaderLock string        `mapstructure:"leader_lock"`
	LeaderTTL  time.Duration `mapstructure:"leader_ttl"`
}

// ============================================
// Tracing Configuration
// ============================================

// TracingConfig - OpenTelemetry трассировка (OTLP/HTTP).
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"` // host:port коллектора
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// ============================================
// Configuration Loading
// ============================================

// Load загружает конфигурацию из файла и переменных окружения.
//
// configPath - путь к директории с конфигурацией (например, "configs")
// configName - имя файла конфигурации без расширения (например, "config")
func Load(configPath, configName string) (*Config, error) {
	v := newViper()

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/catalog")

	// Читаем конфигурационный файл
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Файл не найден - используем defaults и env vars
	}

	return decode(v)
}

// LoadFromEnv загружает конфигурацию только из переменных окружения.
func LoadFromEnv() (*Config, error) {
	return decode(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvVars(v)

	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults устанавливает значения по умолчанию.
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "catalog")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.build_time", "unknown")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.database", "catalog")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.min_connections", 5)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.connect_timeout", "5s")
	v.SetDefault("database.statement_timeout", "30s")
	v.SetDefault("database.isolation", "read_committed")
	v.SetDefault("database.seed", true)

	// Auth defaults
	v.SetDefault("auth.jwt_secret", defaultJWTSecret)
	v.SetDefault("auth.jwt_issuer", "catalog")
	v.SetDefault("auth.token_ttl", "1h")
	v.SetDefault("auth.require_on_write", false)
	v.SetDefault("auth.write_roles", []string{})

	// CORS defaults
	v.SetDefault("cors.allowed_origins", []string{"*"})

	// Rate Limit defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_minute", 100)
	v.SetDefault("rate_limit.writes_per_minute", 30)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.add_source", false)

	// Localization defaults
	v.SetDefault("localization.default_culture", "en")

	// Outbox defaults
	v.SetDefault("outbox.enabled", false)
	v.SetDefault("outbox.nats_url", "nats://localhost:4222")
	v.SetDefault("outbox.stream", "")
	v.SetDefault("outbox.subject_prefix", "catalog")
	v.SetDefault("outbox.poll_interval", "1s")
	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.max_attempts", 5)
	v.SetDefault("outbox.redis_url", "")
	v.SetDefault("outbox.leader_lock", "catalog:outbox-relay:leader")
	v.SetDefault("outbox.leader_ttl", "15s")

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.sample_ratio", 1.0)
}

// bindEnvVars привязывает общепринятые имена переменных окружения.
func bindEnvVars(v *viper.Viper) {
	// Database (обычно передаётся через env в production)
	_ = v.BindEnv("database.host", "CATALOG_DATABASE_HOST", "DB_HOST")
	_ = v.BindEnv("database.port", "CATALOG_DATABASE_PORT", "DB_PORT")
	_ = v.BindEnv("database.user", "CATALOG_DATABASE_USER", "DB_USER")
	_ = v.BindEnv("database.password", "CATALOG_DATABASE_PASSWORD", "DB_PASSWORD")
	_ = v.BindEnv("database.database", "CATALOG_DATABASE_DATABASE", "DB_NAME")

	// Auth
	_ = v.BindEnv("auth.jwt_secret", "CATALOG_AUTH_JWT_SECRET", "JWT_SECRET")

	// Outbox
	_ = v.BindEnv("outbox.nats_url", "CATALOG_OUTBOX_NATS_URL", "NATS_URL")
	_ = v.BindEnv("outbox.redis_url", "CATALOG_OUTBOX_REDIS_URL", "REDIS_URL")

	// Tracing
	_ = v.BindEnv("tracing.endpoint", "CATALOG_TRACING_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")

	// Server
	_ = v.BindEnv("server.port", "CATALOG_SERVER_PORT", "PORT")

	// App
	_ = v.BindEnv("app.environment", "CATALOG_APP_ENVIRONMENT", "ENVIRONMENT", "ENV")
}

// ============================================
// Configuration Validation
// ============================================

// Validate валидирует конфигурацию.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown database driver: %q", c.Database.Driver)
	}

	switch c.Database.Isolation {
	case "read_committed", "repeatable_read", "serializable":
	default:
		return fmt.Errorf("unknown isolation level: %q", c.Database.Isolation)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Localization.DefaultCulture {
	case "en", "ru":
	default:
		return fmt.Errorf("unsupported default culture: %q", c.Localization.DefaultCulture)
	}

	if c.Outbox.Enabled && c.Outbox.NatsURL == "" {
		return fmt.Errorf("outbox nats_url is required when outbox is enabled")
	}

	if c.Tracing.Enabled {
		if c.Tracing.Endpoint == "" {
			return fmt.Errorf("tracing endpoint is required when tracing is enabled")
		}
		if c.Tracing.SampleRatio <= 0 || c.Tracing.SampleRatio > 1 {
			return fmt.Errorf("tracing sample_ratio must be in (0, 1]: %v", c.Tracing.SampleRatio)
		}
	}

	// Проверяем критичные настройки в production
	if c.App.IsProduction() {
		if c.Auth.JWTSecret == defaultJWTSecret || len(c.Auth.JWTSecret) < 32 {
			return fmt.Errorf("JWT secret must be changed in production (at least 32 bytes)")
		}
		if !c.Auth.RequireOnWrite {
			return fmt.Errorf("auth.require_on_write must be enabled in production")
		}
		if c.Database.IsMemory() {
			return fmt.Errorf("memory driver is not allowed in production")
		}
	}

	return nil
}

// ============================================
// Development Helpers
// ============================================

// Development возвращает конфигурацию для разработки.
func Development() *Config {
	return &Config{
		App: AppConfig{
			Name:        "catalog",
			Version:     "dev",
			Environment: "development",
			BuildTime:   "unknown",
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:           DriverMemory,
			Host:             "localhost",
			Port:             5432,
			User:             "postgres",
			Password:         "postgres",
			Database:         "catalog",
			SSLMode:          "disable",
			MaxConnections:   10,
			MinConnections:   2,
			MaxConnLifetime:  time.Hour,
			MaxConnIdleTime:  30 * time.Minute,
			ConnectTimeout:   5 * time.Second,
			StatementTimeout: 30 * time.Second,
			Isolation:        "read_committed",
			Seed:             true,
		},
		Auth: AuthConfig{
			JWTSecret: "dev-secret-key",
			JWTIssuer: "catalog-dev",
			TokenTTL:  time.Hour,
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 100,
			WritesPerMinute:   30,
		},
		Log: LogConfig{
			Level:  "debug",
			Format: "text",
		},
		Localization: LocalizationConfig{
			DefaultCulture: "en",
		},
		Outbox: OutboxConfig{
			NatsURL:       "nats://localhost:4222",
			SubjectPrefix: "catalog",
			PollInterval:  time.Second,
			BatchSize:     100,
			MaxAttempts:   5,
			LeaderLock:    "catalog:outbox-relay:leader",
			LeaderTTL:     15 * time.Second,
		},
		Tracing: TracingConfig{
			Endpoint:    "localhost:4318",
			Insecure:    true,
			SampleRatio: 1,
		},
	}
}

// Test возвращает конфигурацию для тестов.
func Test() *Config {
	cfg := Development()
	cfg.App.Environment = "test"
	cfg.Database.Database = "catalog_test"
	cfg.Log.Level = "error" // Меньше шума в тестах
	return cfg
}
