// Package pgtest поднимает PostgreSQL в Docker (testcontainers) для интеграционных тестов.
//
// Схема и образец каталога создаются init-скриптами из migrations/*.up.sql,
// поэтому тесты видят ту же БД, что и после `migrate up`.
//
// Требования:
//   - Docker запущен
package pgtest

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Container - запущенный PostgreSQL и пул соединений к нему.
type Container struct {
	container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	DSN       string
}

// MigrationsDir возвращает абсолютный путь к migrations/ в корне репозитория.
func MigrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "..", "..", "migrations")
}

// Start запускает контейнер и применяет все *.up.sql по порядку имён.
//
// Без Docker возвращает ошибку, а не панику: TestMain пакета с unit-тестами
// должен доработать и пропустить только контейнерные тесты.
func Start(ctx context.Context) (c *Container, err error) {
	defer func() {
		if r := recover(); r != nil {
			c, err = nil, fmt.Errorf("docker is not available: %v", r)
		}
	}()

	if err := dockerHealthy(ctx); err != nil {
		return nil, err
	}

	scripts, err := filepath.Glob(filepath.Join(MigrationsDir(), "*.up.sql"))
	if err != nil {
		return nil, fmt.Errorf("failed to list migrations: %w", err)
	}
	if len(scripts) == 0 {
		return nil, fmt.Errorf("no migrations found in %s", MigrationsDir())
	}

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("catalog_test"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		postgres.WithInitScripts(scripts...),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	c = &Container{container: container}

	c.DSN, err = container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	poolConfig, err := pgxpool.ParseConfig(c.DSN)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2

	c.Pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := c.Pool.Ping(ctx); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return c, nil
}

// dockerHealthy проверяет, что Docker daemon отвечает.
func dockerHealthy(ctx context.Context) error {
	provider, err := testcontainers.NewDockerProvider()
	if err != nil {
		return fmt.Errorf("docker is not available: %w", err)
	}
	defer provider.Close()

	if err := provider.Health(ctx); err != nil {
		return fmt.Errorf("docker is not available: %w", err)
	}
	return nil
}

// Close закрывает пул и останавливает контейнер.
func (c *Container) Close() error {
	if c.Pool != nil {
		c.Pool.Close()
	}
	return testcontainers.TerminateContainer(c.container)
}
