// Package leader - выбор лидера между репликами через Redis.
//
// Outbox relay должен публиковать из одного экземпляра: иначе одна и та же
// PENDING запись уйдёт в NATS дважды. Лидер держит ключ (SET NX PX) и продлевает
// его, пока жив. Упавший лидер теряет ключ по TTL.
//
// Pattern: Lease
// - Захват атомарный (SET NX)
// - Продление и освобождение только владельцем (Lua check-and-set)
package leader

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ============================================
// Configuration
// ============================================

// Config - настройки выбора лидера.
type Config struct {
	// InstanceID - идентификатор экземпляра (по умолчанию hostname + uuid)
	InstanceID string
	// LockName - ключ в Redis (e.g., "catalog:outbox-relay:leader")
	LockName string
	// TTL - срок аренды ключа
	TTL time.Duration
	// RefreshInterval - как часто продлевать аренду / пытаться захватить
	RefreshInterval time.Duration
}

// DefaultConfig возвращает конфигурацию по умолчанию.
func DefaultConfig(lockName string) Config {
	return Config{
		InstanceID:      defaultInstanceID(),
		LockName:        lockName,
		TTL:             15 * time.Second,
		RefreshInterval: 5 * time.Second,
	}
}

func defaultInstanceID() string {
	host, _ := os.Hostname()
	if host == "" {
		host = "instance"
	}
	return host + "-" + uuid.NewString()[:8]
}

// ============================================
// Elector
// ============================================

var (
	// refreshScript продлевает ключ, только если им владеет ARGV[1].
	refreshScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0`)

	// releaseScript удаляет ключ, только если им владеет ARGV[1].
	releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)
)

// Elector - участник выборов лидера.
type Elector struct {
	client  redis.UniversalClient
	cfg     Config
	logger  *slog.Logger
	primary atomic.Bool
}

// New создаёт Elector. Нулевые поля cfg заменяются значениями по умолчанию.
func New(client redis.UniversalClient, cfg Config, logger *slog.Logger) *Elector {
	def := DefaultConfig(cfg.LockName)
	if cfg.InstanceID == "" {
		cfg.InstanceID = def.InstanceID
	}
	if cfg.LockName == "" {
		cfg.LockName = "catalog:leader"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.RefreshInterval <= 0 || cfg.RefreshInterval >= cfg.TTL {
		cfg.RefreshInterval = cfg.TTL / 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Elector{
		client: client,
		cfg:    cfg,
		logger: logger.With(slog.String("lock", cfg.LockName), slog.String("instance_id", cfg.InstanceID)),
	}
}

// InstanceID возвращает идентификатор экземпляра.
func (e *Elector) InstanceID() string {
	return e.cfg.InstanceID
}

// IsPrimary сообщает, является ли экземпляр лидером.
func (e *Elector) IsPrimary() bool {
	return e.primary.Load()
}

// Run участвует в выборах до отмены ctx, затем освобождает ключ.
func (e *Elector) Run(ctx context.Context) error {
	e.logger.Info("Leader election started", slog.Duration("ttl", e.cfg.TTL))

	ticker := time.NewTicker(e.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		e.Campaign(ctx)

		select {
		case <-ctx.Done():
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := e.Release(releaseCtx); err != nil {
				e.logger.Warn("Failed to release leader lock", slog.String("error", err.Error()))
			}
			e.logger.Info("Leader election stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Campaign продлевает аренду лидера или пытается её захватить.
// Возвращает true, если после вызова экземпляр - лидер.
func (e *Elector) Campaign(ctx context.Context) bool {
	wasPrimary := e.primary.Load()

	ok, err := e.acquireOrRefresh(ctx, wasPrimary)
	if err != nil && !errors.Is(err, context.Canceled) {
		e.logger.Error("Leader lock request failed", slog.String("error", err.Error()))
	}

	e.primary.Store(ok)
	switch {
	case ok && !wasPrimary:
		e.logger.Info("Acquired leadership")
	case !ok && wasPrimary:
		e.logger.Warn("Lost leadership")
	}
	return ok
}

func (e *Elector) acquireOrRefresh(ctx context.Context, wasPrimary bool) (bool, error) {
	if wasPrimary {
		ok, err := e.refresh(ctx)
		if err != nil || ok {
			return ok, err
		}
	}

	acquired, err := e.client.SetNX(ctx, e.cfg.LockName, e.cfg.InstanceID, e.cfg.TTL).Result()
	if err != nil {
		return false, err
	}
	if acquired {
		return true, nil
	}

	// Ключ мог остаться от нас самих (например, после сетевого сбоя)
	return e.refresh(ctx)
}

func (e *Elector) refresh(ctx context.Context) (bool, error) {
	n, err := refreshScript.Run(ctx, e.client, []string{e.cfg.LockName}, e.cfg.InstanceID, e.cfg.TTL.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Release освобождает ключ, если экземпляр им владеет.
func (e *Elector) Release(ctx context.Context) error {
	e.primary.Store(false)
	if err := releaseScript.Run(ctx, e.client, []string{e.cfg.LockName}, e.cfg.InstanceID).Err(); err != nil {
		return err
	}
	return nil
}

// Leader возвращает InstanceID текущего лидера ("" если лидера нет).
func (e *Elector) Leader(ctx context.Context) (string, error) {
	owner, err := e.client.Get(ctx, e.cfg.LockName).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return owner, err
}

// ============================================
// Health
// ============================================

// Pinger проверяет доступность Redis для /ready.
type Pinger struct {
	client redis.UniversalClient
}

// NewPinger создаёт Pinger.
func NewPinger(client redis.UniversalClient) *Pinger {
	return &Pinger{client: client}
}

// Ping выполняет PING.
func (p *Pinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
