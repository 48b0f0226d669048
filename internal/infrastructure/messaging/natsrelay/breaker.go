package natsrelay

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker"

	"github.com/Haleralex/catalog/internal/pkg/metrics"
)

// ErrPublisherUnavailable - breaker открыт, сообщение не отправлялось.
// Relay не засчитывает такую попытку и оставляет запись PENDING.
var ErrPublisherUnavailable = errors.New("publisher unavailable: circuit open")

// BreakerConfig - настройки circuit breaker.
type BreakerConfig struct {
	Name        string
	MaxRequests uint32        // пробных запросов в half-open
	Interval    time.Duration // окно сброса счётчиков в closed
	Timeout     time.Duration // сколько держать open до half-open
	MinRequests uint32        // минимум запросов перед оценкой доли ошибок
	Ratio       float64       // доля ошибок, открывающая breaker
}

// DefaultBreakerConfig возвращает конфигурацию по умолчанию.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:        "nats",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     5 * time.Second,
		MinRequests: 5,
		Ratio:       0.5,
	}
}

// Compile-time check
var _ Publisher = (*BreakerPublisher)(nil)

// BreakerPublisher оборачивает Publisher в circuit breaker.
//
// Pattern: Circuit Breaker
// - Пока NATS недоступен, relay не тратит попытки записей
// - После Timeout пропускается пробное сообщение (half-open)
type BreakerPublisher struct {
	next Publisher
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerPublisher создаёт BreakerPublisher.
func NewBreakerPublisher(next Publisher, cfg BreakerConfig, logger *slog.Logger) *BreakerPublisher {
	def := DefaultBreakerConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.MinRequests == 0 {
		cfg.MinRequests = def.MinRequests
	}
	if cfg.Ratio <= 0 || cfg.Ratio > 1 {
		cfg.Ratio = def.Ratio
	}
	if logger == nil {
		logger = slog.Default()
	}

	metrics.SetOutboxBreakerState(cfg.Name, metrics.BreakerClosed)

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.Ratio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Publisher circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
			metrics.SetOutboxBreakerState(name, breakerStateValue(to))
		},
	})

	return &BreakerPublisher{next: next, cb: cb}
}

// Publish отправляет сообщение через breaker.
func (p *BreakerPublisher) Publish(ctx context.Context, msg *nats.Msg) error {
	_, err := p.cb.Execute(func() (interface{}, error) {
		return nil, p.next.Publish(ctx, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrPublisherUnavailable
	}
	return err
}

// State возвращает текущее состояние breaker ("closed", "half-open", "open").
func (p *BreakerPublisher) State() string {
	return p.cb.State().String()
}

func breakerStateValue(s gobreaker.State) int {
	switch s {
	case gobreaker.StateOpen:
		return metrics.BreakerOpen
	case gobreaker.StateHalfOpen:
		return metrics.BreakerHalfOpen
	default:
		return metrics.BreakerClosed
	}
}
