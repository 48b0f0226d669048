package natsrelay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/Haleralex/catalog/internal/application/ports"
	"github.com/Haleralex/catalog/internal/pkg/metrics"
)

// Headers, которые relay добавляет к каждому сообщению.
const (
	HeaderMsgID         = "Nats-Msg-Id"
	HeaderEventType     = "Catalog-Event-Type"
	HeaderAggregateType = "Catalog-Aggregate-Type"
	HeaderAggregateID   = "Catalog-Aggregate-Id"
)

// Config - настройки relay.
type Config struct {
	SubjectPrefix string        // e.g. "catalog" -> catalog.product.created
	BatchSize     int           // записей за один проход
	PollInterval  time.Duration // пауза между проходами
	MaxAttempts   int           // после стольких ошибок запись получает FAILED

	// Detached публикует вне UnitOfWork: пачка читается в одной единице работы,
	// отметки фиксируются во второй. Для memory хранилища с единственным
	// писателем, чтобы запросы не ждали NATS. Требует одного relay на хранилище.
	Detached bool
}

// DefaultConfig возвращает конфигурацию по умолчанию.
func DefaultConfig() Config {
	return Config{
		SubjectPrefix: "catalog",
		BatchSize:     100,
		PollInterval:  time.Second,
		MaxAttempts:   5,
	}
}

const tracerName = "github.com/Haleralex/catalog/natsrelay"

// Gate решает, может ли экземпляр публиковать (leader.Elector).
type Gate interface {
	IsPrimary() bool
}

// Relay периодически переносит PENDING события outbox в NATS.
type Relay struct {
	factory ports.UnitOfWorkFactory
	pub     Publisher
	cfg     Config
	logger  *slog.Logger
	gate    Gate
	tracer  trace.Tracer
}

// New создаёт Relay. Нулевые поля cfg заменяются значениями по умолчанию.
func New(factory ports.UnitOfWorkFactory, pub Publisher, cfg Config, logger *slog.Logger) *Relay {
	def := DefaultConfig()
	if cfg.SubjectPrefix == "" {
		cfg.SubjectPrefix = def.SubjectPrefix
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	return &Relay{
		factory: factory,
		pub:     pub,
		cfg:     cfg,
		logger:  logger,
		tracer:  otel.Tracer(tracerName),
	}
}

// WithGate включает публикацию только на лидере.
func (r *Relay) WithGate(g Gate) *Relay {
	r.gate = g
	return r
}

// Detached сообщает, публикует ли relay вне UnitOfWork.
func (r *Relay) Detached() bool {
	return r.cfg.Detached
}

// Subject возвращает subject для типа события.
func (r *Relay) Subject(eventType string) string {
	return r.cfg.SubjectPrefix + "." + eventType
}

// Run выполняет RunOnce каждые PollInterval до отмены ctx.
func (r *Relay) Run(ctx context.Context) error {
	r.logger.Info("Outbox relay started",
		"subject_prefix", r.cfg.SubjectPrefix,
		"poll_interval", r.cfg.PollInterval,
		"batch_size", r.cfg.BatchSize,
	)

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if r.gate == nil || r.gate.IsPrimary() {
			if _, err := r.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				r.logger.Error("Outbox relay pass failed", "error", err)
			}
		}

		select {
		case <-ctx.Done():
			r.logger.Info("Outbox relay stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce публикует одну пачку и возвращает число опубликованных событий.
// Вся пачка обрабатывается в одной транзакции: отметки фиксируются вместе.
// С Detached публикация идёт между двумя короткими единицами работы.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	ctx, span := r.tracer.Start(ctx, "OutboxRelay.RunOnce", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()

	var (
		published int
		err       error
	)
	if r.cfg.Detached {
		published, err = r.runDetached(ctx)
	} else {
		err = r.factory.Execute(ctx, func(ctx context.Context, uow ports.UnitOfWork) error {
			records, err := uow.Outbox().FindUnpublished(ctx, r.cfg.BatchSize)
			if err != nil {
				return fmt.Errorf("failed to read outbox: %w", err)
			}
			published, err = r.settle(ctx, uow.Outbox(), r.publish(ctx, records))
			return err
		})
	}
	span.SetAttributes(attribute.Int("outbox.published", published))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "outbox pass failed")
		return 0, err
	}

	if published > 0 {
		r.logger.Debug("Outbox events published", "count", published)
	}
	return published, nil
}

func (r *Relay) runDetached(ctx context.Context) (int, error) {
	var records []ports.OutboxRecord
	err := r.factory.Execute(ctx, func(ctx context.Context, uow ports.UnitOfWork) error {
		var err error
		records, err = uow.Outbox().FindUnpublished(ctx, r.cfg.BatchSize)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to read outbox: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	outcomes := r.publish(ctx, records)

	var published int
	err = r.factory.Execute(ctx, func(ctx context.Context, uow ports.UnitOfWork) error {
		var err error
		published, err = r.settle(ctx, uow.Outbox(), outcomes)
		return err
	})
	return published, err
}

// outcome - результат публикации одной записи.
type outcome struct {
	rec ports.OutboxRecord
	err error
}

// publish отправляет записи по порядку. Недоступный publisher останавливает
// проход: остаток пачки ждёт следующего.
func (r *Relay) publish(ctx context.Context, records []ports.OutboxRecord) []outcome {
	outcomes := make([]outcome, 0, len(records))
	for _, rec := range records {
		err := r.pub.Publish(ctx, r.message(ctx, rec))
		if errors.Is(err, ErrPublisherUnavailable) {
			r.logger.Warn("Outbox publisher unavailable, pass stopped", "event_id", rec.ID)
			break
		}
		outcomes = append(outcomes, outcome{rec: rec, err: err})
	}
	return outcomes
}

// settle фиксирует отметки PUBLISHED / попыток и возвращает число опубликованных.
func (r *Relay) settle(ctx context.Context, outbox ports.OutboxRepository, outcomes []outcome) (int, error) {
	published := 0
	for _, o := range outcomes {
		rec := o.rec
		if o.err != nil {
			if err := outbox.MarkFailed(ctx, rec.ID, o.err.Error(), r.cfg.MaxAttempts); err != nil {
				return published, fmt.Errorf("failed to mark event %s as failed: %w", rec.ID, err)
			}

			result := "retry"
			if rec.Attempts+1 >= r.cfg.MaxAttempts {
				result = "failed"
			}
			metrics.RecordOutboxEvent(rec.EventType, result)
			r.logger.Warn("Outbox event publish failed",
				"event_id", rec.ID,
				"event_type", rec.EventType,
				"attempt", rec.Attempts+1,
				"result", result,
				"error", o.err,
			)
			continue
		}

		if err := outbox.MarkPublished(ctx, rec.ID); err != nil {
			return published, fmt.Errorf("failed to mark event %s as published: %w", rec.ID, err)
		}
		metrics.RecordOutboxEvent(rec.EventType, "published")
		published++
	}
	return published, nil
}

// message собирает nats.Msg; контекст трассировки уходит в заголовки (traceparent).
func (r *Relay) message(ctx context.Context, rec ports.OutboxRecord) *nats.Msg {
	msg := nats.NewMsg(r.Subject(rec.EventType))
	msg.Data = rec.Payload
	msg.Header.Set(HeaderMsgID, rec.ID.String())
	msg.Header.Set(HeaderEventType, rec.EventType)
	msg.Header.Set(HeaderAggregateType, rec.AggregateType)
	msg.Header.Set(HeaderAggregateID, rec.AggregateID)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))
	return msg
}
