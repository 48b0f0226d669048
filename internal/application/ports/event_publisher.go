// Package ports - EventPublisher и Outbox для публикации domain events.
//
// SOLID Principles:
// - DIP: Application не знает о NATS деталях
// - ISP: Сервисы видят только EventPublisher, relay - OutboxRepository
//
// Pattern: Transactional Outbox
package ports

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Haleralex/catalog/internal/domain/events"
)

// EventPublisher определяет контракт для публикации domain events.
//
// В этом сервисе единственная реализация - outbox, поэтому публикация
// атомарна вместе с бизнес-операцией.
type EventPublisher interface {
	// Publish публикует одно событие.
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch публикует несколько событий за один вызов.
	// Если одно событие не удаётся сохранить, вся batch проваливается.
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// OutboxStatus - статус записи outbox.
type OutboxStatus string

const (
	OutboxPending   OutboxStatus = "PENDING"
	OutboxPublished OutboxStatus = "PUBLISHED"
	OutboxFailed    OutboxStatus = "FAILED"
)

// OutboxRecord - сохранённое событие, готовое к отправке брокеру.
type OutboxRecord struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	Status        OutboxStatus
	Attempts      int
	LastError     string
	CreatedAt     time.Time
}

// NewOutboxRecord сериализует событие в PENDING запись outbox.
func NewOutboxRecord(event events.DomainEvent) (OutboxRecord, error) {
	payload, err := events.Marshal(event)
	if err != nil {
		return OutboxRecord{}, fmt.Errorf("failed to serialize event: %w", err)
	}
	return OutboxRecord{
		ID:            event.EventID(),
		AggregateType: event.AggregateType(),
		AggregateID:   event.AggregateID(),
		EventType:     event.EventType(),
		Payload:       payload,
		Status:        OutboxPending,
		CreatedAt:     event.OccurredAt(),
	}, nil
}

// OutboxRepository - интерфейс для Transactional Outbox Pattern.
//
// 1. В той же транзакции, что и бизнес-операция, событие сохраняется в outbox
// 2. Relay читает outbox и публикует в NATS
// 3. После успешной публикации помечает событие как published
type OutboxRepository interface {
	EventPublisher

	// Save сохраняет событие в outbox.
	// Должно выполняться в той же транзакции, что и бизнес-операция!
	Save(ctx context.Context, event events.DomainEvent) error

	// FindUnpublished возвращает PENDING записи в порядке создания.
	// Postgres блокирует строки (FOR UPDATE SKIP LOCKED) до конца транзакции.
	FindUnpublished(ctx context.Context, limit int) ([]OutboxRecord, error)

	// MarkPublished помечает событие как опубликованное.
	MarkPublished(ctx context.Context, id uuid.UUID) error

	// MarkFailed увеличивает счётчик попыток. После maxAttempts запись получает статус FAILED,
	// иначе остаётся PENDING для следующего прохода.
	MarkFailed(ctx context.Context, id uuid.UUID, reason string, maxAttempts int) error
}
