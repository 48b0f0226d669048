// Package postgres - OutboxRepository для Transactional Outbox Pattern.
//
// Transactional Outbox Pattern:
// 1. В той же транзакции, что и изменение каталога, сохраняем событие в outbox
// 2. Relay (messaging/natsrelay) читает события и публикует в NATS
// 3. После публикации помечает событие как published
//
// Доставка at-least-once: получатели дедуплицируют по Nats-Msg-Id.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Haleralex/catalog/internal/application/ports"
	domainErrors "github.com/Haleralex/catalog/internal/domain/errors"
	"github.com/Haleralex/catalog/internal/domain/events"
)

const tableOutbox = "outbox"

// Compile-time check
var _ ports.OutboxRepository = (*outboxRepository)(nil)
var _ ports.EventPublisher = (*outboxRepository)(nil) // outboxRepository также является EventPublisher

// outboxRepository реализует ports.OutboxRepository в транзакции сессии.
type outboxRepository struct {
	sess *session
}

func (r *outboxRepository) ready(ctx context.Context, op string) error {
	if err := r.sess.active(tableOutbox + "." + op); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return domainErrors.NewDatabaseError(tableOutbox+"."+op, err)
	}
	return nil
}

// Save сохраняет событие в outbox таблицу.
// Должно выполняться в той же транзакции, что и бизнес-операция!
func (r *outboxRepository) Save(ctx context.Context, event events.DomainEvent) error {
	if err := r.ready(ctx, "save"); err != nil {
		return err
	}
	defer observe("save", tableOutbox)()

	rec, err := ports.NewOutboxRecord(event)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO outbox (
			id, aggregate_type, aggregate_id, event_type,
			payload, status, attempts, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.sess.querier().Exec(ctx, query,
		rec.ID,
		rec.AggregateType,
		rec.AggregateID,
		rec.EventType,
		rec.Payload,
		string(rec.Status),
		rec.Attempts,
		rec.CreatedAt,
	)
	if err != nil {
		return dbError(tableOutbox+".save", err)
	}
	return nil
}

// Publish реализует EventPublisher интерфейс.
// В Outbox pattern это просто alias для Save - сохраняем событие в БД.
func (r *outboxRepository) Publish(ctx context.Context, event events.DomainEvent) error {
	return r.Save(ctx, event)
}

// PublishBatch сохраняет несколько событий в одной транзакции.
func (r *outboxRepository) PublishBatch(ctx context.Context, list []events.DomainEvent) error {
	for _, event := range list {
		if err := r.Save(ctx, event); err != nil {
			return fmt.Errorf("failed to publish event %s: %w", event.EventType(), err)
		}
	}
	return nil
}

// FindUnpublished возвращает PENDING события в порядке создания.
// Строки блокируются до конца транзакции, параллельные relay их пропускают.
func (r *outboxRepository) FindUnpublished(ctx context.Context, limit int) ([]ports.OutboxRecord, error) {
	if err := r.ready(ctx, "find"); err != nil {
		return nil, err
	}
	defer observe("find", tableOutbox)()

	// LIMIT NULL = без ограничения
	var lim any
	if limit > 0 {
		lim = limit
	}

	const query = `
		SELECT id, aggregate_type, aggregate_id, event_type, payload,
		       status, attempts, COALESCE(last_error, ''), created_at
		FROM outbox
		WHERE status = 'PENDING'
		ORDER BY created_at ASC
		LIMIT $1::int4
		FOR UPDATE SKIP LOCKED
	`

	rows, err := r.sess.querier().Query(ctx, query, lim)
	if err != nil {
		return nil, dbError(tableOutbox+".find", err)
	}
	defer rows.Close()

	records := make([]ports.OutboxRecord, 0)
	for rows.Next() {
		var (
			rec    ports.OutboxRecord
			status string
		)
		if err := rows.Scan(
			&rec.ID, &rec.AggregateType, &rec.AggregateID, &rec.EventType, &rec.Payload,
			&status, &rec.Attempts, &rec.LastError, &rec.CreatedAt,
		); err != nil {
			return nil, dbError(tableOutbox+".find", err)
		}
		rec.Status = ports.OutboxStatus(status)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(tableOutbox+".find", err)
	}
	return records, nil
}

// MarkPublished помечает PENDING событие как опубликованное.
func (r *outboxRepository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	if err := r.ready(ctx, "mark_published"); err != nil {
		return err
	}
	defer observe("mark_published", tableOutbox)()

	const query = `
		UPDATE outbox
		SET status = 'PUBLISHED', published_at = $2
		WHERE id = $1 AND status = 'PENDING'
	`

	result, err := r.sess.querier().Exec(ctx, query, id, time.Now().UTC())
	if err != nil {
		return dbError(tableOutbox+".mark_published", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("pending outbox record %s: %w", id, domainErrors.ErrEntityNotFound)
	}
	return nil
}

// MarkFailed учитывает неудачную попытку. После maxAttempts событие получает FAILED.
func (r *outboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string, maxAttempts int) error {
	if err := r.ready(ctx, "mark_failed"); err != nil {
		return err
	}
	defer observe("mark_failed", tableOutbox)()

	const query = `
		UPDATE outbox
		SET attempts = attempts + 1,
			last_error = $2,
			status = CASE WHEN attempts + 1 >= $3 THEN 'FAILED' ELSE status END,
			failed_at = CASE WHEN attempts + 1 >= $3 THEN $4 ELSE failed_at END
		WHERE id = $1
	`

	result, err := r.sess.querier().Exec(ctx, query, id, reason, maxAttempts, time.Now().UTC())
	if err != nil {
		return dbError(tableOutbox+".mark_failed", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("outbox record %s: %w", id, domainErrors.ErrEntityNotFound)
	}
	return nil
}
