package memory

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/Haleralex/catalog/internal/application/ports"
	"github.com/Haleralex/catalog/internal/domain/events"
	domainErrors "github.com/Haleralex/catalog/internal/domain/errors"
)

const tableOutbox = "outbox"

// Compile-time check
var _ ports.OutboxRepository = (*outboxRepository)(nil)

// outboxRepository хранит записи outbox в той же сессии, что и сущности.
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

// Save добавляет событие как PENDING запись.
func (r *outboxRepository) Save(ctx context.Context, event events.DomainEvent) error {
	if err := r.ready(ctx, "save"); err != nil {
		return err
	}
	rec, err := ports.NewOutboxRecord(event)
	if err != nil {
		return err
	}
	r.sess.data.outbox = append(r.sess.data.outbox, rec)
	return nil
}

// Publish - alias для Save.
func (r *outboxRepository) Publish(ctx context.Context, event events.DomainEvent) error {
	return r.Save(ctx, event)
}

// PublishBatch сохраняет события по порядку. Ошибка откатывается вместе с UnitOfWork.
func (r *outboxRepository) PublishBatch(ctx context.Context, list []events.DomainEvent) error {
	for _, event := range list {
		if err := r.Save(ctx, event); err != nil {
			return fmt.Errorf("failed to publish event %s: %w", event.EventType(), err)
		}
	}
	return nil
}

// FindUnpublished возвращает PENDING записи в порядке создания. limit <= 0 - без ограничения.
func (r *outboxRepository) FindUnpublished(ctx context.Context, limit int) ([]ports.OutboxRecord, error) {
	if err := r.ready(ctx, "find"); err != nil {
		return nil, err
	}

	pending := make([]ports.OutboxRecord, 0)
	for _, rec := range r.sess.data.outbox {
		if rec.Status == ports.OutboxPending {
			pending = append(pending, rec)
		}
	}
	slices.SortStableFunc(pending, func(a, b ports.OutboxRecord) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

// MarkPublished переводит PENDING запись в PUBLISHED.
func (r *outboxRepository) MarkPublished(ctx context.Context, id uuid.UUID) error {
	if err := r.ready(ctx, "mark_published"); err != nil {
		return err
	}
	rec := r.find(id)
	if rec == nil || rec.Status != ports.OutboxPending {
		return fmt.Errorf("pending outbox record %s: %w", id, domainErrors.ErrEntityNotFound)
	}
	rec.Status = ports.OutboxPublished
	return nil
}

// MarkFailed учитывает неудачную попытку; после maxAttempts запись становится FAILED.
func (r *outboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string, maxAttempts int) error {
	if err := r.ready(ctx, "mark_failed"); err != nil {
		return err
	}
	rec := r.find(id)
	if rec == nil {
		return fmt.Errorf("outbox record %s: %w", id, domainErrors.ErrEntityNotFound)
	}
	rec.Attempts++
	rec.LastError = reason
	if rec.Attempts >= maxAttempts {
		rec.Status = ports.OutboxFailed
	}
	return nil
}

func (r *outboxRepository) find(id uuid.UUID) *ports.OutboxRecord {
	for i := range r.sess.data.outbox {
		if r.sess.data.outbox[i].ID == id {
			return &r.sess.data.outbox[i]
		}
	}
	return nil
}
