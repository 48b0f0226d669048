// Package natsrelay переносит события из outbox в NATS.
//
// Transactional Outbox Pattern (вторая половина):
// 1. Сервис пишет событие в outbox в транзакции изменения каталога
// 2. Relay забирает PENDING записи (FOR UPDATE SKIP LOCKED) и публикует их
// 3. Успех - MarkPublished, ошибка - MarkFailed (после MaxAttempts запись FAILED)
//
// Доставка at-least-once. Заголовок Nats-Msg-Id = ID события, поэтому
// JetStream отбрасывает повторы внутри окна дедупликации.
package natsrelay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Publisher отправляет одно сообщение и возвращается после подтверждения.
type Publisher interface {
	Publish(ctx context.Context, msg *nats.Msg) error
}

// Compile-time check
var _ Publisher = (*CorePublisher)(nil)
var _ Publisher = (*StreamPublisher)(nil)

// CorePublisher публикует через core NATS. Подтверждение - flush до сервера.
type CorePublisher struct {
	conn *nats.Conn
}

// NewCorePublisher создаёт publisher поверх соединения.
func NewCorePublisher(conn *nats.Conn) *CorePublisher {
	return &CorePublisher{conn: conn}
}

// Publish отправляет сообщение и ждёт flush.
func (p *CorePublisher) Publish(ctx context.Context, msg *nats.Msg) error {
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", msg.Subject, err)
	}
	if err := p.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush %s: %w", msg.Subject, err)
	}
	return nil
}

// StreamPublisher публикует в JetStream и ждёт PubAck.
type StreamPublisher struct {
	js jetstream.JetStream
}

// NewStreamPublisher создаёт JetStream publisher.
func NewStreamPublisher(js jetstream.JetStream) *StreamPublisher {
	return &StreamPublisher{js: js}
}

// Publish отправляет сообщение. Дубликат по Nats-Msg-Id тоже считается успехом.
func (p *StreamPublisher) Publish(ctx context.Context, msg *nats.Msg) error {
	if _, err := p.js.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", msg.Subject, err)
	}
	return nil
}

// Connect подключается к NATS с бесконечным reconnect.
func Connect(url string, logger *slog.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("catalog-outbox-relay"),
		nats.ReconnectWait(time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

// EnsureStream создаёт (или обновляет) stream для всех subject с префиксом.
func EnsureStream(ctx context.Context, js jetstream.JetStream, name, prefix string) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       name,
		Subjects:   []string{prefix + ".>"},
		Duplicates: 2 * time.Minute,
	})
	if err != nil {
		return fmt.Errorf("failed to ensure stream %s: %w", name, err)
	}
	return nil
}

// ConnPinger сообщает о состоянии соединения для readiness probe.
type ConnPinger struct {
	conn *nats.Conn
}

// NewConnPinger создаёт ConnPinger.
func NewConnPinger(conn *nats.Conn) *ConnPinger {
	return &ConnPinger{conn: conn}
}

// Ping успешен, пока соединение установлено и сервер отвечает на flush.
func (p *ConnPinger) Ping(ctx context.Context) error {
	if !p.conn.IsConnected() {
		return fmt.Errorf("nats connection is %s", p.conn.Status())
	}
	return p.conn.FlushWithContext(ctx)
}
