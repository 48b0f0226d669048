// Package middleware содержит HTTP middleware для обработки запросов.
//
// Middleware в Gin - это функции, которые выполняются до/после handlers.
// Они используются для cross-cutting concerns: логирование, auth, культура запроса.
//
// Значения, нужные слоям ниже HTTP (request id, пользователь операции, культура),
// кладутся в context.Context запроса, а не только в gin.Context.
//
// Pattern: Chain of Responsibility
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Haleralex/catalog/internal/adapters/http/common"
	"github.com/Haleralex/catalog/internal/pkg/logger"
)

const (
	// RequestIDHeader - имя заголовка для Request ID
	RequestIDHeader = common.RequestIDKey
	// CorrelationIDHeader - имя заголовка для Correlation ID (цепочка сервисов)
	CorrelationIDHeader = "X-Correlation-ID"
)

// RequestID middleware добавляет уникальный ID к каждому запросу.
//
// Если клиент передаёт X-Request-ID - используем его,
// иначе генерируем новый UUID. Correlation ID без заголовка равен Request ID.
// Оба попадают в context запроса, откуда их читает logger.ContextHandler.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		correlationID := c.GetHeader(CorrelationIDHeader)
		if correlationID == "" {
			correlationID = requestID
		}

		common.SetRequestID(c, requestID)
		c.Header(CorrelationIDHeader, correlationID)

		ctx := logger.WithRequestID(c.Request.Context(), requestID)
		ctx = logger.WithCorrelationID(ctx, correlationID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetRequestID извлекает Request ID из контекста Gin.
func GetRequestID(c *gin.Context) string {
	return common.GetRequestID(c)
}
