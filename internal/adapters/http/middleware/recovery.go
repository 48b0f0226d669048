// Package middleware - Recovery middleware для обработки паник.
package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/Haleralex/catalog/internal/adapters/http/common"
	domainErrors "github.com/Haleralex/catalog/internal/domain/errors"
)

// RecoveryConfig - конфигурация для recovery middleware.
type RecoveryConfig struct {
	Logger           *slog.Logger
	EnableStackTrace bool // Включать stack trace в логи
	PrintStack       bool // Выводить stack trace в консоль
}

// DefaultRecoveryConfig - конфигурация по умолчанию.
func DefaultRecoveryConfig() *RecoveryConfig {
	return &RecoveryConfig{
		Logger:           slog.Default(),
		EnableStackTrace: true,
		PrintStack:       false,
	}
}

// Recovery middleware перехватывает панику и возвращает 500 ошибку.
//
// Паника в handler - это ошибка программирования (например, Value() у
// неудачного Result даёт *errors.InvalidStateError). Транзакция к этому моменту
// уже откатана Unit of Work, клиент получает общий ответ без деталей.
//
// http.ErrAbortHandler пробрасывается дальше: им net/http прерывает ответ.
//
// Pattern: Graceful Error Handling
func Recovery(config *RecoveryConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultRecoveryConfig()
	}

	return func(c *gin.Context) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			if err, ok := recovered.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(recovered)
			}

			stack := debug.Stack()

			attrs := []slog.Attr{
				slog.String("error", fmt.Sprintf("%v", recovered)),
				slog.String("path", c.Request.URL.Path),
				slog.String("method", c.Request.Method),
				slog.String("request_id", GetRequestID(c)),
				slog.String("client_ip", c.ClientIP()),
			}
			if err, ok := recovered.(error); ok && domainErrors.IsInvalidState(err) {
				attrs = append(attrs, slog.Bool("invalid_state", true))
			}
			if config.EnableStackTrace {
				attrs = append(attrs, slog.String("stack", string(stack)))
			}

			config.Logger.LogAttrs(c.Request.Context(), slog.LevelError, "Panic recovered", attrs...)

			if config.PrintStack {
				fmt.Printf("[Recovery] panic recovered:\n%v\n%s\n", recovered, stack)
			}

			common.InternalErrorResponse(c, "An unexpected error occurred")
		}()

		c.Next()
	}
}
