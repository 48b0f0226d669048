// Package common содержит общие типы для HTTP слоя.
//
// Вынесен в отдельный пакет чтобы избежать циклических импортов
// между handlers, middleware и основным http пакетом.
package common

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Haleralex/catalog/internal/domain/result"
)

// ============================================
// Standard API Response Format
// ============================================

// APIResponse - стандартный формат ответа API.
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Meta      *APIMeta    `json:"meta,omitempty"`
	RequestID string      `json:"request_id"`
	Timestamp time.Time   `json:"timestamp"`
}

// APIMeta - мета-информация для пагинации.
type APIMeta struct {
	Page    int `json:"page,omitempty"`
	PerPage int `json:"per_page,omitempty"`
	Count   int `json:"count"`
}

// APIError - структура ошибки API.
//
// Messages повторяет сообщения Result целиком: клиент получает уже
// локализованные фразы и их коды.
type APIError struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Fields     []FieldError           `json:"fields,omitempty"`
	Messages   []result.Message       `json:"messages,omitempty"`
	RetryAfter int                    `json:"retry_after,omitempty"`
}

// FieldError - ошибка конкретного поля.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// ============================================
// Error Codes
// ============================================

const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeUnauthorized    = "UNAUTHORIZED"
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeConflict        = "CONFLICT"
	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS"
	ErrCodeDatabase        = "DATABASE_ERROR"
	ErrCodeInternal        = "INTERNAL_ERROR"
	ErrCodeUnavailable     = "SERVICE_UNAVAILABLE"
)

// ============================================
// Request ID
// ============================================

const RequestIDKey = "X-Request-ID"

// GetRequestID возвращает Request ID из контекста.
func GetRequestID(c *gin.Context) string {
	if id, exists := c.Get(RequestIDKey); exists {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

// SetRequestID устанавливает Request ID в контекст.
func SetRequestID(c *gin.Context, id string) {
	c.Set(RequestIDKey, id)
	c.Header(RequestIDKey, id)
}

// ============================================
// Response Helpers
// ============================================

// Success отправляет успешный ответ.
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, APIResponse{
		Success:   true,
		Data:      data,
		RequestID: GetRequestID(c),
		Timestamp: time.Now().UTC(),
	})
}

// SuccessWithMeta отправляет успешный ответ с мета-информацией.
func SuccessWithMeta(c *gin.Context, statusCode int, data interface{}, meta *APIMeta) {
	c.JSON(statusCode, APIResponse{
		Success:   true,
		Data:      data,
		Meta:      meta,
		RequestID: GetRequestID(c),
		Timestamp: time.Now().UTC(),
	})
}

// Error отправляет ответ с ошибкой.
func Error(c *gin.Context, statusCode int, apiError *APIError) {
	c.JSON(statusCode, APIResponse{
		Success:   false,
		Error:     apiError,
		RequestID: GetRequestID(c),
		Timestamp: time.Now().UTC(),
	})
}

// Abort отправляет ответ с ошибкой и прерывает цепочку middleware.
func Abort(c *gin.Context, statusCode int, apiError *APIError) {
	c.AbortWithStatusJSON(statusCode, APIResponse{
		Success:   false,
		Error:     apiError,
		RequestID: GetRequestID(c),
		Timestamp: time.Now().UTC(),
	})
}

// ============================================
// Error Response Helpers
// ============================================

// ValidationErrorResponse создаёт ответ для ошибок валидации.
func ValidationErrorResponse(c *gin.Context, fields []FieldError) {
	Error(c, http.StatusBadRequest, &APIError{
		Code:    ErrCodeValidation,
		Message: "Request validation failed",
		Fields:  fields,
	})
}

// NotFoundResponse создаёт ответ для 404.
func NotFoundResponse(c *gin.Context, resource string) {
	Error(c, http.StatusNotFound, &APIError{
		Code:    ErrCodeNotFound,
		Message: resource + " not found",
		Details: map[string]interface{}{
			"resource": resource,
		},
	})
}

// BadRequestResponse создаёт ответ для некорректного запроса.
func BadRequestResponse(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, &APIError{
		Code:    ErrCodeBadRequest,
		Message: message,
	})
}

// UnauthorizedResponse создаёт ответ для 401.
func UnauthorizedResponse(c *gin.Context, message string) {
	Abort(c, http.StatusUnauthorized, &APIError{
		Code:    ErrCodeUnauthorized,
		Message: message,
	})
}

// ForbiddenResponse создаёт ответ для 403.
func ForbiddenResponse(c *gin.Context, message string) {
	Abort(c, http.StatusForbidden, &APIError{
		Code:    ErrCodeForbidden,
		Message: message,
	})
}

// TooManyRequestsResponse создаёт ответ для rate limiting.
func TooManyRequestsResponse(c *gin.Context, retryAfter int) {
	Abort(c, http.StatusTooManyRequests, &APIError{
		Code:       ErrCodeTooManyRequests,
		Message:    "Too many requests, please try again later",
		RetryAfter: retryAfter,
	})
}

// InternalErrorResponse создаёт ответ для внутренней ошибки.
func InternalErrorResponse(c *gin.Context, message string) {
	Abort(c, http.StatusInternalServerError, &APIError{
		Code:    ErrCodeInternal,
		Message: message,
	})
}

// ============================================
// Result to HTTP Response Mapper
// ============================================

// Respond отправляет Result: успех - successStatus с value в data,
// неудача - статус по кодам сообщений (см. StatusFor).
//
// Для Result[result.Void] успех отвечает 204 без тела.
func Respond[T any](c *gin.Context, successStatus int, r result.Result[T]) {
	if r.Failure() {
		Fail(c, r)
		return
	}

	value, ok := r.Get()
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	if _, void := any(value).(result.Void); void {
		c.Status(http.StatusNoContent)
		return
	}
	Success(c, successStatus, value)
}

// Fail отправляет неудачный Result.
func Fail[T any](c *gin.Context, r result.Result[T]) {
	messages := r.Messages()
	status := StatusFor(r)

	apiErr := &APIError{
		Code:     codeFor(r, status),
		Message:  http.StatusText(status),
		Messages: messages,
	}
	for _, m := range messages {
		if !m.IsError() {
			continue
		}
		if apiErr.Message == http.StatusText(status) {
			apiErr.Message = m.Phrase
		}
		if m.Field != "" {
			apiErr.Fields = append(apiErr.Fields, FieldError{
				Field:   m.Field,
				Message: m.Phrase,
				Code:    m.Code.String(),
			})
		}
	}

	Error(c, status, apiErr)
}

// StatusFor выбирает HTTP статус для неудачного Result.
//
// Приоритет: сбой хранилища и неожиданные ошибки (500), конфликт (409),
// not found (404), валидация (400).
func StatusFor[T any](r result.Result[T]) int {
	switch {
	case r.Success():
		return http.StatusOK
	case r.HasCode(result.CodeDatabaseError),
		r.HasCode(result.CodeUnexpected),
		r.HasCode(result.CodeInvalidState):
		return http.StatusInternalServerError
	case r.HasCode(result.CodeConflict):
		return http.StatusConflict
	case r.NotFound(), r.HasCode(result.CodeNotFound):
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

func codeFor[T any](r result.Result[T], status int) string {
	switch status {
	case http.StatusNotFound:
		return ErrCodeNotFound
	case http.StatusConflict:
		return ErrCodeConflict
	case http.StatusInternalServerError:
		if r.HasCode(result.CodeDatabaseError) {
			return ErrCodeDatabase
		}
		return ErrCodeInternal
	default:
		return ErrCodeValidation
	}
}
