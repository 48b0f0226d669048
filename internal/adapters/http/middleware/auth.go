// Package middleware - Authentication middleware.
//
// Bearer JWT (HS256, общий секрет). Пользователь из токена регистрируется
// как пользователь операции (operation.WithUser) в context запроса.
package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Haleralex/catalog/internal/adapters/http/common"
	"github.com/Haleralex/catalog/internal/pkg/logger"
	"github.com/Haleralex/catalog/internal/pkg/operation"
)

const (
	// AuthUserIDKey - ключ для хранения User ID в контексте
	AuthUserIDKey = "auth_user_id"
	// AuthUserRoleKey - ключ для хранения роли пользователя
	AuthUserRoleKey = "auth_user_role"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token expired")
	ErrInvalidIssuer = errors.New("invalid issuer")
)

// AuthConfig - конфигурация для authentication middleware.
type AuthConfig struct {
	// TokenValidator - функция для валидации токена
	TokenValidator func(token string) (*AuthClaims, error)
	// SkipPaths - пути, которые не требуют авторизации
	SkipPaths []string
}

// AuthClaims - данные из токена авторизации.
//
// Pattern: Claims object (как в JWT)
type AuthClaims struct {
	UserID   string
	Name     string
	Username string
	Role     string
	Exp      time.Time
}

// User возвращает пользователя операции.
func (c *AuthClaims) User() operation.UserDetails {
	return operation.UserDetails{ID: c.UserID, Name: c.Name, Username: c.Username}
}

// Auth middleware для проверки авторизации.
//
// Схема работы:
// 1. Извлекает токен из заголовка Authorization
// 2. Валидирует токен через TokenValidator
// 3. Регистрирует пользователя операции в context запроса
// 4. Продолжает обработку или возвращает 401
//
// Pattern: Bearer Token Authentication
func Auth(config *AuthConfig) gin.HandlerFunc {
	// Создаём map для быстрой проверки skip paths
	skipMap := make(map[string]bool)
	for _, path := range config.SkipPaths {
		skipMap[path] = true
	}

	return func(c *gin.Context) {
		if skipMap[c.Request.URL.Path] {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			common.UnauthorizedResponse(c, "Authorization header is required")
			return
		}

		// Проверяем формат "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			common.UnauthorizedResponse(c, "Invalid authorization header format")
			return
		}

		token := strings.TrimSpace(parts[1])
		if token == "" {
			common.UnauthorizedResponse(c, "Token is required")
			return
		}

		claims, err := config.TokenValidator(token)
		if err != nil {
			if errors.Is(err, ErrExpiredToken) {
				common.UnauthorizedResponse(c, "Token has expired")
				return
			}
			common.UnauthorizedResponse(c, "Invalid or expired token")
			return
		}

		if !claims.Exp.IsZero() && claims.Exp.Before(time.Now()) {
			common.UnauthorizedResponse(c, "Token has expired")
			return
		}

		c.Set(AuthUserIDKey, claims.UserID)
		c.Set(AuthUserRoleKey, claims.Role)

		ctx := operation.WithUser(c.Request.Context(), claims.User())
		ctx = logger.WithUserID(ctx, claims.UserID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// RequireRole middleware проверяет роль пользователя.
//
// Используется после Auth middleware для проверки разрешений.
func RequireRole(roles ...string) gin.HandlerFunc {
	roleMap := make(map[string]bool)
	for _, role := range roles {
		roleMap[role] = true
	}

	return func(c *gin.Context) {
		userRole := GetAuthUserRole(c)
		if userRole == "" {
			common.ForbiddenResponse(c, "User role not found")
			return
		}

		if !roleMap[userRole] {
			common.ForbiddenResponse(c, "Insufficient permissions")
			return
		}

		c.Next()
	}
}

// ============================================
// Helper functions для извлечения auth данных
// ============================================

// GetAuthUserID возвращает ID авторизованного пользователя.
func GetAuthUserID(c *gin.Context) string {
	if id, exists := c.Get(AuthUserIDKey); exists {
		if strID, ok := id.(string); ok {
			return strID
		}
	}
	return ""
}

// GetAuthUserRole возвращает роль авторизованного пользователя.
func GetAuthUserRole(c *gin.Context) string {
	if role, exists := c.Get(AuthUserRoleKey); exists {
		if strRole, ok := role.(string); ok {
			return strRole
		}
	}
	return ""
}

// ============================================
// JWT
// ============================================

// TokenClaims - claims токена каталога.
type TokenClaims struct {
	jwt.RegisteredClaims
	Name     string `json:"name,omitempty"`
	Username string `json:"preferred_username,omitempty"`
	Role     string `json:"role,omitempty"`
}

// JWTAuthenticator подписывает и проверяет HS256 токены.
type JWTAuthenticator struct {
	secret []byte
	issuer string
}

// NewJWTAuthenticator создаёт JWTAuthenticator. Пустой issuer не проверяется.
func NewJWTAuthenticator(secret, issuer string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: []byte(secret), issuer: issuer}
}

// Issue подписывает токен для пользователя.
func (a *JWTAuthenticator) Issue(user operation.UserDetails, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Name:     user.Name,
		Username: user.Username,
		Role:     role,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

// Validate проверяет подпись, срок и issuer токена. Подходит как AuthConfig.TokenValidator.
func (a *JWTAuthenticator) Validate(tokenString string) (*AuthClaims, error) {
	var claims TokenClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return a.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if a.issuer != "" && claims.Issuer != a.issuer {
		return nil, ErrInvalidIssuer
	}
	if claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	result := &AuthClaims{
		UserID:   claims.Subject,
		Name:     claims.Name,
		Username: claims.Username,
		Role:     claims.Role,
	}
	if claims.ExpiresAt != nil {
		result.Exp = claims.ExpiresAt.Time
	}
	return result, nil
}
