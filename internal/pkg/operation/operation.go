// Package operation - контекст операции: кто выполняет текущий запрос.
//
// Пользователь регистрируется один раз на запрос (auth middleware или вызывающий код)
// и читается сервисами и логгером из context.
package operation

import (
	"context"
	"strings"
)

// UserDetails описывает пользователя, от имени которого выполняется операция.
type UserDetails struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// System - пользователь фоновых процессов (relay, миграции, seed).
var System = UserDetails{ID: "0", Name: "System", Username: "system"}

// IsZero reports whether no user is set.
func (u UserDetails) IsZero() bool {
	return strings.TrimSpace(u.ID) == "" && strings.TrimSpace(u.Username) == ""
}

// String returns the username, falling back to the ID.
func (u UserDetails) String() string {
	if u.Username != "" {
		return u.Username
	}
	return u.ID
}

type userKey struct{}

// WithUser сохраняет пользователя операции в context.
func WithUser(ctx context.Context, user UserDetails) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFrom извлекает пользователя операции.
func UserFrom(ctx context.Context) (UserDetails, bool) {
	user, ok := ctx.Value(userKey{}).(UserDetails)
	if !ok || user.IsZero() {
		return UserDetails{}, false
	}
	return user, true
}

// UserOrSystem возвращает пользователя операции или System.
func UserOrSystem(ctx context.Context) UserDetails {
	if user, ok := UserFrom(ctx); ok {
		return user
	}
	return System
}
