package ports

import "context"

// Localizer форматирует локализованную фразу по ключу и позиционным аргументам.
// Культура берётся из context.
type Localizer interface {
	Phrase(ctx context.Context, key string, args ...any) string
}
