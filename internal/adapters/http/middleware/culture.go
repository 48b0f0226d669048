// Package middleware - Culture middleware.
package middleware

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"

	"github.com/Haleralex/catalog/internal/pkg/localization"
)

const (
	// CultureQueryParam - явный выбор культуры (?culture=ru) имеет приоритет над заголовком
	CultureQueryParam = "culture"
	// ContentLanguageHeader - культура, на которой сформированы сообщения ответа
	ContentLanguageHeader = "Content-Language"
)

// CultureMatcher выбирает поддерживаемую культуру по Accept-Language.
//
// Реализуется localization.Localizer.
type CultureMatcher interface {
	Match(acceptLanguage string) language.Tag
}

// Culture middleware определяет культуру запроса и кладёт её в context:
// сервис формирует локализованные фразы сообщений Result по ней.
//
// Pattern: Request Scoped Context
func Culture(matcher CultureMatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		preference := c.Query(CultureQueryParam)
		if preference == "" {
			preference = c.GetHeader("Accept-Language")
		}

		tag := matcher.Match(preference)
		c.Request = c.Request.WithContext(localization.WithCulture(c.Request.Context(), tag))
		c.Header(ContentLanguageHeader, tag.String())

		c.Next()
	}
}
