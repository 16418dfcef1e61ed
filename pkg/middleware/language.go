package middleware

import (
	"GuardianSOS/pkg/i18n"

	"github.com/gin-gonic/gin"
)

const LangKey = "lang"

// LanguageMiddleware 从 ?lang 或 Accept-Language 解析语言，写入上下文
func LanguageMiddleware(i18nSupport *i18n.I18nSupport) gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := i18nSupport.Match(c.Query("lang"), c.GetHeader("Accept-Language"))
		c.Set(LangKey, lang)
		c.Next()
	}
}

// Lang returns the negotiated language, or "" when the middleware is not mounted.
func Lang(c *gin.Context) string {
	return c.GetString(LangKey)
}
