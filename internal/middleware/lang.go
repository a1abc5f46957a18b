package middleware

import (
	"context"
	"strings"

	"github.com/haierkeys/memory-server/pkg/code"
	"github.com/haierkeys/memory-server/pkg/validator"

	ut "github.com/go-playground/universal-translator"
	"github.com/gin-gonic/gin"
)

// LangWithTranslator 创建带翻译器的语言中间件（支持依赖注入）
// 语言来源依次为 ?lang=、lang 请求头、Accept-Language
func LangWithTranslator(uni *ut.UniversalTranslator) gin.HandlerFunc {

	return func(c *gin.Context) {

		var lang string

		if s, exist := c.GetQuery("lang"); exist {
			lang = s
		} else if s = c.GetHeader("lang"); len(s) != 0 {
			lang = s
		} else if s = c.GetHeader("Accept-Language"); len(s) != 0 {
			lang = s
		}

		lang = normalizeLang(lang)

		trans, found := uni.GetTranslator(lang)
		if !found {
			lang = code.FALLBACK_LNG
			trans, _ = uni.GetTranslator(lang)
		}

		c.Set(validator.TransKey, trans)
		c.Set("lang", lang)

		ctx := context.WithValue(c.Request.Context(), validator.TransKey, trans) //nolint:staticcheck
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// normalizeLang ja-JP,ja;q=0.9 -> ja
func normalizeLang(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	if i := strings.IndexAny(s, ",;"); i >= 0 {
		s = s[:i]
	}
	s = strings.ReplaceAll(s, "-", "_")
	if i := strings.IndexByte(s, '_'); i >= 0 {
		s = s[:i]
	}
	return s
}
