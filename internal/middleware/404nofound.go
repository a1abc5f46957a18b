package middleware

import (
	"github.com/haierkeys/memory-server/pkg/app"
	"github.com/haierkeys/memory-server/pkg/code"
	apperrors "github.com/haierkeys/memory-server/pkg/errors"

	"github.com/gin-gonic/gin"
)

// NoFound 404 handler
// NoFound 404 处理，同样使用错误响应格式
func NoFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		err := apperrors.NewAppError(code.ErrorNotFoundAPI, nil).
			WithDetail("method", c.Request.Method).
			WithDetail("path", c.Request.URL.Path)
		app.NewResponse(c).ToErrorResponse(err)
	}
}
