package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/haierkeys/memory-server/pkg/app"
	apperrors "github.com/haierkeys/memory-server/pkg/errors"
	"github.com/haierkeys/memory-server/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RecoveryWithLogger 创建带日志器的 Recovery 中间件（支持依赖注入）
func RecoveryWithLogger(lg *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		defer func() {
			if r := recover(); r != nil {
				var err error
				switch v := r.(type) {
				case error:
					err = v
				default:
					err = fmt.Errorf("panic: %v", v)
				}

				lg.Error("Recovered from panic",
					zap.String("router", path),
					zap.String(logger.FieldMethod, c.Request.Method),
					zap.String("query", query),
					zap.String("ip", c.ClientIP()),
					zap.String(logger.FieldTraceID, c.GetString(TraceIDKey)),
					zap.Error(err),
					zap.String("stack", string(debug.Stack())),
				)

				// 返回统一的错误响应，panic 内容不对外输出
				app.NewResponse(c).ToErrorResponse(apperrors.Internal(err))
			}
		}()

		c.Next()
	}
}
