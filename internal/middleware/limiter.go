package middleware

import (
	"github.com/haierkeys/memory-server/pkg/app"
	"github.com/haierkeys/memory-server/pkg/code"
	apperrors "github.com/haierkeys/memory-server/pkg/errors"
	"github.com/haierkeys/memory-server/pkg/limiter"

	"github.com/gin-gonic/gin"
)

// RateLimiter creates rate limiting middleware (supports dependency injection)
// RateLimiter 创建限流中间件（支持依赖注入）
func RateLimiter(l limiter.Face) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := l.Key(c)
		if bucket, ok := l.GetBucket(key); ok {
			count := bucket.TakeAvailable(1)
			if count == 0 {
				app.NewResponse(c).ToErrorResponse(apperrors.NewAppError(code.ErrorTooManyRequests, nil))
				return
			}
		}

		c.Next()
	}
}
