package routers

import (
	"github.com/haierkeys/memory-server/internal/app"
	"github.com/haierkeys/memory-server/internal/middleware"
	"github.com/haierkeys/memory-server/internal/routers/api_router"
	"github.com/haierkeys/memory-server/pkg/limiter"

	"github.com/gin-gonic/gin"
)

// NewRouter 创建 REST 路由
func NewRouter(appContainer *app.App) *gin.Engine {

	// 获取配置
	cfg := appContainer.Config()
	lg := appContainer.Logger()

	r := gin.New()
	r.HandleMethodNotAllowed = false

	r.Use(middleware.RecoveryWithLogger(lg))
	r.Use(middleware.TraceMiddleware(cfg.Tracer.Header)) // Trace ID 中间件
	r.Use(middleware.AccessLog(lg, appContainer.Metrics()))
	r.Use(middleware.Cors(cfg.App.CorsAllowOrigins))
	if cfg.App.RateLimitCapacity > 0 {
		r.Use(middleware.RateLimiter(limiter.NewClientLimiter(limiter.BucketRule{
			FillInterval: cfg.GetRateLimitFillInterval(),
			Capacity:     cfg.App.RateLimitCapacity,
			Quantum:      1,
		})))
	}
	r.Use(middleware.ContextTimeout(cfg.GetContextTimeout()))
	r.Use(middleware.LangWithTranslator(appContainer.Validator().Translator()))

	// 创建 Handlers（注入 App Container）
	base := api_router.NewHandler(appContainer)
	healthHandler := api_router.NewHealthHandler(base)
	memoryHandler := api_router.NewMemoryHandler(base)

	r.GET("/", healthHandler.Index)
	r.GET("/health", healthHandler.Check)

	memories := r.Group("/memories")
	{
		memories.POST("", memoryHandler.Create)
		memories.GET("", memoryHandler.List)
		memories.GET("/search", memoryHandler.Search)
		memories.GET("/rules", memoryHandler.ListRules)
		memories.GET("/tags/:tag", memoryHandler.ListByTag)
		memories.GET("/:id", memoryHandler.Get)
		memories.PUT("/:id", memoryHandler.Update)
		memories.DELETE("/:id", memoryHandler.Delete)
	}

	r.NoRoute(middleware.NoFound())

	return r
}
