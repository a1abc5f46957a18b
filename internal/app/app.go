// Package app 提供应用容器，封装所有依赖和服务
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/haierkeys/memory-server/internal/dao"
	"github.com/haierkeys/memory-server/internal/domain"
	"github.com/haierkeys/memory-server/internal/dto"
	"github.com/haierkeys/memory-server/internal/service"
	"github.com/haierkeys/memory-server/pkg/metrics"
	"github.com/haierkeys/memory-server/pkg/validator"
	"github.com/haierkeys/memory-server/pkg/writequeue"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App 应用容器，封装所有依赖和服务
// REST 与 MCP 共用同一个容器，也就共用同一个 MemoryService
type App struct {
	// 基础设施（注入的依赖）
	config  *AppConfig
	logger  *zap.Logger
	DB      *gorm.DB
	Dao     *dao.Dao
	metrics *metrics.Metrics

	// 写操作串行化
	writeQueue *writequeue.Queue

	validator *validator.CustomValidator

	// Repository 层
	MemoryRepo domain.MemoryRepository

	// Service 层
	MemoryService service.MemoryService

	StartTime time.Time

	// 关闭控制
	shutdownCh chan struct{}
}

// Option App 配置选项
type Option func(*App)

// WithMetrics 指定指标集合，默认注册到全局 Registry
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *App) {
		a.metrics = m
	}
}

// NewApp 创建应用容器实例
// 初始化所有依赖并进行依赖注入
// cfg: 应用配置（必须）
// logger: zap 日志器（必须）
// db: 数据库连接（必须）
func NewApp(cfg *AppConfig, logger *zap.Logger, db *gorm.DB, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}

	a := &App{
		config:     cfg,
		logger:     logger,
		DB:         db,
		StartTime:  time.Now(),
		shutdownCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.metrics == nil {
		a.metrics = metrics.Default()
	}

	v, err := validator.NewCustomValidator()
	if err != nil {
		return nil, fmt.Errorf("init validator: %w", err)
	}
	a.validator = v

	// 初始化 Write Queue
	wqConfig := cfg.GetWriteQueueConfig()
	a.writeQueue = writequeue.New(&wqConfig, logger)

	// 初始化 DAO，建表在这里完成一次
	a.Dao, err = dao.New(db, context.Background(),
		dao.WithLogger(logger),
		dao.WithWriteQueue(a.writeQueue),
	)
	if err != nil {
		_ = a.writeQueue.Shutdown(context.Background())
		return nil, fmt.Errorf("init dao: %w", err)
	}

	// 初始化 Repository 层
	a.MemoryRepo = dao.NewMemoryRepository(a.Dao)

	// 初始化 Service 层（依赖注入）
	a.MemoryService = service.NewMemoryService(a.MemoryRepo, a.validator, cfg.GetServiceConfig(), logger, a.metrics)

	logger.Info("App container initialized successfully",
		zap.String("databaseType", cfg.Database.Type),
		zap.Int("writeQueueCapacity", wqConfig.QueueCapacity),
		zap.Int("maxSearchResults", cfg.Memory.MaxSearchResults))

	return a, nil
}

// Close 释放应用容器持有的资源
func (a *App) Close() error {
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err != nil {
			return fmt.Errorf("failed to get sql.DB: %w", err)
		}
		if err := sqlDB.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
		a.logger.Info("Database connection closed")
	}
	return nil
}

// Config 获取应用配置
func (a *App) Config() *AppConfig {
	return a.config
}

// Logger 获取日志器
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Metrics 获取指标集合
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// Validator 获取验证器
func (a *App) Validator() *validator.CustomValidator {
	return a.validator
}

// WriteQueue 获取写队列（用于高级操作）
func (a *App) WriteQueue() *writequeue.Queue {
	return a.writeQueue
}

// Version 获取版本信息
func (a *App) Version() dto.VersionDTO {
	return dto.VersionDTO{
		Name:      Name,
		Version:   Version,
		GitTag:    GitTag,
		BuildTime: BuildTime,
	}
}

// Uptime 运行时间
func (a *App) Uptime() time.Duration {
	return time.Since(a.StartTime)
}

// IsProductionMode 是否为生产模式
// 根据日志配置中的 Production 字段判断
func (a *App) IsProductionMode() bool {
	return a.config.Log.Production
}

// DefaultShutdownTimeout 默认关闭超时时间
const DefaultShutdownTimeout = 30 * time.Second

// Shutdown 优雅关闭应用容器
// 按顺序关闭：Write Queue -> Database
// ctx 用于控制关闭超时，如果为 nil 则使用默认 30 秒超时
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("App container shutting down...")

	// 如果没有提供 context，使用默认超时
	if ctx == nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
	}

	// 标记关闭
	select {
	case <-a.shutdownCh:
		// 已经关闭
		return nil
	default:
		close(a.shutdownCh)
	}

	var errs []error

	// 1. 排空写队列，已入队的写操作全部完成
	if a.writeQueue != nil {
		a.logger.Info("Shutting down write queue...")
		if err := a.writeQueue.Shutdown(ctx); err != nil {
			a.logger.Warn("write queue shutdown error", zap.Error(err))
			errs = append(errs, fmt.Errorf("write queue shutdown: %w", err))
		} else {
			a.logger.Info("write queue shutdown completed",
				zap.Int64("executed", a.writeQueue.Executed()))
		}
	}

	// 2. 关闭数据库连接
	if err := a.Close(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		a.logger.Warn("App container shutdown completed with errors",
			zap.Int("errorCount", len(errs)))
		return fmt.Errorf("shutdown completed with %d errors: %v", len(errs), errs)
	}

	a.logger.Info("App container shutdown completed successfully")
	return nil
}

// IsShuttingDown 检查应用是否正在关闭
func (a *App) IsShuttingDown() bool {
	select {
	case <-a.shutdownCh:
		return true
	default:
		return false
	}
}

// ShutdownCh 返回关闭信号通道（用于监听关闭事件）
func (a *App) ShutdownCh() <-chan struct{} {
	return a.shutdownCh
}
